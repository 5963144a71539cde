// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command seeder writes synthetic ssh_config and known_hosts files, and
// optionally usage history, for benchmarking and manual testing.
package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"iter"
	"log"
	"log/slog"
	mrand "math/rand/v2"
	"os"
	"path/filepath"

	"github.com/poiesic/trident/storage/badger"
	"github.com/poiesic/trident/usage"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ssh"
)

var (
	regions = []string{"us-east-1", "us-west-2", "eu-west-1", "eu-central-1", "ap-south-1", "ap-northeast-1"}
	roles   = []string{"web", "api", "db", "cache", "queue", "worker", "bastion", "search", "metrics", "gateway"}
	envs    = []string{"prod", "staging", "dev", "qa"}
	domains = []string{"example.com", "internal", "corp.example.net"}
)

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Generate synthetic ssh host files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "./fixtures",
			},
			&cli.IntFlag{
				Name:    "hosts",
				Aliases: []string{"n"},
				Usage:   "Number of hosts to generate",
				Value:   1000,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed; the same seed produces the same files",
				Value: 1,
			},
			&cli.Float64Flag{
				Name:  "overlap",
				Usage: "Fraction of ssh_config hosts also written to known_hosts",
				Value: 0.3,
			},
			&cli.StringFlag{
				Name:  "usage-db",
				Usage: "Also record random connections into this usage database",
			},
			&cli.IntFlag{
				Name:  "connections",
				Usage: "Number of connections to record with --usage-db",
				Value: 200,
			},
		},
		Action: seed,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	out := c.String("out")
	n := c.Int("hosts")
	if n <= 0 {
		return fmt.Errorf("hosts must be greater than 0")
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	rng := mrand.New(mrand.NewPCG(c.Uint64("seed"), 0))
	names := collect(hostNames(rng), n)

	// Half the hosts go to ssh_config, the rest to known_hosts, with some overlap.
	split := n / 2
	configHosts := names[:split]
	knownHosts := append([]string{}, names[split:]...)
	for _, h := range configHosts {
		if rng.Float64() < c.Float64("overlap") {
			knownHosts = append(knownHosts, h)
		}
	}

	if err := writeFile(filepath.Join(out, "config"), func(w io.Writer) error {
		return writeSSHConfig(w, configHosts, rng)
	}); err != nil {
		return err
	}

	key, err := newHostKey()
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(out, "known_hosts"), func(w io.Writer) error {
		return writeKnownHosts(w, knownHosts, key, rng)
	}); err != nil {
		return err
	}

	slog.Info("wrote fixtures", "dir", out, "ssh_config", len(configHosts), "known_hosts", len(knownHosts))

	if path := c.String("usage-db"); path != "" {
		return recordConnections(c.Context, path, names, c.Int("connections"), rng)
	}
	return nil
}

// hostNames yields an endless stream of distinct host names.
func hostNames(rng *mrand.Rand) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]bool)
		for i := 0; ; i++ {
			name := fmt.Sprintf("%s-%s-%s-%02d",
				envs[rng.IntN(len(envs))],
				roles[rng.IntN(len(roles))],
				regions[rng.IntN(len(regions))],
				rng.IntN(100))
			if seen[name] {
				// Fall back to a counter suffix once the space gets crowded.
				name = fmt.Sprintf("%s-%d", name, i)
			}
			seen[name] = true
			if !yield(name) {
				return
			}
		}
	}
}

func collect(seq iter.Seq[string], n int) []string {
	out := make([]string, 0, n)
	for s := range seq {
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSSHConfig(w io.Writer, hosts []string, rng *mrand.Rand) error {
	if _, err := fmt.Fprint(w, "Host *\n    ServerAliveInterval 30\n\n"); err != nil {
		return err
	}
	for _, h := range hosts {
		if _, err := fmt.Fprintf(w, "Host %s\n    HostName %s.%s\n", h, h, domains[rng.IntN(len(domains))]); err != nil {
			return err
		}
		if rng.IntN(3) == 0 {
			if _, err := fmt.Fprintf(w, "    User deploy\n"); err != nil {
				return err
			}
		}
		if rng.IntN(5) == 0 {
			if _, err := fmt.Fprintf(w, "    Port %d\n", 2200+rng.IntN(100)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func newHostKey() (ssh.PublicKey, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return ssh.NewPublicKey(pub)
}

func writeKnownHosts(w io.Writer, hosts []string, key ssh.PublicKey, rng *mrand.Rand) error {
	keyText := ssh.MarshalAuthorizedKey(key)
	for _, h := range hosts {
		addr := h
		if rng.IntN(10) == 0 {
			addr = fmt.Sprintf("[%s]:%d", h, 2200+rng.IntN(100))
		}
		ip := fmt.Sprintf("10.%d.%d.%d", rng.IntN(256), rng.IntN(256), 1+rng.IntN(254))
		if _, err := fmt.Fprintf(w, "%s,%s %s", addr, ip, keyText); err != nil {
			return err
		}
	}
	return nil
}

// recordConnections writes a skewed launch history: a few hosts get most
// of the connections.
func recordConnections(ctx context.Context, path string, names []string, count int, rng *mrand.Rand) error {
	backend, err := badger.OpenBackend(path, false)
	if err != nil {
		return fmt.Errorf("failed to open usage database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewUsageRepository(backend)
	if err != nil {
		return err
	}
	defer repo.Close()

	tracker, err := usage.NewTracker(usage.WithRepository(repo))
	if err != nil {
		return err
	}
	if err := tracker.Load(ctx); err != nil {
		return err
	}

	zipf := mrand.NewZipf(rng, 1.2, 1, uint64(len(names)-1))
	for range count {
		if _, err := tracker.Record(ctx, names[zipf.Uint64()]); err != nil {
			return err
		}
	}
	slog.Info("recorded connections", "db", path, "connections", count, "hosts", len(tracker.All()))
	return nil
}
