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

// Command searcher runs queries against an ssh fixture directory and
// reports per-stage timing. Queries come from the arguments, or one per
// line on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/trident"
	"github.com/poiesic/trident/config"
	"github.com/poiesic/trident/core"
)

var fixtures = flag.String("dir", "./fixtures", "directory holding config and known_hosts")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// timingMonitor records how long each stage of one query took.
type timingMonitor struct {
	start   time.Time
	scored  time.Duration
	matched int
	cached  bool
}

func (m *timingMonitor) Start(_ string) {
	m.start = time.Now()
}

func (m *timingMonitor) CacheHit(_ []core.Match) {
	m.cached = true
}

func (m *timingMonitor) AfterScoring(matched int) {
	m.scored = time.Since(m.start)
	m.matched = matched
}

func (m *timingMonitor) Finish(_ []core.Match, _ time.Duration) {}

func main() {
	cfg := config.NewConfig(
		config.WithSSHConfigPath(filepath.Join(*fixtures, "config")),
		config.WithKnownHostsPath(filepath.Join(*fixtures, "known_hosts")),
		config.WithUsagePath(filepath.Join(*fixtures, "usage")),
		config.WithMaxResults(5),
	)
	eng, err := trident.NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	defer eng.Close()

	if err := eng.Reload(context.Background()); err != nil {
		panic(err)
	}
	slog.Info("index ready", "hosts", eng.Snapshot().Len())

	run := func(q string) {
		m := &timingMonitor{}
		start := time.Now()
		results := eng.MatchesWithMonitor(q, m)
		elapsed := time.Since(start)

		fmt.Printf("%q: %d matched, %d shown, scored in %s, total %s, cached=%v\n",
			q, m.matched, len(results), m.scored, elapsed, m.cached)
		for i, hit := range results {
			fmt.Printf("%d: '%s' [%0.3f/%0.3f]\n", i, hit.Entry.Name, hit.Score, hit.Rank)
		}
	}

	if flag.NArg() > 0 {
		run(strings.Join(flag.Args(), " "))
		return
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		run(scanner.Text())
	}
}
