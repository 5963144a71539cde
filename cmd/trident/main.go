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

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/trident"
	"github.com/poiesic/trident/config"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trident",
		Usage: "Fuzzy search over ssh hosts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: user config dir)",
			},
			&cli.StringFlag{
				Name:  "ssh-config",
				Usage: "Override ssh.config_path",
			},
			&cli.StringFlag{
				Name:  "known-hosts",
				Usage: "Override ssh.known_hosts_path",
			},
			&cli.StringFlag{
				Name:  "usage-db",
				Usage: "Override storage.usage_path",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Aliases:   []string{"q"},
				Usage:     "Search hosts and print ranked results",
				ArgsUsage: "[text]",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Override ui.max_results",
					},
					&cli.BoolFlag{
						Name:  "case-sensitive",
						Usage: "Match case exactly",
					},
					&cli.BoolFlag{
						Name:  "highlight",
						Usage: "Bracket matched characters",
					},
					&cli.BoolFlag{
						Name:  "scores",
						Usage: "Print fuzzy and final scores",
					},
				},
			},
			{
				Name:   "reload",
				Usage:  "Rebuild the index and report what each source contributed",
				Action: reloadCommand,
			},
			{
				Name:      "record",
				Usage:     "Record a connection to a host",
				ArgsUsage: "<name>",
				Action:    recordCommand,
			},
			{
				Name:   "history",
				Usage:  "List recorded connections, most used first",
				Action: historyCommand,
			},
			{
				Name:      "forget",
				Usage:     "Erase connection history for a host",
				ArgsUsage: "<name>",
				Action:    forgetCommand,
			},
			{
				Name:   "watch",
				Usage:  "Keep the index live and report rebuilds until interrupted",
				Action: watchCommand,
			},
			{
				Name:   "init",
				Usage:  "Write a default config file",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func configPath(c *cli.Context) (string, error) {
	if p := c.String("config"); p != "" {
		return config.ExpandPath(p)
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path, err := configPath(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if p := c.String("ssh-config"); p != "" {
		cfg.SSH.ConfigPath = p
		cfg.Parsing.ParseSSHConfig = true
	}
	if p := c.String("known-hosts"); p != "" {
		cfg.SSH.KnownHostsPath = p
		cfg.Parsing.ParseKnownHosts = true
	}
	if p := c.String("usage-db"); p != "" {
		cfg.Storage.UsagePath = p
	}
	if c.IsSet("max-results") {
		cfg.UI.MaxResults = c.Int("max-results")
	}
	if c.Bool("case-sensitive") {
		cfg.UI.CaseSensitive = true
	}
	return cfg, nil
}

func openEngine(c *cli.Context, opts ...trident.EngineOption) (*trident.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	eng, err := trident.NewEngine(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return eng, nil
}

func queryCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Reload(c.Context); err != nil {
		slog.Warn("index build failed", "err", err)
	}

	text := strings.Join(c.Args().Slice(), " ")
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, m := range eng.Matches(text) {
		name := m.Entry.Name
		if c.Bool("highlight") {
			name = highlight(name, m.Spans)
		}
		if c.Bool("scores") {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\n", name, m.Entry.ConnectionTarget, m.Score, m.Rank)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, m.Entry.ConnectionTarget)
	}
	return w.Flush()
}

// highlight wraps each span of name in brackets. Spans index runes.
func highlight(name string, spans []core.Span) string {
	if len(spans) == 0 {
		return name
	}
	runes := []rune(name)
	var b strings.Builder
	next := 0
	for _, s := range spans {
		if s.Start < next || s.End > len(runes) || s.Start >= s.End {
			continue
		}
		b.WriteString(string(runes[next:s.Start]))
		b.WriteByte('[')
		b.WriteString(string(runes[s.Start:s.End]))
		b.WriteByte(']')
		next = s.End
	}
	b.WriteString(string(runes[next:]))
	return b.String()
}

func reloadCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	start := time.Now()
	if err := eng.Reload(c.Context); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	printSnapshot(c, eng.Snapshot(), time.Since(start))
	return nil
}

func printSnapshot(c *cli.Context, snap *ingestion.Snapshot, elapsed time.Duration) {
	out := c.App.Writer
	fmt.Fprintf(out, "Indexed %d hosts in %s (version %d, fingerprint %016x)\n",
		snap.Len(), elapsed.Round(time.Millisecond), snap.Version, uint64(snap.Fingerprint))
	for _, r := range snap.Sources {
		if r.Err != nil {
			fmt.Fprintf(out, "  %-12s failed: %v\n", r.Source, r.Err)
			continue
		}
		fmt.Fprintf(out, "  %-12s %d entries\n", r.Source, r.Entries)
	}
}

func recordCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("host name is required")
	}

	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Reload(c.Context); err != nil {
		slog.Warn("index build failed", "err", err)
	}
	if err := eng.RecordConnection(name); err != nil {
		return err
	}
	if eng.Degraded() {
		fmt.Fprintln(c.App.ErrWriter, "warning: usage history could not be saved")
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	for _, r := range eng.History() {
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.Name, r.Count, r.LastUsed.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func forgetCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("host name is required")
	}

	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	return eng.Forget(name)
}

// printObserver reports rebuild outcomes as they happen.
type printObserver struct {
	c *cli.Context
}

func (p printObserver) Published(snap *ingestion.Snapshot) {
	printSnapshot(p.c, snap, time.Since(snap.BuiltAt))
}

func (p printObserver) RebuildFailed(err error) {
	fmt.Fprintf(p.c.App.ErrWriter, "rebuild failed, keeping previous index: %v\n", err)
}

func watchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(c, trident.WithObserver(printObserver{c: c}))
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Start(ctx); err != nil {
		slog.Warn("initial index build failed", "err", err)
	}
	fmt.Fprintln(c.App.ErrWriter, "Watching for changes, press Ctrl-C to stop")

	<-ctx.Done()
	return nil
}

func initCommand(c *cli.Context) error {
	path, err := configPath(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// TRIDENT_DEBUG wins over the flag
	if os.Getenv("TRIDENT_DEBUG") != "" {
		level = slog.LevelDebug
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
