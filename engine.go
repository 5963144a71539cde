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

// Package trident is an in-memory fuzzy search engine over ssh hosts.
//
// An Engine reads hosts from ssh_config and known_hosts, keeps an
// immutable index that is rebuilt in the background when those files
// change, and ranks query results by fuzzy match quality adjusted for how
// often and how recently each host was opened.
//
//	eng, err := trident.NewEngine(cfg)
//	if err != nil { ... }
//	defer eng.Close()
//	eng.Start(ctx)
//	for _, r := range eng.Query("prod db") { ... }
package trident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/trident/config"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/ingestion"
	"github.com/poiesic/trident/match"
	"github.com/poiesic/trident/rank"
	"github.com/poiesic/trident/reload"
	"github.com/poiesic/trident/search"
	"github.com/poiesic/trident/source"
	"github.com/poiesic/trident/storage"
	"github.com/poiesic/trident/storage/badger"
	"github.com/poiesic/trident/usage"
)

// Result is one query hit as the UI shows it.
type Result struct {
	Name             string
	ConnectionString string
	Highlights       []core.Span // matched rune ranges in Name
}

// Engine wires sources, index, usage history and search together.
type Engine struct {
	cfg         *config.Config
	backend     *badger.Backend
	usageRepo   storage.UsageRepository
	tracker     *usage.Tracker
	builder     *ingestion.Builder
	coordinator *reload.Coordinator
	cache       *search.Cache
	searcher    *search.Searcher
	sources     []source.Source
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	stop    context.CancelFunc
	done    chan struct{}
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	sources  []source.Source
	inMemory bool
	clock    func() time.Time
	observer reload.Observer
	logger   *slog.Logger
}

// WithSources replaces the sources derived from the configuration.
func WithSources(sources ...source.Source) EngineOption {
	return func(o *engineOptions) {
		o.sources = sources
	}
}

// WithInMemoryUsage keeps usage history in memory regardless of
// storage.usage_path.
func WithInMemoryUsage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithClock overrides time.Now for usage timestamps and recency.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.clock = now
	}
}

// WithObserver receives rebuild outcomes.
func WithObserver(obs reload.Observer) EngineOption {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// SourcesFromConfig returns the sources enabled in cfg, ssh_config first.
func SourcesFromConfig(cfg *config.Config, logger *slog.Logger) []source.Source {
	var out []source.Source
	if cfg.Parsing.ParseSSHConfig {
		out = append(out, &source.SSHConfig{Path: cfg.SSH.ConfigPath})
	}
	if cfg.Parsing.ParseKnownHosts {
		out = append(out, &source.KnownHosts{
			Path:       cfg.SSH.KnownHostsPath,
			SkipHashed: cfg.Parsing.SkipHashedHosts,
			Logger:     logger,
		})
	}
	return out
}

// NewEngine builds an engine from cfg. A nil cfg uses config.DefaultConfig.
// The index is empty until Start or Reload runs.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	expanded := *cfg
	if err := expanded.ExpandPaths(); err != nil {
		return nil, err
	}
	cfg = &expanded

	// Apply options
	options := &engineOptions{
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.clock == nil {
		options.clock = time.Now
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	sources := options.sources
	if sources == nil {
		sources = SourcesFromConfig(cfg, logger)
	}

	// Open usage storage. History that cannot be opened, because the path
	// is unusable or another process holds the lock, is kept in memory.
	inMemory := options.inMemory || cfg.Storage.UsagePath == ""
	backend, openErr := badger.OpenBackend(cfg.Storage.UsagePath, inMemory, badger.WithLogger(logger))
	if openErr != nil {
		var err error
		backend, err = badger.OpenBackend("", true, badger.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open usage history: %w", err)
		}
	}
	usageRepo, err := badger.NewUsageRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	tracker, err := usage.NewTracker(
		usage.WithRepository(usageRepo),
		usage.WithClock(options.clock),
		usage.WithLogger(logger),
	)
	if err != nil {
		usageRepo.Close()
		backend.Close()
		return nil, err
	}
	if openErr != nil {
		tracker.Disable("open", fmt.Errorf("%s: %w", cfg.Storage.UsagePath, openErr))
	} else if err := tracker.Load(context.Background()); err != nil {
		logger.Warn("usage history unreadable, starting empty", "err", err)
	}

	matcher, err := match.New(cfg.Matching.Weights())
	if err != nil {
		usageRepo.Close()
		backend.Close()
		return nil, err
	}

	builderOpts := []ingestion.Option{
		ingestion.WithPrecedence(precedence(cfg.Index.DedupPrecedence)...),
		ingestion.WithClock(options.clock),
		ingestion.WithLogger(logger),
	}
	if cfg.Index.PoolSize > 0 {
		builderOpts = append(builderOpts, ingestion.WithPoolSize(cfg.Index.PoolSize))
	}
	builder, err := ingestion.NewBuilder(sources, builderOpts...)
	if err != nil {
		usageRepo.Close()
		backend.Close()
		return nil, err
	}

	coordinator, err := reload.NewCoordinator(builder,
		reload.WithDebounce(cfg.Index.Debounce.Duration),
		reload.WithObserver(options.observer),
		reload.WithLogger(logger),
	)
	if err != nil {
		builder.Release()
		usageRepo.Close()
		backend.Close()
		return nil, err
	}

	cache, err := search.NewCache(cfg.Index.CacheSize)
	if err != nil {
		coordinator.Close()
		builder.Release()
		usageRepo.Close()
		backend.Close()
		return nil, err
	}
	coordinator.OnPublish(func(*ingestion.Snapshot) { cache.Purge() })

	searcher, err := search.NewSearcher(coordinator, tracker, matcher,
		search.WithParams(rank.Params{
			UsageWeightFactor: cfg.Ranking.UsageWeightFactor,
			Recency: rank.RecencyParams{
				Max:      cfg.Ranking.RecencyMax,
				HalfLife: cfg.Ranking.RecencyHalfLife.Duration,
				Horizon:  cfg.Ranking.RecencyHorizon.Duration,
			},
		}),
		search.WithMaxResults(cfg.UI.MaxResults),
		search.WithCaseSensitive(cfg.UI.CaseSensitive),
		search.WithCache(cache),
		search.WithMonitor(search.NewBudgetMonitor(cfg.Index.LatencyBudget.Duration, logger)),
		search.WithClock(options.clock),
		search.WithLogger(logger),
	)
	if err != nil {
		coordinator.Close()
		builder.Release()
		usageRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		backend:     backend,
		usageRepo:   usageRepo,
		tracker:     tracker,
		builder:     builder,
		coordinator: coordinator,
		cache:       cache,
		searcher:    searcher,
		sources:     sources,
		logger:      logger,
	}, nil
}

func precedence(names []string) []core.Source {
	out := make([]core.Source, len(names))
	for i, n := range names {
		out[i] = core.Source(n)
	}
	return out
}

// Start builds the initial index and, when any source has files, begins
// watching them for changes. A failed initial build is returned but leaves
// the engine usable; the next change or Reload retries. Watching stops when
// ctx is done or the engine is closed.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.mu.Unlock()

	buildErr := e.coordinator.Reload(ctx)

	var paths []string
	for _, s := range e.sources {
		paths = append(paths, s.Paths()...)
	}
	if len(paths) == 0 {
		return buildErr
	}

	watchCtx, cancel := context.WithCancel(ctx)
	events, err := source.Watch(watchCtx, paths, e.logger)
	if err != nil {
		cancel()
		e.logger.Warn("file watching unavailable, index refreshes only on reload", "err", err)
		return buildErr
	}

	done := make(chan struct{})
	e.mu.Lock()
	e.stop = cancel
	e.done = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		if err := e.coordinator.Run(watchCtx, events); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("watch loop stopped", "err", err)
		}
	}()
	return buildErr
}

// Query returns ranked results for text. It never fails; an empty or
// unbuilt index gives an empty slice.
func (e *Engine) Query(text string) []Result {
	matches := e.searcher.Search(text)
	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{
			Name:             m.Entry.Name,
			ConnectionString: m.Entry.ConnectionTarget,
			Highlights:       m.Spans,
		}
	}
	return out
}

// Matches returns the full match records for text, including scores and
// entry details.
func (e *Engine) Matches(text string) []core.Match {
	return e.searcher.Search(text)
}

// MatchesWithMonitor is Matches with a per-query monitor.
func (e *Engine) MatchesWithMonitor(text string, m search.Monitor) []core.Match {
	return e.searcher.SearchWithMonitor(text, m)
}

// Reload rebuilds the index synchronously.
func (e *Engine) Reload(ctx context.Context) error {
	return e.coordinator.Reload(ctx)
}

// RecordConnection notes that the user opened name. Only validation errors
// are returned; a storage failure switches history to memory only and is
// logged.
func (e *Engine) RecordConnection(name string) error {
	if name == "" {
		return core.ErrEmptyName
	}
	if _, ok := e.coordinator.Current().Lookup(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHost, name)
	}

	rec, err := e.tracker.Record(context.Background(), name)
	if err != nil {
		var perr *core.PersistenceError
		if !errors.As(err, &perr) {
			return err
		}
		e.logger.Debug("connection recorded in memory only", "name", name, "err", err)
	}
	e.searcher.Invalidate()
	e.logger.Debug("connection recorded", "name", name, "count", rec.Count)
	return nil
}

// Forget erases usage history for name.
func (e *Engine) Forget(name string) error {
	err := e.tracker.Forget(context.Background(), name)
	e.searcher.Invalidate()
	var perr *core.PersistenceError
	if errors.As(err, &perr) {
		e.logger.Debug("history removed in memory only", "name", name, "err", err)
		return nil
	}
	return err
}

// History returns usage records, most launched first.
func (e *Engine) History() []core.UsageRecord {
	return e.tracker.All()
}

// Snapshot returns the current index, or nil before the first build.
func (e *Engine) Snapshot() *ingestion.Snapshot {
	return e.coordinator.Current()
}

// Stats reports rebuild activity.
func (e *Engine) Stats() reload.Stats {
	return e.coordinator.Stats()
}

// Degraded reports whether usage history has stopped persisting.
func (e *Engine) Degraded() bool {
	return e.tracker.Degraded()
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Close stops the watcher and waits for any rebuild before closing storage.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	stop, done := e.stop, e.done
	e.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	e.coordinator.Close()
	e.builder.Release()

	if err := e.usageRepo.Close(); err != nil {
		e.logger.Error("error closing usage repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
