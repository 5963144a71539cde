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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/source"
)

// Builder loads every source concurrently and assembles a Snapshot.
// A Builder may be reused for any number of builds but Build calls must
// not overlap; the reload coordinator serializes them.
type Builder struct {
	sources    []source.Source
	precedence []core.Source
	pool       *ants.Pool
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPoolSize sets how many sources load at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if b.pool != nil {
			b.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithPrecedence sets the dedup order, most trusted source first.
// Default is ssh_config, then known_hosts.
func WithPrecedence(sources ...core.Source) Option {
	return func(b *Builder) error {
		b.precedence = sources
		return nil
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) error {
		if now == nil {
			now = time.Now
		}
		b.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a builder over sources. Sources are consulted in the
// given order when equally trusted sources share a name.
func NewBuilder(sources []source.Source, opts ...Option) (*Builder, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	for _, s := range sources {
		if s == nil {
			return nil, ErrNilSource
		}
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		sources:    sources,
		precedence: []core.Source{core.SourceSSHConfig, core.SourceKnownHosts},
		pool:       pool,
		now:        time.Now,
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.Release()
			return nil, err
		}
	}

	return b, nil
}

type loadResult struct {
	entries []core.HostEntry
	err     error
}

// Build loads all sources and returns a new snapshot. Sources that fail
// are logged and left out; the build fails with a *core.RebuildError only
// when every source fails or ctx is already done.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.RebuildError{Err: err}
	}

	start := b.now()
	results := make([]loadResult, len(b.sources))

	var wg sync.WaitGroup
	for i, src := range b.sources {
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			entries, err := src.Load(ctx)
			results[i] = loadResult{entries: entries, err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = loadResult{err: err}
		}
	}
	wg.Wait()

	store := NewStore(b.precedence)
	reports := make([]SourceReport, len(b.sources))
	var failures []error
	invalid := 0

	for i, src := range b.sources {
		res := results[i]
		reports[i] = SourceReport{Source: src.Name(), Entries: len(res.entries)}
		if res.err != nil {
			ierr := &core.IngestError{Source: src.Name(), Err: res.err}
			reports[i].Err = ierr
			failures = append(failures, ierr)
			b.logger.Warn("source unavailable, continuing without it", "source", src.Name(), "err", res.err)
			continue
		}
		for _, e := range res.entries {
			if e.Source == "" {
				e.Source = src.Name()
			}
			if err := core.ValidateHostEntry(e); err != nil {
				invalid++
				b.logger.Debug("dropping invalid entry", "source", src.Name(), "name", e.Name, "err", err)
				continue
			}
			store.Offer(e)
		}
	}

	if len(failures) == len(b.sources) {
		return nil, &core.RebuildError{Err: errors.Join(append([]error{ErrAllSourcesFailed}, failures...)...)}
	}

	snap := newSnapshot(store.Entries(), store, reports, b.now())
	b.logger.Debug("index built",
		"entries", snap.Len(),
		"invalid", invalid,
		"failedSources", len(failures),
		"elapsed", b.now().Sub(start))
	return snap, nil
}

// Release releases the worker pool.
// The builder should not be used after calling Release.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
