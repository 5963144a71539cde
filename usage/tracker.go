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

package usage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/storage"
)

// View is an immutable read view of usage history.
type View struct {
	records    map[string]core.UsageRecord
	maxCount   uint64
	generation uint64
}

// Get returns the record for name and whether one exists.
func (v *View) Get(name string) (core.UsageRecord, bool) {
	r, ok := v.records[name]
	return r, ok
}

// MaxCount returns the highest launch count in the view.
func (v *View) MaxCount() uint64 {
	return v.maxCount
}

// Generation increases with every change to history. Two views with the
// same generation hold the same records.
func (v *View) Generation() uint64 {
	return v.generation
}

// Len returns the number of hosts with history.
func (v *View) Len() int {
	return len(v.records)
}

var emptyView = &View{records: map[string]core.UsageRecord{}}

// Tracker records launches and serves usage views.
type Tracker struct {
	mu        sync.Mutex // guards records and view publication
	persistMu sync.Mutex // serializes repository writes
	records   map[string]core.UsageRecord
	gen       uint64 // guarded by mu
	view      atomic.Pointer[View]

	repo          storage.UsageRepository
	degraded      atomic.Bool
	retryAttempts int
	retryDelay    time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker) error

// WithRepository sets where history is persisted.
// Without one the tracker is memory only.
func WithRepository(repo storage.UsageRepository) Option {
	return func(t *Tracker) error {
		t.repo = repo
		return nil
	}
}

// WithRetry sets how often a failed write is attempted.
// Default is 3 attempts starting at 10ms.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(t *Tracker) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		t.retryAttempts = attempts
		t.retryDelay = baseDelay
		return nil
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) error {
		if now == nil {
			now = time.Now
		}
		t.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
		return nil
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) (*Tracker, error) {
	t := &Tracker{
		records:       make(map[string]core.UsageRecord),
		retryAttempts: 3,
		retryDelay:    10 * time.Millisecond,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.view.Store(emptyView)
	return t, nil
}

// Load replaces in-memory history with the repository's contents.
// On failure history stays empty and a *core.PersistenceError is returned;
// the tracker remains usable.
func (t *Tracker) Load(ctx context.Context) error {
	if t.repo == nil {
		return nil
	}

	records, skipped, err := t.repo.LoadUsage(ctx)
	if err != nil {
		return &core.PersistenceError{Op: "load", Err: err}
	}
	if skipped > 0 {
		t.logger.Warn("ignored unreadable usage records", "skipped", skipped)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]core.UsageRecord, len(records))
	for _, r := range records {
		t.records[r.Name] = r
	}
	t.publishLocked()
	t.logger.Debug("loaded usage history", "hosts", len(records))
	return nil
}

// Record notes a launch of name. The in-memory update always succeeds for
// a valid name; a write failure is returned as a *core.PersistenceError
// after which the tracker stops writing.
func (t *Tracker) Record(ctx context.Context, name string) (core.UsageRecord, error) {
	if name == "" {
		return core.UsageRecord{}, core.ErrEmptyName
	}

	t.mu.Lock()
	r := t.records[name]
	r.Name = name
	r.Count++
	r.LastUsed = t.now().UTC()
	t.records[name] = r
	t.publishLocked()
	t.mu.Unlock()

	return r, t.persist(ctx, name)
}

// Forget removes all history for name.
func (t *Tracker) Forget(ctx context.Context, name string) error {
	t.mu.Lock()
	_, ok := t.records[name]
	delete(t.records, name)
	t.publishLocked()
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	if t.repo == nil || t.degraded.Load() {
		return nil
	}
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	if err := t.repo.DeleteUsage(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return t.degrade("delete", err)
	}
	return nil
}

// persist writes the current record for name. Writes are serialized and
// always use the latest in-memory value, so concurrent launches can never
// leave an older count on disk.
func (t *Tracker) persist(ctx context.Context, name string) error {
	if t.repo == nil || t.degraded.Load() {
		return nil
	}

	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	r, ok := t.View().Get(name)
	if !ok {
		return nil
	}
	err := RetryWithBackoff(ctx, func() error {
		return t.repo.SaveUsage(ctx, r)
	}, t.retryAttempts, t.retryDelay)
	if err != nil {
		return t.degrade("save", err)
	}
	return nil
}

// Disable stops all persistence for the session, as a failed write would.
// Callers use it when the repository could not be opened at all.
func (t *Tracker) Disable(op string, err error) error {
	return t.degrade(op, err)
}

// degrade switches the tracker to memory only. A canceled or expired
// caller context is not a storage failure and is returned as is.
func (t *Tracker) degrade(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	perr := &core.PersistenceError{Op: op, Err: err}
	if t.degraded.CompareAndSwap(false, true) {
		t.logger.Warn("usage history is now memory only", "err", perr)
	}
	return perr
}

// publishLocked installs a fresh view. Caller holds t.mu.
func (t *Tracker) publishLocked() {
	t.gen++
	v := &View{records: make(map[string]core.UsageRecord, len(t.records)), generation: t.gen}
	for name, r := range t.records {
		v.records[name] = r
		v.maxCount = max(v.maxCount, r.Count)
	}
	t.view.Store(v)
}

// View returns the current read view. It never blocks.
func (t *Tracker) View() *View {
	return t.view.Load()
}

// Get returns the record for name.
func (t *Tracker) Get(name string) (core.UsageRecord, bool) {
	return t.View().Get(name)
}

// MaxCount returns the highest launch count.
func (t *Tracker) MaxCount() uint64 {
	return t.View().MaxCount()
}

// All returns every record, most launched first.
func (t *Tracker) All() []core.UsageRecord {
	v := t.View()
	out := make([]core.UsageRecord, 0, len(v.records))
	for _, r := range v.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b core.UsageRecord) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Degraded reports whether persistence has been abandoned.
func (t *Tracker) Degraded() bool {
	return t.degraded.Load()
}
