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

package reload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/trident/ingestion"
)

// State is the coordinator's position in the rebuild cycle.
type State int32

const (
	Idle State = iota
	Rebuilding
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rebuilding:
		return "rebuilding"
	case Publishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Builder produces a new snapshot. *ingestion.Builder satisfies it.
type Builder interface {
	Build(ctx context.Context) (*ingestion.Snapshot, error)
}

// Observer receives rebuild outcomes. Calls happen on the rebuild
// goroutine and must not block.
type Observer interface {
	Published(snap *ingestion.Snapshot)
	RebuildFailed(err error)
}

type noopObserver struct{}

var _ Observer = (*noopObserver)(nil)

func (noopObserver) Published(_ *ingestion.Snapshot) {}
func (noopObserver) RebuildFailed(_ error)           {}

// Stats is a point-in-time view of coordinator activity.
type Stats struct {
	State     State
	Version   uint64 // version of the current snapshot, 0 before the first publish
	Rebuilds  uint64 // builds started
	Publishes uint64
	Failures  uint64
	Coalesced uint64 // notifications absorbed into an already scheduled rebuild
}

// DefaultDebounce is the quiet period after a notification before a
// rebuild starts.
const DefaultDebounce = 250 * time.Millisecond

// Coordinator serializes rebuilds and publishes snapshots.
type Coordinator struct {
	builder  Builder
	debounce time.Duration
	observer Observer
	logger   *slog.Logger

	current atomic.Pointer[ingestion.Snapshot]
	version atomic.Uint64

	// buildMu is held for the whole Rebuilding/Publishing cycle.
	buildMu sync.Mutex

	mu        sync.Mutex
	state     State
	pending   bool
	timer     *time.Timer
	timerGen  uint64 // identifies the live timer; older fires are ignored
	listeners []func(*ingestion.Snapshot)
	closed    bool

	rebuilds  atomic.Uint64
	publishes atomic.Uint64
	failures  atomic.Uint64
	coalesced atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithDebounce sets the notification quiet period.
// Default is DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d <= 0 {
			d = DefaultDebounce
		}
		c.debounce = d
		return nil
	}
}

// WithObserver sets the rebuild outcome hook.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) error {
		if o == nil {
			o = noopObserver{}
		}
		c.observer = o
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates a coordinator. Nothing is published until the
// first rebuild completes.
func NewCoordinator(builder Builder, opts ...Option) (*Coordinator, error) {
	if builder == nil {
		return nil, ErrBuilderRequired
	}

	c := &Coordinator{
		builder:  builder,
		debounce: DefaultDebounce,
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Current returns the published snapshot, or nil before the first publish.
// It never blocks.
func (c *Coordinator) Current() *ingestion.Snapshot {
	return c.current.Load()
}

// OnPublish registers fn to run after every publish.
func (c *Coordinator) OnPublish(fn func(*ingestion.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current rebuild state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns activity counters.
func (c *Coordinator) Stats() Stats {
	st := Stats{
		State:     c.State(),
		Rebuilds:  c.rebuilds.Load(),
		Publishes: c.publishes.Load(),
		Failures:  c.failures.Load(),
		Coalesced: c.coalesced.Load(),
	}
	if snap := c.current.Load(); snap != nil {
		st.Version = snap.Version
	}
	return st
}

// Notify reports that a source changed. While idle it (re)starts the
// debounce timer; during a rebuild it queues a single follow-up.
func (c *Coordinator) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.state != Idle {
		if c.pending {
			c.coalesced.Add(1)
		}
		c.pending = true
		return
	}
	if c.timer != nil {
		c.coalesced.Add(1)
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

// fire runs when the debounce window of timer gen closes. A timer that
// was replaced after it had already expired fires with a stale gen and
// does nothing; its notification is covered by the newer timer.
func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.state != Idle {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.loop(c.ctx)
}

// loop rebuilds until no follow-up is pending.
func (c *Coordinator) loop(ctx context.Context) {
	for {
		_ = c.rebuild(ctx)
		if !c.takePending() {
			return
		}
	}
}

func (c *Coordinator) takePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending || c.closed {
		return false
	}
	c.pending = false
	return true
}

// Reload rebuilds synchronously, bypassing the debounce. A rebuild already
// in flight is waited for first, so the result reflects sources as they
// were at or after the call.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCoordinatorClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	err := c.rebuild(ctx)

	// Notifications that arrived during this rebuild still get their turn.
	if c.takePending() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.loop(c.ctx)
		}()
	}
	return err
}

// Run feeds watcher events into Notify until ctx is done or events closes.
// Run is the only consumer of events.
func (c *Coordinator) Run(ctx context.Context, events <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			c.Notify()
		}
	}
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) rebuild(ctx context.Context) error {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	c.setState(Rebuilding)
	defer c.setState(Idle)
	c.rebuilds.Add(1)

	snap, err := c.builder.Build(ctx)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("rebuild failed, keeping previous index", "err", err)
		c.observer.RebuildFailed(err)
		return err
	}

	c.setState(Publishing)
	c.publish(snap)
	return nil
}

// publish swaps in snap. snap is not yet shared, so assigning its
// version before the swap is safe.
func (c *Coordinator) publish(snap *ingestion.Snapshot) {
	snap.Version = c.version.Add(1)
	c.current.Store(snap)
	c.publishes.Add(1)

	c.mu.Lock()
	listeners := append([]func(*ingestion.Snapshot){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}

	c.logger.Debug("index published", "version", snap.Version, "entries", snap.Len())
	c.observer.Published(snap)
}

// Close stops pending timers and waits for running rebuilds. The last
// published snapshot stays readable.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
