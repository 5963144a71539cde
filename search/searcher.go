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

package search

import (
	"log/slog"
	"time"

	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/ingestion"
	"github.com/poiesic/trident/match"
	"github.com/poiesic/trident/rank"
	"github.com/poiesic/trident/usage"
)

// SnapshotProvider returns the index to query. *reload.Coordinator
// satisfies it.
type SnapshotProvider interface {
	Current() *ingestion.Snapshot
}

// UsageSource returns a read view of launch history. *usage.Tracker
// satisfies it.
type UsageSource interface {
	View() *usage.View
}

// DefaultMaxResults is the result limit when none is configured.
const DefaultMaxResults = 20

// Searcher runs fuzzy queries against the current snapshot.
type Searcher struct {
	snapshots     SnapshotProvider
	usage         UsageSource
	matcher       *match.Matcher
	params        rank.Params
	maxResults    int
	caseSensitive bool
	cache         *Cache
	monitor       Monitor
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithParams sets the ranking constants.
func WithParams(p rank.Params) Option {
	return func(s *Searcher) error {
		s.params = p
		return nil
	}
}

// WithMaxResults limits how many results a query returns.
// Default is DefaultMaxResults.
func WithMaxResults(n int) Option {
	return func(s *Searcher) error {
		if n <= 0 {
			n = DefaultMaxResults
		}
		s.maxResults = n
		return nil
	}
}

// WithCaseSensitive makes matching respect case.
func WithCaseSensitive(enabled bool) Option {
	return func(s *Searcher) error {
		s.caseSensitive = enabled
		return nil
	}
}

// WithCache enables result caching. A nil cache disables it.
func WithCache(c *Cache) Option {
	return func(s *Searcher) error {
		s.cache = c
		return nil
	}
}

// WithMonitor sets the monitor used when a query supplies none.
func WithMonitor(m Monitor) Option {
	return func(s *Searcher) error {
		if m == nil {
			m = &noopMonitor{}
		}
		s.monitor = m
		return nil
	}
}

// WithClock overrides time.Now for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now == nil {
			now = time.Now
		}
		s.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	snapshots SnapshotProvider,
	usageSource UsageSource,
	matcher *match.Matcher,
	opts ...Option,
) (*Searcher, error) {
	if snapshots == nil {
		return nil, ErrSnapshotsRequired
	}
	if usageSource == nil {
		return nil, ErrUsageRequired
	}
	if matcher == nil {
		return nil, ErrMatcherRequired
	}

	s := &Searcher{
		snapshots:  snapshots,
		usage:      usageSource,
		matcher:    matcher,
		maxResults: DefaultMaxResults,
		monitor:    &noopMonitor{},
		now:        time.Now,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Cache returns the searcher's cache, or nil when caching is off.
func (s *Searcher) Cache() *Cache {
	return s.cache
}

// Invalidate drops cached results. Call it whenever usage history changes.
func (s *Searcher) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Search returns the best matches for query in rank order. An empty or
// unbuilt index yields an empty slice, never nil.
func (s *Searcher) Search(query string) []core.Match {
	return s.SearchWithMonitor(query, nil)
}

// SearchWithMonitor is Search with a per-query monitor.
func (s *Searcher) SearchWithMonitor(query string, monitor Monitor) []core.Match {
	// Use the default monitor if none provided
	if monitor == nil {
		monitor = s.monitor
	}

	start := time.Now()
	monitor.Start(query)
	query = cleanQuery(query)

	snap := s.snapshots.Current()
	if snap.Len() == 0 {
		out := []core.Match{}
		monitor.Finish(out, time.Since(start))
		return out
	}

	view := s.usage.View()
	key := Key{
		Version:       snap.Version,
		Usage:         view.Generation(),
		Query:         query,
		CaseSensitive: s.caseSensitive,
		MaxResults:    s.maxResults,
	}
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			monitor.CacheHit(hit)
			monitor.Finish(hit, time.Since(start))
			return hit
		}
	}

	out := s.rank(snap, view, query, monitor)

	if s.cache != nil {
		s.cache.Add(key, out)
	}
	monitor.Finish(out, time.Since(start))
	return out
}

// rank scores every entry of snap against one usage view and one clock
// reading so the whole query sees a consistent state.
func (s *Searcher) rank(snap *ingestion.Snapshot, view *usage.View, query string, monitor Monitor) []core.Match {
	q := match.NewQuery(query, s.caseSensitive)
	maxCount := view.MaxCount()
	now := s.now()

	results := make([]match.Result, len(snap.Entries))
	cands := make([]rank.Candidate, 0, len(snap.Entries))
	for i := range snap.Entries {
		ne := &snap.Entries[i]
		res, ok := s.matcher.Match(q, *ne)
		if !ok {
			continue
		}
		results[i] = res

		var norm, recency float64
		if rec, ok := view.Get(ne.Entry.Name); ok {
			norm = rank.NormalizedUsage(rec.Count, maxCount)
			recency = rank.RecencyBonus(rec.LastUsed, now, s.params.Recency)
		}

		cands = append(cands, rank.Candidate{
			Name:       ne.Entry.Name,
			NameLen:    len(ne.Runes),
			Target:     ne.Entry.ConnectionTarget,
			Precedence: snap.Precedence(ne.Entry.Source),
			Exact:      res.Exact,
			Final:      rank.Final(res.Score, norm, recency, s.params.UsageWeightFactor),
			Index:      i,
		})
	}
	monitor.AfterScoring(len(cands))

	top := rank.TopK(cands, s.maxResults)
	out := make([]core.Match, len(top))
	for j, c := range top {
		res := results[c.Index]
		out[j] = core.Match{
			Entry:     snap.Entries[c.Index].Entry,
			Score:     res.Score,
			Rank:      c.Final,
			Positions: res.Positions,
			Spans:     core.SpansFromPositions(res.Positions),
		}
	}

	s.logger.Debug("query ranked",
		"query", query,
		"version", snap.Version,
		"matched", len(cands),
		"returned", len(out))
	return out
}
