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
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/trident/core"
)

// DefaultCacheSize is the number of distinct queries kept.
const DefaultCacheSize = 64

// Key identifies one cached result list. Version and Usage scope the entry
// to the snapshot and usage generation it was computed from.
type Key struct {
	Version       uint64
	Usage         uint64
	Query         string
	CaseSensitive bool
	MaxResults    int
}

// Cache is a bounded LRU of query results. Stored lists are never handed
// out directly; Get returns a copy.
type Cache struct {
	lru    *lru.Cache[Key, []core.Match]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding up to size result lists.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	l, err := lru.New[Key, []core.Match](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns a copy of the cached results for key.
func (c *Cache) Get(key Key) ([]core.Match, bool) {
	m, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return copyMatches(m), true
}

// Add stores a copy of matches under key.
func (c *Cache) Add(key Key, matches []core.Match) {
	c.lru.Add(key, copyMatches(matches))
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached result lists.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func copyMatches(in []core.Match) []core.Match {
	out := make([]core.Match, len(in))
	for i, m := range in {
		m.Positions = append([]int(nil), m.Positions...)
		m.Spans = append([]core.Span(nil), m.Spans...)
		out[i] = m
	}
	return out
}
