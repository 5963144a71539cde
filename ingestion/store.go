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
	"slices"
	"strings"

	"github.com/poiesic/trident/core"
)

// Store deduplicates entries by name. When two sources offer the same
// name the more trusted source wins; between equally trusted sources the
// first offer stays.
type Store struct {
	precedence map[core.Source]int
	entries    map[string]core.HostEntry
}

// NewStore creates a store that trusts sources in the given order, most
// trusted first. Sources not listed rank below all listed ones.
func NewStore(precedence []core.Source) *Store {
	p := make(map[core.Source]int, len(precedence))
	for i, s := range precedence {
		if _, dup := p[s]; !dup {
			p[s] = i
		}
	}
	return &Store{
		precedence: p,
		entries:    make(map[string]core.HostEntry),
	}
}

// Rank returns the precedence rank of a source. Lower is more trusted.
func (s *Store) Rank(src core.Source) int {
	if r, ok := s.precedence[src]; ok {
		return r
	}
	return len(s.precedence)
}

// Offer adds entry unless an equally or more trusted entry with the same
// name is already held. Reports whether the entry was kept.
func (s *Store) Offer(entry core.HostEntry) bool {
	existing, ok := s.entries[entry.Name]
	if ok && s.Rank(entry.Source) >= s.Rank(existing.Source) {
		return false
	}
	s.entries[entry.Name] = entry
	return true
}

// Len returns the number of distinct names held.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns the held entries sorted by name.
func (s *Store) Entries() []core.HostEntry {
	out := make([]core.HostEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b core.HostEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
