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

package match

import (
	"math"

	"github.com/poiesic/trident/core"
)

// Result is the outcome of matching one candidate.
type Result struct {
	Score     float64
	Positions []int // rune indices into the candidate name, ascending
	Exact     bool
}

// Matcher scores candidates against a query. It holds no mutable state and
// is safe for concurrent use.
type Matcher struct {
	w Weights
}

// New creates a Matcher with the given weights.
func New(w Weights) (*Matcher, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{w: w}, nil
}

// Weights returns the matcher's scoring constants.
func (m *Matcher) Weights() Weights {
	return m.w
}

// Match reports whether every query rune occurs in the candidate in order
// and, if so, scores the alignment. An empty query matches everything with
// a score of zero.
func (m *Matcher) Match(q Query, cand core.NormalizedEntry) (Result, bool) {
	if q.Empty() {
		return Result{}, true
	}

	target := cand.Folded
	if q.caseSensitive {
		target = cand.Runes
	}
	if len(q.runes) > len(target) {
		return Result{}, false
	}

	positions, ok := align(q.runes, target)
	if !ok {
		return Result{}, false
	}

	exact := len(q.runes) == len(target)
	return Result{
		Score:     m.score(positions, target, exact),
		Positions: positions,
		Exact:     exact,
	}, true
}

// MatchString is Match for one-off comparisons outside an index.
func (m *Matcher) MatchString(query, candidate string, caseSensitive bool) (Result, bool) {
	return m.Match(NewQuery(query, caseSensitive), NormalizeEntry(core.HostEntry{Name: candidate}))
}

// align finds the leftmost complete subsequence match, then walks back from
// its last rune to pull earlier query runes as far right as possible. The
// result is the tightest window ending at the earliest possible end.
func align(query, target []rune) ([]int, bool) {
	qi := 0
	end := -1
	for ti, r := range target {
		if r == query[qi] {
			qi++
			if qi == len(query) {
				end = ti
				break
			}
		}
	}
	if end < 0 {
		return nil, false
	}

	positions := make([]int, len(query))
	qi = len(query) - 1
	for ti := end; ti >= 0 && qi >= 0; ti-- {
		if target[ti] == query[qi] {
			positions[qi] = ti
			qi--
		}
	}
	return positions, true
}

func (m *Matcher) score(positions []int, target []rune, exact bool) float64 {
	w := m.w
	n := float64(len(positions))
	score := w.Base * n

	runStart := 0
	for i := 1; i <= len(positions); i++ {
		if i < len(positions) && positions[i] == positions[i-1]+1 {
			continue
		}
		length := float64(i - runStart)
		score += w.Contiguity * length * length
		if p := positions[runStart]; p == 0 || isSeparator(target[p-1]) {
			score += w.Boundary
		}
		if i < len(positions) {
			score -= w.Gap * float64(positions[i]-positions[i-1]-1)
		}
		runStart = i
	}

	score -= math.Min(w.Leading*float64(positions[0]), w.LeadingCap)

	if exact {
		score += w.Exact
	}

	if floor := w.Base * n * 0.01; score < floor {
		score = floor
	}
	return score
}
