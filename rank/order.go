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

package rank

import (
	"container/heap"
	"slices"
	"strings"
)

// Candidate is a matched entry awaiting ordering.
type Candidate struct {
	Name       string
	NameLen    int // in runes
	Target     string
	Precedence int // lower is more trusted
	Exact      bool
	Final      float64
	Index      int // caller's position, carried through untouched
}

// Less is the ranking order. Exact matches come first regardless of
// score. Then higher final score, shorter name, lexical name, lexical
// target, and source precedence, so no two distinct candidates compare
// equal.
func Less(a, b Candidate) bool {
	return Compare(a, b) < 0
}

// Compare is Less as a three-way comparison for slices.SortFunc.
func Compare(a, b Candidate) int {
	if a.Exact != b.Exact {
		if a.Exact {
			return -1
		}
		return 1
	}
	if a.Final != b.Final {
		if a.Final > b.Final {
			return -1
		}
		return 1
	}
	if a.NameLen != b.NameLen {
		if a.NameLen < b.NameLen {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := strings.Compare(a.Target, b.Target); c != 0 {
		return c
	}
	switch {
	case a.Precedence < b.Precedence:
		return -1
	case a.Precedence > b.Precedence:
		return 1
	}
	return 0
}

// TopK returns the k best candidates in rank order. k <= 0 keeps all.
// Small k relative to the input uses a bounded heap; otherwise the input is
// sorted in place.
func TopK(cands []Candidate, k int) []Candidate {
	if k <= 0 || k >= len(cands) || k*4 >= len(cands) {
		slices.SortFunc(cands, Compare)
		if k > 0 && k < len(cands) {
			cands = cands[:k]
		}
		return cands
	}

	h := make(worstFirst, 0, k)
	for _, c := range cands {
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if Less(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	out := []Candidate(h)
	slices.SortFunc(out, Compare)
	return out
}

// worstFirst is a heap whose root is the lowest-ranked candidate kept.
type worstFirst []Candidate

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Less(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(Candidate))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
