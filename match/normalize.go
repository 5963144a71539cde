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
	"unicode"

	"github.com/poiesic/trident/core"
	"golang.org/x/text/unicode/norm"
)

// Query is a prepared search string. Build one per query with NewQuery and
// reuse it across every candidate.
type Query struct {
	runes         []rune
	caseSensitive bool
}

// NewQuery normalizes text the same way NormalizeEntry normalizes names and
// folds it when matching is case-insensitive.
func NewQuery(text string, caseSensitive bool) Query {
	runes := []rune(norm.NFC.String(text))
	if !caseSensitive {
		runes = fold(runes)
	}
	return Query{runes: runes, caseSensitive: caseSensitive}
}

// Empty reports whether the query has no runes.
func (q Query) Empty() bool {
	return len(q.runes) == 0
}

// NormalizeEntry precomputes the match forms of an entry's name.
func NormalizeEntry(entry core.HostEntry) core.NormalizedEntry {
	runes := []rune(norm.NFC.String(entry.Name))
	return core.NormalizedEntry{
		Entry:  entry,
		Runes:  runes,
		Folded: fold(runes),
	}
}

// fold lower-cases rune by rune so the result has the same length as the
// input.
func fold(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '.', '_', '/', ':', '@':
		return true
	}
	return unicode.IsSpace(r)
}
