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

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Source names the collaborator that produced a host entry.
type Source string

const (
	// SourceSSHConfig is the user's ssh client configuration file.
	SourceSSHConfig Source = "ssh_config"
	// SourceKnownHosts is the ssh known_hosts file.
	SourceKnownHosts Source = "known_hosts"
	// SourceStatic is an in-process list of entries.
	SourceStatic Source = "static"
)

// HostEntry is a single searchable host. Values are immutable once built;
// callers pass them by value.
type HostEntry struct {
	Name             string // Display and search key
	ConnectionTarget string // Opaque string handed to the launch collaborator
	Source           Source
	User             string // Optional, from ssh_config
	Port             int    // Optional, 0 when unset
	HostName         string // Optional resolved hostname, from ssh_config
}

// Detail reports whether any optional connection detail is set.
func (e HostEntry) Detail() bool {
	return e.User != "" || e.Port != 0 || e.HostName != ""
}

// NormalizedEntry pairs an entry with its precomputed match forms.
// Runes and Folded always have the same length so match positions
// computed against either refer to the same characters of the name.
type NormalizedEntry struct {
	Entry  HostEntry
	Runes  []rune // NFC-normalized name
	Folded []rune // Runes lower-cased one rune at a time
}

// Span is a half-open range [Start, End) of rune indices in a name.
type Span struct {
	Start int
	End   int
}

// Match is a ranked query result.
type Match struct {
	Entry     HostEntry
	Score     float64 // Fuzzy score
	Rank      float64 // Final score after usage and recency
	Positions []int   // Matched rune indices in the name
	Spans     []Span  // Positions grouped into contiguous runs
}

// UsageRecord is the persisted launch history of one host name.
type UsageRecord struct {
	Name     string
	Count    uint64
	LastUsed time.Time
}

// SpansFromPositions groups sorted rune positions into contiguous spans.
func SpansFromPositions(positions []int) []Span {
	if len(positions) == 0 {
		return nil
	}
	spans := make([]Span, 0, 4)
	start := positions[0]
	prev := start
	for _, p := range positions[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		spans = append(spans, Span{Start: start, End: prev + 1})
		start, prev = p, p
	}
	return append(spans, Span{Start: start, End: prev + 1})
}
