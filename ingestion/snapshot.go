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
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/match"
)

// SourceReport summarizes one source's contribution to a build.
type SourceReport struct {
	Source  core.Source
	Entries int   // entries loaded, before dedup
	Err     error // *core.IngestError when the source failed
}

// Snapshot is an immutable, fully normalized view of the index. Once
// published it is shared by every query and never modified.
type Snapshot struct {
	Entries     []core.NormalizedEntry // sorted by name
	Version     uint64                 // assigned at publish
	Fingerprint core.ID
	BuiltAt     time.Time
	Sources     []SourceReport

	byName     map[string]int
	precedence map[core.Source]int
	fallback   int
}

func newSnapshot(entries []core.HostEntry, store *Store, reports []SourceReport, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		Entries:    make([]core.NormalizedEntry, len(entries)),
		BuiltAt:    builtAt,
		Sources:    reports,
		byName:     make(map[string]int, len(entries)),
		precedence: store.precedence,
		fallback:   len(store.precedence),
	}
	for i, e := range entries {
		s.Entries[i] = match.NormalizeEntry(e)
		s.byName[e.Name] = i
	}
	s.Fingerprint = fingerprint(entries)
	return s
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Lookup finds an entry by exact name.
func (s *Snapshot) Lookup(name string) (core.HostEntry, bool) {
	if s == nil {
		return core.HostEntry{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return core.HostEntry{}, false
	}
	return s.Entries[i].Entry, true
}

// Precedence returns the dedup rank the snapshot was built with for src.
func (s *Snapshot) Precedence(src core.Source) int {
	if r, ok := s.precedence[src]; ok {
		return r
	}
	return s.fallback
}

// fingerprint hashes the entries' identity. Two builds from unchanged
// sources produce the same fingerprint.
func fingerprint(entries []core.HostEntry) core.ID {
	h, _ := blake2b.New(8, nil)
	for _, e := range entries {
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write([]byte(e.ConnectionTarget))
		h.Write([]byte{0})
		h.Write([]byte(e.Source))
		h.Write([]byte{0})
		h.Write([]byte(e.User + "\x00" + e.HostName + "\x00" + strconv.Itoa(e.Port)))
		h.Write([]byte{'\n'})
	}
	return core.ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}
