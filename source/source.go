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

package source

import (
	"context"

	"github.com/poiesic/trident/core"
)

// Source produces host entries. Load is called once per rebuild, possibly
// concurrently with Load on other sources.
type Source interface {
	// Name identifies the source for dedup precedence and error reports.
	Name() core.Source

	// Load returns the source's current entries. Invalid individual lines
	// are skipped; an error means the source as a whole is unavailable.
	Load(ctx context.Context) ([]core.HostEntry, error)

	// Paths lists the files whose changes should trigger a rebuild.
	Paths() []string
}

// Static is a fixed in-process source.
type Static struct {
	SourceName core.Source
	Entries    []core.HostEntry
	Err        error // returned by Load when set
}

var _ Source = (*Static)(nil)

func (s *Static) Name() core.Source {
	if s.SourceName == "" {
		return core.SourceStatic
	}
	return s.SourceName
}

func (s *Static) Load(ctx context.Context) ([]core.HostEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]core.HostEntry, len(s.Entries))
	for i, e := range s.Entries {
		if e.Source == "" {
			e.Source = s.Name()
		}
		out[i] = e
	}
	return out, nil
}

func (s *Static) Paths() []string { return nil }
