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

// Package ingestion turns host sources into immutable index snapshots.
//
// A Builder loads every source on a worker pool, deduplicates entries by
// name through a Store, and precomputes the normalized match forms of each
// name so the query path never transforms candidate strings.
//
// # Failure handling
//
// One failing source never fails a build: it is reported as a
// core.IngestError in the snapshot's SourceReports and the build proceeds
// with what loaded. Only when every source fails does Build return a
// core.RebuildError, leaving the caller's current snapshot in place.
//
// # Usage
//
//	b, err := ingestion.NewBuilder([]source.Source{
//	    &source.SSHConfig{Path: sshConfigPath},
//	    &source.KnownHosts{Path: knownHostsPath, SkipHashed: true},
//	})
//	if err != nil {
//	    return err
//	}
//	defer b.Release()
//
//	snap, err := b.Build(ctx)
package ingestion
