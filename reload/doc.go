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

// Package reload keeps the published index current.
//
// A Coordinator owns the single rebuild path. Change notifications are
// debounced and coalesced, at most one follow-up rebuild is queued while a
// build is running, and a finished Snapshot is published with one atomic
// swap so queries always see either the old index or the new one.
package reload
