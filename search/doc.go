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

// Package search answers fuzzy host queries against the published index.
//
// The Searcher matches every entry of the current Snapshot, folds in usage
// history, and keeps the best max_results in rank order. Results are
// cached per snapshot version; the cache is purged on every publish and
// every recorded connection.
package search
