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

package search

import "errors"

var (
	// ErrSnapshotsRequired is returned when a snapshot provider is not provided.
	ErrSnapshotsRequired = errors.New("snapshot provider required")

	// ErrUsageRequired is returned when a usage source is not provided.
	ErrUsageRequired = errors.New("usage source required")

	// ErrMatcherRequired is returned when a matcher is not provided.
	ErrMatcherRequired = errors.New("matcher required")

	// ErrInvalidCacheSize is returned when the cache size is not positive.
	ErrInvalidCacheSize = errors.New("cache size must be positive")
)
