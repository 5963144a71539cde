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

import "errors"

var (
	// ErrNoSources is returned when a builder is created without sources.
	ErrNoSources = errors.New("at least one source is required")

	// ErrNilSource is returned when a nil source is supplied.
	ErrNilSource = errors.New("source cannot be nil")

	// ErrAllSourcesFailed is wrapped in the RebuildError returned when no
	// source could be loaded.
	ErrAllSourcesFailed = errors.New("all sources failed")
)
