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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidHostEntry indicates a HostEntry failed validation.
	ErrInvalidHostEntry = errors.New("invalid host entry")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyTarget indicates the ConnectionTarget field is empty.
	ErrEmptyTarget = errors.New("connection target cannot be empty")

	// ErrInvalidPort indicates a port outside 1-65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidUsageRecord indicates a UsageRecord failed validation.
	ErrInvalidUsageRecord = errors.New("invalid usage record")
)

// IngestError reports that one source could not be loaded. A rebuild that
// sees an IngestError continues with the remaining sources.
type IngestError struct {
	Source Source
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// RebuildError reports that no new snapshot could be produced. The
// previously published snapshot stays current.
type RebuildError struct {
	Err error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild: %v", e.Err)
}

func (e *RebuildError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed read or write of usage history.
// It is never fatal.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("usage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
