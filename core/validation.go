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
	"fmt"
	"strings"
	"time"
)

// ValidateHostEntry validates a HostEntry according to domain rules.
//
// Validation rules:
//   - Name must not be empty or whitespace only
//   - ConnectionTarget must not be empty
//   - Port, when set, must be in 1-65535
//
// NOT validated:
//   - Source (unknown sources rank below known ones during dedup)
//   - User and HostName (free-form)
func ValidateHostEntry(entry HostEntry) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidHostEntry, ErrEmptyName)
	}

	if entry.ConnectionTarget == "" {
		return fmt.Errorf("%w: %w", ErrInvalidHostEntry, ErrEmptyTarget)
	}

	if entry.Port < 0 || entry.Port > 65535 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidHostEntry, ErrInvalidPort, entry.Port)
	}

	return nil
}

// ValidateUsageRecord validates a UsageRecord loaded from storage.
//
// Validation rules:
//   - Name must not be empty
//   - LastUsed must not be in the future
func ValidateUsageRecord(record UsageRecord) error {
	if record.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUsageRecord, ErrEmptyName)
	}

	if !IsValidTimestamp(record.LastUsed) {
		return fmt.Errorf("%w: last used %s is in the future", ErrInvalidUsageRecord, record.LastUsed)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
// A small allowance covers clock adjustments between writes.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now().Add(time.Minute))
}
