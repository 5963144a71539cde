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

package storage

import (
	"fmt"

	"github.com/poiesic/trident/core"
)

// MarshalUsageRecord serializes a UsageRecord to bytes.
func MarshalUsageRecord(record core.UsageRecord) []byte {
	buf := make([]byte, core.UsageRecordMUS.Size(record))
	core.UsageRecordMUS.Marshal(record, buf)
	return buf
}

// UnmarshalUsageRecord deserializes a UsageRecord from bytes.
// Trailing bytes after a complete record are treated as corruption.
func UnmarshalUsageRecord(data []byte) (core.UsageRecord, error) {
	record, n, err := core.UsageRecordMUS.Unmarshal(data)
	if err != nil {
		return core.UsageRecord{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return core.UsageRecord{}, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return record, nil
}
