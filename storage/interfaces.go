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
	"context"

	"github.com/poiesic/trident/core"
)

// UsageRepository persists per-host launch history.
type UsageRepository interface {
	// SaveUsage writes one usage record, replacing any previous record for
	// the same name.
	SaveUsage(ctx context.Context, record core.UsageRecord) error

	// LoadUsage returns every stored usage record.
	// Records that fail to decode are skipped and reported through the
	// returned skipped count; they do not fail the load.
	LoadUsage(ctx context.Context) (records []core.UsageRecord, skipped int, err error)

	// DeleteUsage removes the record for name.
	// Returns ErrNotFound if no record exists.
	DeleteUsage(ctx context.Context, name string) error

	// Close releases resources held by the repository.
	// The backend itself is closed by its owner.
	Close() error
}
