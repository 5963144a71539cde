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

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/storage"
)

// UsageRepository implements storage.UsageRepository for BadgerDB.
type UsageRepository struct {
	backend *Backend
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new usage repository on backend.
func NewUsageRepository(backend *Backend) (storage.UsageRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", storage.ErrStorageClosed)
	}
	return &UsageRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned and closed by the caller.
func (r *UsageRepository) Close() error {
	return nil
}

// SaveUsage persists a usage record.
func (r *UsageRepository) SaveUsage(ctx context.Context, record core.UsageRecord) error {
	if record.Name == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidUsageRecord, core.ErrEmptyName)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeUsageKey(record.Name), storage.MarshalUsageRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadUsage reads every usage record.
func (r *UsageRepository) LoadUsage(ctx context.Context) ([]core.UsageRecord, int, error) {
	var records []core.UsageRecord
	skipped := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = usageKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var record core.UsageRecord
			err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalUsageRecord(val)
				return err
			})
			if err == nil {
				err = core.ValidateUsageRecord(record)
			}
			if err != nil {
				r.backend.logger.Warn("skipping unreadable usage record", "key", string(item.Key()), "err", err)
				skipped++
				continue
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, 0, err
	}

	return records, skipped, nil
}

// DeleteUsage removes the record for name.
func (r *UsageRepository) DeleteUsage(ctx context.Context, name string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeUsageKey(name)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// putRaw writes an undecoded value under a usage key. Tests use it to plant
// corrupt records.
func (r *UsageRepository) putRaw(name string, value []byte) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeUsageKey(name), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
