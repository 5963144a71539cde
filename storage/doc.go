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

// Package storage defines the persistence abstraction for usage history.
//
// Host entries themselves are never stored: they are rebuilt from their
// sources on every reload. The only durable state is the launch history
// that feeds ranking, one UsageRecord per host name.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the interface:
//
//	repo, err := badger.NewUsageRepository(backend)  // returns storage.UsageRepository
//
// Consumers such as the usage tracker depend only on UsageRepository, so
// tests can substitute an in-memory repository or a failing fake.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryUsageRepository()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer backend.Close()
//	defer repo.Close()
package storage
