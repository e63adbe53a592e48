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


// Package storage provides the result store abstraction for seqembed.
//
// The result store is the only source of completion truth: an id present in the
// store is done, an id absent from it still needs work. There is no separate
// checkpoint ledger, so a failed batch needs no bookkeeping to be retried by the
// next run.
//
// # Constructor Return Type Pattern
//
// Public constructors return the ResultStore interface:
//
//	store, err := badger.OpenResultStore(path)  // returns storage.ResultStore
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Usage
//
// Open a store on disk:
//
//	store, err := badger.OpenResultStore("/path/to/store")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryResultStore()
//
// # Write Model
//
// Append writes only the new entry. Previously written entries are never
// rewritten, and an id can be appended at most once per store.
//
// # Thread Safety
//
// Implementations must be safe for concurrent readers. Concurrent runs writing
// the same store are not supported.
package storage
