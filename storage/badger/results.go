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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/storage"
)

// ResultStore implements storage.ResultStore for BadgerDB.
type ResultStore struct {
	backend     *Backend
	ownsBackend bool
	compression storage.Compression
	readOnly    bool
}

var _ storage.ResultStore = (*ResultStore)(nil)

// Option configures a ResultStore.
type Option func(*ResultStore)

// WithCompression sets the codec used for newly appended values.
// Default is storage.CompressionNone.
func WithCompression(c storage.Compression) Option {
	return func(s *ResultStore) {
		s.compression = c
	}
}

// NewResultStore creates a ResultStore over an open backend.
// The caller keeps ownership of the backend.
func NewResultStore(backend *Backend, opts ...Option) *ResultStore {
	s := &ResultStore{
		backend:  backend,
		readOnly: backend.IsReadOnly(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenResultStore opens or creates a result store directory.
//
// Returns storage.ResultStore interface to enforce abstraction.
func OpenResultStore(path string, opts ...Option) (storage.ResultStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store %s: %w", path, err)
	}
	s := NewResultStore(backend, opts...)
	s.ownsBackend = true
	return s, nil
}

// OpenResultStoreReadOnly opens an existing result store for reading.
// A path that does not exist yields an empty store rather than an error,
// and nothing is created on disk.
func OpenResultStoreReadOnly(path string) (storage.ResultStore, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		backend, err := OpenBackend("", true)
		if err != nil {
			return nil, err
		}
		s := NewResultStore(backend)
		s.ownsBackend = true
		s.readOnly = true
		return s, nil
	}

	backend, err := OpenBackendWithOptions(path, BackendOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open result store %s: %w", path, err)
	}
	s := NewResultStore(backend)
	s.ownsBackend = true
	return s, nil
}

// Contains reports whether an embedding for id is stored.
func (s *ResultStore) Contains(ctx context.Context, id string) (bool, error) {
	if s.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}

	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeEmbeddingKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)

	return found, err
}

// AllIDs returns the set of stored ids.
func (s *ResultStore) AllIDs(ctx context.Context) (map[string]struct{}, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	ids := make(map[string]struct{})
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids[idFromEmbeddingKey(iter.Item().Key())] = struct{}{}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Append persists a new embedding.
// Sets CreatedAt if not already set.
func (s *ResultStore) Append(ctx context.Context, embedding *core.Embedding) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if s.readOnly {
		return storage.ErrReadOnly
	}
	if err := core.ValidateEmbedding(embedding); err != nil {
		return err
	}

	if embedding.CreatedAt.IsZero() {
		embedding.CreatedAt = time.Now().UTC()
	}

	value, err := storage.MarshalEmbedding(embedding, s.compression)
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEmbeddingKey(embedding.ID)
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, embedding.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves an embedding by id.
func (s *ResultStore) Get(ctx context.Context, id string) (*core.Embedding, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var embedding *core.Embedding
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			embedding, unmarshalErr = storage.UnmarshalEmbedding(val)
			return unmarshalErr
		})
	}, false)

	return embedding, err
}

// Count returns the number of stored embeddings.
func (s *ResultStore) Count(ctx context.Context) (int, error) {
	ids, err := s.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ForEach calls fn for each stored embedding in key order.
func (s *ResultStore) ForEach(ctx context.Context, fn func(*core.Embedding) error) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var embedding *core.Embedding
			err := iter.Item().Value(func(val []byte) error {
				var err error
				embedding, err = storage.UnmarshalEmbedding(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", idFromEmbeddingKey(iter.Item().Key()), err)
			}

			if err := fn(embedding); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Close closes the store, and its backend when the store opened it.
func (s *ResultStore) Close() error {
	if !s.ownsBackend || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}
