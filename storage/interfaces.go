package storage

import (
	"context"

	"github.com/poiesic/seqembed/core"
)

// ResultStore is the keyed vector store shared by resumption and result output.
// Implementations must be safe for concurrent readers.
type ResultStore interface {
	// Contains reports whether an embedding for id is stored.
	Contains(ctx context.Context, id string) (bool, error)

	// AllIDs returns the set of stored ids.
	// A store with nothing written returns an empty set, not an error.
	AllIDs(ctx context.Context) (map[string]struct{}, error)

	// Append persists a new embedding.
	// Returns ErrDuplicateKey if the id is already stored.
	// Only the new entry is written; existing entries are never rewritten.
	Append(ctx context.Context, embedding *core.Embedding) error

	// Get retrieves an embedding by id.
	// Returns ErrNotFound if the id is not stored.
	Get(ctx context.Context, id string) (*core.Embedding, error)

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int, error)

	// ForEach calls fn for each stored embedding in key order.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, fn func(*core.Embedding) error) error

	// Close releases the store.
	Close() error
}
