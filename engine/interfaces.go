package engine

import "context"

// Matrix holds one vector per position of a sequence.
// Engines may return more rows than the sequence has residues (padding and
// special tokens); callers trim to the true length.
type Matrix [][]float32

// Engine embeds batches of sequences.
// A call is blocking and may be slow; its internal parallelism is opaque.
type Engine interface {
	// Embed runs one inference call over sequences and returns one matrix per
	// sequence, in input order.
	// Failures are reported as *Error so callers can inspect the Kind.
	Embed(ctx context.Context, sequences []string) ([]Matrix, error)

	// Close releases resources held by the engine.
	Close() error
}

// Pooler is implemented by engines that can only return one pooled vector per
// sequence instead of per-position vectors.
type Pooler interface {
	Pooled() bool
}

// IsPooled reports whether e only returns pooled vectors.
func IsPooled(e Engine) bool {
	p, ok := e.(Pooler)
	return ok && p.Pooled()
}
