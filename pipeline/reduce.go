package pipeline

import (
	"fmt"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/engine"
)

// Reduce turns one engine matrix into a store entry for record.
//
// Rows past the record's length are padding or special tokens and are dropped.
// With perProtein the remaining rows are averaged (accumulated in float64);
// otherwise they are stored row-major. A single-row matrix from a pooled
// engine is taken as the pooled vector.
func Reduce(record *core.SequenceRecord, m engine.Matrix, perProtein, pooled bool) (*core.Embedding, error) {
	if pooled {
		if len(m) < 1 || len(m[0]) == 0 {
			return nil, fmt.Errorf("%w: %s: no pooled vector", ErrShortOutput, record.ID)
		}
		return newEmbedding(record, 1, len(m[0]), append([]float32(nil), m[0]...), true), nil
	}

	if len(m) < record.Length {
		return nil, fmt.Errorf("%w: %s has %d residues, engine returned %d rows",
			ErrShortOutput, record.ID, record.Length, len(m))
	}
	rows := m[:record.Length]
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: %s: empty rows", ErrShortOutput, record.ID)
	}
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: %s row %d has width %d, want %d",
				ErrRaggedOutput, record.ID, i, len(row), dim)
		}
	}

	if perProtein {
		sums := make([]float64, dim)
		for _, row := range rows {
			for j, v := range row {
				sums[j] += float64(v)
			}
		}
		mean := make([]float32, dim)
		for j, s := range sums {
			mean[j] = float32(s / float64(len(rows)))
		}
		return newEmbedding(record, 1, dim, mean, true), nil
	}

	values := make([]float32, 0, len(rows)*dim)
	for _, row := range rows {
		values = append(values, row...)
	}
	return newEmbedding(record, len(rows), dim, values, false), nil
}

func newEmbedding(record *core.SequenceRecord, rows, dim int, values []float32, perProtein bool) *core.Embedding {
	return &core.Embedding{
		ID:         record.ID,
		Rows:       rows,
		Dim:        dim,
		Values:     values,
		Length:     record.Length,
		PerProtein: perProtein,
		Digest:     core.DigestResidues(record.Residues),
	}
}
