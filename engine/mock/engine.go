package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/poiesic/seqembed/engine"
)

// DefaultPadValue fills padding rows.
const DefaultPadValue float32 = 1e6

// Engine is a test double for engine.Engine.
// It allows custom behavior injection via function fields.
type Engine struct {
	// EmbedFunc is called by Embed if set.
	// If nil, uses Generate.
	EmbedFunc func(ctx context.Context, sequences []string) ([]engine.Matrix, error)

	// Dimension is the vector width.
	Dimension int

	// Capacity, when positive, is the largest total residue count a single
	// call accepts. Larger calls fail with engine.KindResourceExhausted.
	Capacity int

	// PadRows is the number of rows appended past the longest sequence.
	PadRows int

	// PadValue fills every padding row.
	PadValue float32

	// PooledOutput makes the engine return one mean vector per sequence.
	PooledOutput bool

	mu        sync.Mutex
	callCount int
	calls     [][]string
	closed    bool
}

// NewEngine creates a mock engine with default deterministic behavior.
// Note: Returns concrete type to allow test assertions and injection.
func NewEngine(dimension int) *Engine {
	return &Engine{
		Dimension: dimension,
		PadRows:   1,
		PadValue:  DefaultPadValue,
	}
}

// Embed records the call and returns EmbedFunc's result or the default output.
func (m *Engine) Embed(ctx context.Context, sequences []string) ([]engine.Matrix, error) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, append([]string(nil), sequences...))
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, engine.NewError(engine.KindUnavailable, "embed", fmt.Errorf("engine closed"))
	}
	if err := ctx.Err(); err != nil {
		return nil, engine.NewError(engine.KindCanceled, "embed", err)
	}

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, sequences)
	}
	return m.Generate(sequences)
}

// Generate produces the default output for sequences. Injected EmbedFuncs can
// call it to fall through to normal behavior.
func (m *Engine) Generate(sequences []string) ([]engine.Matrix, error) {
	total := 0
	longest := 0
	for _, s := range sequences {
		total += len(s)
		if len(s) > longest {
			longest = len(s)
		}
	}
	if m.Capacity > 0 && total > m.Capacity {
		return nil, engine.NewError(engine.KindResourceExhausted, "embed",
			fmt.Errorf("CUDA out of memory: %d residues exceeds capacity %d", total, m.Capacity))
	}

	out := make([]engine.Matrix, len(sequences))
	for i, s := range sequences {
		if m.PooledOutput {
			out[i] = engine.Matrix{MeanVector(s, m.Dimension)}
			continue
		}
		rows := longest + m.PadRows
		mat := make(engine.Matrix, rows)
		for pos := 0; pos < rows; pos++ {
			if pos < len(s) {
				mat[pos] = ResidueVector(s, pos, m.Dimension)
				continue
			}
			pad := make([]float32, m.Dimension)
			for j := range pad {
				pad[j] = m.PadValue
			}
			mat[pos] = pad
		}
		out[i] = mat
	}
	return out, nil
}

// Pooled reports whether the engine returns pooled vectors.
func (m *Engine) Pooled() bool {
	return m.PooledOutput
}

// Close marks the engine closed; later calls fail as unavailable.
func (m *Engine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of times Embed was called.
func (m *Engine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns a copy of the sequences passed to each Embed call.
func (m *Engine) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and injected behavior.
func (m *Engine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
	m.EmbedFunc = nil
}

// ResidueVector returns the deterministic vector for position pos of sequence.
// It depends only on the residue and its position.
func ResidueVector(sequence string, pos, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte{sequence[pos]})
	seed := h.Sum32() + uint32(pos)*2654435761

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}
	return vector
}

// MeanVector returns the mean of ResidueVector over every position of sequence.
func MeanVector(sequence string, dim int) []float32 {
	sums := make([]float64, dim)
	for pos := range len(sequence) {
		for j, v := range ResidueVector(sequence, pos, dim) {
			sums[j] += float64(v)
		}
	}
	out := make([]float32, dim)
	if len(sequence) == 0 {
		return out
	}
	for j := range sums {
		out[j] = float32(sums[j] / float64(len(sequence)))
	}
	return out
}
