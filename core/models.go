package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Status is the outcome recorded for a sequence in a single run.
type Status string

const (
	// StatusNew marks a sequence embedded and persisted during this run.
	StatusNew Status = "NEW"
	// StatusExisting marks a sequence already present in the result store.
	StatusExisting Status = "EXISTING"
	// StatusFail marks a sequence whose batch failed during this run.
	StatusFail Status = "FAIL"
)

// SequenceRecord is a normalized sequence loaded from the corpus.
// Records are immutable once the corpus has been loaded.
type SequenceRecord struct {
	ID       string // Storage-safe identifier, unique within a corpus
	Residues string // Normalized residues (uppercase, no gaps or whitespace)
	Length   int    // Always len(Residues)
	Index    int    // Encounter order of the id's first occurrence in the input
}

// NewSequenceRecord builds a record whose Length matches its residues.
func NewSequenceRecord(id, residues string, index int) *SequenceRecord {
	return &SequenceRecord{
		ID:       id,
		Residues: residues,
		Length:   len(residues),
		Index:    index,
	}
}

// Embedding is a result store entry. Values are stored row-major:
// a pooled embedding has one row, a per-residue embedding has Length rows.
type Embedding struct {
	ID         string
	Rows       int
	Dim        int
	Values     []float32
	Length     int       // True length of the source sequence
	PerProtein bool      // True when Values is a single mean-pooled vector
	Digest     uint64    // DigestResidues of the source sequence
	CreatedAt  time.Time // When the embedding was persisted
}

// Vector returns the pooled vector, or the first row of a per-residue embedding.
func (e *Embedding) Vector() []float32 {
	if e.Rows == 0 || e.Dim == 0 {
		return nil
	}
	return e.Values[:e.Dim]
}

// Row returns the i-th position vector.
func (e *Embedding) Row(i int) []float32 {
	return e.Values[i*e.Dim : (i+1)*e.Dim]
}

// DigestResidues returns a 64-bit BLAKE2b digest of a residue string.
// It lets tooling detect a stored vector whose id now maps to different residues.
func DigestResidues(residues string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(residues))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
