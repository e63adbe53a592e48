package core

import (
	"errors"
	"testing"
)

func TestValidateSequenceRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *SequenceRecord
		wantErr error
	}{
		{
			name:    "valid record",
			record:  NewSequenceRecord("P12345", "MKTAYIAK", 0),
			wantErr: nil,
		},
		{
			name:    "valid record with placeholder residue",
			record:  NewSequenceRecord("sp_P1_HUMAN", "MXXA", 3),
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidSequenceRecord,
		},
		{
			name:    "empty id",
			record:  NewSequenceRecord("", "MK", 0),
			wantErr: ErrEmptyID,
		},
		{
			name:    "id with slash",
			record:  NewSequenceRecord("sp/P1", "MK", 0),
			wantErr: ErrUnsafeID,
		},
		{
			name:    "id with dot",
			record:  NewSequenceRecord("P1.2", "MK", 0),
			wantErr: ErrUnsafeID,
		},
		{
			name:    "empty residues",
			record:  NewSequenceRecord("P1", "", 0),
			wantErr: ErrEmptySequence,
		},
		{
			name:    "length mismatch",
			record:  &SequenceRecord{ID: "P1", Residues: "MKV", Length: 2},
			wantErr: ErrLengthMismatch,
		},
		{
			name:    "lowercase residue",
			record:  NewSequenceRecord("P1", "MkV", 0),
			wantErr: ErrInvalidResidue,
		},
		{
			name:    "gap residue",
			record:  NewSequenceRecord("P1", "MK-V", 0),
			wantErr: ErrInvalidResidue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequenceRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSequenceRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSequenceRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidSequenceRecord) {
				t.Errorf("ValidateSequenceRecord() error = %v, should wrap ErrInvalidSequenceRecord", err)
			}
		})
	}
}

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		embedding *Embedding
		wantErr   error
	}{
		{
			name:      "valid pooled embedding",
			embedding: &Embedding{ID: "P1", Rows: 1, Dim: 3, Values: []float32{1, 2, 3}, PerProtein: true},
		},
		{
			name:      "valid per-residue embedding",
			embedding: &Embedding{ID: "P1", Rows: 2, Dim: 2, Values: []float32{1, 2, 3, 4}, Length: 2},
		},
		{
			name:      "nil embedding",
			embedding: nil,
			wantErr:   ErrInvalidEmbedding,
		},
		{
			name:      "unsafe id",
			embedding: &Embedding{ID: "a/b", Rows: 1, Dim: 1, Values: []float32{1}},
			wantErr:   ErrUnsafeID,
		},
		{
			name:      "short values",
			embedding: &Embedding{ID: "P1", Rows: 2, Dim: 2, Values: []float32{1, 2, 3}},
			wantErr:   ErrShapeMismatch,
		},
		{
			name:      "zero dim",
			embedding: &Embedding{ID: "P1", Rows: 1, Dim: 0},
			wantErr:   ErrShapeMismatch,
		},
		{
			name:      "pooled with several rows",
			embedding: &Embedding{ID: "P1", Rows: 2, Dim: 1, Values: []float32{1, 2}, PerProtein: true},
			wantErr:   ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbedding(tt.embedding)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEmbedding() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEmbedding() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsResidue(t *testing.T) {
	for _, b := range []byte("ACDEFGHIKLMNPQRSTVWYX") {
		if !IsResidue(b) {
			t.Errorf("IsResidue(%q) = false, want true", b)
		}
	}
	for _, b := range []byte("acx-* 1.") {
		if IsResidue(b) {
			t.Errorf("IsResidue(%q) = true, want false", b)
		}
	}
}
