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


package core

import (
	"fmt"
	"strings"
)

// UnsafeIDChars are the characters that may not appear in a stored id.
// Loaders replace them with PlaceholderIDChar.
const UnsafeIDChars = "/\\."

// PlaceholderIDChar replaces unsafe id characters.
const PlaceholderIDChar = '_'

// PlaceholderResidue replaces ambiguous residue codes.
const PlaceholderResidue = 'X'

// ValidateSequenceRecord validates a SequenceRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty and must be storage-safe
//   - Residues must not be empty
//   - Length must equal len(Residues)
//   - Every residue must be an uppercase letter
func ValidateSequenceRecord(record *SequenceRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidSequenceRecord)
	}

	if err := ValidateID(record.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSequenceRecord, err)
	}

	if record.Residues == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSequenceRecord, ErrEmptySequence)
	}

	if record.Length != len(record.Residues) {
		return fmt.Errorf("%w: %w: length %d, residues %d",
			ErrInvalidSequenceRecord, ErrLengthMismatch, record.Length, len(record.Residues))
	}

	for i := 0; i < len(record.Residues); i++ {
		if !IsResidue(record.Residues[i]) {
			return fmt.Errorf("%w: %w: %q at position %d",
				ErrInvalidSequenceRecord, ErrInvalidResidue, record.Residues[i], i)
		}
	}

	return nil
}

// ValidateID checks that an id is non-empty and storage-safe.
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if strings.ContainsAny(id, UnsafeIDChars) {
		return fmt.Errorf("%w: %q", ErrUnsafeID, id)
	}
	return nil
}

// IsResidue reports whether b belongs to the normalized residue alphabet.
func IsResidue(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// ValidateEmbedding validates an Embedding before it is persisted.
//
// Validation rules:
//   - ID must be valid
//   - Rows and Dim must be positive and Values must hold Rows*Dim entries
//   - Pooled embeddings have exactly one row
func ValidateEmbedding(e *Embedding) error {
	if e == nil {
		return fmt.Errorf("%w: embedding is nil", ErrInvalidEmbedding)
	}

	if err := ValidateID(e.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEmbedding, err)
	}

	if e.Rows <= 0 || e.Dim <= 0 || len(e.Values) != e.Rows*e.Dim {
		return fmt.Errorf("%w: %w: rows %d, dim %d, values %d",
			ErrInvalidEmbedding, ErrShapeMismatch, e.Rows, e.Dim, len(e.Values))
	}

	if e.PerProtein && e.Rows != 1 {
		return fmt.Errorf("%w: %w: pooled embedding has %d rows",
			ErrInvalidEmbedding, ErrShapeMismatch, e.Rows)
	}

	return nil
}
