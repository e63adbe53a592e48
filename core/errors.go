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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSequenceRecord indicates a SequenceRecord failed validation.
	ErrInvalidSequenceRecord = errors.New("invalid sequence record")

	// ErrInvalidEmbedding indicates an Embedding failed validation.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrUnsafeID indicates the ID contains characters that are not storage-safe.
	ErrUnsafeID = errors.New("id contains unsafe characters")

	// ErrEmptySequence indicates the Residues field is empty.
	ErrEmptySequence = errors.New("sequence cannot be empty")

	// ErrLengthMismatch indicates Length does not match the residues.
	ErrLengthMismatch = errors.New("length does not match residues")

	// ErrInvalidResidue indicates a symbol outside the residue alphabet.
	ErrInvalidResidue = errors.New("invalid residue symbol")

	// ErrShapeMismatch indicates an embedding's values do not match its shape.
	ErrShapeMismatch = errors.New("values do not match shape")
)
