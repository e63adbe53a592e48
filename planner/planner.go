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


// Package planner groups length-sorted sequences into inference batches.
//
// The planner makes a single forward pass, keeping one pending batch and its
// running residue total. After each item is appended the batch is closed when
// any of these hold, in order of precedence:
//
//  1. the batch holds MaxBatch members
//  2. the running total plus the next item's length reaches MaxResidues
//  3. the item was the last one
//  4. the item just appended is longer than MaxSeqLen
//
// The last rule flushes an oversized sequence together with whatever had
// already accumulated, so nothing shorter is ever added after it. In sorted
// input that leaves every oversized sequence in a batch of its own.
package planner

import (
	"errors"

	"github.com/poiesic/seqembed/core"
)

const (
	// DefaultMaxResidues is the default per-batch residue budget.
	DefaultMaxResidues = 4000
	// DefaultMaxSeqLen is the default length above which a sequence is isolated.
	DefaultMaxSeqLen = 1000
	// DefaultMaxBatch is the default maximum number of members per batch.
	DefaultMaxBatch = 100
)

// ErrInvalidLimits is returned when a limit is not positive.
var ErrInvalidLimits = errors.New("batch limits must be greater than 0")

// Limits are the capacity constraints applied to every batch.
type Limits struct {
	MaxResidues int
	MaxSeqLen   int
	MaxBatch    int
}

// DefaultLimits returns the default batch limits.
func DefaultLimits() Limits {
	return Limits{
		MaxResidues: DefaultMaxResidues,
		MaxSeqLen:   DefaultMaxSeqLen,
		MaxBatch:    DefaultMaxBatch,
	}
}

// Validate checks that the limits are usable.
func (l Limits) Validate() error {
	if l.MaxResidues <= 0 || l.MaxSeqLen <= 0 || l.MaxBatch <= 0 {
		return ErrInvalidLimits
	}
	return nil
}

// CloseReason records which rule closed a batch.
type CloseReason int

const (
	ReasonMaxBatch CloseReason = iota + 1
	ReasonMaxResidues
	ReasonEndOfCorpus
	ReasonOversized
)

func (r CloseReason) String() string {
	switch r {
	case ReasonMaxBatch:
		return "max_batch"
	case ReasonMaxResidues:
		return "max_residues"
	case ReasonEndOfCorpus:
		return "end_of_corpus"
	case ReasonOversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// Batch is a group of sequences submitted to the engine together.
type Batch struct {
	Members            []*core.SequenceRecord
	CumulativeResidues int
	// ForcedByOversized is set when a member is longer than MaxSeqLen.
	ForcedByOversized bool
	Reason            CloseReason
}

// IDs returns the member ids in batch order.
func (b *Batch) IDs() []string {
	ids := make([]string, len(b.Members))
	for i, m := range b.Members {
		ids[i] = m.ID
	}
	return ids
}

// Largest returns the longest member, preferring the earliest on ties.
func (b *Batch) Largest() *core.SequenceRecord {
	var largest *core.SequenceRecord
	for _, m := range b.Members {
		if largest == nil || m.Length > largest.Length {
			largest = m
		}
	}
	return largest
}

// Planner streams batches over a record list in a single pass.
type Planner struct {
	records []*core.SequenceRecord
	limits  Limits
	cursor  int
}

// New creates a planner over records, which should already be sorted by
// descending length. The planner does not copy or reorder records.
func New(records []*core.SequenceRecord, limits Limits) (*Planner, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Planner{
		records: records,
		limits:  limits,
	}, nil
}

// Next returns the next batch, or false once every record has been planned.
func (p *Planner) Next() (*Batch, bool) {
	if p.cursor >= len(p.records) {
		return nil, false
	}

	batch := &Batch{}
	for p.cursor < len(p.records) {
		item := p.records[p.cursor]
		p.cursor++

		batch.Members = append(batch.Members, item)
		batch.CumulativeResidues += item.Length
		if item.Length > p.limits.MaxSeqLen {
			batch.ForcedByOversized = true
		}

		if reason := p.closeReason(batch); reason != 0 {
			batch.Reason = reason
			return batch, true
		}
	}

	// Unreachable: the last item always closes the batch.
	batch.Reason = ReasonEndOfCorpus
	return batch, true
}

// closeReason applies the closing rules after an item was appended.
// Returns 0 if the batch stays open.
func (p *Planner) closeReason(batch *Batch) CloseReason {
	if len(batch.Members) >= p.limits.MaxBatch {
		return ReasonMaxBatch
	}

	last := p.cursor >= len(p.records)
	if !last && batch.CumulativeResidues+p.records[p.cursor].Length >= p.limits.MaxResidues {
		return ReasonMaxResidues
	}
	if last {
		return ReasonEndOfCorpus
	}
	if batch.Members[len(batch.Members)-1].Length > p.limits.MaxSeqLen {
		return ReasonOversized
	}
	return 0
}

// Plan returns every batch for records.
func Plan(records []*core.SequenceRecord, limits Limits) ([]*Batch, error) {
	p, err := New(records, limits)
	if err != nil {
		return nil, err
	}

	var batches []*Batch
	for b, ok := p.Next(); ok; b, ok = p.Next() {
		batches = append(batches, b)
	}
	return batches, nil
}
