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


package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/seqembed/core"
)

const (
	headerPrefix = '>'
	gapChar      = '-'

	// Single-line sequences can be tens of thousands of residues long.
	maxLineSize = 64 * 1024 * 1024
)

// ambiguousResidues are replaced with core.PlaceholderResidue.
const ambiguousResidues = "UZO"

// DuplicatePolicy decides what happens when an id is seen twice.
type DuplicatePolicy int

const (
	// DuplicateLastWins replaces the earlier body with the later one.
	DuplicateLastWins DuplicatePolicy = iota
	// DuplicateReject fails the load with ErrDuplicateID.
	DuplicateReject
)

// Corpus is a loaded, normalized sequence collection.
type Corpus struct {
	// Records sorted by descending length, ties in encounter order.
	Records []*core.SequenceRecord

	// Duplicates lists ids that appeared more than once, in the order the
	// repeats were seen. Only populated under DuplicateLastWins.
	Duplicates []string
}

// Option configures loading.
type Option func(*options)

type options struct {
	duplicates DuplicatePolicy
	strict     bool
	logger     *slog.Logger
}

// WithDuplicatePolicy sets how repeated ids are handled.
// Default is DuplicateLastWins.
func WithDuplicatePolicy(policy DuplicatePolicy) Option {
	return func(o *options) {
		o.duplicates = policy
	}
}

// WithStrictResidues makes any symbol outside A-Z a load error. By default
// such symbols (stop codons, digits) are replaced with core.PlaceholderResidue.
func WithStrictResidues() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// LoadFile reads and parses a FASTA file.
func LoadFile(path string, opts ...Option) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	c, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return c, nil
}

// pending accumulates the body of one id while parsing.
type pending struct {
	index      int
	headerLine int
	body       strings.Builder
}

// Parse reads header-delimited records from r.
// Any malformed record aborts the parse with a *ParseError. Symbols outside
// the residue alphabet only do so under WithStrictResidues.
func Parse(r io.Reader, opts ...Option) (*Corpus, error) {
	o := &options{
		duplicates: DuplicateLastWins,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	byID := make(map[string]*pending)
	var order []string
	var duplicates []string
	var current *pending
	replaced := 0

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if len(line) > 0 && line[0] == headerPrefix {
			id := SanitizeID(line[1:])
			if id == "" {
				return nil, &ParseError{Line: lineNo, Err: core.ErrEmptyID}
			}

			if existing, ok := byID[id]; ok {
				if o.duplicates == DuplicateReject {
					return nil, &ParseError{Line: lineNo, Err: fmt.Errorf("%w: %q", ErrDuplicateID, id)}
				}
				// Keep the first position, restart the body
				existing.body.Reset()
				existing.headerLine = lineNo
				duplicates = append(duplicates, id)
				current = existing
				continue
			}

			current = &pending{index: len(order), headerLine: lineNo}
			byID[id] = current
			order = append(order, id)
			continue
		}

		residues := NormalizeResidues(line)
		if residues == "" {
			continue
		}
		if current == nil {
			return nil, &ParseError{Line: lineNo, Err: ErrBodyBeforeHeader}
		}
		if o.strict {
			for i := 0; i < len(residues); i++ {
				if !core.IsResidue(residues[i]) {
					return nil, &ParseError{
						Line: lineNo,
						Err:  fmt.Errorf("%w: %q", core.ErrInvalidResidue, residues[i]),
					}
				}
			}
		} else {
			var n int
			residues, n = ReplaceInvalidResidues(residues)
			replaced += n
		}
		current.body.WriteString(residues)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	if len(order) == 0 {
		return nil, ErrEmptyCorpus
	}

	records := make([]*core.SequenceRecord, 0, len(order))
	for _, id := range order {
		p := byID[id]
		if p.body.Len() == 0 {
			return nil, &ParseError{Line: p.headerLine, Err: fmt.Errorf("%w: %q", core.ErrEmptySequence, id)}
		}
		records = append(records, core.NewSequenceRecord(id, p.body.String(), p.index))
	}

	if len(duplicates) > 0 {
		o.logger.Warn("duplicate sequence ids replaced by later records", "count", len(duplicates), "ids", duplicates)
	}
	if replaced > 0 {
		o.logger.Warn("unknown residue symbols replaced", "count", replaced, "placeholder", string(core.PlaceholderResidue))
	}

	SortByLength(records)

	return &Corpus{
		Records:    records,
		Duplicates: duplicates,
	}, nil
}

// SanitizeID turns a header line (without the leading '>') into a storage-safe id.
func SanitizeID(header string) string {
	id := strings.TrimSpace(header)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(core.UnsafeIDChars, r) {
			return core.PlaceholderIDChar
		}
		return r
	}, id)
}

// NormalizeResidues strips whitespace and gaps, uppercases, and replaces
// ambiguous residue codes with core.PlaceholderResidue.
func NormalizeResidues(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if unicode.IsSpace(r) || r == gapChar {
			continue
		}
		r = unicode.ToUpper(r)
		if strings.ContainsRune(ambiguousResidues, r) {
			r = core.PlaceholderResidue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReplaceInvalidResidues replaces every symbol outside the residue alphabet
// with core.PlaceholderResidue and reports how many were replaced.
func ReplaceInvalidResidues(residues string) (string, int) {
	n := 0
	out := strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && core.IsResidue(byte(r)) {
			return r
		}
		n++
		return core.PlaceholderResidue
	}, residues)
	return out, n
}

// SortByLength sorts records by descending length, ties by ascending Index.
func SortByLength(records []*core.SequenceRecord) {
	slices.SortStableFunc(records, func(a, b *core.SequenceRecord) int {
		if a.Length != b.Length {
			return b.Length - a.Length
		}
		return a.Index - b.Index
	})
}
