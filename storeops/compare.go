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


package storeops

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/seqembed/storage"
)

// Mismatch describes a shared id whose stored values differ.
type Mismatch struct {
	ID      string
	Reason  string
	MaxDiff float64 // Largest absolute component difference, when shapes agree
	Cosine  float64 // Similarity of the stored values, when shapes agree
}

// CompareReport is the result of comparing two stores.
type CompareReport struct {
	Shared     int
	OnlyA      []string
	OnlyB      []string
	Mismatches []Mismatch
}

// Equal reports whether both stores hold the same ids with matching values.
func (r *CompareReport) Equal() bool {
	return len(r.OnlyA) == 0 && len(r.OnlyB) == 0 && len(r.Mismatches) == 0
}

// CompareOptions configures Compare.
type CompareOptions struct {
	// Tolerance is the largest absolute difference treated as equal
	Tolerance float64

	// Workers is the worker pool size. Default is runtime.NumCPU().
	Workers int
}

// Compare checks two stores id by id. Values of shared ids are compared
// concurrently on an ants worker pool.
func Compare(ctx context.Context, a, b storage.ResultStore, opts CompareOptions) (*CompareReport, error) {
	if opts.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	idsA, err := a.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list first store: %w", err)
	}
	idsB, err := b.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list second store: %w", err)
	}

	report := &CompareReport{}
	var shared []string
	for id := range idsA {
		if _, ok := idsB[id]; ok {
			shared = append(shared, id)
		} else {
			report.OnlyA = append(report.OnlyA, id)
		}
	}
	for id := range idsB {
		if _, ok := idsA[id]; !ok {
			report.OnlyB = append(report.OnlyB, id)
		}
	}
	sort.Strings(report.OnlyA)
	sort.Strings(report.OnlyB)
	report.Shared = len(shared)

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, id := range shared {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			mismatch, err := compareOne(ctx, a, b, id, opts.Tolerance)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if mismatch != nil {
				report.Mismatches = append(report.Mismatches, *mismatch)
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, submitErr
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].ID < report.Mismatches[j].ID
	})
	return report, nil
}

func compareOne(ctx context.Context, a, b storage.ResultStore, id string, tolerance float64) (*Mismatch, error) {
	ea, err := a.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from first store: %w", id, err)
	}
	eb, err := b.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from second store: %w", id, err)
	}

	if ea.Rows != eb.Rows || ea.Dim != eb.Dim || ea.PerProtein != eb.PerProtein {
		return &Mismatch{
			ID: id,
			Reason: fmt.Sprintf("shape %dx%d (pooled=%t) vs %dx%d (pooled=%t)",
				ea.Rows, ea.Dim, ea.PerProtein, eb.Rows, eb.Dim, eb.PerProtein),
		}, nil
	}
	if ea.Digest != eb.Digest {
		return &Mismatch{ID: id, Reason: "residue digest differs"}, nil
	}

	maxDiff := 0.0
	for i := range ea.Values {
		d := math.Abs(float64(ea.Values[i]) - float64(eb.Values[i]))
		if d > maxDiff {
			maxDiff = d
		}
	}
	if maxDiff > tolerance {
		return &Mismatch{
			ID:      id,
			Reason:  "values differ",
			MaxDiff: maxDiff,
			Cosine:  Cosine(ea.Values, eb.Values),
		}, nil
	}
	return nil, nil
}
