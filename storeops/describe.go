package storeops

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/storage"
)

// StoreInfo summarizes the contents of a result store.
type StoreInfo struct {
	Count      int
	Pooled     int
	PerResidue int
	Dims       map[int]int // Vector width -> number of entries
	Values     int64       // Total stored float32 values
	MinLength  int
	MaxLength  int
	Oldest     time.Time
	Newest     time.Time
}

// Describe walks a store once and summarizes it.
func Describe(ctx context.Context, store storage.ResultStore) (*StoreInfo, error) {
	info := &StoreInfo{Dims: make(map[int]int)}

	err := store.ForEach(ctx, func(e *core.Embedding) error {
		info.Count++
		if e.PerProtein {
			info.Pooled++
		} else {
			info.PerResidue++
		}
		info.Dims[e.Dim]++
		info.Values += int64(len(e.Values))

		if info.Count == 1 || e.Length < info.MinLength {
			info.MinLength = e.Length
		}
		if e.Length > info.MaxLength {
			info.MaxLength = e.Length
		}
		if info.Oldest.IsZero() || e.CreatedAt.Before(info.Oldest) {
			info.Oldest = e.CreatedAt
		}
		if e.CreatedAt.After(info.Newest) {
			info.Newest = e.CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan store: %w", err)
	}
	return info, nil
}

// Print writes a human-readable summary.
func (i *StoreInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "  Entries: %d (pooled %d, per-residue %d)\n", i.Count, i.Pooled, i.PerResidue)
	if i.Count == 0 {
		return
	}

	dims := make([]int, 0, len(i.Dims))
	for d := range i.Dims {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	for _, d := range dims {
		fmt.Fprintf(w, "  Width %d: %d entries\n", d, i.Dims[d])
	}

	fmt.Fprintf(w, "  Sequence length: %d..%d\n", i.MinLength, i.MaxLength)
	fmt.Fprintf(w, "  Estimated in-memory size: %d bytes\n", i.Values*4)
	fmt.Fprintf(w, "  Written: %s .. %s\n", i.Oldest.Format(time.RFC3339), i.Newest.Format(time.RFC3339))
}
