package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/poiesic/seqembed/core"
)

// Bin is one populated length range of a Histogram.
type Bin struct {
	Start   int // Inclusive
	End     int // Inclusive
	Count   int
	Percent float64 // Share of all records, rounded to two decimals
}

// Histogram is a length distribution used to choose batch limits.
type Histogram struct {
	BinSize   int
	Threshold int
	Bins      []Bin // Populated bins only, by ascending Start
	Total     int

	// AboveThreshold counts records in bins starting at or above Threshold.
	AboveThreshold int
}

// ComputeHistogram bins record lengths into ranges of binSize.
func ComputeHistogram(records []*core.SequenceRecord, binSize, threshold int) (*Histogram, error) {
	if binSize <= 0 {
		return nil, ErrInvalidBinSize
	}

	counts := make(map[int]int)
	for _, r := range records {
		counts[(r.Length/binSize)*binSize]++
	}

	h := &Histogram{
		BinSize:   binSize,
		Threshold: threshold,
		Total:     len(records),
	}
	for start, count := range counts {
		h.Bins = append(h.Bins, Bin{
			Start:   start,
			End:     start + binSize - 1,
			Count:   count,
			Percent: math.Round(float64(count)/float64(h.Total)*10000) / 100,
		})
		if start >= threshold {
			h.AboveThreshold += count
		}
	}
	slices.SortFunc(h.Bins, func(a, b Bin) int {
		return a.Start - b.Start
	})
	return h, nil
}

// Print writes the histogram as an aligned table.
func (h *Histogram) Print(w io.Writer) {
	fmt.Fprintf(w, "%12s %10s %8s\n", "Bin Range", "Count", "% Total")
	for _, b := range h.Bins {
		fmt.Fprintf(w, "%12s %10d %8.2f\n", fmt.Sprintf("%d-%d", b.Start, b.End), b.Count, b.Percent)
	}
	fmt.Fprintf(w, "Number of sequences above %d: %d\n", h.Threshold, h.AboveThreshold)
}

// WriteCSV writes one row per bin with a header row.
func (h *Histogram) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bin_start", "count", "bin_range", "percent"}); err != nil {
		return err
	}
	for _, b := range h.Bins {
		row := []string{
			strconv.Itoa(b.Start),
			strconv.Itoa(b.Count),
			fmt.Sprintf("%d-%d", b.Start, b.End),
			strconv.FormatFloat(b.Percent, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
