package corpus

import "github.com/poiesic/seqembed/core"

// Stats summarizes a set of records.
type Stats struct {
	Count         int
	TotalResidues int
	AverageLength float64
	MaxLength     int
	LongerThan    int // Records longer than the threshold passed to ComputeStats
}

// ComputeStats summarizes records, counting those longer than threshold.
func ComputeStats(records []*core.SequenceRecord, threshold int) Stats {
	var s Stats
	for _, r := range records {
		s.Count++
		s.TotalResidues += r.Length
		if r.Length > s.MaxLength {
			s.MaxLength = r.Length
		}
		if r.Length > threshold {
			s.LongerThan++
		}
	}
	if s.Count > 0 {
		s.AverageLength = float64(s.TotalResidues) / float64(s.Count)
	}
	return s
}
