package pipeline

import (
	"fmt"
	"io"
	"time"
)

// Summary reports the outcome of one run.
type Summary struct {
	Sequences     int // Sequences in the corpus
	Batches       int // Batches planned and visited
	New           int // Embeddings written during this run
	Existing      int // Sequences already in the store
	Failed        int // Sequences in failed batches
	FailedBatches int
	AverageLength float64 // Mean length over the whole corpus
	Elapsed       time.Duration
}

// PerNew returns the mean wall time per new embedding, or 0 if none were written.
func (s *Summary) PerNew() time.Duration {
	if s.New == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.New)
}

// Print writes the end-of-run statistics block.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "############# OVERALL STATS #############")
	fmt.Fprintf(w, "Total new embeddings processed in this run: %d\n", s.New)
	fmt.Fprintf(w, "Existing: %d; failed: %d in %d of %d batches\n",
		s.Existing, s.Failed, s.FailedBatches, s.Batches)
	fmt.Fprintf(w, "Total time: %.2f[s]; time/seq: %.4f[s]; avg. len of all sequences= %.2f\n",
		s.Elapsed.Seconds(), s.PerNew().Seconds(), s.AverageLength)
}
