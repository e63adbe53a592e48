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


package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/corpus"
	"github.com/poiesic/seqembed/engine"
	"github.com/poiesic/seqembed/planner"
	"github.com/poiesic/seqembed/storage"
)

// Runner orchestrates embedding a corpus into a result store.
type Runner struct {
	store   storage.ResultStore
	engine  engine.Engine
	config  *Config
	audit   *AuditLog
	console io.Writer
	pooled  bool
	logger  *slog.Logger
}

// NewRunner creates a new runner.
// audit: where status records go; nil writes them to io.Discard
// console: where progress, diagnostics and the final statistics go (typically os.Stdout)
func NewRunner(store storage.ResultStore, eng engine.Engine, config *Config, audit *AuditLog, console io.Writer) (*Runner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pooled := engine.IsPooled(eng)
	if pooled && !config.PerProtein {
		return nil, ErrPerResidueUnsupported
	}

	if audit == nil {
		audit = NewAuditLog(io.Discard)
	}
	if console == nil {
		console = io.Discard
	}

	return &Runner{
		store:   store,
		engine:  eng,
		config:  config,
		audit:   audit,
		console: console,
		pooled:  pooled,
		logger:  slog.Default().With("component", "runner"),
	}, nil
}

// Run embeds every record not yet in the store.
// records must be sorted by descending length, as corpus.Parse returns them.
//
// Engine failures are contained to their batch and reported in the Summary.
// A store read or write failure, or cancellation of ctx, ends the run with an
// error; the partial Summary is still returned and everything appended before
// that point stays valid.
func (r *Runner) Run(ctx context.Context, records []*core.SequenceRecord) (*Summary, error) {
	stats := corpus.ComputeStats(records, r.config.MaxSeqLen)
	fmt.Fprintf(r.console, "Total number of sequences: %d\n", stats.Count)
	fmt.Fprintf(r.console, "Average sequence length: %.2f\n", stats.AverageLength)
	fmt.Fprintf(r.console, "Number of sequences >%d: %d\n", r.config.MaxSeqLen, stats.LongerThan)

	summary := &Summary{
		Sequences:     stats.Count,
		AverageLength: stats.AverageLength,
	}

	p, err := planner.New(records, r.config.Limits())
	if err != nil {
		return summary, err
	}

	r.audit.RunStarted(len(records), r.config)

	tracker := NewProgressTracker(r.console, len(records), r.config.ReportInterval)
	tracker.Start()

	runErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, ok := p.Next()
			if !ok {
				return nil
			}
			summary.Batches++
			if err := r.processBatch(ctx, summary.Batches, batch, summary); err != nil {
				return err
			}
			tracker.Increment(len(batch.Members))
		}
	}()

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()
	r.audit.RunFinished(summary)
	summary.Print(r.console)

	if runErr != nil {
		r.logger.Error("run aborted", "batch", summary.Batches, "err", runErr)
		return summary, runErr
	}
	return summary, nil
}

// processBatch runs one batch. Only store failures and cancellation are
// returned; engine failures are recorded and swallowed.
func (r *Runner) processBatch(ctx context.Context, num int, batch *planner.Batch, summary *Summary) error {
	var toProcess, done []*core.SequenceRecord
	for _, m := range batch.Members {
		exists, err := r.store.Contains(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("batch %d: failed to query store for %s: %w", num, m.ID, err)
		}
		if exists {
			done = append(done, m)
		} else {
			toProcess = append(toProcess, m)
		}
	}

	r.audit.Batch(num, batch.CumulativeResidues, len(toProcess), len(done))
	for _, m := range done {
		r.audit.Sequence(num, core.StatusExisting, m)
	}
	summary.Existing += len(done)

	if len(toProcess) == 0 {
		r.audit.BatchCompleted(num, 0)
		return nil
	}

	r.logger.Debug("embedding batch",
		"batch", num,
		"members", len(toProcess),
		"residues", batch.CumulativeResidues,
		"reason", batch.Reason.String(),
		"forced", batch.ForcedByOversized)

	embeddings, err := r.embed(ctx, toProcess)
	if err != nil {
		r.failBatch(num, batch, toProcess, err)
		summary.Failed += len(toProcess)
		summary.FailedBatches++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return nil
	}

	for i, e := range embeddings {
		if err := r.store.Append(ctx, e); err != nil {
			for _, m := range toProcess[:i] {
				r.audit.Sequence(num, core.StatusNew, m)
			}
			for _, m := range toProcess[i:] {
				r.audit.Sequence(num, core.StatusFail, m)
			}
			summary.New += i
			summary.Failed += len(toProcess) - i
			return fmt.Errorf("batch %d: failed to append %s: %w", num, e.ID, err)
		}
	}

	for _, m := range toProcess {
		r.audit.Sequence(num, core.StatusNew, m)
	}
	r.audit.BatchCompleted(num, len(toProcess))
	summary.New += len(toProcess)
	return nil
}

// embed makes one engine call and reduces every result before anything is
// written, so a batch is persisted whole or not at all.
func (r *Runner) embed(ctx context.Context, records []*core.SequenceRecord) ([]*core.Embedding, error) {
	sequences := make([]string, len(records))
	for i, rec := range records {
		sequences[i] = rec.Residues
	}

	matrices, err := r.engine.Embed(ctx, sequences)
	if err != nil {
		return nil, err
	}
	if len(matrices) != len(records) {
		return nil, engine.NewError(engine.KindInternal, "embed",
			fmt.Errorf("%w: %d sequences, %d matrices", engine.ErrOutputMismatch, len(records), len(matrices)))
	}

	out := make([]*core.Embedding, len(records))
	for i, rec := range records {
		e, err := Reduce(rec, matrices[i], r.config.PerProtein, r.pooled)
		if err != nil {
			return nil, engine.NewError(engine.KindInternal, "reduce", err)
		}
		out[i] = e
	}
	return out, nil
}

// failBatch records FAIL for every member sent to the engine and prints the
// operator diagnostic.
func (r *Runner) failBatch(num int, batch *planner.Batch, failed []*core.SequenceRecord, err error) {
	for _, m := range failed {
		r.audit.Sequence(num, core.StatusFail, m)
	}

	culprit := largest(failed)
	last := failed[len(failed)-1]
	r.audit.BatchFailed(num, err, culprit)
	r.logger.Warn("batch failed", "batch", num, "culprit", culprit.ID, "err", err)

	cause := "engine error"
	if engine.IsResourceExhausted(err) {
		cause = "engine ran out of resources"
	}
	fmt.Fprintf(r.console,
		"Batch %d with total batch length %d: %s during embedding (%v). Largest member %s (Length=%d), last member %s (Length=%d). "+
			"Try lowering the batch limits. If single sequence processing does not work, the engine needs more memory for this sequence.\n",
		num, batch.CumulativeResidues, cause, err, culprit.ID, culprit.Length, last.ID, last.Length)
}

func largest(records []*core.SequenceRecord) *core.SequenceRecord {
	var out *core.SequenceRecord
	for _, m := range records {
		if out == nil || m.Length > out.Length {
			out = m
		}
	}
	return out
}
