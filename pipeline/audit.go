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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/engine"
)

// Audit record messages.
const (
	MsgRunStarted     = "run started"
	MsgRunFinished    = "run finished"
	MsgBatch          = "batch"
	MsgSequence       = "sequence"
	MsgBatchFailed    = "batch failed"
	MsgBatchCompleted = "batch completed"
)

// runSeparator is written before a new run when a log file is reused.
var runSeparator = strings.Repeat("*", 100) + "\n\n"

// AuditLog writes one JSON record per event. Records are written straight to
// the underlying file so they survive a crash of the process.
type AuditLog struct {
	logger *slog.Logger
	closer io.Closer
}

// NewAuditLog writes records to w. The caller keeps ownership of w.
func NewAuditLog(w io.Writer) *AuditLog {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &AuditLog{
		logger: slog.New(handler).With("pid", os.Getpid()),
	}
}

// OpenAuditLog opens path in append mode, creating it if needed. A file
// that already exists gets a separator line first so runs are easy to tell
// apart.
func OpenAuditLog(path string) (*AuditLog, error) {
	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	if existed {
		if _, err := io.WriteString(f, runSeparator); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	a := NewAuditLog(f)
	a.closer = f
	return a, nil
}

// Close closes the underlying file if the log opened it.
func (a *AuditLog) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// RunStarted records the corpus size and limits of a run.
func (a *AuditLog) RunStarted(sequences int, cfg *Config) {
	a.logger.Info(MsgRunStarted,
		"sequences", sequences,
		"max_residues", cfg.MaxResidues,
		"max_seq_len", cfg.MaxSeqLen,
		"max_batch", cfg.MaxBatch,
		"per_protein", cfg.PerProtein)
}

// RunFinished records the run totals.
func (a *AuditLog) RunFinished(s *Summary) {
	a.logger.Info(MsgRunFinished,
		"batches", s.Batches,
		"new", s.New,
		"existing", s.Existing,
		"failed", s.Failed,
		"failed_batches", s.FailedBatches,
		"elapsed", s.Elapsed.String())
}

// Batch records a batch header.
func (a *AuditLog) Batch(batch, totalLength, newCount, existing int) {
	a.logger.Info(MsgBatch,
		"batch", batch,
		"total_length", totalLength,
		"new", newCount,
		"existing", existing)
}

// Sequence records the status of one member.
func (a *AuditLog) Sequence(batch int, status core.Status, record *core.SequenceRecord) {
	a.logger.Info(MsgSequence,
		"batch", batch,
		"status", string(status),
		"id", record.ID,
		"length", record.Length)
}

// BatchFailed records why a batch was skipped and its largest member.
func (a *AuditLog) BatchFailed(batch int, err error, culprit *core.SequenceRecord) {
	a.logger.Warn(MsgBatchFailed,
		"batch", batch,
		"error", err.Error(),
		"kind", engine.KindOf(err).String(),
		"culprit", culprit.ID,
		"culprit_length", culprit.Length)
}

// BatchCompleted records how many new embeddings a batch wrote.
func (a *AuditLog) BatchCompleted(batch, processed int) {
	a.logger.Info(MsgBatchCompleted, "batch", batch, "processed", processed)
}

// AuditSummary is the per-id outcome of one or more runs read from an audit log.
type AuditSummary struct {
	Runs      int
	Latest    map[string]core.Status // Last status recorded for each id
	Counts    map[core.Status]int    // Status records across all runs
	Malformed int                    // Lines that were neither separators nor records
}

// FailedIDs returns the ids whose latest status is FAIL, sorted.
func (s *AuditSummary) FailedIDs() []string {
	var ids []string
	for id, status := range s.Latest {
		if status == core.StatusFail {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type auditRecord struct {
	Msg    string `json:"msg"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ReadAuditLog summarizes an audit log. Run separators and blank lines are
// skipped; other lines that do not parse are counted as malformed.
func ReadAuditLog(r io.Reader) (*AuditSummary, error) {
	summary := &AuditSummary{
		Latest: make(map[string]core.Status),
		Counts: make(map[core.Status]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Trim(line, "*") == "" {
			continue
		}

		var rec auditRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			summary.Malformed++
			continue
		}

		switch rec.Msg {
		case MsgRunStarted:
			summary.Runs++
		case MsgSequence:
			if rec.ID == "" {
				summary.Malformed++
				continue
			}
			status := core.Status(rec.Status)
			summary.Latest[rec.ID] = status
			summary.Counts[status]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return summary, nil
}

// ReadAuditLogFile summarizes the audit log at path.
func ReadAuditLogFile(path string) (*AuditSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()
	return ReadAuditLog(f)
}
