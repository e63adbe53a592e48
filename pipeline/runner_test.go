package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/engine"
	"github.com/poiesic/seqembed/engine/mock"
	"github.com/poiesic/seqembed/storage"
	"github.com/poiesic/seqembed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

// testCorpus returns six records that plan into three batches of two under
// testConfig: lengths 30,30 | 20,20 | 10,10.
func testCorpus() []*core.SequenceRecord {
	specs := []struct {
		id       string
		residues string
	}{
		{"a", strings.Repeat("MKV", 10)},
		{"b", strings.Repeat("ACD", 10)},
		{"c", strings.Repeat("GH", 10)},
		{"d", strings.Repeat("WY", 10)},
		{"e", strings.Repeat("P", 10)},
		{"f", strings.Repeat("LI", 5)},
	}
	records := make([]*core.SequenceRecord, len(specs))
	for i, s := range specs {
		records[i] = core.NewSequenceRecord(s.id, s.residues, i)
	}
	return records
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxResidues = 100
	cfg.MaxSeqLen = 50
	cfg.MaxBatch = 2
	cfg.ReportInterval = 2
	return cfg
}

func setupStore(t *testing.T) storage.ResultStore {
	t.Helper()
	store, err := badger.NewMemoryResultStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func assertVectorNear(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

type runResult struct {
	summary *Summary
	err     error
	audit   *AuditSummary
	console string
}

func run(t *testing.T, store storage.ResultStore, eng engine.Engine, cfg *Config, ctx context.Context, records []*core.SequenceRecord) runResult {
	t.Helper()
	var auditBuf, console bytes.Buffer

	runner, err := NewRunner(store, eng, cfg, NewAuditLog(&auditBuf), &console)
	require.NoError(t, err)

	summary, runErr := runner.Run(ctx, records)

	audit, err := ReadAuditLog(&auditBuf)
	require.NoError(t, err)
	return runResult{summary: summary, err: runErr, audit: audit, console: console.String()}
}

func TestRunner_EmbedsAll(t *testing.T) {
	store := setupStore(t)
	eng := mock.NewEngine(testDim)
	records := testCorpus()

	res := run(t, store, eng, testConfig(), context.Background(), records)
	require.NoError(t, res.err)

	assert.Equal(t, 3, res.summary.Batches)
	assert.Equal(t, 6, res.summary.New)
	assert.Zero(t, res.summary.Existing)
	assert.Zero(t, res.summary.Failed)
	assert.Equal(t, 3, eng.CallCount())
	assert.Equal(t, []string{records[0].Residues, records[1].Residues}, eng.Calls()[0])

	for _, rec := range records {
		got, err := store.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.True(t, got.PerProtein)
		assert.Equal(t, rec.Length, got.Length)
		assert.Equal(t, core.DigestResidues(rec.Residues), got.Digest)
		// Padding rows hold 1e6; any leak into the mean would be obvious
		assertVectorNear(t, mock.MeanVector(rec.Residues, testDim), got.Vector())
	}

	assert.Contains(t, res.console, "Total number of sequences: 6")
	assert.Contains(t, res.console, "OVERALL STATS")
	assert.Contains(t, res.console, "Total new embeddings processed in this run: 6")
}

func TestRunner_PerResidue(t *testing.T) {
	store := setupStore(t)
	eng := mock.NewEngine(testDim)
	cfg := testConfig()
	cfg.PerProtein = false
	records := testCorpus()

	res := run(t, store, eng, cfg, context.Background(), records)
	require.NoError(t, res.err)

	rec := records[2]
	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, got.PerProtein)
	require.Equal(t, rec.Length, got.Rows, "rows are trimmed to the true length")
	for i := 0; i < rec.Length; i++ {
		assert.Equal(t, mock.ResidueVector(rec.Residues, i, testDim), got.Row(i))
	}
}

func TestRunner_IdempotentResumption(t *testing.T) {
	store := setupStore(t)
	records := testCorpus()

	first := run(t, store, mock.NewEngine(testDim), testConfig(), context.Background(), records)
	require.NoError(t, first.err)

	before := make(map[string][]float32)
	for _, rec := range records {
		e, err := store.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		before[rec.ID] = e.Values
	}

	eng := mock.NewEngine(testDim)
	second := run(t, store, eng, testConfig(), context.Background(), records)
	require.NoError(t, second.err)

	assert.Zero(t, eng.CallCount(), "a complete store needs no engine calls")
	assert.Zero(t, second.summary.New)
	assert.Equal(t, 6, second.summary.Existing)
	assert.Equal(t, 6, second.audit.Counts[core.StatusExisting])

	for _, rec := range records {
		e, err := store.Get(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, before[rec.ID], e.Values)
	}
}

func TestRunner_PartialStore(t *testing.T) {
	store := setupStore(t)
	records := testCorpus()

	// b and e were finished by an earlier run
	for _, rec := range []*core.SequenceRecord{records[1], records[4]} {
		e, err := Reduce(rec, engine.Matrix{{1, 2, 3, 4}}, true, true)
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), e))
	}

	eng := mock.NewEngine(testDim)
	res := run(t, store, eng, testConfig(), context.Background(), records)
	require.NoError(t, res.err)

	assert.Equal(t, 4, res.summary.New)
	assert.Equal(t, 2, res.summary.Existing)

	var sent []string
	for _, call := range eng.Calls() {
		sent = append(sent, call...)
	}
	assert.ElementsMatch(t, []string{records[0].Residues, records[2].Residues, records[3].Residues, records[5].Residues}, sent)

	kept, err := store.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, kept.Values, "existing results are never rewritten")
}

func TestRunner_FailureContainment(t *testing.T) {
	store := setupStore(t)
	records := testCorpus()

	eng := mock.NewEngine(testDim)
	eng.EmbedFunc = func(ctx context.Context, sequences []string) ([]engine.Matrix, error) {
		if len(sequences[0]) == 20 {
			return nil, engine.NewError(engine.KindResourceExhausted, "embed", errors.New("CUDA out of memory"))
		}
		return eng.Generate(sequences)
	}

	res := run(t, store, eng, testConfig(), context.Background(), records)
	require.NoError(t, res.err, "engine failures do not abort the run")

	assert.Equal(t, 3, res.summary.Batches)
	assert.Equal(t, 4, res.summary.New)
	assert.Equal(t, 2, res.summary.Failed)
	assert.Equal(t, 1, res.summary.FailedBatches)

	ids, err := store.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "e": {}, "f": {}}, ids)

	// Exactly one status per member
	assert.Len(t, res.audit.Latest, 6)
	assert.Equal(t, 4, res.audit.Counts[core.StatusNew])
	assert.Equal(t, 2, res.audit.Counts[core.StatusFail])
	assert.Equal(t, []string{"c", "d"}, res.audit.FailedIDs())

	assert.Contains(t, res.console, "Batch 2 with total batch length 40")
	assert.Contains(t, res.console, "ran out of resources")
	assert.Contains(t, res.console, "Largest member c (Length=20)")

	before := make(map[string]*core.Embedding)
	for _, id := range []string{"a", "b", "e", "f"} {
		e, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		before[id] = e
	}

	// A later run with room for the batch fills the gap
	eng.Reset()
	retry := run(t, store, eng, testConfig(), context.Background(), records)
	require.NoError(t, retry.err)
	assert.Equal(t, 2, retry.summary.New)
	assert.Equal(t, 4, retry.summary.Existing)
	assert.Empty(t, retry.audit.FailedIDs())

	// Only the failed batch was sent again
	require.Equal(t, 1, eng.CallCount())
	assert.ElementsMatch(t, []string{records[2].Residues, records[3].Residues}, eng.Calls()[0])

	// Batches that succeeded the first time are untouched
	for id, want := range before {
		got, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want.Values, got.Values, "values of %s", id)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "CreatedAt of %s", id)
	}
}

func TestRunner_CapacityFailure(t *testing.T) {
	store := setupStore(t)
	eng := mock.NewEngine(testDim)
	eng.Capacity = 50

	res := run(t, store, eng, testConfig(), context.Background(), testCorpus())
	require.NoError(t, res.err)

	assert.Equal(t, 1, res.summary.FailedBatches, "only the 60-residue batch exceeds capacity")
	assert.Equal(t, []string{"a", "b"}, res.audit.FailedIDs())
}

func TestRunner_ShortOutputFailsBatch(t *testing.T) {
	store := setupStore(t)
	eng := mock.NewEngine(testDim)
	eng.EmbedFunc = func(ctx context.Context, sequences []string) ([]engine.Matrix, error) {
		out := make([]engine.Matrix, len(sequences))
		for i := range sequences {
			out[i] = engine.Matrix{{1, 2, 3, 4}}
		}
		return out, nil
	}

	res := run(t, store, eng, testConfig(), context.Background(), testCorpus())
	require.NoError(t, res.err)

	assert.Equal(t, 3, res.summary.FailedBatches)
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "a batch with unusable output persists nothing")
}

type failingStore struct {
	storage.ResultStore
	failAfter int
	appends   int
}

func (s *failingStore) Append(ctx context.Context, e *core.Embedding) error {
	if s.appends >= s.failAfter {
		return errors.New("disk full")
	}
	s.appends++
	return s.ResultStore.Append(ctx, e)
}

func TestRunner_AppendFailureIsFatal(t *testing.T) {
	store := &failingStore{ResultStore: setupStore(t), failAfter: 3}
	eng := mock.NewEngine(testDim)

	res := run(t, store, eng, testConfig(), context.Background(), testCorpus())
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "disk full")

	assert.Equal(t, 3, res.summary.New)
	assert.Equal(t, 1, res.summary.Failed)
	assert.Equal(t, 2, eng.CallCount(), "no batches run after a store failure")
	assert.Equal(t, []string{"d"}, res.audit.FailedIDs())
	assert.Len(t, res.audit.Latest, 4)
}

func TestRunner_Cancellation(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := mock.NewEngine(testDim)
	eng.EmbedFunc = func(c context.Context, sequences []string) ([]engine.Matrix, error) {
		out, err := eng.Generate(sequences)
		cancel()
		return out, err
	}

	res := run(t, store, eng, testConfig(), ctx, testCorpus())
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Equal(t, 1, eng.CallCount())

	ids, err := store.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, ids, "completed batch stays persisted")
}

func TestNewRunner_PooledEngineNeedsPerProtein(t *testing.T) {
	eng := mock.NewEngine(testDim)
	eng.PooledOutput = true
	cfg := testConfig()
	cfg.PerProtein = false

	_, err := NewRunner(setupStore(t), eng, cfg, nil, nil)
	assert.ErrorIs(t, err, ErrPerResidueUnsupported)

	cfg.PerProtein = true
	_, err = NewRunner(setupStore(t), eng, cfg, nil, nil)
	assert.NoError(t, err)
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatch = 0

	_, err := NewRunner(setupStore(t), mock.NewEngine(testDim), cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
