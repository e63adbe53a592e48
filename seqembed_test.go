package seqembed

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/seqembed/engine"
	"github.com/poiesic/seqembed/engine/mock"
	"github.com/poiesic/seqembed/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFASTA = `>sp|P1|ONE
MKVLA
AC
>sp|P2|TWO
GGH
>P3.v2
mkv-u
`

func mockEngineConfig() *engine.Config {
	return engine.NewConfig(engine.WithProvider(engine.ProviderMock), engine.WithDimension(8))
}

func TestNewEngine(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		e, err := NewEngine(mockEngineConfig())
		require.NoError(t, err)
		assert.IsType(t, &mock.Engine{}, e)
	})

	t.Run("retry wrapper", func(t *testing.T) {
		cfg := mockEngineConfig()
		cfg.MaxAttempts = 3
		e, err := NewEngine(cfg)
		require.NoError(t, err)
		_, isMock := e.(*mock.Engine)
		assert.False(t, isMock)
	})

	t.Run("openai is pooled", func(t *testing.T) {
		e, err := NewEngine(engine.DefaultConfig())
		require.NoError(t, err)
		assert.True(t, engine.IsPooled(e))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewEngine(engine.NewConfig(engine.WithProvider("torch")))
		assert.ErrorIs(t, err, engine.ErrUnknownProvider)
	})
}

func TestEmbedder_EmbedFile(t *testing.T) {
	dir := t.TempDir()
	fasta := filepath.Join(dir, "in.fasta")
	require.NoError(t, os.WriteFile(fasta, []byte(testFASTA), 0644))
	storePath := filepath.Join(dir, "store")
	ctx := context.Background()

	e, err := Open(storePath, WithEngineConfig(mockEngineConfig()))
	require.NoError(t, err)

	var console bytes.Buffer
	summary, err := e.EmbedFile(ctx, fasta, nil, &console)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.New)

	stored, err := e.Store().Get(ctx, "sp|P1|ONE")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Length)
	assert.Len(t, stored.Values, 8)

	_, err = e.Store().Get(ctx, "P3_v2")
	require.NoError(t, err, "ids are sanitized before storage")
	require.NoError(t, e.Close())

	// Second run over the same store does nothing new
	eng := mock.NewEngine(8)
	e, err = Open(storePath, WithEngine(eng))
	require.NoError(t, err)
	defer e.Close()

	summary, err = e.EmbedFile(ctx, fasta, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.New)
	assert.Equal(t, 3, summary.Existing)
	assert.Zero(t, eng.CallCount())
}

func TestEmbedder_EmbedFileWarnsOnceOnDuplicates(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(prev)

	dir := t.TempDir()
	fasta := filepath.Join(dir, "dup.fasta")
	require.NoError(t, os.WriteFile(fasta, []byte(">a\nMKV\n>a\nMKVL\n>b\nGG\n"), 0644))

	e, err := Open(filepath.Join(dir, "store"), WithEngine(mock.NewEngine(4)))
	require.NoError(t, err)
	defer e.Close()

	summary, err := e.EmbedFile(context.Background(), fasta, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.New)

	assert.Equal(t, 1, strings.Count(logs.String(), "duplicate"), logs.String())
}

func TestOpen_InvalidRunConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.Compression = "gzip"

	e, err := Open(filepath.Join(t.TempDir(), "store"), WithRunConfig(cfg), WithEngine(mock.NewEngine(4)))
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
	assert.Nil(t, e)
}

func TestOpen_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

	e, err := Open(tmpFile, WithEngine(mock.NewEngine(4)))
	assert.Error(t, err)
	assert.Nil(t, e)
}
