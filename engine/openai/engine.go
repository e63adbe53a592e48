package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/poiesic/seqembed/engine"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

type documentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Engine implements engine.Engine using OpenAI-compatible embedding APIs.
type Engine struct {
	embedder documentEmbedder
	logger   *slog.Logger
}

// newEngine is an internal constructor that returns the concrete type.
func newEngine(config *engine.Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-engine")
	if config.ModelDir != "" {
		logger.Warn("model directory is ignored by remote engines", "model_dir", config.ModelDir)
	}

	return &Engine{
		embedder: embedder,
		logger:   logger,
	}, nil
}

// NewEngine creates a new engine using the provided configuration.
//
// Returns engine.Engine interface to enforce abstraction.
func NewEngine(config *engine.Config) (engine.Engine, error) {
	return newEngine(config)
}

// Embed sends one request for all sequences and returns a single-row matrix
// per sequence.
func (e *Engine) Embed(ctx context.Context, sequences []string) ([]engine.Matrix, error) {
	e.logger.Debug("generating embeddings", "count", len(sequences))

	texts := make([]string, len(sequences))
	for i, s := range sequences {
		texts[i] = SpaceResidues(s)
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(sequences), "err", err)
		return nil, engine.NewError(Classify(err), "embed", err)
	}
	if len(vectors) != len(sequences) {
		return nil, engine.NewError(engine.KindInternal, "embed",
			fmt.Errorf("%w: %d inputs, %d vectors", engine.ErrOutputMismatch, len(sequences), len(vectors)))
	}

	out := make([]engine.Matrix, len(vectors))
	for i, v := range vectors {
		out[i] = engine.Matrix{v}
	}
	return out, nil
}

// Pooled is always true: embedding endpoints return one vector per input.
func (e *Engine) Pooled() bool {
	return true
}

// Close releases resources. The HTTP client needs no cleanup.
func (e *Engine) Close() error {
	return nil
}

// SpaceResidues separates residues with single spaces.
func SpaceResidues(sequence string) string {
	if len(sequence) < 2 {
		return sequence
	}
	var b strings.Builder
	b.Grow(len(sequence) * 2)
	for i := 0; i < len(sequence); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(sequence[i])
	}
	return b.String()
}

var exhaustedMarkers = []string{
	"out of memory",
	"cuda",
	"413",
	"too large",
	"maximum context length",
}

var unavailableMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"502",
	"503",
	"504",
	"429",
	"eof",
}

// Classify maps a client error onto an engine.Kind.
func Classify(err error) engine.Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return engine.KindCanceled
	}

	msg := strings.ToLower(err.Error())
	for _, m := range exhaustedMarkers {
		if strings.Contains(msg, m) {
			return engine.KindResourceExhausted
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return engine.KindUnavailable
	}
	for _, m := range unavailableMarkers {
		if strings.Contains(msg, m) {
			return engine.KindUnavailable
		}
	}

	if strings.Contains(msg, "400") || strings.Contains(msg, "invalid") {
		return engine.KindInvalidInput
	}
	return engine.KindInternal
}
