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


package seqembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/seqembed/corpus"
	"github.com/poiesic/seqembed/engine"
	"github.com/poiesic/seqembed/engine/mock"
	"github.com/poiesic/seqembed/engine/openai"
	"github.com/poiesic/seqembed/pipeline"
	"github.com/poiesic/seqembed/storage"
	"github.com/poiesic/seqembed/storage/badger"
)

// Embedder ties a result store and an inference engine together.
type Embedder struct {
	store  storage.ResultStore
	engine engine.Engine
	config *pipeline.Config
	logger *slog.Logger
}

// Option configures an Embedder.
type Option func(*options)

type options struct {
	engineConfig *engine.Config
	runConfig    *pipeline.Config
	engine       engine.Engine
}

// WithEngineConfig sets the configuration used to build the engine.
func WithEngineConfig(cfg *engine.Config) Option {
	return func(o *options) {
		o.engineConfig = cfg
	}
}

// WithRunConfig sets batch limits, reduction mode and store compression.
func WithRunConfig(cfg *pipeline.Config) Option {
	return func(o *options) {
		o.runConfig = cfg
	}
}

// WithEngine uses an already constructed engine. The Embedder takes ownership
// and closes it.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// NewEngine builds the engine named by cfg.Provider, wrapped for retries of
// transient failures when cfg.MaxAttempts > 1.
func NewEngine(cfg *engine.Config) (engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var e engine.Engine
	switch cfg.Provider {
	case engine.ProviderMock:
		e = mock.NewEngine(cfg.Dimension)
	case engine.ProviderOpenAI:
		var err error
		e, err = openai.NewEngine(cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownProvider, cfg.Provider)
	}

	return engine.WithRetry(e, cfg.MaxAttempts, cfg.RetryDelay), nil
}

// Open opens or creates the result store at storePath and prepares an engine.
func Open(storePath string, opts ...Option) (*Embedder, error) {
	options := &options{
		engineConfig: engine.DefaultConfig(),
		runConfig:    pipeline.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := options.runConfig.Validate(); err != nil {
		return nil, err
	}
	compression, err := storage.ParseCompression(options.runConfig.Compression)
	if err != nil {
		return nil, err
	}

	eng := options.engine
	if eng == nil {
		eng, err = NewEngine(options.engineConfig)
		if err != nil {
			return nil, err
		}
	}

	store, err := badger.OpenResultStore(storePath, badger.WithCompression(compression))
	if err != nil {
		eng.Close()
		return nil, err
	}

	return &Embedder{
		store:  store,
		engine: eng,
		config: options.runConfig,
		logger: slog.Default(),
	}, nil
}

// Store returns the result store.
func (e *Embedder) Store() storage.ResultStore {
	return e.store
}

// Engine returns the inference engine.
func (e *Embedder) Engine() engine.Engine {
	return e.engine
}

// NewRunner creates a runner over the Embedder's store and engine.
func (e *Embedder) NewRunner(audit *pipeline.AuditLog, console io.Writer) (*pipeline.Runner, error) {
	return pipeline.NewRunner(e.store, e.engine, e.config, audit, console)
}

// EmbedFile loads a FASTA file and embeds every sequence not yet stored.
func (e *Embedder) EmbedFile(ctx context.Context, fastaPath string, audit *pipeline.AuditLog, console io.Writer, opts ...corpus.Option) (*pipeline.Summary, error) {
	runner, err := e.NewRunner(audit, console)
	if err != nil {
		return nil, err
	}

	c, err := corpus.LoadFile(fastaPath, opts...)
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, c.Records)
}

// Close closes the engine and the store.
func (e *Embedder) Close() error {
	if err := e.engine.Close(); err != nil {
		e.logger.Error("error closing engine", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing result store", "err", err)
		return err
	}
	return nil
}
