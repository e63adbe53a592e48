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


package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported engine providers.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds configuration for inference engines.
type Config struct {
	// Provider selects the engine implementation: "openai" or "mock".
	Provider string

	// Host is the base URL of an OpenAI-compatible embedding API.
	// Example: "http://localhost:11434/v1"
	Host string

	// Model is the model identifier passed to the engine.
	// Example: "Rostlab/prot_t5_xl_half_uniref50-enc"
	Model string

	// ModelDir is an optional local directory holding cached model weights.
	// Engines that load weights themselves read from here.
	ModelDir string

	// MaxAttempts bounds attempts for transient (unavailable) failures.
	// Default: 1, meaning no retry.
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff between attempts.
	RetryDelay time.Duration

	// Dimension is the vector width produced by the mock engine.
	Dimension int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the engine implementation.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the engine service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithModelDir sets the local model cache directory.
func WithModelDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ModelDir = dir
	}
}

// WithMaxAttempts sets the attempt limit for transient failures.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithDimension sets the mock engine's vector width.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// DefaultConfig returns a Config for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderOpenAI,
		Host:        "http://localhost:11434/v1",
		Model:       "Rostlab/prot_t5_xl_half_uniref50-enc",
		MaxAttempts: 1,
		RetryDelay:  1 * time.Second,
		Dimension:   1024,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://gpu-node:8000/v1"),
//	    WithModel("prot_t5_xl"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix if missing.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		// Remove trailing slash if present before adding /v1
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("engine config: Host is required")
		}
		if c.Model == "" {
			return errors.New("engine config: Model is required")
		}
	case ProviderMock:
		if c.Dimension <= 0 {
			return errors.New("engine config: Dimension must be greater than 0")
		}
	default:
		return fmt.Errorf("engine config: %w: %q", ErrUnknownProvider, c.Provider)
	}

	if c.MaxAttempts <= 0 {
		return fmt.Errorf("engine config: %w", ErrInvalidMaxAttempts)
	}
	if c.RetryDelay < 0 {
		return errors.New("engine config: RetryDelay must not be negative")
	}
	return nil
}
