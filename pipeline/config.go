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
	"fmt"
	"os"

	"github.com/poiesic/seqembed/planner"
	"github.com/poiesic/seqembed/storage"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for an embedding run.
type Config struct {
	// MaxResidues is the residue budget of one engine call
	MaxResidues int `yaml:"max_residues"`

	// MaxSeqLen is the length above which a sequence is embedded on its own
	MaxSeqLen int `yaml:"max_seq_len"`

	// MaxBatch is the maximum number of sequences per engine call
	MaxBatch int `yaml:"max_batch"`

	// PerProtein stores one mean-pooled vector per sequence instead of one per residue
	PerProtein bool `yaml:"per_protein"`

	// ReportInterval is how often to report progress (number of sequences)
	ReportInterval int `yaml:"report_interval"`

	// Compression is the block codec for new store values: none, lz4 or zstd
	Compression string `yaml:"compression"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxResidues:    planner.DefaultMaxResidues,
		MaxSeqLen:      planner.DefaultMaxSeqLen,
		MaxBatch:       planner.DefaultMaxBatch,
		PerProtein:     true,
		ReportInterval: 1000,
		Compression:    storage.CompressionZSTD.String(),
	}
}

// LoadConfigFile reads a YAML run configuration. Keys absent from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Limits returns the planner limits of the configuration.
func (c *Config) Limits() planner.Limits {
	return planner.Limits{
		MaxResidues: c.MaxResidues,
		MaxSeqLen:   c.MaxSeqLen,
		MaxBatch:    c.MaxBatch,
	}
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report interval must be greater than 0", ErrInvalidConfig)
	}
	if _, err := storage.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
