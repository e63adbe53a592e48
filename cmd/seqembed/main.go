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


package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/seqembed"
	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/corpus"
	"github.com/poiesic/seqembed/engine"
	"github.com/poiesic/seqembed/pipeline"
	"github.com/poiesic/seqembed/storage"
	"github.com/poiesic/seqembed/storage/badger"
	"github.com/poiesic/seqembed/storeops"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seqembed",
		Usage: "Checkpointed batch embedding of protein sequences",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Set logging level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "embed",
				Usage:  "Embed every sequence of a FASTA file not yet in the store",
				Action: embedCommand,
				Flags:  embedFlags(),
			},
			{
				Name:      "info",
				Usage:     "Print size and shape information for result stores",
				ArgsUsage: "STORE...",
				Action:    infoCommand,
			},
			{
				Name:      "merge",
				Usage:     "Merge result stores into one, keeping existing entries",
				ArgsUsage: "SOURCE...",
				Action:    mergeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Destination store directory",
						Required: true,
					},
					compressionFlag(),
				},
			},
			{
				Name:      "compare",
				Usage:     "Compare two result stores id by id",
				ArgsUsage: "STORE_A STORE_B",
				Action:    compareCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "tolerance",
						Usage: "Largest absolute difference treated as equal",
						Value: 1e-4,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent comparisons (default: number of CPUs)",
					},
				},
			},
			{
				Name:   "extract",
				Usage:  "Copy the embeddings for a list of ids into a new store",
				Action: extractCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Source store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Destination store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "keys",
						Aliases:  []string{"k"},
						Usage:    "File with one id per line",
						Required: true,
					},
					compressionFlag(),
				},
			},
			{
				Name:   "split",
				Usage:  "Split a FASTA file into parts of a fixed number of sequences",
				Action: splitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "FASTA file to split",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output-dir",
						Aliases:  []string{"d"},
						Usage:    "Directory for the parts",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "part-size",
						Aliases:  []string{"n"},
						Usage:    "Sequences per part",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "File name prefix for the parts",
						Value: "part",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print the sequence length distribution of a FASTA file",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "FASTA file to summarize",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "bin-size",
						Aliases: []string{"b"},
						Usage:   "Width of each length bin",
						Value:   1000,
					},
					&cli.IntFlag{
						Name:  "threshold",
						Usage: "Count sequences in bins starting at or above this length",
						Value: 4000,
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Also write the table to this CSV file",
					},
				},
			},
			{
				Name:      "audit",
				Usage:     "Summarize an audit log and list ids whose latest outcome was FAIL",
				ArgsUsage: "LOG",
				Action:    auditCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "failed-only",
						Usage: "Print only failed ids, one per line",
					},
				},
			},
		},
	}
}

func compressionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "compression",
		Usage: "Block compression for new store values (none, lz4, zstd)",
		Value: "zstd",
	}
}

func embedFlags() []cli.Flag {
	defaults := pipeline.DefaultConfig()
	engineDefaults := engine.DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "FASTA file with the sequences to embed",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Result store directory (created if missing)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Usage:   "Audit log file (appended to); defaults to stderr",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML run configuration; flags given explicitly override it",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Inference engine (openai, mock)",
			Value: engineDefaults.Provider,
		},
		&cli.StringFlag{
			Name:  "engine-host",
			Usage: "Engine service host URL",
			Value: engineDefaults.Host,
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Model identifier",
			Value: engineDefaults.Model,
		},
		&cli.StringFlag{
			Name:  "model-dir",
			Usage: "Local model cache directory",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Vector width of the mock engine",
			Value: engineDefaults.Dimension,
		},
		&cli.BoolFlag{
			Name:  "per-protein",
			Usage: "Store one mean-pooled vector per sequence (--per-protein=false keeps per-residue vectors)",
			Value: defaults.PerProtein,
		},
		&cli.IntFlag{
			Name:  "max-residues",
			Usage: "Residue budget of one engine call",
			Value: defaults.MaxResidues,
		},
		&cli.IntFlag{
			Name:  "max-seq-len",
			Usage: "Sequences longer than this are embedded on their own",
			Value: defaults.MaxSeqLen,
		},
		&cli.IntFlag{
			Name:  "max-batch",
			Usage: "Maximum sequences per engine call",
			Value: defaults.MaxBatch,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N sequences",
			Value: defaults.ReportInterval,
		},
		compressionFlag(),
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per batch when the engine is unreachable",
			Value: engineDefaults.MaxAttempts,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "reject-duplicates",
			Usage: "Fail on duplicate ids instead of keeping the last record",
		},
		&cli.BoolFlag{
			Name:  "strict-residues",
			Usage: "Fail on symbols outside A-Z instead of replacing them with X",
		},
	}
}

// runConfig resolves the run configuration: defaults, then the config file,
// then flags the user set explicitly.
func runConfig(c *cli.Context) (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := pipeline.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("max-residues") {
		cfg.MaxResidues = c.Int("max-residues")
	}
	if c.IsSet("max-seq-len") {
		cfg.MaxSeqLen = c.Int("max-seq-len")
	}
	if c.IsSet("max-batch") {
		cfg.MaxBatch = c.Int("max-batch")
	}
	if c.IsSet("per-protein") {
		cfg.PerProtein = c.Bool("per-protein")
	}
	if c.IsSet("report-interval") {
		cfg.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("compression") {
		cfg.Compression = c.String("compression")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func embedCommand(c *cli.Context) error {
	cfg, err := runConfig(c)
	if err != nil {
		return err
	}

	engineConfig := engine.NewConfig(
		engine.WithProvider(c.String("engine")),
		engine.WithHost(c.String("engine-host")),
		engine.WithModel(c.String("model")),
		engine.WithModelDir(c.String("model-dir")),
		engine.WithDimension(c.Int("dimension")),
		engine.WithMaxAttempts(c.Int("max-attempts")),
		engine.WithRetryDelay(c.Duration("retry-delay")),
	)
	if err := engineConfig.Validate(); err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}

	var audit *pipeline.AuditLog
	if path := c.String("log"); path != "" {
		audit, err = pipeline.OpenAuditLog(path)
		if err != nil {
			return err
		}
		defer audit.Close()
	} else {
		audit = pipeline.NewAuditLog(os.Stderr)
	}

	loadOpts := []corpus.Option{}
	if c.Bool("reject-duplicates") {
		loadOpts = append(loadOpts, corpus.WithDuplicatePolicy(corpus.DuplicateReject))
	}
	if c.Bool("strict-residues") {
		loadOpts = append(loadOpts, corpus.WithStrictResidues())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stdout, "Input: %s\n", c.String("input"))
	fmt.Fprintf(os.Stdout, "Output: %s\n", c.String("output"))
	fmt.Fprintf(os.Stdout, "Engine: %s (%s)\n", engineConfig.Provider, engineConfig.Model)
	fmt.Fprintf(os.Stdout, "Limits: max residues %d, max sequence length %d, max batch %d, per protein %t\n",
		cfg.MaxResidues, cfg.MaxSeqLen, cfg.MaxBatch, cfg.PerProtein)
	fmt.Fprintln(os.Stdout)

	e, err := seqembed.Open(c.String("output"),
		seqembed.WithEngineConfig(engineConfig),
		seqembed.WithRunConfig(cfg),
	)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Fprintln(os.Stdout, "Starting...")
	summary, err := e.EmbedFile(ctx, c.String("input"), audit, os.Stdout, loadOpts...)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if summary.FailedBatches > 0 {
		slog.Warn("some batches failed; rerun with lower limits to retry them",
			"failed_batches", summary.FailedBatches, "failed_sequences", summary.Failed)
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one store path is required")
	}

	for _, path := range c.Args().Slice() {
		if err := describeStore(c.Context, os.Stdout, path); err != nil {
			return err
		}
	}
	return nil
}

func describeStore(ctx context.Context, w io.Writer, path string) error {
	store, err := badger.OpenResultStoreReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := storeops.Describe(ctx, store)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Store: %s\n", path)
	fmt.Fprintf(w, "  Size on disk: %d bytes\n", dirSize(path))
	info.Print(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	return nil
}

func dirSize(path string) int64 {
	var size int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			size += fi.Size()
		}
		return nil
	})
	return size
}

func openDestination(c *cli.Context) (storage.ResultStore, error) {
	compression, err := storage.ParseCompression(c.String("compression"))
	if err != nil {
		return nil, err
	}
	return badger.OpenResultStore(c.String("output"), badger.WithCompression(compression))
}

func mergeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one source store is required")
	}

	dst, err := openDestination(c)
	if err != nil {
		return err
	}
	defer dst.Close()

	var sources []storage.ResultStore
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()
	for _, path := range c.Args().Slice() {
		src, err := badger.OpenResultStoreReadOnly(path)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	stats, err := storeops.Merge(c.Context, dst, sources...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Merged %d stores into %s: %d added, %d already present\n",
		len(sources), c.String("output"), stats.Added, stats.Skipped)
	if len(stats.Conflicts) > 0 {
		fmt.Fprintf(os.Stdout, "%d ids had different residues in a source; destination entries kept\n", len(stats.Conflicts))
	}
	return nil
}

func compareCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("exactly two store paths are required")
	}

	a, err := badger.OpenResultStoreReadOnly(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := badger.OpenResultStoreReadOnly(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := storeops.Compare(c.Context, a, b, storeops.CompareOptions{
		Tolerance: c.Float64("tolerance"),
		Workers:   c.Int("workers"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Shared ids: %d\n", report.Shared)
	fmt.Fprintf(os.Stdout, "Only in first: %d\n", len(report.OnlyA))
	fmt.Fprintf(os.Stdout, "Only in second: %d\n", len(report.OnlyB))
	fmt.Fprintf(os.Stdout, "Mismatches: %d\n", len(report.Mismatches))
	for _, m := range report.Mismatches {
		fmt.Fprintf(os.Stdout, "  %s: %s (max diff %g, cosine %.6f)\n", m.ID, m.Reason, m.MaxDiff, m.Cosine)
	}

	if !report.Equal() {
		return fmt.Errorf("stores differ")
	}
	return nil
}

func extractCommand(c *cli.Context) error {
	f, err := os.Open(c.String("keys"))
	if err != nil {
		return fmt.Errorf("failed to open key list: %w", err)
	}
	ids, err := storeops.ReadIDList(f)
	f.Close()
	if err != nil {
		return err
	}

	src, err := badger.OpenResultStoreReadOnly(c.String("input"))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := openDestination(c)
	if err != nil {
		return err
	}
	defer dst.Close()

	stats, err := storeops.Extract(c.Context, src, dst, ids)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Copied %d of %d ids (%d already present, %d missing)\n",
		stats.Copied, len(ids), stats.Skipped, len(stats.Missing))
	for _, id := range stats.Missing {
		slog.Warn("id not found in source store", "id", id)
	}
	return nil
}

func splitCommand(c *cli.Context) error {
	loaded, err := corpus.LoadFile(c.String("input"))
	if err != nil {
		return err
	}

	// Parts follow input order so long sequences spread across them
	records := slices.Clone(loaded.Records)
	slices.SortFunc(records, func(a, b *core.SequenceRecord) int {
		return a.Index - b.Index
	})

	dir := c.String("output-dir")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := c.String("prefix")
	parts, err := corpus.Split(records, c.Int("part-size"), func(part int) (io.WriteCloser, error) {
		return os.Create(filepath.Join(dir, fmt.Sprintf("%s_%d.fasta", prefix, part)))
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Wrote %d sequences into %d parts in %s\n", len(records), parts, dir)
	return nil
}

func statsCommand(c *cli.Context) error {
	loaded, err := corpus.LoadFile(c.String("input"))
	if err != nil {
		return err
	}

	h, err := corpus.ComputeHistogram(loaded.Records, c.Int("bin-size"), c.Int("threshold"))
	if err != nil {
		return err
	}

	s := corpus.ComputeStats(loaded.Records, c.Int("threshold"))
	fmt.Fprintf(os.Stdout, "Sequences: %d\n", s.Count)
	fmt.Fprintf(os.Stdout, "Average length: %.2f\n", s.AverageLength)
	fmt.Fprintf(os.Stdout, "Longest: %d\n", s.MaxLength)
	h.Print(os.Stdout)

	if path := c.String("csv"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := h.WriteCSV(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Histogram table saved to %s\n", path)
	}
	return nil
}

func auditCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one audit log path is required")
	}

	summary, err := pipeline.ReadAuditLogFile(c.Args().First())
	if err != nil {
		return err
	}

	failed := summary.FailedIDs()
	if c.Bool("failed-only") {
		for _, id := range failed {
			fmt.Fprintln(os.Stdout, id)
		}
		return nil
	}

	fmt.Fprintf(os.Stdout, "Runs: %d\n", summary.Runs)
	fmt.Fprintf(os.Stdout, "Sequences seen: %d\n", len(summary.Latest))
	for _, status := range []core.Status{core.StatusNew, core.StatusExisting, core.StatusFail} {
		fmt.Fprintf(os.Stdout, "  %s records: %d\n", status, summary.Counts[status])
	}
	fmt.Fprintf(os.Stdout, "Latest outcome FAIL: %d\n", len(failed))
	for _, id := range failed {
		fmt.Fprintf(os.Stdout, "  %s\n", id)
	}
	if summary.Malformed > 0 {
		slog.Warn("skipped malformed audit lines", "count", summary.Malformed)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
