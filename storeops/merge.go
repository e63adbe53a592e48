package storeops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/seqembed/core"
	"github.com/poiesic/seqembed/storage"
)

// MergeStats counts what Merge did.
type MergeStats struct {
	Added     int
	Skipped   int      // Ids already present in the destination
	Conflicts []string // Skipped ids whose residue digest differs from the destination
}

// Merge copies every embedding from srcs into dst that dst does not already
// hold. Existing entries are never replaced, so merging the same sources
// twice adds nothing the second time.
func Merge(ctx context.Context, dst storage.ResultStore, srcs ...storage.ResultStore) (*MergeStats, error) {
	if len(srcs) == 0 {
		return nil, ErrNoSources
	}

	logger := slog.Default().With("component", "merge")
	stats := &MergeStats{}

	for i, src := range srcs {
		before := stats.Added
		err := src.ForEach(ctx, func(e *core.Embedding) error {
			existing, err := dst.Get(ctx, e.ID)
			switch {
			case err == nil:
				stats.Skipped++
				if existing.Digest != e.Digest {
					stats.Conflicts = append(stats.Conflicts, e.ID)
					logger.Warn("conflicting embedding kept from destination", "id", e.ID, "source", i)
				}
				return nil
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}

			if err := dst.Append(ctx, e); err != nil {
				return fmt.Errorf("failed to append %s: %w", e.ID, err)
			}
			stats.Added++
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("failed to merge source %d: %w", i, err)
		}
		logger.Info("merged source", "source", i, "added", stats.Added-before)
	}

	return stats, nil
}
