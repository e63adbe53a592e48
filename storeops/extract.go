package storeops

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/seqembed/storage"
)

// ExtractStats counts what Extract did.
type ExtractStats struct {
	Copied  int
	Skipped int      // Ids already present in the destination
	Missing []string // Requested ids absent from the source
}

// ReadIDList reads one id per line, ignoring blank lines.
func ReadIDList(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read id list: %w", err)
	}
	return ids, nil
}

// Extract copies the embeddings for ids from src into dst.
func Extract(ctx context.Context, src, dst storage.ResultStore, ids []string) (*ExtractStats, error) {
	stats := &ExtractStats{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		e, err := src.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			stats.Missing = append(stats.Missing, id)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read %s: %w", id, err)
		}

		err = dst.Append(ctx, e)
		if errors.Is(err, storage.ErrDuplicateKey) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to append %s: %w", id, err)
		}
		stats.Copied++
	}
	return stats, nil
}
