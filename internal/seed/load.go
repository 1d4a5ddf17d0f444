package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/almog/internal/adapters/repository"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/pkg/logger"
)

// File permission constants.
const outputFilePermission = 0o600

// Load inserts recs into loader in batches of batchSize.
func Load(ctx context.Context, loader repository.Loader, recs []model.SessionRecord, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	loaded := 0
	for start := 0; start < len(recs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return loaded, fmt.Errorf("seed cancelled: %w", err)
		}
		end := min(start+batchSize, len(recs))
		if err := loader.Insert(ctx, recs[start:end]); err != nil {
			return loaded, fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
		loaded = end
		logger.Named("seed").Debug(ctx, "batch loaded", logger.Int("rows", end-start), logger.Int("total", loaded))
	}
	logger.Named("seed").Info(ctx, "season loaded", logger.Int("rows", loaded))
	return loaded, nil
}

// WriteFile dumps recs as a JSON array of loose rows.
func WriteFile(path string, recs []model.SessionRecord) error {
	data, err := json.MarshalIndent(Rows(recs), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	if err := os.WriteFile(path, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
