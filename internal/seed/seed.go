package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"Bookstore/internal/inventory"
)

const batchSize = 500

// Apply loads every title from src into sm in batches, releasing the
// structural lock between them. AddBooks always stores a title unpicked, so
// editor picks from src are applied afterwards.
func Apply(ctx context.Context, sm inventory.StockManager, src Source, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	books, err := src.Books(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: load: %w", err)
	}

	added := 0
	for start := 0; start < len(books); start += batchSize {
		batch := books[start:min(start+batchSize, len(books))]

		if err := sm.AddBooks(ctx, batch); err != nil {
			return added, fmt.Errorf("seed: add batch at %d: %w", start, err)
		}

		var picks []inventory.BookEditorPick
		for _, b := range batch {
			if b.EditorPick {
				picks = append(picks, inventory.BookEditorPick{ISBN: b.ISBN, EditorPick: true})
			}
		}
		if len(picks) > 0 {
			if err := sm.UpdateEditorPicks(ctx, picks); err != nil {
				return added, fmt.Errorf("seed: editor picks at %d: %w", start, err)
			}
		}

		added += len(batch)
	}

	log.Info("catalog seeded", zap.Int("titles", added))
	return added, nil
}
