package feeds

import (
	"context"
	"fmt"

	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportReport carries the counts of one import run.
type ImportReport struct {
	BatchID  string `json:"batch_id"`
	Found    int    `json:"total_found"`
	Imported int    `json:"trades_imported"`
	Skipped  int    `json:"trades_skipped"`
}

// Importer persists adapter output, skipping trades whose external id is
// already stored for the same user and source.
//
// Dedup is check-then-insert and assumes a single writer per user.
type Importer struct {
	store  store.TradeStore
	logger *zap.Logger
}

// NewImporter creates a new Importer.
func NewImporter(s store.TradeStore, logger *zap.Logger) *Importer {
	return &Importer{store: s, logger: logger.Named("importer")}
}

// Import stores trades for userID. Trades without an external id are never
// deduplicated.
func (im *Importer) Import(ctx context.Context, userID uint, trades []models.Trade) (ImportReport, error) {
	report := ImportReport{BatchID: uuid.NewString(), Found: len(trades)}

	seen := make(map[string]struct{})
	fresh := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		t.UserID = userID
		if t.ExternalID != nil {
			key := string(t.Source) + "\x00" + *t.ExternalID
			if _, dup := seen[key]; dup {
				report.Skipped++
				continue
			}
			seen[key] = struct{}{}

			exists, err := im.store.ExistsExternal(ctx, userID, t.Source, *t.ExternalID)
			if err != nil {
				return report, fmt.Errorf("failed to check for duplicates: %w", err)
			}
			if exists {
				report.Skipped++
				continue
			}
		}
		fresh = append(fresh, t)
	}

	if err := im.store.CreateBatch(ctx, fresh); err != nil {
		return report, err
	}
	report.Imported = len(fresh)

	im.logger.Info("Import finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("found", report.Found),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
