package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-journal-go/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a trade does not exist for the user.
var ErrNotFound = errors.New("trade not found")

// Filter narrows a trade listing. Zero values mean no constraint.
type Filter struct {
	Symbol string
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// TradeStore is the persistence boundary for canonical trades.
type TradeStore interface {
	List(ctx context.Context, userID uint, f Filter) ([]models.Trade, error)
	Get(ctx context.Context, userID, id uint) (*models.Trade, error)
	Create(ctx context.Context, trade *models.Trade) error
	CreateBatch(ctx context.Context, trades []models.Trade) error
	ExistsExternal(ctx context.Context, userID uint, source models.Source, externalID string) (bool, error)
	Delete(ctx context.Context, userID, id uint) error
	DeleteAll(ctx context.Context, userID uint) (int64, error)
	Count(ctx context.Context, userID uint) (int64, error)
}

// GormStore implements TradeStore on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// ensure GormStore implements the interface
var _ TradeStore = (*GormStore)(nil)

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// List returns the user's trades, most recent open time first.
func (s *GormStore) List(ctx context.Context, userID uint, f Filter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Symbol != "" {
		q = q.Where("symbol = ?", f.Symbol)
	}
	if f.From != nil {
		q = q.Where("open_time >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("open_time <= ?", f.To.UTC())
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var trades []models.Trade
	if err := q.Order("open_time desc").Order("id desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Get loads a single trade by id.
func (s *GormStore) Get(ctx context.Context, userID, id uint) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return &trade, nil
}

// Create inserts one trade and assigns its id.
func (s *GormStore) Create(ctx context.Context, trade *models.Trade) error {
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// CreateBatch inserts all trades in one transaction.
func (s *GormStore) CreateBatch(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&trades, 100).Error; err != nil {
			return fmt.Errorf("failed to create trades: %w", err)
		}
		return nil
	})
}

// ExistsExternal reports whether a trade with the given external id was already stored.
func (s *GormStore) ExistsExternal(ctx context.Context, userID uint, source models.Source, externalID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("user_id = ? AND source = ? AND external_id = ?", userID, source, externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up external id %q: %w", externalID, err)
	}
	return count > 0, nil
}

// Delete removes a single trade.
func (s *GormStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every trade of the user and returns how many were removed.
func (s *GormStore) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Trade{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of trades stored for the user.
func (s *GormStore) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Trade{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}
