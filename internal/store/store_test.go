package store

import (
	"context"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Trade{}))
	return db
}

func newTrade(symbol string, profit float64, open time.Time) models.Trade {
	return models.Trade{
		UserID:     models.DefaultUserID,
		Symbol:     symbol,
		TradeType:  models.TradeTypeBuy,
		Volume:     1,
		EntryPrice: 100,
		Profit:     profit,
		OpenTime:   open,
		Source:     models.SourceCSV,
	}
}

func TestGormStoreCreateAndList(t *testing.T) {
	// Arrange
	s := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		newTrade("EURUSD", 10, base),
		newTrade("GBPUSD", -5, base.Add(time.Hour)),
		newTrade("EURUSD", 7, base.Add(48*time.Hour)),
	}

	// Act
	require.NoError(t, s.CreateBatch(ctx, trades))
	all, err := s.List(ctx, models.DefaultUserID, Filter{})
	require.NoError(t, err)
	eur, err := s.List(ctx, models.DefaultUserID, Filter{Symbol: "EURUSD"})
	require.NoError(t, err)
	to := base.Add(2 * time.Hour)
	firstDay, err := s.List(ctx, models.DefaultUserID, Filter{To: &to})
	require.NoError(t, err)
	paged, err := s.List(ctx, models.DefaultUserID, Filter{Offset: 1, Limit: 1})
	require.NoError(t, err)

	// Assert
	assert.Len(t, all, 3)
	assert.Equal(t, 7.0, all[0].Profit, "most recent first")
	assert.Len(t, eur, 2)
	assert.Len(t, firstDay, 2)
	require.Len(t, paged, 1)
	assert.Equal(t, "GBPUSD", paged[0].Symbol)
}

func TestGormStoreGetAndDelete(t *testing.T) {
	s := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	trade := newTrade("XAUUSD", 12.5, time.Now())
	require.NoError(t, s.Create(ctx, &trade))
	require.NotZero(t, trade.ID)

	got, err := s.Get(ctx, models.DefaultUserID, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", got.Symbol)

	_, err = s.Get(ctx, 99, trade.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, models.DefaultUserID, trade.ID))
	assert.ErrorIs(t, s.Delete(ctx, models.DefaultUserID, trade.ID), ErrNotFound)
}

func TestGormStoreExistsExternal(t *testing.T) {
	s := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	trade := newTrade("EURUSD", 1, time.Now())
	trade.Source = models.SourceMetaAPI
	trade.ExternalID = models.StringPtr("metaapi_EURUSD_1")
	require.NoError(t, s.Create(ctx, &trade))

	testCases := []struct {
		name   string
		source models.Source
		id     string
		want   bool
	}{
		{"same source and id", models.SourceMetaAPI, "metaapi_EURUSD_1", true},
		{"other source", models.SourceTradingView, "metaapi_EURUSD_1", false},
		{"other id", models.SourceMetaAPI, "metaapi_EURUSD_2", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exists, err := s.ExistsExternal(ctx, models.DefaultUserID, tc.source, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, exists)
		})
	}
}

func TestGormStoreDeleteAllAndCount(t *testing.T) {
	s := NewGormStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.CreateBatch(ctx, []models.Trade{newTrade("A", 1, now), newTrade("B", 2, now)}))

	count, err := s.Count(ctx, models.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	removed, err := s.DeleteAll(ctx, models.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err = s.Count(ctx, models.DefaultUserID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
