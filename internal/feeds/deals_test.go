package feeds

import (
	"testing"
	"time"

	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func mt5Options() DealOptions {
	return DealOptions{UserID: 1, Source: models.SourceMetaTrader, ExternalID: MT5ExternalID}
}

func TestReduceDealsPairsEntryAndExit(t *testing.T) {
	// Arrange
	deals := []Deal{
		{Ticket: "101", PositionID: "P1", Kind: DealKindBuy, Entry: DealEntryIn, Symbol: "eurusd",
			Volume: 0.5, Price: 1.0950, Commission: -1, Time: t0},
		{Ticket: "102", PositionID: "P1", Kind: DealKindSell, Entry: DealEntryOut, Symbol: "eurusd",
			Volume: 0.5, Price: 1.0980, Commission: -1, Swap: -0.2, Profit: 150, Time: t0.Add(47*time.Minute + 59*time.Second)},
	}

	// Act
	ledger := ReduceDeals(deals, mt5Options())

	// Assert
	require.Len(t, ledger.Completed, 1)
	assert.Empty(t, ledger.Open)
	trade := ledger.Completed[0]
	assert.Equal(t, "EURUSD", trade.Symbol)
	assert.Equal(t, models.TradeTypeBuy, trade.TradeType)
	assert.Equal(t, 47, trade.DurationMinutes)
	assert.Equal(t, -2.0, trade.Commission)
	assert.Equal(t, -0.2, trade.Swap)
	assert.Equal(t, 150.0, trade.Profit)
	assert.Equal(t, 1.0950, trade.EntryPrice)
	require.NotNil(t, trade.ExitPrice)
	assert.Equal(t, 1.0980, *trade.ExitPrice)
	require.NotNil(t, trade.ExternalID)
	assert.Equal(t, "101", *trade.ExternalID)
	assert.Equal(t, models.SourceMetaTrader, trade.Source)
}

func TestReduceDealsDropsOrphanExit(t *testing.T) {
	deals := []Deal{
		{PositionID: "P2", Kind: DealKindSell, Entry: DealEntryOut, Symbol: "GBPUSD", Profit: 20, Time: t0},
	}

	ledger := ReduceDeals(deals, mt5Options())

	assert.Empty(t, ledger.Completed)
	assert.Empty(t, ledger.Open)
}

func TestReduceDealsFiltersNonTradingDeals(t *testing.T) {
	deals := []Deal{
		{PositionID: "", Kind: DealKindOther, Entry: DealEntryIn, Profit: 1000, Time: t0},
		{PositionID: "P3", Kind: DealKindSell, Entry: DealEntryIn, Symbol: "XAUUSD", Price: 2000, Time: t0},
	}

	ledger := ReduceDeals(deals, mt5Options())

	assert.Empty(t, ledger.Completed)
	require.Len(t, ledger.Open, 1)
	assert.Equal(t, models.TradeTypeSell, ledger.Open["P3"].Side)
}

func TestReduceDealsEntryOverwrites(t *testing.T) {
	deals := []Deal{
		{Ticket: "1", PositionID: "P1", Kind: DealKindBuy, Entry: DealEntryIn, Symbol: "A", Price: 10, Time: t0},
		{Ticket: "2", PositionID: "P1", Kind: DealKindBuy, Entry: DealEntryIn, Symbol: "A", Price: 11, Time: t0.Add(time.Minute)},
		{Ticket: "3", PositionID: "P1", Kind: DealKindSell, Entry: DealEntryOut, Symbol: "A", Price: 12, Time: t0.Add(3 * time.Minute)},
	}

	ledger := ReduceDeals(deals, mt5Options())

	require.Len(t, ledger.Completed, 1)
	assert.Equal(t, 11.0, ledger.Completed[0].EntryPrice)
	assert.Equal(t, "2", *ledger.Completed[0].ExternalID)
	assert.Equal(t, 2, ledger.Completed[0].DurationMinutes)
}

func TestReduceDealsNegativeDurationClamped(t *testing.T) {
	deals := []Deal{
		{PositionID: "P1", Kind: DealKindBuy, Entry: DealEntryIn, Symbol: "A", Time: t0},
		{PositionID: "P1", Kind: DealKindSell, Entry: DealEntryOut, Symbol: "A", Time: t0.Add(-time.Hour)},
	}

	ledger := ReduceDeals(deals, mt5Options())

	require.Len(t, ledger.Completed, 1)
	assert.Zero(t, ledger.Completed[0].DurationMinutes)
}

func TestReduceMetaAPI(t *testing.T) {
	// Arrange
	deals := []metaapi.Deal{
		{ID: "1", Type: "DEAL_TYPE_BALANCE", Time: "2024-01-15T08:00:00.000Z", Profit: 5000},
		{ID: "2", Type: "DEAL_TYPE_SELL", EntryType: "DEAL_ENTRY_IN", PositionID: "77", Symbol: "GBPUSD",
			Volume: 1, Price: 1.27, Commission: -3, Time: "2024-01-15T09:30:00.000Z"},
		{ID: "3", Type: "DEAL_TYPE_BUY", EntryType: "DEAL_ENTRY_OUT", PositionID: "77", Symbol: "GBPUSD",
			Volume: 1, Price: 1.26, Commission: -3, Profit: 1000, Time: "2024-01-15T10:00:30.000Z"},
		{ID: "4", Type: "DEAL_TYPE_BUY", EntryType: "DEAL_ENTRY_IN", PositionID: "78", Symbol: "GBPUSD", Time: "not a time"},
	}

	// Act
	ledger := ReduceMetaAPI(1, deals)

	// Assert
	require.Len(t, ledger.Completed, 1)
	assert.Empty(t, ledger.Open, "deal with a bad timestamp is dropped")
	trade := ledger.Completed[0]
	assert.Equal(t, models.TradeTypeSell, trade.TradeType)
	assert.Equal(t, models.SourceMetaAPI, trade.Source)
	assert.Equal(t, 30, trade.DurationMinutes)
	assert.Equal(t, -6.0, trade.Commission)
	assert.Equal(t, "metaapi_GBPUSD_2024-01-15T09:30:00Z", *trade.ExternalID)
}
