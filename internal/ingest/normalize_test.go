package ingest

import (
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

func mappingFor(t *testing.T, headers ...string) ColumnMapping {
	m, err := MapColumns(normalizeAll(headers...), nil)
	require.NoError(t, err)
	return m
}

func TestNormalizeFullRow(t *testing.T) {
	m := mappingFor(t, "date", "time", "close_date", "close_time", "symbol", "type", "volume",
		"entry_price", "exit_price", "profit", "commission", "swap")
	row := []string{"2024-01-15", "09:30:00", "2024-01-15", "10:05:30", " eurusd ", "Sell", "0.5",
		"1.0950", "1.0920", "150", "-2.5", "0.3"}

	trade, rowErr := testNormalizer().Normalize(1, row, m)
	require.Nil(t, rowErr)

	assert.Equal(t, "EURUSD", trade.Symbol)
	assert.Equal(t, models.TradeTypeSell, trade.TradeType)
	assert.Equal(t, 0.5, trade.Volume)
	assert.Equal(t, 1.0950, trade.EntryPrice)
	require.NotNil(t, trade.ExitPrice)
	assert.Equal(t, 1.0920, *trade.ExitPrice)
	assert.Equal(t, 150.0, trade.Profit)
	assert.Equal(t, -2.5, trade.Commission)
	assert.Equal(t, 0.3, trade.Swap)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), trade.OpenTime)
	require.NotNil(t, trade.CloseTime)
	assert.Equal(t, 35, trade.DurationMinutes)
	assert.Equal(t, models.SourceCSV, trade.Source)
}

func TestNormalizeDefaults(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "volume", "exit_price")

	trade, rowErr := testNormalizer().Normalize(1, []string{"WINZ24", "", "", ""}, m)
	require.Nil(t, rowErr)

	assert.Equal(t, 1.0, trade.Volume)
	assert.Zero(t, trade.Profit)
	assert.Nil(t, trade.ExitPrice, "blank exit price stays unset")
	assert.Nil(t, trade.CloseTime)
	assert.Equal(t, fixedNow, trade.OpenTime)
	assert.Zero(t, trade.DurationMinutes)
	assert.Equal(t, models.TradeTypeBuy, trade.TradeType)
}

func TestNormalizeZeroVolumeBecomesOne(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "volume")

	trade, rowErr := testNormalizer().Normalize(1, []string{"A", "1", "0"}, m)
	require.Nil(t, rowErr)
	assert.Equal(t, 1.0, trade.Volume)
}

func TestNormalizeTradeType(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "type")
	testCases := []struct {
		in   string
		want models.TradeType
	}{
		{"BUY", models.TradeTypeBuy},
		{"compra", models.TradeTypeBuy},
		{"sell", models.TradeTypeSell},
		{"Venda", models.TradeTypeSell},
		{"short", models.TradeTypeSell},
		{"S", models.TradeTypeSell},
		{"Stocks", models.TradeTypeSell},
		{"long", models.TradeTypeBuy},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			trade, rowErr := testNormalizer().Normalize(1, []string{"X", "1", tc.in}, m)
			require.Nil(t, rowErr)
			assert.Equal(t, tc.want, trade.TradeType)
		})
	}
}

func TestNormalizeDateLayouts(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "date")
	testCases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15 09:30:00", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"2024-01-15 09:30", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2024 14:00", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
		{"03/02/2024", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"01/25/2024", time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)},
		{"2024.01.15 09:30:00", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"2024-01-15T09:30:00Z", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"yesterday", fixedNow},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			trade, rowErr := testNormalizer().Normalize(1, []string{"X", "1", tc.in}, m)
			require.Nil(t, rowErr)
			assert.True(t, tc.want.Equal(trade.OpenTime), "got %s", trade.OpenTime)
		})
	}
}

func TestNormalizeExplicitDurationWins(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "date", "close_date", "duration")

	trade, rowErr := testNormalizer().Normalize(1, []string{"X", "1", "2024-01-15 09:00", "2024-01-15 11:00", "7.9"}, m)
	require.Nil(t, rowErr)
	assert.Equal(t, 7, trade.DurationMinutes)
}

func TestNormalizeSkipsMalformedRows(t *testing.T) {
	m := mappingFor(t, "symbol", "profit", "volume", "duration")
	testCases := []struct {
		name   string
		row    []string
		reason string
	}{
		{"bad profit", []string{"X", "abc", "1", "1"}, "profit"},
		{"bad volume", []string{"X", "1", "one", "1"}, "volume"},
		{"bad duration", []string{"X", "1", "1", "long"}, "duration"},
		{"empty symbol", []string{" ", "1", "1", "1"}, "symbol"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, rowErr := testNormalizer().Normalize(4, tc.row, m)
			require.NotNil(t, rowErr)
			assert.Equal(t, 4, rowErr.Row)
			assert.Contains(t, rowErr.Reason, tc.reason)
		})
	}
}
