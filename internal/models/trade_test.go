package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTradeType(t *testing.T) {
	testCases := []struct {
		in   string
		want TradeType
	}{
		{"SELL", TradeTypeSell},
		{" sell ", TradeTypeSell},
		{"SHORT", TradeTypeSell},
		{"short", TradeTypeSell},
		{"Venda", TradeTypeSell},
		{"LONG", TradeTypeBuy},
		{"COMPRA", TradeTypeBuy},
		{"BUY", TradeTypeBuy},
		{"", TradeTypeBuy},
		{"CLOSE_LONG", TradeTypeBuy},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTradeType(tc.in))
		})
	}
}

func TestSourceValid(t *testing.T) {
	assert.True(t, SourceManual.Valid())
	assert.True(t, SourceTradingView.Valid())
	assert.False(t, Source("").Valid())
	assert.False(t, Source("BOGUS").Valid())
	assert.False(t, Source("manual").Valid())
}

func TestIsWin(t *testing.T) {
	assert.True(t, Trade{Profit: 0.01}.IsWin())
	assert.False(t, Trade{Profit: 0}.IsWin())
	assert.False(t, Trade{Profit: -5}.IsWin())
}

func TestDurationBetween(t *testing.T) {
	open := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, 15, DurationBetween(open, open.Add(15*time.Minute+59*time.Second)))
	assert.Equal(t, 0, DurationBetween(open, open.Add(-time.Hour)))
}

func TestBeforeSaveNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	closeTime := time.Date(2024, 1, 15, 10, 0, 0, 0, loc)
	trade := &Trade{
		OpenTime:        time.Date(2024, 1, 15, 9, 0, 0, 0, loc),
		CloseTime:       &closeTime,
		DurationMinutes: -4,
	}

	assert.NoError(t, trade.BeforeSave(nil))
	assert.Equal(t, time.UTC, trade.OpenTime.Location())
	assert.Equal(t, 12, trade.OpenTime.Hour())
	assert.Equal(t, 13, trade.CloseTime.Hour())
	assert.Equal(t, 0, trade.DurationMinutes)
}
