package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultUserID owns every record while the journal is single-tenant.
const DefaultUserID uint = 1

// TradeType is the direction of a trade.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// Source tags where a trade record came from.
type Source string

const (
	SourceManual      Source = "MANUAL"
	SourceCSV         Source = "CSV"
	SourceMetaTrader  Source = "METATRADER"
	SourceMetaAPI     Source = "METAAPI"
	SourceTradingView Source = "TRADINGVIEW"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceMetaTrader, SourceMetaAPI, SourceTradingView:
		return true
	}
	return false
}

// sellSides lists the side values recorded as SELL.
var sellSides = map[string]struct{}{
	"SELL":  {},
	"SHORT": {},
	"VENDA": {},
}

// ParseTradeType maps a side value onto the two directions. Values outside
// sellSides become BUY.
func ParseTradeType(s string) TradeType {
	if _, ok := sellSides[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return TradeTypeSell
	}
	return TradeTypeBuy
}

// Trade is the canonical, source-independent record of one execution.
type Trade struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_trades_dedup,priority:1" json:"user_id"`

	Symbol    string    `gorm:"size:50;not null;index" json:"symbol"`
	TradeType TradeType `gorm:"size:10;not null" json:"trade_type"`
	Volume    float64   `gorm:"not null" json:"volume"`

	EntryPrice float64  `gorm:"not null" json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`

	Profit     float64 `gorm:"default:0" json:"profit"`
	ProfitPips float64 `gorm:"default:0" json:"profit_pips"`
	Commission float64 `gorm:"default:0" json:"commission"`
	Swap       float64 `gorm:"default:0" json:"swap"`

	OpenTime        time.Time  `gorm:"not null;index" json:"open_time"`
	CloseTime       *time.Time `json:"close_time"`
	DurationMinutes int        `gorm:"default:0" json:"duration_minutes"`

	Source     Source  `gorm:"size:20;default:CSV;index:idx_trades_dedup,priority:2" json:"source"`
	ExternalID *string `gorm:"size:100;index:idx_trades_dedup,priority:3" json:"external_id"`
	Notes      string  `gorm:"size:500" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsWin reports whether the trade counts as a win. Zero profit is a loss.
func (t Trade) IsWin() bool {
	return t.Profit > 0
}

// BeforeSave stores timestamps in UTC so range queries compare consistently.
func (t *Trade) BeforeSave(tx *gorm.DB) error {
	t.OpenTime = t.OpenTime.UTC()
	if t.CloseTime != nil {
		ct := t.CloseTime.UTC()
		t.CloseTime = &ct
	}
	if t.DurationMinutes < 0 {
		t.DurationMinutes = 0
	}
	return nil
}

// DurationBetween returns the whole minutes from open to close, never negative.
func DurationBetween(open, close time.Time) int {
	minutes := int(close.Sub(open) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
