package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// RowError records why a single data row was skipped. Row is 1-based.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	// MetaTrader history exports
	"2006.1.2 15:04:05",
	"2006.1.2 15:04",
	"2006.1.2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// sellMarkers flag a SELL when any appears in the upper-cased type cell.
// The bare "S" matches any value containing the letter.
var sellMarkers = []string{"SELL", "VENDA", "SHORT", "S"}

// Normalizer converts one raw CSV row into a canonical trade.
type Normalizer struct {
	// Now supplies open_time for rows without a parseable date.
	Now func() time.Time
	// Location interprets zone-less timestamps.
	Location *time.Location
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

// Normalize builds a trade from row. index is the 1-based data row number.
func (n Normalizer) Normalize(index int, row []string, m ColumnMapping) (models.Trade, *RowError) {
	skip := func(format string, args ...any) (models.Trade, *RowError) {
		return models.Trade{}, &RowError{Row: index, Reason: fmt.Sprintf(format, args...)}
	}

	symbol, _ := m.Value(row, FieldSymbol)
	if isNullCell(symbol) {
		return skip("empty symbol")
	}

	trade := models.Trade{
		UserID:    models.DefaultUserID,
		Symbol:    strings.ToUpper(symbol),
		TradeType: n.tradeType(row, m),
		Source:    models.SourceCSV,
	}

	var err error
	if trade.Volume, err = numberOr(row, m, FieldVolume, 1); err != nil {
		return skip("%v", err)
	}
	// A zero volume is treated like an absent one.
	if trade.Volume == 0 {
		trade.Volume = 1
	}
	if trade.EntryPrice, err = numberOr(row, m, FieldEntryPrice, 0); err != nil {
		return skip("%v", err)
	}
	if trade.Profit, err = numberOr(row, m, FieldProfit, 0); err != nil {
		return skip("%v", err)
	}
	if trade.Commission, err = numberOr(row, m, FieldCommission, 0); err != nil {
		return skip("%v", err)
	}
	if trade.Swap, err = numberOr(row, m, FieldSwap, 0); err != nil {
		return skip("%v", err)
	}
	if cell, ok := m.Value(row, FieldExitPrice); ok && !isNullCell(cell) {
		exit, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return skip("invalid %s %q", FieldExitPrice, cell)
		}
		trade.ExitPrice = &exit
	}

	open, ok := n.timestamp(row, m, FieldDate, FieldTime)
	if !ok {
		open = n.now()
	}
	trade.OpenTime = open
	if closeAt, ok := n.timestamp(row, m, FieldCloseDate, FieldCloseTime); ok {
		trade.CloseTime = &closeAt
	}

	if cell, ok := m.Value(row, FieldDuration); ok && !isNullCell(cell) {
		d, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return skip("invalid %s %q", FieldDuration, cell)
		}
		trade.DurationMinutes = max(int(d), 0)
	} else if trade.CloseTime != nil {
		trade.DurationMinutes = models.DurationBetween(trade.OpenTime, *trade.CloseTime)
	}

	return trade, nil
}

func (n Normalizer) tradeType(row []string, m ColumnMapping) models.TradeType {
	cell, ok := m.Value(row, FieldType)
	if !ok {
		return models.TradeTypeBuy
	}
	upper := strings.ToUpper(cell)
	for _, marker := range sellMarkers {
		if strings.Contains(upper, marker) {
			return models.TradeTypeSell
		}
	}
	return models.TradeTypeBuy
}

// timestamp joins the date and optional time cells and parses them.
func (n Normalizer) timestamp(row []string, m ColumnMapping, dateField, timeField Field) (time.Time, bool) {
	date, ok := m.Value(row, dateField)
	if !ok || isNullCell(date) {
		return time.Time{}, false
	}
	value := date
	if clock, ok := m.Value(row, timeField); ok && !isNullCell(clock) {
		value = date + " " + clock
	}
	return ParseTimestamp(value, n.location())
}

// ParseTimestamp tries each known layout in order.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// numberOr parses a numeric cell, returning def for unmapped or null cells.
func numberOr(row []string, m ColumnMapping, f Field, def float64) (float64, error) {
	cell, ok := m.Value(row, f)
	if !ok || isNullCell(cell) {
		return def, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", f, cell)
	}
	return v, nil
}
