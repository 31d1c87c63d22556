package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a mandatory field cannot be resolved.
var ErrMissingColumn = errors.New("required column not found")

// Field is a canonical trade attribute a CSV column can map onto.
type Field string

const (
	FieldSymbol     Field = "symbol"
	FieldType       Field = "type"
	FieldVolume     Field = "volume"
	FieldEntryPrice Field = "entry_price"
	FieldExitPrice  Field = "exit_price"
	FieldProfit     Field = "profit"
	FieldDate       Field = "date"
	FieldTime       Field = "time"
	FieldCloseDate  Field = "close_date"
	FieldCloseTime  Field = "close_time"
	FieldDuration   Field = "duration"
	FieldCommission Field = "commission"
	FieldSwap       Field = "swap"
)

// fieldAliases lists accepted header names per field. Alias order is
// authoritative: the first alias present in the file wins.
var fieldAliases = []struct {
	field   Field
	aliases []string
}{
	{FieldSymbol, []string{"symbol", "ativo", "ticker", "instrumento", "asset"}},
	{FieldType, []string{"type", "tipo", "side", "direction", "order_type", "trade_type"}},
	{FieldVolume, []string{"volume", "lots", "lotes", "quantity", "qty", "quantidade"}},
	{FieldEntryPrice, []string{"entry_price", "preco_entrada", "open_price", "price_open", "entry", "preco"}},
	{FieldExitPrice, []string{"exit_price", "preco_saida", "close_price", "price_close", "exit"}},
	{FieldProfit, []string{"profit", "lucro", "resultado", "pnl", "result", "gain_loss", "pl"}},
	{FieldDate, []string{"date", "data", "open_date", "trade_date", "datetime"}},
	{FieldTime, []string{"time", "hora", "open_time", "trade_time"}},
	{FieldCloseDate, []string{"close_date", "data_fechamento", "exit_date"}},
	{FieldCloseTime, []string{"close_time", "hora_fechamento", "exit_time"}},
	{FieldDuration, []string{"duration", "duracao", "duration_minutes", "holding_time"}},
	{FieldCommission, []string{"commission", "comissao", "fee", "taxa"}},
	{FieldSwap, []string{"swap", "financing", "overnight"}},
}

// ColumnMapping maps each resolved field to its column index.
type ColumnMapping map[Field]int

// Value returns the trimmed cell for a field, and false when the field is
// unmapped or the row is too short.
func (m ColumnMapping) Value(row []string, f Field) (string, bool) {
	idx, ok := m[f]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

// Has reports whether the field was resolved.
func (m ColumnMapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Named returns field → header name, for reporting.
func (m ColumnMapping) Named(headers []string) map[Field]string {
	named := make(map[Field]string, len(m))
	for f, idx := range m {
		if idx < len(headers) {
			named[f] = headers[idx]
		}
	}
	return named
}

// NormalizeHeader lower-cases and trims a header and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// MapColumns resolves the canonical fields against normalized headers.
// Rows are only consulted for the numeric profit fallback.
func MapColumns(headers []string, rows [][]string) (ColumnMapping, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	m := make(ColumnMapping)
	for _, fa := range fieldAliases {
		for _, alias := range fa.aliases {
			if idx, ok := index[alias]; ok {
				m[fa.field] = idx
				break
			}
		}
	}

	if !m.Has(FieldSymbol) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, FieldSymbol)
	}
	if !m.Has(FieldProfit) {
		idx, ok := numericColumn(len(headers), rows)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, FieldProfit)
		}
		m[FieldProfit] = idx
	}
	return m, nil
}

// numericColumn finds the first column, in file order, whose non-empty cells
// all parse as numbers. A column with no values at all does not qualify.
func numericColumn(width int, rows [][]string) (int, bool) {
	for col := 0; col < width; col++ {
		seen := false
		numeric := true
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if isNullCell(cell) {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
			seen = true
		}
		if numeric && seen {
			return col, true
		}
	}
	return 0, false
}

func isNullCell(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "na":
		return true
	}
	return false
}
