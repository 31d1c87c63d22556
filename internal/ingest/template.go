package ingest

import (
	"fmt"
	"strconv"
	"time"

	"trade-journal-go/internal/models"

	"github.com/gocarina/gocsv"
)

type templateRow struct {
	Date       string `csv:"date"`
	Time       string `csv:"time"`
	Symbol     string `csv:"symbol"`
	Type       string `csv:"type"`
	Volume     string `csv:"volume"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	Profit     string `csv:"profit"`
	Duration   string `csv:"duration"`
}

var sampleRows = []templateRow{
	{"2024-01-15", "09:30:00", "WINZ24", "BUY", "1", "128500", "128650", "150.00", "5"},
	{"2024-01-15", "10:15:00", "WINZ24", "SELL", "1", "128700", "128550", "-150.00", "8"},
	{"2024-01-15", "11:00:00", "WDOZ24", "BUY", "1", "4950", "4965", "75.00", "12"},
	{"2024-01-15", "14:30:00", "WINZ24", "BUY", "2", "128800", "128950", "300.00", "15"},
	{"2024-01-15", "15:45:00", "PETR4", "BUY", "100", "35.50", "35.80", "30.00", "45"},
}

// SampleTemplate returns a small CSV file in the canonical import layout.
func SampleTemplate() (string, error) {
	out, err := gocsv.MarshalString(&sampleRows)
	if err != nil {
		return "", fmt.Errorf("failed to render sample template: %w", err)
	}
	return out, nil
}

type exportRow struct {
	Date       string `csv:"date"`
	Time       string `csv:"time"`
	CloseDate  string `csv:"close_date"`
	CloseTime  string `csv:"close_time"`
	Symbol     string `csv:"symbol"`
	Type       string `csv:"type"`
	Volume     string `csv:"volume"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	Profit     string `csv:"profit"`
	Commission string `csv:"commission"`
	Swap       string `csv:"swap"`
	Duration   string `csv:"duration"`
	Source     string `csv:"source"`
	Notes      string `csv:"notes"`
}

// ExportCSV writes trades in a layout Parse reads back. Timestamps are
// rendered in loc.
func ExportCSV(trades []models.Trade, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]exportRow, 0, len(trades))
	for _, t := range trades {
		open := t.OpenTime.In(loc)
		row := exportRow{
			Date:       open.Format("2006-01-02"),
			Time:       open.Format("15:04:05"),
			Symbol:     t.Symbol,
			Type:       string(t.TradeType),
			Volume:     formatFloat(t.Volume),
			EntryPrice: formatFloat(t.EntryPrice),
			Profit:     formatFloat(t.Profit),
			Commission: formatFloat(t.Commission),
			Swap:       formatFloat(t.Swap),
			Duration:   strconv.Itoa(t.DurationMinutes),
			Source:     string(t.Source),
			Notes:      t.Notes,
		}
		if t.ExitPrice != nil {
			row.ExitPrice = formatFloat(*t.ExitPrice)
		}
		if t.CloseTime != nil {
			closeAt := t.CloseTime.In(loc)
			row.CloseDate = closeAt.Format("2006-01-02")
			row.CloseTime = closeAt.Format("15:04:05")
		}
		rows = append(rows, row)
	}

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to export trades: %w", err)
	}
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
