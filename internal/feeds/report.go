package feeds

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/models"
)

// ReportResult is the outcome of reading a strategy tester export.
type ReportResult struct {
	Trades    []models.Trade    `json:"-"`
	Skipped   []ingest.RowError `json:"skipped"`
	Unmatched int               `json:"unmatched"`
}

type reportEntry struct {
	side     models.TradeType
	volume   float64
	price    float64
	openTime time.Time
}

// ParseStrategyReport pairs the entry and exit rows of a strategy tester
// export by their trade number. The export does not name the instrument, so
// the caller supplies it. Entries never closed are counted as unmatched.
func ParseStrategyReport(userID uint, raw []byte, symbol string, loc *time.Location) (*ReportResult, error) {
	headers, rows, _, err := ingest.ReadTable(raw)
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[h] = i
	}
	// Newer exports suffix money columns with the currency, e.g. "Price USD".
	for _, name := range []string{"price", "contracts", "profit"} {
		if _, ok := col[name]; ok {
			continue
		}
		for i, h := range headers {
			if strings.HasPrefix(h, name+"_") {
				col[name] = i
				break
			}
		}
	}
	for _, required := range []string{"trade_#", "type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ingest.ErrMissingColumn, required)
		}
	}

	symbol = normalizeSymbol(symbol)
	if loc == nil {
		loc = time.Local
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(row []string, name string, def float64) (float64, error) {
		v := cell(row, name)
		if v == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, v)
		}
		return f, nil
	}

	result := &ReportResult{}
	open := make(map[string]reportEntry)
	for i, row := range rows {
		skip := func(reason string) {
			result.Skipped = append(result.Skipped, ingest.RowError{Row: i + 1, Reason: reason})
		}

		tradeNo := cell(row, "trade_#")
		kind := strings.ToLower(cell(row, "type"))
		if tradeNo == "" {
			skip("missing trade number")
			continue
		}
		at, ok := ingest.ParseTimestamp(cell(row, "date/time"), loc)
		if !ok {
			skip("unparseable date/time")
			continue
		}
		price, err := number(row, "price", 0)
		if err != nil {
			skip(err.Error())
			continue
		}

		switch {
		case strings.Contains(kind, "entry"):
			volume, err := number(row, "contracts", 1)
			if err != nil {
				skip(err.Error())
				continue
			}
			side := models.TradeTypeSell
			if strings.Contains(kind, "long") {
				side = models.TradeTypeBuy
			}
			open[tradeNo] = reportEntry{side: side, volume: volume, price: price, openTime: at}
		case strings.Contains(kind, "exit"):
			entry, ok := open[tradeNo]
			if !ok {
				continue
			}
			profit, err := number(row, "profit", 0)
			if err != nil {
				skip(err.Error())
				continue
			}
			delete(open, tradeNo)

			closeAt := at
			result.Trades = append(result.Trades, models.Trade{
				UserID:          userID,
				Symbol:          symbol,
				TradeType:       entry.side,
				Volume:          entry.volume,
				EntryPrice:      entry.price,
				ExitPrice:       models.FloatPtr(price),
				Profit:          profit,
				OpenTime:        entry.openTime,
				CloseTime:       &closeAt,
				DurationMinutes: models.DurationBetween(entry.openTime, closeAt),
				Source:          models.SourceTradingView,
				ExternalID:      models.StringPtr(fmt.Sprintf("tv_%s_%s_%d", symbol, tradeNo, entry.openTime.Unix())),
			})
		}
	}
	result.Unmatched = len(open)
	return result, nil
}
