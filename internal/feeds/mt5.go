package feeds

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trade-journal-go/internal/models"
)

var mt5DealKinds = map[int]DealKind{
	0: DealKindBuy,
	1: DealKindSell,
}

var mt5DealEntries = map[int]DealEntry{
	0: DealEntryIn,
	1: DealEntryOut,
}

// MT5Deal is one row of a terminal history_deals_get dump.
type MT5Deal struct {
	Ticket     int64   `json:"ticket"`
	Order      int64   `json:"order"`
	Time       int64   `json:"time"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	PositionID int64   `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Profit     float64 `json:"profit"`
	Comment    string  `json:"comment"`
}

// ConnectionStatus describes the terminal bridge.
type ConnectionStatus struct {
	Connected    bool     `json:"connected"`
	Platform     string   `json:"platform"`
	Message      string   `json:"message"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// MT5Status reports that no native terminal bridge is available and lists
// the supported ways to get terminal history in.
func MT5Status() ConnectionStatus {
	return ConnectionStatus{
		Connected: false,
		Platform:  "MetaTrader 5",
		Message:   "MetaTrader 5 terminal bridge is not available on this server. Import your history instead.",
		Alternatives: []string{
			"Export the MT5 history as CSV and upload it",
			"Upload a JSON dump of history_deals_get to /api/integrations/mt5/sync",
			"Connect the account through MetaAPI",
		},
	}
}

// ParseMT5Dump decodes a JSON array of terminal deals.
func ParseMT5Dump(raw []byte) ([]Deal, error) {
	var dump []MT5Deal
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("failed to decode MT5 deal dump: %w", err)
	}

	deals := make([]Deal, 0, len(dump))
	for _, d := range dump {
		if d.Time <= 0 {
			continue
		}
		deals = append(deals, Deal{
			Ticket:     strconv.FormatInt(d.Ticket, 10),
			PositionID: strconv.FormatInt(d.PositionID, 10),
			Kind:       mt5DealKinds[d.Type],
			Entry:      mt5DealEntries[d.Entry],
			Symbol:     d.Symbol,
			Volume:     d.Volume,
			Price:      d.Price,
			Commission: d.Commission,
			Swap:       d.Swap,
			Profit:     d.Profit,
			Time:       time.Unix(d.Time, 0).UTC(),
		})
	}
	return deals, nil
}

// ReduceMT5 pairs terminal deals into METATRADER trades.
func ReduceMT5(userID uint, deals []Deal) DealLedger {
	return ReduceDeals(deals, DealOptions{
		UserID:     userID,
		Source:     models.SourceMetaTrader,
		ExternalID: MT5ExternalID,
	})
}
