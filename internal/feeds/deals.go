package feeds

import (
	"strings"
	"time"

	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/models"
)

// DealKind is the side of a broker deal. Balance, credit and other
// non-trading deals are DealKindOther.
type DealKind int

const (
	DealKindOther DealKind = iota
	DealKindBuy
	DealKindSell
)

// DealEntry is the role of a deal within its position.
type DealEntry int

const (
	DealEntryOther DealEntry = iota
	DealEntryIn
	DealEntryOut
)

var metaAPIDealKinds = map[string]DealKind{
	"DEAL_TYPE_BUY":  DealKindBuy,
	"DEAL_TYPE_SELL": DealKindSell,
}

var metaAPIDealEntries = map[string]DealEntry{
	"DEAL_ENTRY_IN":  DealEntryIn,
	"DEAL_ENTRY_OUT": DealEntryOut,
}

// Deal is one source-independent execution event.
type Deal struct {
	Ticket     string
	PositionID string
	Kind       DealKind
	Entry      DealEntry
	Symbol     string
	Volume     float64
	Price      float64
	Commission float64
	Swap       float64
	Profit     float64
	Time       time.Time
}

// PendingPosition is an entry deal waiting for its exit.
type PendingPosition struct {
	Ticket     string
	Symbol     string
	Side       models.TradeType
	Volume     float64
	EntryPrice float64
	OpenTime   time.Time
	Commission float64
}

// DealLedger is the state of a deal reduction.
type DealLedger struct {
	Open      map[string]PendingPosition
	Completed []models.Trade
}

// DealOptions tag the trades a reduction emits.
type DealOptions struct {
	UserID     uint
	Source     models.Source
	ExternalID func(PendingPosition) string
}

// MT5ExternalID keys a terminal position by its entry ticket.
func MT5ExternalID(p PendingPosition) string {
	return p.Ticket
}

// MetaAPIExternalID keys a cloud-bridge position by symbol and open time.
func MetaAPIExternalID(p PendingPosition) string {
	return "metaapi_" + p.Symbol + "_" + p.OpenTime.UTC().Format(time.RFC3339)
}

// ReduceDeals folds a time-ordered deal stream into completed trades.
// Positions still open at the end are left in the ledger; exits without a
// known entry are dropped.
func ReduceDeals(deals []Deal, opts DealOptions) DealLedger {
	ledger := DealLedger{Open: make(map[string]PendingPosition)}
	for _, d := range deals {
		ledger = ledger.Apply(d, opts)
	}
	return ledger
}

// Apply advances the ledger by one deal.
func (l DealLedger) Apply(d Deal, opts DealOptions) DealLedger {
	if d.Kind != DealKindBuy && d.Kind != DealKindSell {
		return l
	}

	switch d.Entry {
	case DealEntryIn:
		side := models.TradeTypeBuy
		if d.Kind == DealKindSell {
			side = models.TradeTypeSell
		}
		l.Open[d.PositionID] = PendingPosition{
			Ticket:     d.Ticket,
			Symbol:     strings.ToUpper(d.Symbol),
			Side:       side,
			Volume:     d.Volume,
			EntryPrice: d.Price,
			OpenTime:   d.Time,
			Commission: d.Commission,
		}
	case DealEntryOut:
		pos, ok := l.Open[d.PositionID]
		if !ok {
			return l
		}
		delete(l.Open, d.PositionID)

		closeAt := d.Time
		trade := models.Trade{
			UserID:          opts.UserID,
			Symbol:          pos.Symbol,
			TradeType:       pos.Side,
			Volume:          pos.Volume,
			EntryPrice:      pos.EntryPrice,
			ExitPrice:       models.FloatPtr(d.Price),
			Profit:          d.Profit,
			Swap:            d.Swap,
			Commission:      pos.Commission + d.Commission,
			OpenTime:        pos.OpenTime,
			CloseTime:       &closeAt,
			DurationMinutes: models.DurationBetween(pos.OpenTime, closeAt),
			Source:          opts.Source,
		}
		if opts.ExternalID != nil {
			trade.ExternalID = models.StringPtr(opts.ExternalID(pos))
		}
		l.Completed = append(l.Completed, trade)
	}
	return l
}

// FromMetaAPI converts cloud-bridge deals. Deals without a parseable
// timestamp are dropped rather than given a fabricated one.
func FromMetaAPI(deals []metaapi.Deal) []Deal {
	out := make([]Deal, 0, len(deals))
	for _, d := range deals {
		at, err := time.Parse(time.RFC3339Nano, d.Time)
		if err != nil {
			continue
		}
		out = append(out, Deal{
			Ticket:     d.ID,
			PositionID: d.PositionID,
			Kind:       metaAPIDealKinds[d.Type],
			Entry:      metaAPIDealEntries[d.EntryType],
			Symbol:     d.Symbol,
			Volume:     d.Volume,
			Price:      d.Price,
			Commission: d.Commission,
			Swap:       d.Swap,
			Profit:     d.Profit,
			Time:       at,
		})
	}
	return out
}

// ReduceMetaAPI pairs cloud-bridge deals into METAAPI trades.
func ReduceMetaAPI(userID uint, deals []metaapi.Deal) DealLedger {
	return ReduceDeals(FromMetaAPI(deals), DealOptions{
		UserID:     userID,
		Source:     models.SourceMetaAPI,
		ExternalID: MetaAPIExternalID,
	})
}
