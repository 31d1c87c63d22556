package feeds

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// ErrInvalidSignature is returned when a webhook body fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// webhookSides maps alert side vocabulary onto trade directions.
var webhookSides = map[string]models.TradeType{
	"LONG":   models.TradeTypeBuy,
	"BUY":    models.TradeTypeBuy,
	"COMPRA": models.TradeTypeBuy,
	"SHORT":  models.TradeTypeSell,
	"SELL":   models.TradeTypeSell,
	"VENDA":  models.TradeTypeSell,
}

// WebhookPayload is the JSON body of an alert.
type WebhookPayload struct {
	Symbol  string   `json:"symbol"`
	Type    string   `json:"type"`
	Price   float64  `json:"price"`
	Volume  *float64 `json:"volume"`
	Message string   `json:"message"`
	ID      string   `json:"id"`
}

// MapWebhook converts one alert into a single-sided TRADINGVIEW trade
// opened at now.
func MapWebhook(userID uint, p WebhookPayload, now time.Time) models.Trade {
	side, ok := webhookSides[strings.ToUpper(strings.TrimSpace(p.Type))]
	if !ok {
		side = models.TradeTypeBuy
	}

	symbol := normalizeSymbol(p.Symbol)

	volume := 1.0
	if p.Volume != nil {
		volume = *p.Volume
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = fmt.Sprintf("tv_%s_%d", symbol, now.UnixMilli())
	}

	return models.Trade{
		UserID:     userID,
		Symbol:     symbol,
		TradeType:  side,
		Volume:     volume,
		EntryPrice: p.Price,
		OpenTime:   now,
		Source:     models.SourceTradingView,
		ExternalID: models.StringPtr(id),
		Notes:      p.Message,
	}
}

// normalizeSymbol drops an exchange prefix such as "BINANCE:" and upper-cases.
func normalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(s)
}

// VerifySignature checks a hex HMAC-SHA256 of body. An empty secret
// disables verification.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return nil
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature VerifySignature expects for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// AlertTemplate is the alert message users paste into their alert settings.
const AlertTemplate = `{
    "symbol": "{{ticker}}",
    "type": "{{strategy.order.action}}",
    "price": {{close}},
    "volume": {{strategy.order.contracts}},
    "message": "{{strategy.order.comment}}",
    "id": "{{strategy.order.id}}"
}`
