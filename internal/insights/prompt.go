package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"trade-journal-go/internal/analytics"
)

const insightsSystemPrompt = "You are an expert trading coach. Answer only with valid JSON."

const chatSystemPrompt = `You are an assistant specialised in trading, working inside a trading journal.
You help the trader understand their performance and improve.
Answer in a friendly, direct and practical way. Use the trader's data when relevant.
If the question is not about trading, politely steer the conversation back to the topic.`

func insightsPrompt(s analytics.Summary) string {
	var b strings.Builder
	b.WriteString("You are an experienced trading coach analysing a trader's history.\n\n")
	b.WriteString("TRADER DATA:\n")
	b.WriteString(summaryBlock(s))
	b.WriteString("\nPERFORMANCE BY HOUR:\n")
	b.WriteString(mustJSON(activeHours(s.Hourly)))
	b.WriteString("\n\nPERFORMANCE BY SYMBOL:\n")
	b.WriteString(mustJSON(s.Symbols))
	b.WriteString("\n\nPERFORMANCE BY WEEKDAY:\n")
	b.WriteString(mustJSON(s.Weekdays))
	b.WriteString(`

Produce 5 to 7 specific, actionable insights about this trader.
Answer with a JSON array where each item has the keys:
"type" (success, warning, danger or info), "category" (timing, symbol, psychology, risk or general),
"title", "description" and "action".
Include at least one insight about the best and worst trading hours, one about symbols,
one about risk management and one about trading psychology.`)
	return b.String()
}

func chatPrompt(message string, s analytics.Summary) string {
	var b strings.Builder
	if s.TotalTrades > 0 {
		b.WriteString("Trader context:\n")
		b.WriteString(summaryBlock(s))
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(message)
	return b.String()
}

func summaryBlock(s analytics.Summary) string {
	return fmt.Sprintf(`- Total trades: %d
- Win rate: %.2f%%
- Net profit: %.2f
- Average win: %.2f
- Average loss: %.2f
- Profit factor: %.2f
- Longest losing streak: %d
- Average duration: %d minutes
`, s.TotalTrades, s.WinRate, s.NetProfit, s.AverageWin, s.AverageLoss, s.ProfitFactor, s.MaxLossStreak, s.AverageDuration)
}

func activeHours(hours []analytics.HourBucket) []analytics.HourBucket {
	var out []analytics.HourBucket
	for _, h := range hours {
		if h.Trades > 0 {
			out = append(out, h)
		}
	}
	return out
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
