package insights

import (
	"fmt"
	"math"
	"sort"

	"trade-journal-go/internal/analytics"
)

// Rules is the deterministic insight battery. It needs no external service
// and always produces at least the suggested-limits card.
type Rules struct {
	LossStreakThreshold int
	SymbolMinTrades     int
}

// DefaultRules returns the standard thresholds.
func DefaultRules() Rules {
	return Rules{LossStreakThreshold: 4, SymbolMinTrades: 5}
}

// Evaluate runs every rule in order against s.
func (r Rules) Evaluate(s analytics.Summary) []Insight {
	var out []Insight
	add := func(i *Insight) {
		if i != nil {
			out = append(out, *i)
		}
	}

	add(winRateRule(s))
	add(riskRatioRule(s))
	add(profitFactorRule(s))
	add(r.lossStreakRule(s))
	out = append(out, hourRules(s)...)
	out = append(out, r.symbolRules(s)...)
	out = append(out, limitsCard(s))
	return out
}

func winRateRule(s analytics.Summary) *Insight {
	switch {
	case s.WinRate < 50:
		return &Insight{
			Severity:    SeverityWarning,
			Category:    CategoryGeneral,
			Title:       "Win rate needs work",
			Description: fmt.Sprintf("Your win rate of %.2f%% is below 50%%. You lose more trades than you win.", s.WinRate),
			Action:      "Review your entry criteria and be more selective.",
		}
	case s.WinRate > 60:
		return &Insight{
			Severity:    SeveritySuccess,
			Category:    CategoryGeneral,
			Title:       "Excellent win rate",
			Description: fmt.Sprintf("Your win rate of %.2f%% is above 60%%.", s.WinRate),
			Action:      "Stay consistent and do not change a strategy that works.",
		}
	}
	return nil
}

func riskRatioRule(s analytics.Summary) *Insight {
	if s.AverageLoss <= s.AverageWin*1.5 {
		return nil
	}
	return &Insight{
		Severity: SeverityDanger,
		Category: CategoryRisk,
		Title:    "Average loss too large",
		Description: fmt.Sprintf("Your average loss (%.2f) is much larger than your average win (%.2f).",
			s.AverageLoss, s.AverageWin),
		Action: "Tighten your stop loss or widen your take profit to improve the risk/reward ratio.",
	}
}

func profitFactorRule(s analytics.Summary) *Insight {
	// A history with no losses reports a profit factor of 0.
	if s.TotalTrades > 0 && s.LosingTrades == 0 {
		return nil
	}
	switch {
	case s.ProfitFactor < 1:
		return &Insight{
			Severity:    SeverityDanger,
			Category:    CategoryRisk,
			Title:       "Profit factor below 1",
			Description: fmt.Sprintf("A profit factor of %.2f means you are losing money over time.", s.ProfitFactor),
			Action:      "Review your strategy before you keep trading.",
		}
	case s.ProfitFactor > 2:
		return &Insight{
			Severity:    SeveritySuccess,
			Category:    CategoryRisk,
			Title:       "Strong profit factor",
			Description: fmt.Sprintf("A profit factor of %.2f is very good. You win more than you lose.", s.ProfitFactor),
			Action:      "Consider increasing your position size gradually.",
		}
	}
	return nil
}

func (r Rules) lossStreakRule(s analytics.Summary) *Insight {
	if s.MaxLossStreak < r.LossStreakThreshold {
		return nil
	}
	return &Insight{
		Severity:    SeverityWarning,
		Category:    CategoryPsychology,
		Title:       "Possible revenge trading",
		Description: fmt.Sprintf("You had a run of %d losses in a row. This can be a sign of emotional trading.", s.MaxLossStreak),
		Action:      "After two losses in a row, take a break of at least 30 minutes.",
	}
}

func hourRules(s analytics.Summary) []Insight {
	var best, worst *analytics.HourBucket
	for i := range s.Hourly {
		h := &s.Hourly[i]
		if h.Trades == 0 {
			continue
		}
		if best == nil || h.Profit > best.Profit {
			best = h
		}
		if worst == nil || h.Profit < worst.Profit {
			worst = h
		}
	}

	var out []Insight
	if best != nil && best.Profit > 0 {
		out = append(out, Insight{
			Severity:    SeveritySuccess,
			Category:    CategoryTiming,
			Title:       fmt.Sprintf("Best hour: %02d:00", best.Hour),
			Description: fmt.Sprintf("You earn the most at %02d:00 (%.2f profit).", best.Hour, best.Profit),
			Action:      fmt.Sprintf("Concentrate your trading around %02d:00.", best.Hour),
		})
	}
	if worst != nil && worst.Profit < 0 {
		out = append(out, Insight{
			Severity:    SeverityWarning,
			Category:    CategoryTiming,
			Title:       fmt.Sprintf("Avoid %02d:00", worst.Hour),
			Description: fmt.Sprintf("You lose the most at %02d:00 (%.2f loss).", worst.Hour, math.Abs(worst.Profit)),
			Action:      fmt.Sprintf("Avoid trading between %02d:00 and %02d:00.", worst.Hour, (worst.Hour+1)%24),
		})
	}
	return out
}

func (r Rules) symbolRules(s analytics.Summary) []Insight {
	symbols := make([]analytics.SymbolBucket, len(s.Symbols))
	copy(symbols, s.Symbols)
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Symbol < symbols[j].Symbol })

	var out []Insight
	for _, b := range symbols {
		if b.Trades < r.SymbolMinTrades {
			continue
		}
		rate := float64(b.Wins) / float64(b.Trades) * 100
		switch {
		case rate < 35:
			out = append(out, Insight{
				Severity:    SeverityDanger,
				Category:    CategorySymbol,
				Title:       "Avoid " + b.Symbol,
				Description: fmt.Sprintf("Only %.1f%% win rate on %s (%d/%d trades).", rate, b.Symbol, b.Wins, b.Trades),
				Action:      fmt.Sprintf("Consider pausing %s or studying it further.", b.Symbol),
			})
		case rate > 65:
			out = append(out, Insight{
				Severity:    SeveritySuccess,
				Category:    CategorySymbol,
				Title:       "Edge on " + b.Symbol,
				Description: fmt.Sprintf("%.1f%% win rate on %s with %.2f profit.", rate, b.Symbol, b.Profit),
				Action:      fmt.Sprintf("Keep focusing on %s, you have an edge there.", b.Symbol),
			})
		}
	}
	return out
}

func limitsCard(s analytics.Summary) Insight {
	return Insight{
		Severity: SeverityInfo,
		Category: CategoryRisk,
		Title:    "Suggested limits",
		Description: fmt.Sprintf("Max daily loss: %.2f | Daily gain target: %.2f",
			s.SuggestedDailyLoss, s.SuggestedDailyGain),
		Action: "Set these limits in your routine and respect them strictly.",
	}
}
