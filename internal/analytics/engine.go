package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// fallbackDailyLoss is suggested when the history has no losses.
	fallbackDailyLoss = 100.0
	// fallbackDailyGain is suggested when the history has no wins.
	fallbackDailyGain = 200.0
)

// Engine computes descriptive statistics over an in-memory trade set.
// Calendar buckets are taken in Location.
type Engine struct {
	Location *time.Location
	Now      func() time.Time
}

// NewEngine creates a new Engine bucketing in loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{Location: loc, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().In(e.loc())
	}
	return time.Now().In(e.loc())
}

func (e *Engine) loc() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

// Summary is the aggregate view of a trade set.
type Summary struct {
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	TotalProfit        float64 `json:"total_profit"`
	TotalLoss          float64 `json:"total_loss"`
	NetProfit          float64 `json:"net_profit"`
	AverageWin         float64 `json:"average_win"`
	AverageLoss        float64 `json:"average_loss"`
	ProfitFactor       float64 `json:"profit_factor"`
	BestTrade          float64 `json:"best_trade"`
	WorstTrade         float64 `json:"worst_trade"`
	AverageDuration    int     `json:"average_duration"`
	MaxWinStreak       int     `json:"max_win_streak"`
	MaxLossStreak      int     `json:"max_loss_streak"`
	SuggestedDailyLoss float64 `json:"suggested_daily_loss"`
	SuggestedDailyGain float64 `json:"suggested_daily_gain"`

	Hourly   []HourBucket    `json:"hourly,omitempty"`
	Symbols  []SymbolBucket  `json:"symbols,omitempty"`
	Weekdays []WeekdayBucket `json:"weekdays,omitempty"`
}

// HourBucket aggregates trades opened in one hour of the day.
type HourBucket struct {
	Hour      int     `json:"hour"`
	HourLabel string  `json:"hour_label"`
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	Profit    float64 `json:"profit"`
	WinRate   float64 `json:"win_rate"`
}

// SymbolBucket aggregates trades of one instrument.
type SymbolBucket struct {
	Symbol        string  `json:"symbol"`
	Trades        int     `json:"trades"`
	Wins          int     `json:"wins"`
	Profit        float64 `json:"profit"`
	WinRate       float64 `json:"win_rate"`
	AverageProfit float64 `json:"average_profit"`
}

// WeekdayBucket aggregates trades opened on one day of the week.
type WeekdayBucket struct {
	Weekday string  `json:"weekday"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Profit  float64 `json:"profit"`
	WinRate float64 `json:"win_rate"`
}

// DayBucket aggregates trades opened on one calendar date.
type DayBucket struct {
	Date       string  `json:"date"`
	Profit     float64 `json:"profit"`
	Cumulative float64 `json:"cumulative"`
	Trades     int     `json:"trades"`
	WinRate    float64 `json:"win_rate"`
}

// DayProfit names a weekday and its net profit.
type DayProfit struct {
	Day    string  `json:"day"`
	Profit float64 `json:"profit"`
}

// WeeklyStats covers the current Monday-aligned week.
type WeeklyStats struct {
	Period      string     `json:"period"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	TotalTrades int        `json:"total_trades"`
	NetProfit   float64    `json:"net_profit"`
	WinRate     float64    `json:"win_rate"`
	BestDay     *DayProfit `json:"best_day"`
	WorstDay    *DayProfit `json:"worst_day"`
}

// MonthlyStats covers the current calendar month to date.
type MonthlyStats struct {
	Period             string  `json:"period"`
	Month              string  `json:"month"`
	TotalTrades        int     `json:"total_trades"`
	NetProfit          float64 `json:"net_profit"`
	WinRate            float64 `json:"win_rate"`
	TradingDays        int     `json:"trading_days"`
	AverageDailyProfit float64 `json:"average_daily_profit"`
}

// Round2 rounds a reported value to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(wins) / float64(total) * 100)
}

// Summarize computes the dashboard statistics. Any trade with profit <= 0
// counts as a loss.
func (e *Engine) Summarize(trades []models.Trade) Summary {
	if len(trades) == 0 {
		return Summary{}
	}

	var (
		wins, losses       int
		sumWins, sumLosses float64
		net                float64
		durTotal, durCount int
	)
	best, worst := math.Inf(-1), math.Inf(1)
	days := make(map[string]struct{})

	for _, t := range trades {
		net += t.Profit
		if t.IsWin() {
			wins++
			sumWins += t.Profit
		} else {
			losses++
			sumLosses += t.Profit
		}
		best = math.Max(best, t.Profit)
		worst = math.Min(worst, t.Profit)
		if t.DurationMinutes != 0 {
			durTotal += t.DurationMinutes
			durCount++
		}
		days[t.OpenTime.In(e.loc()).Format(time.DateOnly)] = struct{}{}
	}

	s := Summary{
		TotalTrades:   len(trades),
		WinningTrades: wins,
		LosingTrades:  losses,
	}
	rate := float64(wins) / float64(len(trades)) * 100

	var avgWin, avgLoss float64
	if wins > 0 {
		avgWin = sumWins / float64(wins)
	}
	if losses > 0 {
		avgLoss = math.Abs(sumLosses) / float64(losses)
	}
	totalLoss := math.Abs(sumLosses)

	var pf float64
	if totalLoss > 0 {
		pf = sumWins / totalLoss
	}

	s.WinRate = Round2(rate)
	s.TotalProfit = Round2(sumWins)
	s.TotalLoss = Round2(totalLoss)
	s.NetProfit = Round2(net)
	s.AverageWin = Round2(avgWin)
	s.AverageLoss = Round2(avgLoss)
	s.ProfitFactor = Round2(pf)
	s.BestTrade = Round2(best)
	s.WorstTrade = Round2(worst)
	if durCount > 0 {
		s.AverageDuration = int(math.Round(float64(durTotal) / float64(durCount)))
	}
	s.MaxWinStreak, s.MaxLossStreak = Streaks(trades)

	s.SuggestedDailyLoss = fallbackDailyLoss
	if avgLoss > 0 {
		s.SuggestedDailyLoss = Round2(avgLoss * 2)
	}
	s.SuggestedDailyGain = fallbackDailyGain
	if avgWin > 0 {
		tradesPerDay := float64(len(trades)) / float64(max(1, len(days)))
		s.SuggestedDailyGain = Round2(avgWin * tradesPerDay * rate / 100)
	}

	s.Hourly = e.Hourly(trades)
	s.Symbols = e.Symbols(trades)
	s.Weekdays = e.Weekdays(trades)
	return s
}

// Streaks returns the longest runs of consecutive wins and losses, walking
// trades by open time. Trades opened at the same instant are ordered losses
// first so the result depends only on the (time, outcome) pairs.
func Streaks(trades []models.Trade) (maxWin, maxLoss int) {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.OpenTime.Equal(b.OpenTime) {
			return a.OpenTime.Before(b.OpenTime)
		}
		return !a.IsWin() && b.IsWin()
	})

	run := 0
	for i, t := range sorted {
		if i > 0 && t.IsWin() == sorted[i-1].IsWin() {
			run++
		} else {
			run = 1
		}
		if t.IsWin() {
			maxWin = max(maxWin, run)
		} else {
			maxLoss = max(maxLoss, run)
		}
	}
	return maxWin, maxLoss
}

// Hourly returns all 24 hour-of-day buckets, empty ones included.
func (e *Engine) Hourly(trades []models.Trade) []HourBucket {
	buckets := make([]HourBucket, 24)
	for h := range buckets {
		buckets[h] = HourBucket{Hour: h, HourLabel: fmt.Sprintf("%02d:00", h)}
	}
	for _, t := range trades {
		b := &buckets[t.OpenTime.In(e.loc()).Hour()]
		b.Trades++
		b.Profit += t.Profit
		if t.IsWin() {
			b.Wins++
		}
	}
	for h := range buckets {
		buckets[h].Profit = Round2(buckets[h].Profit)
		buckets[h].WinRate = winRate(buckets[h].Wins, buckets[h].Trades)
	}
	return buckets
}

// Symbols groups by symbol, most profitable first.
func (e *Engine) Symbols(trades []models.Trade) []SymbolBucket {
	index := make(map[string]int)
	var buckets []SymbolBucket
	for _, t := range trades {
		i, ok := index[t.Symbol]
		if !ok {
			i = len(buckets)
			index[t.Symbol] = i
			buckets = append(buckets, SymbolBucket{Symbol: t.Symbol})
		}
		buckets[i].Trades++
		buckets[i].Profit += t.Profit
		if t.IsWin() {
			buckets[i].Wins++
		}
	}
	for i := range buckets {
		b := &buckets[i]
		b.AverageProfit = Round2(b.Profit / float64(b.Trades))
		b.Profit = Round2(b.Profit)
		b.WinRate = winRate(b.Wins, b.Trades)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Profit != buckets[j].Profit {
			return buckets[i].Profit > buckets[j].Profit
		}
		return buckets[i].Symbol < buckets[j].Symbol
	})
	return buckets
}

// Weekdays returns Monday through Sunday buckets.
func (e *Engine) Weekdays(trades []models.Trade) []WeekdayBucket {
	buckets := make([]WeekdayBucket, 7)
	for i := range buckets {
		buckets[i].Weekday = weekdayName(i)
	}
	for _, t := range trades {
		b := &buckets[mondayIndex(t.OpenTime.In(e.loc()).Weekday())]
		b.Trades++
		b.Profit += t.Profit
		if t.IsWin() {
			b.Wins++
		}
	}
	for i := range buckets {
		buckets[i].Profit = Round2(buckets[i].Profit)
		buckets[i].WinRate = winRate(buckets[i].Wins, buckets[i].Trades)
	}
	return buckets
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func weekdayName(mondayIdx int) string {
	return time.Weekday((mondayIdx + 1) % 7).String()
}

// Daily returns one bucket per calendar date over the last days days, oldest
// first, with a running cumulative profit.
func (e *Engine) Daily(trades []models.Trade, days int) []DayBucket {
	since := e.now().AddDate(0, 0, -days)

	type acc struct {
		profit       float64
		trades, wins int
	}
	byDay := make(map[string]*acc)
	for _, t := range trades {
		if t.OpenTime.Before(since) {
			continue
		}
		key := t.OpenTime.In(e.loc()).Format(time.DateOnly)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.profit += t.Profit
		a.trades++
		if t.IsWin() {
			a.wins++
		}
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DayBucket, 0, len(keys))
	var cumulative float64
	for _, k := range keys {
		a := byDay[k]
		cumulative += a.profit
		out = append(out, DayBucket{
			Date:       k,
			Profit:     Round2(a.profit),
			Cumulative: Round2(cumulative),
			Trades:     a.trades,
			WinRate:    winRate(a.wins, a.trades),
		})
	}
	return out
}

// Weekly summarizes the current week, starting Monday 00:00.
func (e *Engine) Weekly(trades []models.Trade) WeeklyStats {
	now := e.now()
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, e.loc()).AddDate(0, 0, -mondayIndex(now.Weekday()))

	stats := WeeklyStats{
		Period:    "Current Week",
		StartDate: start.Format(time.DateOnly),
		EndDate:   now.Format(time.DateOnly),
	}

	var perDay [7]float64
	var seen [7]bool
	var wins int
	var net float64
	for _, t := range trades {
		if t.OpenTime.Before(start) {
			continue
		}
		stats.TotalTrades++
		net += t.Profit
		if t.IsWin() {
			wins++
		}
		i := mondayIndex(t.OpenTime.In(e.loc()).Weekday())
		perDay[i] += t.Profit
		seen[i] = true
	}
	if stats.TotalTrades == 0 {
		return stats
	}

	stats.NetProfit = Round2(net)
	stats.WinRate = winRate(wins, stats.TotalTrades)
	best, worst := -1, -1
	for i := 0; i < 7; i++ {
		if !seen[i] {
			continue
		}
		if best < 0 || perDay[i] > perDay[best] {
			best = i
		}
		if worst < 0 || perDay[i] < perDay[worst] {
			worst = i
		}
	}
	stats.BestDay = &DayProfit{Day: weekdayName(best), Profit: Round2(perDay[best])}
	stats.WorstDay = &DayProfit{Day: weekdayName(worst), Profit: Round2(perDay[worst])}
	return stats
}

// Monthly summarizes the current calendar month to date.
func (e *Engine) Monthly(trades []models.Trade) MonthlyStats {
	now := e.now()
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, e.loc())

	stats := MonthlyStats{
		Period: "Current Month",
		Month:  now.Format("January 2006"),
	}

	var wins int
	var net float64
	days := make(map[string]struct{})
	for _, t := range trades {
		if t.OpenTime.Before(start) {
			continue
		}
		stats.TotalTrades++
		net += t.Profit
		if t.IsWin() {
			wins++
		}
		days[t.OpenTime.In(e.loc()).Format(time.DateOnly)] = struct{}{}
	}
	if stats.TotalTrades == 0 {
		return stats
	}

	stats.NetProfit = Round2(net)
	stats.WinRate = winRate(wins, stats.TotalTrades)
	stats.TradingDays = len(days)
	stats.AverageDailyProfit = Round2(net / float64(len(days)))
	return stats
}
