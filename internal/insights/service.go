package insights

import (
	"context"
	"fmt"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

const (
	notConfiguredReply = "The AI assistant is not configured. Set an OpenAI or Anthropic API key to enable the chat."
	unavailableReply   = "The AI assistant could not answer right now. Please try again later."
)

// Report is the response of a full insight run.
type Report struct {
	HasData        bool      `json:"has_data"`
	Message        string    `json:"message,omitempty"`
	TradesAnalyzed int       `json:"trades_analyzed"`
	GeneratedAt    time.Time `json:"generated_at"`
	Source         string    `json:"source,omitempty"`
	Insights       []Insight `json:"insights"`
}

// QuickReport is the response of a rules-only run.
type QuickReport struct {
	TradesAnalyzed int       `json:"trades_analyzed"`
	InsightsCount  int       `json:"insights_count"`
	Message        string    `json:"message,omitempty"`
	Insights       []Insight `json:"insights"`
}

// Service generates insights and answers chat questions over a trade set.
type Service struct {
	engine     *analytics.Engine
	chain      *Chain
	rules      Rules
	completers []Completer
	minTrades  int
	chatTokens int64
	logger     *zap.Logger
	now        func() time.Time
}

// Completers returns the configured completion services in fallback order.
func Completers(cfg config.AI) []Completer {
	var out []Completer
	if c := NewOpenAICompleter(cfg); c != nil {
		out = append(out, c)
	}
	if c := NewAnthropicCompleter(cfg); c != nil {
		out = append(out, c)
	}
	return out
}

// NewService creates a new Service from the application config.
func NewService(cfg *config.Config, engine *analytics.Engine, logger *zap.Logger) *Service {
	rules := Rules{
		LossStreakThreshold: cfg.Insights.LossStreakThreshold,
		SymbolMinTrades:     cfg.Insights.SymbolMinTrades,
	}
	return newService(engine, rules, cfg.Insights.MinTrades, Completers(cfg.AI), cfg.AI, logger)
}

func newService(engine *analytics.Engine, rules Rules, minTrades int, completers []Completer, ai config.AI, logger *zap.Logger) *Service {
	defaults := DefaultRules()
	if rules.LossStreakThreshold <= 0 {
		rules.LossStreakThreshold = defaults.LossStreakThreshold
	}
	if rules.SymbolMinTrades <= 0 {
		rules.SymbolMinTrades = defaults.SymbolMinTrades
	}

	providers := make([]Provider, 0, len(completers))
	for _, c := range completers {
		providers = append(providers, LLMProvider{Completer: c, MaxTokens: ai.MaxTokens})
	}

	return &Service{
		engine:     engine,
		chain:      NewChain(rules, logger, providers...),
		rules:      rules,
		completers: completers,
		minTrades:  minTrades,
		chatTokens: ai.ChatMaxTokens,
		logger:     logger.Named("insights"),
		now:        time.Now,
	}
}

// Generate runs the provider chain over trades.
func (s *Service) Generate(ctx context.Context, trades []models.Trade) Report {
	if len(trades) == 0 {
		return Report{
			HasData:  false,
			Message:  "No trades found. Import your trades to receive insights.",
			Insights: []Insight{},
		}
	}

	report := Report{
		HasData:        true,
		TradesAnalyzed: len(trades),
		GeneratedAt:    s.now().UTC(),
	}

	if len(trades) < s.minTrades {
		report.Source = RuleProvider{}.Name()
		report.Insights = []Insight{{
			Severity: SeverityInfo,
			Category: CategoryGeneral,
			Title:    "More data needed",
			Description: fmt.Sprintf("You only have %d trades. For a reliable analysis we recommend at least 30.",
				len(trades)),
			Action: "Keep recording your trades to unlock detailed insights.",
		}}
		return report
	}

	summary := s.engine.Summarize(trades)
	report.Insights, report.Source = s.chain.Run(ctx, summary)
	s.logger.Info("Insights generated",
		zap.String("source", report.Source),
		zap.Int("trades", len(trades)),
		zap.Int("insights", len(report.Insights)))
	return report
}

// QuickAnalysis evaluates the rule battery only.
func (s *Service) QuickAnalysis(trades []models.Trade) QuickReport {
	if len(trades) == 0 {
		return QuickReport{Message: "No trades to analyze", Insights: []Insight{}}
	}
	insights := s.rules.Evaluate(s.engine.Summarize(trades))
	return QuickReport{
		TradesAnalyzed: len(trades),
		InsightsCount:  len(insights),
		Insights:       insights,
	}
}

// Chat answers a free-form question using the first completer that responds.
func (s *Service) Chat(ctx context.Context, message string, trades []models.Trade) string {
	if len(s.completers) == 0 {
		return notConfiguredReply
	}

	req := CompletionRequest{
		System:    chatSystemPrompt,
		Prompt:    chatPrompt(message, s.engine.Summarize(trades)),
		MaxTokens: s.chatTokens,
	}
	for _, c := range s.completers {
		reply, err := c.Complete(ctx, req)
		if err != nil {
			s.logger.Warn("Chat completion failed", zap.String("provider", c.Name()), zap.Error(err))
			continue
		}
		if reply != "" {
			return reply
		}
	}
	return unavailableReply
}

// Configured reports whether any completion service is available.
func (s *Service) Configured() bool {
	return len(s.completers) > 0
}
