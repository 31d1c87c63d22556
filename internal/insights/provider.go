package insights

import (
	"context"
	"fmt"

	"trade-journal-go/internal/analytics"

	"go.uber.org/zap"
)

// CompletionRequest is a single system+user prompt exchange.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// Completer sends a prompt to a text-completion service.
type Completer interface {
	// Name returns the provider tag reported with generated insights.
	Name() string

	// Complete returns the raw text of the first completion.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Provider produces insights for a summary.
type Provider interface {
	Name() string
	Insights(ctx context.Context, s analytics.Summary) ([]Insight, error)
}

// RuleProvider wraps the deterministic battery. It never fails.
type RuleProvider struct {
	Rules Rules
}

// Name returns "rules".
func (p RuleProvider) Name() string { return "rules" }

// Insights evaluates the rule battery against s.
func (p RuleProvider) Insights(_ context.Context, s analytics.Summary) ([]Insight, error) {
	return p.Rules.Evaluate(s), nil
}

// LLMProvider asks a completer for insights and parses the JSON array it returns.
type LLMProvider struct {
	Completer Completer
	MaxTokens int64
}

// Name returns the name of the wrapped completer.
func (p LLMProvider) Name() string { return p.Completer.Name() }

// Insights prompts the completer with s and parses the reply. An empty or
// malformed reply is an error so the chain can move on.
func (p LLMProvider) Insights(ctx context.Context, s analytics.Summary) ([]Insight, error) {
	content, err := p.Completer.Complete(ctx, CompletionRequest{
		System:    insightsSystemPrompt,
		Prompt:    insightsPrompt(s),
		MaxTokens: p.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.Completer.Name(), err)
	}
	insights, err := ParseInsights(content)
	if err != nil {
		return nil, fmt.Errorf("%s response rejected: %w", p.Completer.Name(), err)
	}
	return insights, nil
}

// Chain tries providers in order and returns the first non-empty result.
type Chain struct {
	providers []Provider
	fallback  RuleProvider
	logger    *zap.Logger
}

// NewChain builds a chain ending in the rule battery.
func NewChain(rules Rules, logger *zap.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		fallback:  RuleProvider{Rules: rules},
		logger:    logger.Named("insights"),
	}
}

// Run returns the insights and the name of the provider that produced them.
func (c *Chain) Run(ctx context.Context, s analytics.Summary) ([]Insight, string) {
	for _, p := range c.providers {
		insights, err := p.Insights(ctx, s)
		if err != nil {
			c.logger.Warn("Insight provider failed, trying next", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if len(insights) == 0 {
			c.logger.Warn("Insight provider returned nothing, trying next", zap.String("provider", p.Name()))
			continue
		}
		return insights, p.Name()
	}
	insights, _ := c.fallback.Insights(ctx, s)
	return insights, c.fallback.Name()
}
