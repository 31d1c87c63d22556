package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCompleter is a mock implementation of the Completer interface.
type MockCompleter struct {
	mock.Mock
	name string
}

func (m *MockCompleter) Name() string { return m.name }

func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const llmResponse = "```json\n" + `[{"type":"success","category":"timing","title":"Morning edge","description":"You win before noon","action":"Trade mornings"}]` + "\n```"

var generatedAt = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

func testService(completers ...Completer) *Service {
	engine := &analytics.Engine{Location: time.UTC, Now: func() time.Time { return generatedAt }}
	s := newService(engine, DefaultRules(), 10, completers, config.AI{MaxTokens: 2000, ChatMaxTokens: 1000}, zap.NewNop())
	s.now = func() time.Time { return generatedAt }
	return s
}

func sampleTrades(n int) []models.Trade {
	trades := make([]models.Trade, n)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := range trades {
		profit := 100.0
		if i%3 == 0 {
			profit = -80
		}
		trades[i] = models.Trade{
			Symbol:    "WINJ24",
			TradeType: models.TradeTypeBuy,
			Profit:    profit,
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
		}
	}
	return trades
}

func TestGenerateWithoutTrades(t *testing.T) {
	report := testService().Generate(context.Background(), nil)

	assert.False(t, report.HasData)
	assert.NotEmpty(t, report.Message)
	assert.Empty(t, report.Insights)
}

func TestGenerateBelowMinimum(t *testing.T) {
	// Arrange
	completer := &MockCompleter{name: "openai"}

	// Act
	report := testService(completer).Generate(context.Background(), sampleTrades(4))

	// Assert
	assert.True(t, report.HasData)
	assert.Equal(t, 4, report.TradesAnalyzed)
	require.Len(t, report.Insights, 1)
	assert.Equal(t, SeverityInfo, report.Insights[0].Severity)
	assert.Contains(t, report.Insights[0].Description, "only have 4 trades")
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestGenerateUsesFirstWorkingProvider(t *testing.T) {
	// Arrange
	first := &MockCompleter{name: "openai"}
	first.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	second := &MockCompleter{name: "anthropic"}
	second.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return req.MaxTokens == 2000 && req.System == insightsSystemPrompt
	})).Return(llmResponse, nil)

	// Act
	report := testService(first, second).Generate(context.Background(), sampleTrades(12))

	// Assert
	assert.True(t, report.HasData)
	assert.Equal(t, 12, report.TradesAnalyzed)
	assert.Equal(t, generatedAt, report.GeneratedAt)
	assert.Equal(t, "anthropic", report.Source)
	require.Len(t, report.Insights, 1)
	assert.Equal(t, "Morning edge", report.Insights[0].Title)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestGenerateFallsBackToRules(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"transport failure", "", errors.New("timeout")},
		{"unparsable reply", "Sure! Here are some tips.", nil},
		{"empty array", "[]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &MockCompleter{name: "openai"}
			completer.On("Complete", mock.Anything, mock.Anything).Return(tt.reply, tt.err)

			report := testService(completer).Generate(context.Background(), sampleTrades(12))

			assert.Equal(t, "rules", report.Source)
			require.NotEmpty(t, report.Insights)
			assert.Equal(t, "Suggested limits", report.Insights[len(report.Insights)-1].Title)
		})
	}
}

func TestGenerateWithoutCompleters(t *testing.T) {
	report := testService().Generate(context.Background(), sampleTrades(12))

	assert.Equal(t, "rules", report.Source)
	assert.NotEmpty(t, report.Insights)
}

func TestQuickAnalysis(t *testing.T) {
	completer := &MockCompleter{name: "openai"}
	svc := testService(completer)

	empty := svc.QuickAnalysis(nil)
	assert.Zero(t, empty.TradesAnalyzed)
	assert.Equal(t, "No trades to analyze", empty.Message)

	report := svc.QuickAnalysis(sampleTrades(6))
	assert.Equal(t, 6, report.TradesAnalyzed)
	assert.Equal(t, len(report.Insights), report.InsightsCount)
	assert.NotEmpty(t, report.Insights)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChat(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := testService()
		assert.False(t, svc.Configured())
		assert.Equal(t, notConfiguredReply, svc.Chat(context.Background(), "How am I doing?", nil))
	})

	t.Run("answers with trade context", func(t *testing.T) {
		completer := &MockCompleter{name: "openai"}
		completer.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
			return req.System == chatSystemPrompt && req.MaxTokens == 1000
		})).Return("Trade less after losses.", nil)

		reply := testService(completer).Chat(context.Background(), "How am I doing?", sampleTrades(3))

		assert.Equal(t, "Trade less after losses.", reply)
		req := completer.Calls[0].Arguments.Get(1).(CompletionRequest)
		assert.Contains(t, req.Prompt, "Total trades: 3")
		assert.Contains(t, req.Prompt, "Question: How am I doing?")
	})

	t.Run("all providers failing", func(t *testing.T) {
		completer := &MockCompleter{name: "openai"}
		completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

		reply := testService(completer).Chat(context.Background(), "Hi", nil)

		assert.Equal(t, unavailableReply, reply)
	})
}

func TestCompletersFromConfig(t *testing.T) {
	assert.Empty(t, Completers(config.AI{}))

	got := Completers(config.AI{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "ak-test", OpenAIModel: "gpt-4o-mini"})
	require.Len(t, got, 2)
	assert.Equal(t, "openai", got[0].Name())
	assert.Equal(t, "anthropic", got[1].Name())
}
