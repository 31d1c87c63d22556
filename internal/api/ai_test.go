package api

import (
	"net/http"
	"testing"
	"time"

	"trade-journal-go/internal/insights"
	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsightsEndpoint(t *testing.T) {
	env := setupRouter(t)

	t.Run("no trades", func(t *testing.T) {
		var report insights.Report
		decode(t, env.request(http.MethodGet, "/api/ai/insights", nil), &report)
		assert.False(t, report.HasData)
		assert.NotEmpty(t, report.Message)
	})

	t.Run("rule fallback without completion keys", func(t *testing.T) {
		start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
		for i := range 12 {
			profit := 50.0
			if i%2 == 0 {
				profit = -80
			}
			env.seed(t, models.Trade{Symbol: "WINJ24", Profit: profit, OpenTime: start.Add(time.Duration(i) * time.Hour)})
		}

		rec := env.request(http.MethodGet, "/api/ai/insights", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var report insights.Report
		decode(t, rec, &report)
		assert.True(t, report.HasData)
		assert.Equal(t, 12, report.TradesAnalyzed)
		assert.Equal(t, "rules", report.Source)
		require.NotEmpty(t, report.Insights)
		assert.Equal(t, insights.SeverityInfo, report.Insights[len(report.Insights)-1].Severity)
	})
}

func TestQuickAnalysisEndpoint(t *testing.T) {
	env := setupRouter(t)
	env.seed(t, models.Trade{Symbol: "EURUSD", Profit: 10, OpenTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)})

	rec := env.request(http.MethodGet, "/api/ai/quick-analysis", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var report insights.QuickReport
	decode(t, rec, &report)
	assert.Equal(t, 1, report.TradesAnalyzed)
	assert.Equal(t, len(report.Insights), report.InsightsCount)
}

func TestChatEndpoint(t *testing.T) {
	env := setupRouter(t)

	t.Run("query parameter", func(t *testing.T) {
		rec := env.request(http.MethodPost, "/api/ai/chat?message=How+am+I+doing", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		decode(t, rec, &resp)
		assert.Equal(t, "How am I doing", resp.Message)
		assert.Contains(t, resp.Response, "not configured")
		assert.False(t, resp.Timestamp.IsZero())
	})

	t.Run("json body", func(t *testing.T) {
		rec := env.request(http.MethodPost, "/api/ai/chat", map[string]string{"message": "Best hour?"})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Best hour?", resp.Message)
	})

	t.Run("missing message", func(t *testing.T) {
		rec := env.request(http.MethodPost, "/api/ai/chat", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
