package api

import (
	"net/http"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	minDailyWindow = 7
	maxDailyWindow = 365
)

// AnalyticsHandler serves the dashboard aggregations.
type AnalyticsHandler struct {
	Store     store.TradeStore
	Engine    *analytics.Engine
	UserID    uint
	DailyDays int
	Logger    *zap.Logger
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/analytics")
	g.GET("/dashboard", h.dashboard)
	g.GET("/hourly-performance", h.hourly)
	g.GET("/symbol-performance", h.symbols)
	g.GET("/weekday-performance", h.weekdays)
	g.GET("/daily-performance", h.daily)
	g.GET("/weekly-stats", h.weekly)
	g.GET("/monthly-stats", h.monthly)
}

func (h *AnalyticsHandler) trades(c *gin.Context, f store.Filter) ([]models.Trade, bool) {
	trades, err := h.Store.List(c.Request.Context(), h.UserID, f)
	if err != nil {
		h.Logger.Error("Failed to load trades for analytics", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to load trades")
		return nil, false
	}
	return trades, true
}

func (h *AnalyticsHandler) dashboard(c *gin.Context) {
	from, to, ok := dateRange(c, h.Engine.Location)
	if !ok {
		return
	}
	trades, ok := h.trades(c, store.Filter{From: from, To: to})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.Summarize(trades))
}

func (h *AnalyticsHandler) hourly(c *gin.Context) {
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Hourly(trades))
	}
}

func (h *AnalyticsHandler) symbols(c *gin.Context) {
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Symbols(trades))
	}
}

func (h *AnalyticsHandler) weekdays(c *gin.Context) {
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Weekdays(trades))
	}
}

func (h *AnalyticsHandler) daily(c *gin.Context) {
	def := h.DailyDays
	if def == 0 {
		def = 30
	}
	days, ok := intQuery(c, "days", def)
	if !ok || days < minDailyWindow || days > maxDailyWindow {
		Error(c, http.StatusBadRequest, "days must be between 7 and 365")
		return
	}
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Daily(trades, days))
	}
}

func (h *AnalyticsHandler) weekly(c *gin.Context) {
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Weekly(trades))
	}
}

func (h *AnalyticsHandler) monthly(c *gin.Context) {
	if trades, ok := h.trades(c, store.Filter{}); ok {
		c.JSON(http.StatusOK, h.Engine.Monthly(trades))
	}
}
