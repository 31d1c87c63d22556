package api

import (
	"net/http"
	"strings"
	"time"

	"trade-journal-go/internal/insights"
	"trade-journal-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AIHandler serves coaching insights and the chat assistant.
type AIHandler struct {
	Store    store.TradeStore
	Insights *insights.Service
	UserID   uint
	Logger   *zap.Logger
}

func (h *AIHandler) Register(r *gin.Engine) {
	g := r.Group("/api/ai")
	g.GET("/insights", h.insights)
	g.GET("/quick-analysis", h.quickAnalysis)
	g.POST("/chat", h.chat)
}

func (h *AIHandler) insights(c *gin.Context) {
	trades, err := h.Store.List(c.Request.Context(), h.UserID, store.Filter{})
	if err != nil {
		h.Logger.Error("Failed to load trades for insights", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to load trades")
		return
	}
	c.JSON(http.StatusOK, h.Insights.Generate(c.Request.Context(), trades))
}

func (h *AIHandler) quickAnalysis(c *gin.Context) {
	trades, err := h.Store.List(c.Request.Context(), h.UserID, store.Filter{})
	if err != nil {
		h.Logger.Error("Failed to load trades for analysis", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to load trades")
		return
	}
	c.JSON(http.StatusOK, h.Insights.QuickAnalysis(trades))
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *AIHandler) chat(c *gin.Context) {
	// The message may come as a query parameter or as a JSON body.
	message := c.Query("message")
	if message == "" && c.Request.ContentLength != 0 {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		message = req.Message
	}
	message = strings.TrimSpace(message)
	if message == "" {
		Error(c, http.StatusBadRequest, "message is required")
		return
	}

	trades, err := h.Store.List(c.Request.Context(), h.UserID, store.Filter{})
	if err != nil {
		h.Logger.Error("Failed to load trades for chat", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to load trades")
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Message:   message,
		Response:  h.Insights.Chat(c.Request.Context(), message, trades),
		Timestamp: time.Now().UTC(),
	})
}
