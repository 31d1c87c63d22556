package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// TradeHandler serves trade listing, manual entry and CSV import.
type TradeHandler struct {
	Store          store.TradeStore
	Pipeline       *ingest.Pipeline
	Importer       *feeds.Importer
	Location       *time.Location
	UserID         uint
	MaxUploadBytes int64
	Logger         *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/trades")
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("", h.deleteAll)
	g.POST("/upload-csv", h.uploadCSV)
	g.GET("/template", h.template)
	g.GET("/export", h.export)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

type tradeListResponse struct {
	Trades []models.Trade `json:"trades"`
	Total  int64          `json:"total"`
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
}

func (h *TradeHandler) list(c *gin.Context) {
	skip, ok := intQuery(c, "skip", 0)
	if !ok || skip < 0 {
		Error(c, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, ok := intQuery(c, "limit", defaultPageSize)
	if !ok || limit < 1 || limit > maxPageSize {
		Error(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}
	from, to, ok := dateRange(c, h.Location)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	trades, err := h.Store.List(ctx, h.UserID, store.Filter{
		Symbol: strings.ToUpper(strings.TrimSpace(c.Query("symbol"))),
		From:   from,
		To:     to,
		Offset: skip,
		Limit:  limit,
	})
	if err != nil {
		h.Logger.Error("Failed to list trades", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to list trades")
		return
	}
	total, err := h.Store.Count(ctx, h.UserID)
	if err != nil {
		h.Logger.Error("Failed to count trades", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to count trades")
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	c.JSON(http.StatusOK, tradeListResponse{Trades: trades, Total: total, Skip: skip, Limit: limit})
}

type createTradeRequest struct {
	Symbol          string     `json:"symbol" binding:"required"`
	TradeType       string     `json:"trade_type"`
	Volume          float64    `json:"volume"`
	EntryPrice      float64    `json:"entry_price"`
	ExitPrice       *float64   `json:"exit_price"`
	StopLoss        *float64   `json:"stop_loss"`
	TakeProfit      *float64   `json:"take_profit"`
	Profit          float64    `json:"profit"`
	ProfitPips      float64    `json:"profit_pips"`
	Commission      float64    `json:"commission"`
	Swap            float64    `json:"swap"`
	OpenTime        time.Time  `json:"open_time" binding:"required"`
	CloseTime       *time.Time `json:"close_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Source          string     `json:"source"`
	ExternalID      string     `json:"external_id"`
	Notes           string     `json:"notes"`
}

func (r createTradeRequest) toTrade(userID uint) (models.Trade, error) {
	volume := r.Volume
	if volume == 0 {
		volume = 1
	}
	source := models.Source(strings.ToUpper(strings.TrimSpace(r.Source)))
	if source == "" {
		source = models.SourceManual
	}
	if !source.Valid() {
		return models.Trade{}, fmt.Errorf("unknown source %q", r.Source)
	}
	duration := max(r.DurationMinutes, 0)
	if duration == 0 && r.CloseTime != nil {
		duration = models.DurationBetween(r.OpenTime, *r.CloseTime)
	}
	return models.Trade{
		UserID:          userID,
		Symbol:          strings.ToUpper(strings.TrimSpace(r.Symbol)),
		TradeType:       models.ParseTradeType(r.TradeType),
		Volume:          volume,
		EntryPrice:      r.EntryPrice,
		ExitPrice:       r.ExitPrice,
		StopLoss:        r.StopLoss,
		TakeProfit:      r.TakeProfit,
		Profit:          r.Profit,
		ProfitPips:      r.ProfitPips,
		Commission:      r.Commission,
		Swap:            r.Swap,
		OpenTime:        r.OpenTime,
		CloseTime:       r.CloseTime,
		DurationMinutes: duration,
		Source:          source,
		ExternalID:      models.StringPtr(strings.TrimSpace(r.ExternalID)),
		Notes:           r.Notes,
	}, nil
}

func (h *TradeHandler) create(c *gin.Context) {
	var req createTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		Error(c, http.StatusBadRequest, "symbol is required")
		return
	}

	trade, err := req.toTrade(h.UserID)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.Create(c.Request.Context(), &trade); err != nil {
		h.Logger.Error("Failed to create trade", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to create trade")
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (h *TradeHandler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	trade, err := h.Store.Get(c.Request.Context(), h.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		Error(c, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		h.Logger.Error("Failed to get trade", zap.Uint("id", id), zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to get trade")
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (h *TradeHandler) delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	err := h.Store.Delete(c.Request.Context(), h.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		Error(c, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		h.Logger.Error("Failed to delete trade", zap.Uint("id", id), zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trade deleted"})
}

func (h *TradeHandler) deleteAll(c *gin.Context) {
	if c.Query("confirm") != "true" {
		Error(c, http.StatusBadRequest, "confirm the deletion with ?confirm=true")
		return
	}
	n, err := h.Store.DeleteAll(c.Request.Context(), h.UserID)
	if err != nil {
		h.Logger.Error("Failed to delete trades", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to delete trades")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d trades deleted", n), "count": n})
}

type uploadResponse struct {
	Message  string                  `json:"message"`
	Count    int                     `json:"count"`
	BatchID  string                  `json:"batch_id"`
	Encoding string                  `json:"encoding"`
	Mapping  map[ingest.Field]string `json:"mapping"`
	Skipped  []ingest.RowError       `json:"skipped"`
}

// readUpload returns the bytes of the multipart "file" field.
func (h *TradeHandler) readUpload(c *gin.Context, ext string) ([]byte, string, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		Error(c, http.StatusBadRequest, "a file upload is required")
		return nil, "", false
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ext) {
		Error(c, http.StatusBadRequest, "file must be a "+strings.ToUpper(strings.TrimPrefix(ext, ".")))
		return nil, "", false
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file is too large")
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		Error(c, http.StatusBadRequest, "could not open uploaded file")
		return nil, "", false
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		Error(c, http.StatusBadRequest, "could not read uploaded file")
		return nil, "", false
	}
	return raw, fh.Filename, true
}

func (h *TradeHandler) uploadCSV(c *gin.Context) {
	raw, name, ok := h.readUpload(c, ".csv")
	if !ok {
		return
	}

	result, err := h.Pipeline.Parse(raw)
	if err != nil {
		h.Logger.Info("CSV import rejected", zap.String("file", name), zap.Error(err))
		Error(c, http.StatusBadRequest, "failed to process CSV: "+err.Error())
		return
	}
	for i := range result.Trades {
		result.Trades[i].UserID = h.UserID
	}

	report, err := h.Importer.Import(c.Request.Context(), h.UserID, result.Trades)
	if err != nil {
		h.Logger.Error("Failed to store imported trades", zap.String("file", name), zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to store imported trades")
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []ingest.RowError{}
	}
	c.JSON(http.StatusOK, uploadResponse{
		Message:  fmt.Sprintf("%d trades imported successfully", report.Imported),
		Count:    report.Imported,
		BatchID:  report.BatchID,
		Encoding: result.Encoding,
		Mapping:  result.Mapping,
		Skipped:  skipped,
	})
}

func (h *TradeHandler) template(c *gin.Context) {
	body, err := ingest.SampleTemplate()
	if err != nil {
		h.Logger.Error("Failed to render template", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to render template")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trades_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}

func (h *TradeHandler) export(c *gin.Context) {
	from, to, ok := dateRange(c, h.Location)
	if !ok {
		return
	}
	trades, err := h.Store.List(c.Request.Context(), h.UserID, store.Filter{From: from, To: to})
	if err != nil {
		h.Logger.Error("Failed to list trades for export", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to export trades")
		return
	}
	body, err := ingest.ExportCSV(trades, h.Location)
	if err != nil {
		h.Logger.Error("Failed to render export", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to export trades")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trades_export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}
