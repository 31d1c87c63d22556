package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/syncer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Signature"

// ClientFactory builds a MetaAPI client for one request.
type ClientFactory func(cfg config.MetaAPI) metaapi.ClientInterface

// IntegrationHandler serves the broker bridge and alert webhook endpoints.
type IntegrationHandler struct {
	Importer       *feeds.Importer
	Syncer         *syncer.Engine
	MetaAPI        config.MetaAPI
	NewClient      ClientFactory
	WebhookSecret  string
	Location       *time.Location
	UserID         uint
	MaxUploadBytes int64
	Now            func() time.Time
	Logger         *zap.Logger
}

func (h *IntegrationHandler) Register(r *gin.Engine) {
	g := r.Group("/api/integrations")

	g.POST("/mt5/connect", h.mt5Connect)
	g.GET("/mt5/status", h.mt5Status)
	g.POST("/mt5/sync", h.mt5Sync)

	g.GET("/metaapi/setup", h.metaAPISetup)
	g.POST("/metaapi/test", h.metaAPITest)
	g.POST("/metaapi/sync", h.metaAPISync)
	g.GET("/metaapi/sync-status", h.metaAPISyncStatus)
	g.GET("/metaapi/account-info", h.metaAPIAccountInfo)

	g.POST("/tradingview/webhook", h.tradingViewWebhook)
	g.GET("/tradingview/setup", h.tradingViewSetup)
	g.POST("/tradingview/import-report", h.tradingViewImportReport)
}

func (h *IntegrationHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type syncResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	BatchID   string `json:"batch_id,omitempty"`
	Imported  int    `json:"trades_imported"`
	Skipped   int    `json:"trades_skipped"`
	Found     int    `json:"total_found"`
	Unmatched int    `json:"unmatched,omitempty"`
	Account   any    `json:"account,omitempty"`
}

type reportResponse struct {
	syncResponse
	SkippedRows []ingest.RowError `json:"skipped_rows"`
}

func newSyncResponse(report feeds.ImportReport) syncResponse {
	msg := "Sync completed"
	if report.Found == 0 {
		msg = "No trades found in the period"
	}
	return syncResponse{
		Success:  true,
		Message:  msg,
		BatchID:  report.BatchID,
		Imported: report.Imported,
		Skipped:  report.Skipped,
		Found:    report.Found,
	}
}

// ==================== MetaTrader 5 ====================

type mt5Credentials struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

func (h *IntegrationHandler) mt5Connect(c *gin.Context) {
	var creds mt5Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	status := feeds.MT5Status()
	c.JSON(http.StatusOK, gin.H{
		"connected":     status.Connected,
		"message":       status.Message,
		"alternatives":  status.Alternatives,
		"platform_info": "Use the CSV upload or a deal dump to import your trades.",
		"server":        creds.Server,
	})
}

func (h *IntegrationHandler) mt5Status(c *gin.Context) {
	status := feeds.MT5Status()
	c.JSON(http.StatusOK, gin.H{"connected": status.Connected, "platform": status.Platform})
}

func (h *IntegrationHandler) readBody(c *gin.Context) ([]byte, bool) {
	body := c.Request.Body
	if h.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.MaxUploadBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, "request body is too large")
			return nil, false
		}
		Error(c, http.StatusBadRequest, "could not read request body")
		return nil, false
	}
	return raw, true
}

// mt5Sync imports a JSON dump of terminal deals.
func (h *IntegrationHandler) mt5Sync(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	deals, err := feeds.ParseMT5Dump(raw)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	ledger := feeds.ReduceMT5(h.UserID, deals)

	report, err := h.Importer.Import(c.Request.Context(), h.UserID, ledger.Completed)
	if err != nil {
		h.Logger.Error("Failed to import MT5 deals", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to store trades")
		return
	}
	resp := newSyncResponse(report)
	resp.Unmatched = len(ledger.Open)
	c.JSON(http.StatusOK, resp)
}

// ==================== MetaAPI ====================

// client returns a client for the credentials given in the query, falling
// back to the configured account.
func (h *IntegrationHandler) client(c *gin.Context) metaapi.ClientInterface {
	cfg := h.MetaAPI
	if v := strings.TrimSpace(c.Query("api_token")); v != "" {
		cfg.APIToken = v
	}
	if v := strings.TrimSpace(c.Query("account_id")); v != "" {
		cfg.AccountID = v
	}
	return h.NewClient(cfg)
}

func (h *IntegrationHandler) metaAPISetup(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "MetaAPI",
		"website":   "https://metaapi.cloud",
		"free_plan": true,
		"steps": []gin.H{
			{"step": 1, "title": "Create a MetaAPI account", "description": "Sign up for a free account at metaapi.cloud"},
			{"step": 2, "title": "Add your MT5 account", "description": "In the MetaAPI dashboard click 'Add Account' and enter your MT5 credentials"},
			{"step": 3, "title": "Wait for deployment", "description": "MetaAPI connects to your account, which takes a few minutes"},
			{"step": 4, "title": "Copy the credentials", "description": "Copy the API token from the settings and the account ID from the account list"},
			{"step": 5, "title": "Sync", "description": "Paste the credentials here and start a sync"},
		},
		"note": "The free plan allows one MT4/MT5 account.",
	})
}

func (h *IntegrationHandler) metaAPITest(c *gin.Context) {
	client := h.client(c)
	defer client.Close()
	c.JSON(http.StatusOK, client.TestConnection(c.Request.Context()))
}

func (h *IntegrationHandler) metaAPISync(c *gin.Context) {
	days, ok := intQuery(c, "days", 30)
	if !ok || days < 1 || days > maxDailyWindow {
		Error(c, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	client := h.client(c)
	defer client.Close()

	ctx := c.Request.Context()
	status := client.TestConnection(ctx)
	if !status.Success {
		c.JSON(http.StatusOK, syncResponse{Success: false, Message: status.Message})
		return
	}

	report, err := h.Syncer.SyncWith(ctx, client, days)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		Error(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.Logger.Warn("MetaAPI sync failed", zap.Error(err))
		c.JSON(http.StatusOK, syncResponse{Success: false, Message: metaapi.DescribeError(err)})
		return
	}

	resp := newSyncResponse(report)
	if status.Account != nil {
		resp.Account = status.Account
	}
	c.JSON(http.StatusOK, resp)
}

func (h *IntegrationHandler) metaAPISyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Syncer.Status())
}

func (h *IntegrationHandler) metaAPIAccountInfo(c *gin.Context) {
	client := h.client(c)
	defer client.Close()

	info, err := client.AccountInformation(c.Request.Context())
	if err != nil {
		h.Logger.Warn("MetaAPI account information failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": metaapi.DescribeError(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account": info})
}

// ==================== TradingView ====================

func (h *IntegrationHandler) tradingViewWebhook(c *gin.Context) {
	raw, ok := h.readBody(c)
	if !ok {
		return
	}
	if err := feeds.VerifySignature(h.WebhookSecret, raw, c.GetHeader(SignatureHeader)); err != nil {
		h.Logger.Warn("Rejected webhook with bad signature", zap.String("remote", c.ClientIP()))
		Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	var payload feeds.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		Error(c, http.StatusBadRequest, "invalid webhook payload: "+err.Error())
		return
	}

	trade := feeds.MapWebhook(h.UserID, payload, h.now())
	report, err := h.Importer.Import(c.Request.Context(), h.UserID, []models.Trade{trade})
	if err != nil {
		h.Logger.Error("Failed to store webhook trade", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to store trade")
		return
	}
	if report.Imported == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Duplicate alert ignored", "external_id": trade.ExternalID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Trade recorded from TradingView", "external_id": trade.ExternalID})
}

func (h *IntegrationHandler) tradingViewSetup(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"webhook_url":      "/api/integrations/tradingview/webhook",
		"alert_message":    feeds.AlertTemplate,
		"signature_header": SignatureHeader,
		"signed":           h.WebhookSecret != "",
		"instructions": []string{
			"Open the alerts panel in TradingView and create a new alert",
			"Set the webhook URL to https://<your-host>/api/integrations/tradingview/webhook",
			"Paste the alert message template into the message field",
		},
		"example_payload": gin.H{
			"symbol":  "WINZ24",
			"type":    "BUY",
			"price":   128500,
			"volume":  1,
			"message": "Entry signal",
		},
	})
}

func (h *IntegrationHandler) tradingViewImportReport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		Error(c, http.StatusBadRequest, "a file upload is required")
		return
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		Error(c, http.StatusBadRequest, "could not open uploaded file")
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		Error(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	symbol := c.PostForm("symbol")
	if symbol == "" {
		symbol = c.Query("symbol")
	}
	result, err := feeds.ParseStrategyReport(h.UserID, raw, symbol, h.Location)
	if err != nil {
		Error(c, http.StatusBadRequest, fmt.Sprintf("failed to process report: %v", err))
		return
	}

	report, err := h.Importer.Import(c.Request.Context(), h.UserID, result.Trades)
	if err != nil {
		h.Logger.Error("Failed to import strategy report", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to store trades")
		return
	}
	resp := reportResponse{syncResponse: newSyncResponse(report), SkippedRows: result.Skipped}
	resp.Unmatched = result.Unmatched
	if resp.SkippedRows == nil {
		resp.SkippedRows = []ingest.RowError{}
	}
	c.JSON(http.StatusOK, resp)
}
