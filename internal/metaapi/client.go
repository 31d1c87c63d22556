package metaapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trade-journal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const historyTimeLayout = "2006-01-02T15:04:05.000Z"

// ErrMissingCredentials is returned when the token or account id is empty.
var ErrMissingCredentials = errors.New("API token and account ID are required")

// APIError is a non-success HTTP response from MetaAPI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// ClientInterface defines the MetaAPI operations the journal relies on.
type ClientInterface interface {
	AccountStatus(ctx context.Context) (*Account, error)
	AccountInformation(ctx context.Context) (*AccountInformation, error)
	HistoryDeals(ctx context.Context, from, to time.Time) ([]Deal, error)
	TestConnection(ctx context.Context) Status
	Close()
}

// Client is a client for the MetaAPI cloud REST API.
// It implements the ClientInterface.
type Client struct {
	client      *resty.Client
	apiToken    string
	accountID   string
	maxAttempts int
	logger      *zap.Logger
	limiter     *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new MetaAPI client.
func NewClient(cfg *config.MetaAPI, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := max(cfg.RateLimitBurst, 1)

	return &Client{
		client:      client,
		apiToken:    cfg.APIToken,
		accountID:   cfg.AccountID,
		maxAttempts: max(cfg.MaxAttempts, 1),
		logger:      logger.Named("metaapi"),
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.client.GetClient().CloseIdleConnections()
}

// Account is the connection-status probe of a MetaAPI trading account.
type Account struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Login    string `json:"login"`
	Server   string `json:"server"`
	Platform string `json:"platform"`
	State    string `json:"state"`
}

// AccountInformation is the balance sheet of a trading account.
type AccountInformation struct {
	Name       string  `json:"name,omitempty"`
	Broker     string  `json:"broker,omitempty"`
	Platform   string  `json:"platform,omitempty"`
	Currency   string  `json:"currency"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"freeMargin"`
	Leverage   float64 `json:"leverage"`
}

// Deal is one history deal as returned by MetaAPI.
type Deal struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	EntryType  string  `json:"entryType"`
	PositionID string  `json:"positionId"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Profit     float64 `json:"profit"`
	Time       string  `json:"time"`
}

// Status is the uniform outcome of a connection probe.
type Status struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Account *Account `json:"account,omitempty"`
}

func (c *Client) accountPath(suffix string) string {
	return "/users/current/accounts/" + url.PathEscape(c.accountID) + suffix
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("auth-token", c.apiToken)
}

func (c *Client) checkCredentials() error {
	if c.apiToken == "" || c.accountID == "" {
		return ErrMissingCredentials
	}
	return nil
}

// AccountStatus fetches the account record.
func (c *Client) AccountStatus(ctx context.Context) (*Account, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	req := c.newRequest(ctx).SetResult(&Account{})

	resp, err := c.doRequest(ctx, http.MethodGet, c.accountPath(""), req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return resp.Result().(*Account), nil
}

// AccountInformation fetches balance, equity and margin figures.
func (c *Client) AccountInformation(ctx context.Context) (*AccountInformation, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	req := c.newRequest(ctx).SetResult(&AccountInformation{})

	resp, err := c.doRequest(ctx, http.MethodGet, c.accountPath("/account-information"), req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account information: %w", err)
	}
	return resp.Result().(*AccountInformation), nil
}

// HistoryDeals fetches the deals executed between from and to.
func (c *Client) HistoryDeals(ctx context.Context, from, to time.Time) ([]Deal, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	var deals []Deal
	req := c.newRequest(ctx).SetResult(&deals)

	path := c.accountPath(fmt.Sprintf("/history-deals/time/%s/%s",
		from.UTC().Format(historyTimeLayout), to.UTC().Format(historyTimeLayout)))
	resp, err := c.doRequest(ctx, http.MethodGet, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get history deals: %w", err)
	}

	result := resp.Result().(*[]Deal)
	c.logger.Debug("Fetched history deals", zap.Int("count", len(*result)))
	return *result, nil
}

// TestConnection probes the account and converts every failure into a
// Status with Success false.
func (c *Client) TestConnection(ctx context.Context) Status {
	account, err := c.AccountStatus(ctx)
	if err == nil {
		return Status{Success: true, Message: "Connected to MetaAPI", Account: account}
	}

	c.logger.Warn("MetaAPI connection test failed", zap.Error(err))
	return Status{Success: false, Message: DescribeError(err)}
}

// DescribeError turns a client error into a message fit for end users.
func DescribeError(err error) string {
	var apiErr *APIError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return ErrMissingCredentials.Error()
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		return "Invalid API token"
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return "Account ID not found"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("MetaAPI error: status %d", apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Connection timed out, try again"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < c.maxAttempts; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("path", path))
		resp, err = req.Execute(method, path)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if err == nil {
			err = &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else if ctx.Err() == nil {
			shouldRetry = true
		}

		if !shouldRetry || i == c.maxAttempts-1 {
			return nil, err
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, err
}
