package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/insights"
	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
	"trade-journal-go/internal/syncer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Wednesday.
var testNow = time.Date(2024, 3, 13, 18, 0, 0, 0, time.UTC)

// MockClient is a mock implementation of metaapi.ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) AccountStatus(ctx context.Context) (*metaapi.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).(*metaapi.Account), args.Error(1)
}

func (m *MockClient) AccountInformation(ctx context.Context) (*metaapi.AccountInformation, error) {
	args := m.Called(ctx)
	return args.Get(0).(*metaapi.AccountInformation), args.Error(1)
}

func (m *MockClient) HistoryDeals(ctx context.Context, from, to time.Time) ([]metaapi.Deal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]metaapi.Deal), args.Error(1)
}

func (m *MockClient) TestConnection(ctx context.Context) metaapi.Status {
	return m.Called(ctx).Get(0).(metaapi.Status)
}

func (m *MockClient) Close() {}

type testEnv struct {
	router  *gin.Engine
	store   *store.GormStore
	client  *MockClient
	seenCfg *config.MetaAPI
}

const webhookSecret = "s3cret"

func setupRouter(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Trade{}))

	logger := zap.NewNop()
	cfg := &config.Config{
		Server:   config.Server{Mode: gin.TestMode},
		Journal:  config.Journal{UserID: models.DefaultUserID},
		Insights: config.Insights{MinTrades: 10, LossStreakThreshold: 4, SymbolMinTrades: 5},
		MetaAPI:  config.MetaAPI{APIToken: "cfg-token", AccountID: "cfg-account"},
	}

	s := store.NewGormStore(db)
	importer := feeds.NewImporter(s, logger)
	engine := &analytics.Engine{Location: time.UTC, Now: func() time.Time { return testNow }}
	env := &testEnv{store: s, client: new(MockClient)}

	newClient := func(c config.MetaAPI) metaapi.ClientInterface {
		env.seenCfg = &c
		return env.client
	}

	env.router = NewRouter(cfg.Server, logger,
		&HealthHandler{DB: db},
		&TradeHandler{
			Store:          s,
			Pipeline:       ingest.NewPipeline(time.UTC, logger).WithClock(func() time.Time { return testNow }),
			Importer:       importer,
			Location:       time.UTC,
			UserID:         models.DefaultUserID,
			MaxUploadBytes: 1 << 20,
			Logger:         logger,
		},
		&AnalyticsHandler{Store: s, Engine: engine, UserID: models.DefaultUserID, DailyDays: 30, Logger: logger},
		&AIHandler{Store: s, Insights: insights.NewService(cfg, engine, logger), UserID: models.DefaultUserID, Logger: logger},
		&IntegrationHandler{
			Importer:       importer,
			Syncer:         syncer.NewEngine(cfg, env.client, importer, logger),
			MetaAPI:        cfg.MetaAPI,
			NewClient:      newClient,
			WebhookSecret:  webhookSecret,
			Location:       time.UTC,
			UserID:         models.DefaultUserID,
			MaxUploadBytes: 1 << 20,
			Now:            func() time.Time { return testNow },
			Logger:         logger,
		},
	)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) request(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req)
}

func (e *testEnv) upload(t *testing.T, path, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(req)
}

func (e *testEnv) seed(t *testing.T, trades ...models.Trade) {
	for i := range trades {
		trades[i].UserID = models.DefaultUserID
		if trades[i].Source == "" {
			trades[i].Source = models.SourceManual
		}
		require.NoError(t, e.store.Create(context.Background(), &trades[i]))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
