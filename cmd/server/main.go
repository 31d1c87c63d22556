package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/api"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/insights"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/store"
	"trade-journal-go/internal/syncer"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "./configs", "directory containing config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.", zap.String("driver", cfg.Database.Driver))

	loc := cfg.Journal.Location()
	userID := cfg.Journal.UserID

	tradeStore := store.NewGormStore(db)
	pipeline := ingest.NewPipeline(loc, log)
	importer := feeds.NewImporter(tradeStore, log)
	engine := analytics.NewEngine(loc)
	insightService := insights.NewService(&cfg, engine, log)
	if !insightService.Configured() {
		log.Info("No AI provider configured, insights use the rule battery only")
	}

	// Scheduled broker sync
	metaClient := metaapi.NewClient(&cfg.MetaAPI, log)
	defer metaClient.Close()
	syncEngine := syncer.NewEngine(&cfg, metaClient, importer, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := syncEngine.Start(ctx); err != nil {
		log.Fatal("Failed to schedule broker sync", zap.Error(err))
	}
	defer syncEngine.Stop()

	maxUpload := int64(cfg.Import.MaxUploadMB) << 20
	router := api.NewRouter(cfg.Server, log,
		&api.HealthHandler{DB: db, StartTime: time.Now()},
		&api.TradeHandler{
			Store:          tradeStore,
			Pipeline:       pipeline,
			Importer:       importer,
			Location:       loc,
			UserID:         userID,
			MaxUploadBytes: maxUpload,
			Logger:         log,
		},
		&api.AnalyticsHandler{
			Store:     tradeStore,
			Engine:    engine,
			UserID:    userID,
			DailyDays: cfg.Analytics.DailyWindowDays,
			Logger:    log,
		},
		&api.AIHandler{
			Store:    tradeStore,
			Insights: insightService,
			UserID:   userID,
			Logger:   log,
		},
		&api.IntegrationHandler{
			Importer: importer,
			Syncer:   syncEngine,
			MetaAPI:  cfg.MetaAPI,
			NewClient: func(c config.MetaAPI) metaapi.ClientInterface {
				return metaapi.NewClient(&c, log)
			},
			WebhookSecret:  cfg.TradingView.WebhookSecret,
			Location:       loc,
			UserID:         userID,
			MaxUploadBytes: maxUpload,
			Logger:         log,
		},
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting web server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
