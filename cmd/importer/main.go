package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/ingest"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"go.uber.org/zap"
)

// Supported input kinds.
const (
	kindCSV    = "csv"
	kindReport = "report"
	kindMT5    = "mt5"
)

// parsed is what one input file yields before it reaches the store.
type parsed struct {
	Trades    []models.Trade
	Skipped   int
	Unmatched int
}

func main() {
	configPath := flag.String("config", "./configs", "directory containing config.yml")
	kind := flag.String("kind", kindCSV, "input kind: csv, report or mt5")
	file := flag.String("file", "", "path of the file to import")
	symbol := flag.String("symbol", "", "symbol for strategy reports")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: importer -kind csv|report|mt5 -file path [-symbol X]")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("Failed to read input file", zap.String("file", *file), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Journal.Location()
	userID := cfg.Journal.UserID

	result, err := parse(*kind, raw, userID, *symbol, ingest.NewPipeline(loc, log), loc)
	if err != nil {
		log.Fatal("Failed to parse input file", zap.String("kind", *kind), zap.Error(err))
	}
	log.Info("Input parsed",
		zap.String("kind", *kind),
		zap.Int("trades", len(result.Trades)),
		zap.Int("skipped_rows", result.Skipped),
		zap.Int("unmatched", result.Unmatched),
	)

	tradeStore := store.NewGormStore(db)
	report, err := feeds.NewImporter(tradeStore, log).Import(ctx, userID, result.Trades)
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}

	all, err := tradeStore.List(ctx, userID, store.Filter{})
	if err != nil {
		log.Fatal("Failed to load trades", zap.Error(err))
	}
	summary := analytics.NewEngine(loc).Summarize(all)

	log.Info("Journal summary",
		zap.String("batch_id", report.BatchID),
		zap.Int("imported", report.Imported),
		zap.Int("duplicates", report.Skipped),
		zap.Int("total_trades", summary.TotalTrades),
		zap.Float64("win_rate", summary.WinRate),
		zap.Float64("net_profit", summary.NetProfit),
		zap.Float64("profit_factor", summary.ProfitFactor),
		zap.Int("max_loss_streak", summary.MaxLossStreak),
		zap.Duration("average_duration", time.Duration(summary.AverageDuration)*time.Minute),
	)
}

// parse turns raw file content into trades according to kind.
func parse(kind string, raw []byte, userID uint, symbol string, pipeline *ingest.Pipeline, loc *time.Location) (*parsed, error) {
	switch strings.ToLower(kind) {
	case kindCSV:
		res, err := pipeline.Parse(raw)
		if err != nil {
			return nil, err
		}
		for i := range res.Trades {
			res.Trades[i].UserID = userID
		}
		return &parsed{Trades: res.Trades, Skipped: len(res.Skipped)}, nil

	case kindReport:
		res, err := feeds.ParseStrategyReport(userID, raw, symbol, loc)
		if err != nil {
			return nil, err
		}
		return &parsed{Trades: res.Trades, Skipped: len(res.Skipped), Unmatched: res.Unmatched}, nil

	case kindMT5:
		deals, err := feeds.ParseMT5Dump(raw)
		if err != nil {
			return nil, err
		}
		ledger := feeds.ReduceMT5(userID, deals)
		return &parsed{Trades: ledger.Completed, Unmatched: len(ledger.Open)}, nil
	}
	return nil, fmt.Errorf("unknown input kind %q", kind)
}
