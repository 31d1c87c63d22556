package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/feeds"
	"trade-journal-go/internal/metaapi"
	"trade-journal-go/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrSyncInProgress is returned when a sync is requested while another runs.
var ErrSyncInProgress = errors.New("a broker sync is already running")

// Status describes the scheduled sync for the API.
type Status struct {
	Enabled    bool                `json:"enabled"`
	Schedule   string              `json:"schedule"`
	LastRun    *time.Time          `json:"last_run,omitempty"`
	LastReport *feeds.ImportReport `json:"last_report,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
}

// Engine pulls MetaAPI deal history on a cron schedule and imports the
// closed positions into the journal.
type Engine struct {
	logger   *zap.Logger
	cfg      config.Sync
	userID   uint
	client   metaapi.ClientInterface
	importer *feeds.Importer
	cron     *cron.Cron
	now      func() time.Time

	// credentialed is false when the bridge has no token or account id.
	credentialed bool

	// running guards the outstanding request.
	running sync.Mutex

	mu         sync.RWMutex
	scheduled  bool
	lastRun    time.Time
	lastReport *feeds.ImportReport
	lastErr    string
}

// NewEngine creates a new sync engine.
func NewEngine(cfg *config.Config, client metaapi.ClientInterface, importer *feeds.Importer, logger *zap.Logger) *Engine {
	userID := cfg.Journal.UserID
	if userID == 0 {
		userID = models.DefaultUserID
	}
	return &Engine{
		logger:       logger.Named("syncer"),
		cfg:          cfg.Sync,
		userID:       userID,
		client:       client,
		importer:     importer,
		cron:         cron.New(),
		now:          time.Now,
		credentialed: cfg.MetaAPI.APIToken != "" && cfg.MetaAPI.AccountID != "",
	}
}

// Start registers the sync job and starts the scheduler. It is a no-op when
// the sync is disabled or the bridge has no credentials.
func (e *Engine) Start(ctx context.Context) error {
	if !e.cfg.Enabled {
		e.logger.Info("Scheduled broker sync disabled")
		return nil
	}
	if !e.credentialed {
		e.logger.Warn("Scheduled broker sync enabled but MetaAPI credentials are missing, not starting")
		return nil
	}

	_, err := e.cron.AddFunc(e.cfg.Schedule, func() {
		if _, err := e.SyncOnce(ctx, e.cfg.LookbackDays); err != nil {
			e.logger.Error("Scheduled sync failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", e.cfg.Schedule, err)
	}

	e.mu.Lock()
	e.scheduled = true
	e.mu.Unlock()

	e.cron.Start()
	e.logger.Info("Scheduled broker sync started", zap.String("schedule", e.cfg.Schedule),
		zap.Int("lookback_days", e.cfg.LookbackDays))
	return nil
}

// Stop waits for a running job to finish and stops the scheduler.
func (e *Engine) Stop() {
	e.mu.RLock()
	scheduled := e.scheduled
	e.mu.RUnlock()
	if !scheduled {
		return
	}
	e.logger.Info("Stopping scheduled broker sync...")
	<-e.cron.Stop().Done()
}

// SyncOnce fetches the last days of deals, reduces them into trades and
// imports the ones not seen before.
func (e *Engine) SyncOnce(ctx context.Context, days int) (feeds.ImportReport, error) {
	return e.SyncWith(ctx, e.client, days)
}

// SyncWith runs a sync through client instead of the configured one. It
// shares the single-run guard with the scheduled job.
func (e *Engine) SyncWith(ctx context.Context, client metaapi.ClientInterface, days int) (feeds.ImportReport, error) {
	if !e.running.TryLock() {
		return feeds.ImportReport{}, ErrSyncInProgress
	}
	defer e.running.Unlock()

	if days <= 0 {
		days = 30
	}
	to := e.now().UTC()
	from := to.AddDate(0, 0, -days)

	report, err := e.sync(ctx, client, from, to)
	e.record(to, report, err)
	return report, err
}

func (e *Engine) sync(ctx context.Context, client metaapi.ClientInterface, from, to time.Time) (feeds.ImportReport, error) {
	deals, err := client.HistoryDeals(ctx, from, to)
	if err != nil {
		return feeds.ImportReport{}, err
	}

	ledger := feeds.ReduceMetaAPI(e.userID, deals)
	if len(ledger.Open) > 0 {
		e.logger.Debug("Positions still open after reduction", zap.Int("count", len(ledger.Open)))
	}

	report, err := e.importer.Import(ctx, e.userID, ledger.Completed)
	if err != nil {
		return report, fmt.Errorf("failed to import synced trades: %w", err)
	}
	e.logger.Info("Broker sync finished",
		zap.Int("deals", len(deals)),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (e *Engine) record(at time.Time, report feeds.ImportReport, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = at
	if err != nil {
		e.lastErr = err.Error()
		return
	}
	e.lastErr = ""
	e.lastReport = &report
}

// Status returns the schedule and the outcome of the last run.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Status{
		Enabled:   e.scheduled,
		Schedule:  e.cfg.Schedule,
		LastError: e.lastErr,
	}
	if !e.lastRun.IsZero() {
		last := e.lastRun
		s.LastRun = &last
	}
	if e.lastReport != nil {
		report := *e.lastReport
		s.LastReport = &report
	}
	return s
}
