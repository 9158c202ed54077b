package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically purges old history and activity log entries.
// One instance runs per process, started at boot and cancelled at shutdown.
type RetentionWorker struct {
	history  *HistoryStore
	activity *ActivityStore
	cfg      *Config
	logger   *slog.Logger
}

// NewRetentionWorker creates a new RetentionWorker.
func NewRetentionWorker(history *HistoryStore, activity *ActivityStore, cfg *Config, logger *slog.Logger) *RetentionWorker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionWorker{
		history:  history,
		activity: activity,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run starts the retention loop. It runs until the context is cancelled; an
// in-flight purge finishes before the worker exits. A failed cycle is logged
// and does not stop subsequent cycles.
func (w *RetentionWorker) Run(ctx context.Context) {
	if !w.cfg.Enabled || w.history == nil {
		w.logger.Info("audit retention worker disabled")
		return
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("audit retention worker started",
		"historyMonths", w.cfg.HistoryRetentionMonths,
		"activityRetention", w.cfg.ActivityRetention.String(),
		"interval", w.cfg.Interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("audit retention worker stopped")
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

// cleanup performs a single retention pass over both logs.
func (w *RetentionWorker) cleanup() {
	deleted, err := w.history.DeleteOldHistory(w.cfg.HistoryRetentionMonths)
	if err != nil {
		w.logger.Error("history retention cleanup failed", "error", err)
	} else if deleted > 0 {
		w.logger.Info("history retention cleanup completed",
			"deleted", deleted, "months", w.cfg.HistoryRetentionMonths)
	}

	if w.activity == nil {
		return
	}
	deleted, err = w.activity.CleanupOldLogs(w.cfg.ActivityRetention)
	if err != nil {
		w.logger.Error("activity log cleanup failed", "error", err)
	} else if deleted > 0 {
		w.logger.Info("activity log cleanup completed",
			"deleted", deleted, "retention", w.cfg.ActivityRetention.String())
	}
}
