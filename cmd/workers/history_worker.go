package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/reports"
	"agronity/agronity-backend/pkg/storage"
)

// HistoryWorker purges old evaluations and uploads periodic snapshots
type HistoryWorker struct {
	history   *history.Service
	reports   *reports.Service
	store     storage.ObjectStore
	scheduler *history.RetentionScheduler
	config    HistoryWorkerConfig
	logger    *zap.Logger
}

// HistoryWorkerConfig configuration for the history worker
type HistoryWorkerConfig struct {
	PurgeSchedule    string
	MaxAge           time.Duration
	SnapshotSchedule string
	SnapshotPrefix   string
	SnapshotWindow   time.Duration
	JobTimeout       time.Duration
}

// DefaultHistoryWorkerConfig returns default configuration
func DefaultHistoryWorkerConfig() HistoryWorkerConfig {
	return HistoryWorkerConfig{
		PurgeSchedule:    "0 3 * * *",
		MaxAge:           90 * 24 * time.Hour,
		SnapshotSchedule: "0 4 * * 0",
		SnapshotPrefix:   "snapshots/",
		SnapshotWindow:   7 * 24 * time.Hour,
		JobTimeout:       10 * time.Minute,
	}
}

// NewHistoryWorker creates a new history worker. store may be nil, which
// disables snapshots.
func NewHistoryWorker(svc *history.Service, rep *reports.Service, store storage.ObjectStore, config HistoryWorkerConfig, logger *zap.Logger) (*HistoryWorker, error) {
	w := &HistoryWorker{
		history:   svc,
		reports:   rep,
		store:     store,
		scheduler: history.NewRetentionScheduler(logger, config.JobTimeout),
		config:    config,
		logger:    logger,
	}

	if err := w.scheduler.AddPurge(config.PurgeSchedule, svc, config.MaxAge); err != nil {
		return nil, err
	}
	if store != nil && config.SnapshotSchedule != "" {
		if err := w.scheduler.AddJob("snapshot", config.SnapshotSchedule, func(ctx context.Context) error {
			_, err := w.Snapshot(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Snapshot uploads the evaluations of the last window as an xlsx workbook
// and returns the object key.
func (w *HistoryWorker) Snapshot(ctx context.Context) (string, error) {
	since := time.Now().Add(-w.config.SnapshotWindow)
	evals, err := w.history.All(ctx, history.ListFilter{Since: &since})
	if err != nil {
		return "", fmt.Errorf("failed to list evaluations: %w", err)
	}

	data, err := w.reports.RenderHistory(reports.ExportFormatExcel, evals)
	if err != nil {
		return "", err
	}

	key := w.reports.SnapshotKey(w.config.SnapshotPrefix, reports.ExportFormatExcel)
	if err := w.store.Put(ctx, key, bytes.NewReader(data), reports.ExportFormatExcel.ContentType()); err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	w.logger.Info("History snapshot uploaded",
		zap.String("key", key),
		zap.Int("evaluations", len(evals)))
	return key, nil
}

// Start starts the schedules and blocks until ctx is cancelled
func (w *HistoryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting history worker",
		zap.String("purge_schedule", w.config.PurgeSchedule),
		zap.Duration("max_age", w.config.MaxAge),
		zap.Bool("snapshots", w.store != nil))

	if err := w.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	w.scheduler.Stop()
	w.logger.Info("History worker stopped")
	return nil
}

// RunOnce purges and snapshots immediately.
func (w *HistoryWorker) RunOnce(ctx context.Context) error {
	if _, err := w.history.Purge(ctx, w.config.MaxAge); err != nil {
		return err
	}
	if w.store == nil {
		return nil
	}
	_, err := w.Snapshot(ctx)
	return err
}
