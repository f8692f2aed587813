package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/reports"
	"agronity/agronity-backend/pkg/storage"
)

func TestHistoryWorkerRunOnce(t *testing.T) {
	ctx := context.Background()
	repo := history.NewMemoryRepository(10)
	now := time.Now()
	for _, e := range []history.Evaluation{
		{Kind: history.KindFeasibility, Crop: "Wheat", Status: "feasible", CreatedAt: now.Add(-time.Hour)},
		{Kind: history.KindImage, Crop: "Rice", Status: "success", CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{Kind: history.KindFeasibility, Crop: "Old", Status: "infeasible", CreatedAt: now.Add(-200 * 24 * time.Hour)},
	} {
		e := e
		require.NoError(t, repo.Create(ctx, &e))
	}

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	worker, err := NewHistoryWorker(history.NewService(repo, nil), reports.NewService(nil), store, DefaultHistoryWorkerConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, worker.RunOnce(ctx))

	left, err := repo.List(ctx, history.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)

	matches, err := filepath.Glob(filepath.Join(dir, "snapshots", "history-*.xlsx"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Evaluations")
	require.NoError(t, err)
	// header plus the evaluation inside the seven day window
	require.Len(t, rows, 2)
	assert.Equal(t, "Wheat", rows[1][3])
}

func TestHistoryWorkerRejectsBadSchedule(t *testing.T) {
	cfg := DefaultHistoryWorkerConfig()
	cfg.PurgeSchedule = "every day"
	_, err := NewHistoryWorker(history.NewService(history.NewMemoryRepository(1), nil), reports.NewService(nil), nil, cfg, zap.NewNop())
	assert.Error(t, err)
}
