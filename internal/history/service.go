package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Service records and queries evaluation history
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new history service
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RecordFeasibility stores a feasibility query and its result.
func (s *Service) RecordFeasibility(ctx context.Context, q feasibility.Query, res feasibility.Result) (*Evaluation, error) {
	request, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	result, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	e := &Evaluation{
		ID:        uuid.New(),
		Kind:      KindFeasibility,
		Crop:      q.Crop,
		District:  q.District,
		SoilType:  q.SoilType,
		AreaAcres: q.AreaAcres,
		Strategy:  string(res.Strategy),
		Status:    string(res.Status),
		Feasible:  res.Feasible,
		Request:   request,
		Result:    result,
		CreatedAt: s.now().UTC(),
	}
	if p := res.Projection; p != nil {
		e.Probability = float64Ptr(p.Probability)
		e.Profit = float64Ptr(p.Profit)
	}
	if r := res.RegionalScores; r != nil {
		e.FeasibilityScore = float64Ptr(r.FeasibilityScore)
		e.ProductivityScore = float64Ptr(r.ProductivityScore)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordImage stores an image classification.
func (s *Service) RecordImage(ctx context.Context, filename string, c diagnosis.Classification) (*Evaluation, error) {
	request, err := json.Marshal(map[string]string{"filename": filename})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	result, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification: %w", err)
	}

	e := &Evaluation{
		ID:        uuid.New(),
		Kind:      KindImage,
		Filename:  filename,
		Status:    string(c.Status),
		Request:   request,
		Result:    result,
		CreatedAt: s.now().UTC(),
	}
	if a := c.Assessment; a != nil {
		e.Crop = a.Crop
		e.Strategy = string(a.Source)
		e.HealthStatus = a.HealthStatus
		e.Probability = float64Ptr(a.Confidence)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Recent lists evaluations newest first. The limit defaults to
// DefaultListLimit and is capped at MaxListLimit.
func (s *Service) Recent(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// All lists every evaluation matching filter, ignoring its limit.
func (s *Service) All(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	filter.Limit, filter.Offset = 0, 0
	return s.repo.List(ctx, filter)
}

// Purge deletes evaluations older than maxAge.
func (s *Service) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("invalid retention age: %s", maxAge)
	}
	cutoff := s.now().Add(-maxAge)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Purged evaluation history",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
	return deleted, nil
}

func float64Ptr(v float64) *float64 {
	return &v
}
