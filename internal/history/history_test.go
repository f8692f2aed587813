package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, e *Evaluation) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	args := m.Called(ctx, filter)
	evals, _ := args.Get(0).([]Evaluation)
	return evals, args.Error(1)
}

func (m *MockRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *MemoryRepository, evals ...Evaluation) {
	t.Helper()
	for i := range evals {
		require.NoError(t, repo.Create(context.Background(), &evals[i]))
	}
}

func TestMemoryRepository_ListFilters(t *testing.T) {
	repo := NewMemoryRepository(10)
	seed(t, repo,
		Evaluation{Kind: KindFeasibility, Crop: "Wheat", District: "Punjab", Status: "feasible", CreatedAt: base},
		Evaluation{Kind: KindFeasibility, Crop: "Onion", District: "Nashik", Status: "infeasible", CreatedAt: base.Add(time.Hour)},
		Evaluation{Kind: KindImage, Crop: "Tomato", Status: "success", CreatedAt: base.Add(2 * time.Hour)},
	)
	ctx := context.Background()

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Tomato", all[0].Crop)
	assert.Equal(t, "Wheat", all[2].Crop)

	byKind, err := repo.List(ctx, ListFilter{Kind: KindFeasibility})
	require.NoError(t, err)
	assert.Len(t, byKind, 2)

	byCrop, err := repo.List(ctx, ListFilter{Crop: "wheat"})
	require.NoError(t, err)
	require.Len(t, byCrop, 1)
	assert.Equal(t, "Punjab", byCrop[0].District)

	byDistrict, err := repo.List(ctx, ListFilter{District: "NASHIK"})
	require.NoError(t, err)
	require.Len(t, byDistrict, 1)

	since := base.Add(30 * time.Minute)
	recent, err := repo.List(ctx, ListFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Onion", page[0].Crop)

	empty, err := repo.List(ctx, ListFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryRepository_Capacity(t *testing.T) {
	repo := NewMemoryRepository(2)
	seed(t, repo,
		Evaluation{Crop: "A", CreatedAt: base},
		Evaluation{Crop: "B", CreatedAt: base.Add(time.Minute)},
		Evaluation{Crop: "C", CreatedAt: base.Add(2 * time.Minute)},
	)

	evals, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, "C", evals[0].Crop)
	assert.Equal(t, "B", evals[1].Crop)
}

func TestService_PurgeRemovesOnlyOldEvaluations(t *testing.T) {
	repo := NewMemoryRepository(10)
	seed(t, repo,
		Evaluation{Crop: "old", CreatedAt: base.Add(-100 * 24 * time.Hour)},
		Evaluation{Crop: "edge", CreatedAt: base.Add(-89 * 24 * time.Hour)},
		Evaluation{Crop: "new", CreatedAt: base},
	)
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return base }

	deleted, err := svc.Purge(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "new", left[0].Crop)
	assert.Equal(t, "edge", left[1].Crop)

	_, err = svc.Purge(context.Background(), 0)
	assert.Error(t, err)
}

func TestService_RecordFeasibility(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return base }

	q := feasibility.Query{Crop: "Wheat", District: "Punjab", SoilType: "Loamy", AreaAcres: 10, Strategy: "sklearn"}
	res := feasibility.Result{
		Feasible: true,
		Status:   feasibility.StatusFeasible,
		Strategy: feasibility.StrategySklearn,
		Projection: &feasibility.Projection{
			Probability: 0.8,
			Profit:      1200,
		},
	}

	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *Evaluation) bool {
		return e.Kind == KindFeasibility && e.Crop == "Wheat" && e.Feasible
	})).Return(nil)

	e, err := svc.RecordFeasibility(context.Background(), q, res)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, "sklearn", e.Strategy)
	assert.Equal(t, "feasible", e.Status)
	assert.Equal(t, base, e.CreatedAt)
	require.NotNil(t, e.Probability)
	assert.Equal(t, 0.8, *e.Probability)
	require.NotNil(t, e.Profit)
	assert.Equal(t, 1200.0, *e.Profit)
	assert.Nil(t, e.FeasibilityScore)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(e.Request, &stored))
	assert.Equal(t, "Wheat", stored["crop"])
}

func TestService_RecordFeasibilityRegional(t *testing.T) {
	repo := NewMemoryRepository(10)
	svc := NewService(repo, nil)

	res := feasibility.Result{
		Status:         feasibility.StatusInfeasible,
		Strategy:       feasibility.StrategyAgriML,
		Reasons:        []string{"Feasibility or productivity score is not above 50."},
		RegionalScores: &feasibility.RegionalScores{FeasibilityScore: 40, ProductivityScore: 70},
	}
	e, err := svc.RecordFeasibility(context.Background(), feasibility.Query{Crop: "Onion", District: "Nashik", AreaAcres: 2}, res)
	require.NoError(t, err)
	require.NotNil(t, e.FeasibilityScore)
	assert.Equal(t, 40.0, *e.FeasibilityScore)
	assert.Equal(t, 70.0, *e.ProductivityScore)
	assert.False(t, e.Feasible)
	assert.Nil(t, e.Probability)
}

func TestService_RecordImage(t *testing.T) {
	repo := NewMemoryRepository(10)
	svc := NewService(repo, nil)

	c := diagnosis.Classification{
		Status: diagnosis.StatusSuccess,
		Assessment: &diagnosis.Assessment{
			Crop:         "Tomato",
			HealthStatus: diagnosis.HealthDiseased,
			Confidence:   0.75,
			Source:       diagnosis.SourceFallback,
		},
	}
	e, err := svc.RecordImage(context.Background(), "diseased_tomato.jpg", c)
	require.NoError(t, err)
	assert.Equal(t, KindImage, e.Kind)
	assert.Equal(t, "Tomato", e.Crop)
	assert.Equal(t, "fallback", e.Strategy)
	assert.Equal(t, diagnosis.HealthDiseased, e.HealthStatus)

	unresolved, err := svc.RecordImage(context.Background(), "xyz123.png", diagnosis.Classification{Status: diagnosis.StatusUnresolved})
	require.NoError(t, err)
	assert.Empty(t, unresolved.Crop)
	assert.Equal(t, "unresolved", unresolved.Status)

	images, err := svc.Recent(context.Background(), ListFilter{Kind: KindImage})
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestService_RecentLimits(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil)

	repo.On("List", mock.Anything, ListFilter{Limit: DefaultListLimit}).Return([]Evaluation{}, nil).Once()
	repo.On("List", mock.Anything, ListFilter{Limit: MaxListLimit}).Return([]Evaluation{}, nil).Once()
	repo.On("List", mock.Anything, ListFilter{Limit: 5}).Return(nil, errors.New("boom")).Once()

	_, err := svc.Recent(context.Background(), ListFilter{Offset: -3})
	require.NoError(t, err)
	_, err = svc.Recent(context.Background(), ListFilter{Limit: 10000})
	require.NoError(t, err)
	_, err = svc.Recent(context.Background(), ListFilter{Limit: 5})
	assert.EqualError(t, err, "boom")

	repo.AssertExpectations(t)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Evaluation{
		{Kind: KindFeasibility, Status: "feasible", Strategy: "sklearn", Feasible: true},
		{Kind: KindFeasibility, Status: "infeasible", Strategy: "agri_ml"},
		{Kind: KindImage, Status: "success", Strategy: "fallback"},
		{Kind: KindImage, Status: "unresolved"},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Feasible)
	assert.Equal(t, 2, s.ByKind["image"])
	assert.Equal(t, 1, s.ByStatus["unresolved"])
	assert.Len(t, s.ByStrategy, 3)
}

func TestRetentionScheduler(t *testing.T) {
	repo := NewMemoryRepository(10)
	seed(t, repo,
		Evaluation{Crop: "old", CreatedAt: time.Now().Add(-48 * time.Hour)},
		Evaluation{Crop: "new", CreatedAt: time.Now()},
	)
	svc := NewService(repo, nil)
	sched := NewRetentionScheduler(nil, time.Second)

	require.NoError(t, sched.AddPurge("0 3 * * *", svc, 24*time.Hour))
	assert.Error(t, sched.AddPurge("0 3 * * *", svc, 24*time.Hour))
	assert.Error(t, sched.AddJob("bad", "not a schedule", func(context.Context) error { return nil }))

	require.NoError(t, sched.RunNow("purge"))
	left, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Crop)

	assert.Error(t, sched.RunNow("missing"))

	require.NoError(t, sched.Start())
	assert.Error(t, sched.Start())
	next, ok := sched.Next("purge")
	assert.True(t, ok)
	assert.False(t, next.IsZero())
	sched.Stop()
	sched.Stop()
}
