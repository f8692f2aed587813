package feasibility

import (
	"context"
	"math"
	"sort"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
)

// Engine evaluates feasibility queries with one of the registered scorers.
// It is safe for concurrent use once constructed.
type Engine struct {
	scorers map[Strategy]Scorer
}

// Scorer implements one feasibility strategy.
type Scorer interface {
	// Score evaluates q. It never returns a Go error: lookup misses, missing
	// models and inference failures are infeasible results.
	Score(ctx context.Context, q Query) Result

	// Metadata describes the strategy.
	Metadata() StrategyMetadata
}

// StrategyMetadata describes a scorer for the models endpoint.
type StrategyMetadata struct {
	Strategy    Strategy `json:"strategy"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Available   bool     `json:"available"`
}

// NewEngine wires both strategies. regional is the dataset used by the
// agri_ml strategy; when it is empty the primary dataset is used instead.
func NewEngine(data, regional *dataset.Dataset, models *registry.Registry, params Parameters) *Engine {
	if models == nil {
		models = &registry.Registry{}
	}
	if regional.Len() == 0 {
		regional = data
	}
	params = params.withDefaults()

	engine := &Engine{scorers: make(map[Strategy]Scorer)}
	engine.registerScorers(data, regional, models, params)
	return engine
}

func (e *Engine) registerScorers(data, regional *dataset.Dataset, models *registry.Registry, params Parameters) {
	e.scorers[StrategySklearn] = &SklearnScorer{data: data, models: models, params: params}
	e.scorers[StrategyAgriML] = &RegionalScorer{data: regional, models: models, params: params}
}

// Evaluate runs q through the strategy it selects.
func (e *Engine) Evaluate(ctx context.Context, q Query) Result {
	strategy, err := ParseStrategy(q.Strategy)
	if err != nil {
		return failed(err.Error())
	}
	if !(q.AreaAcres > 0) || math.IsInf(q.AreaAcres, 0) {
		return failed("area must be positive")
	}

	scorer, ok := e.scorers[strategy]
	if !ok {
		return failed("unsupported strategy: " + string(strategy))
	}
	return scorer.Score(ctx, q)
}

// Strategies describes every registered scorer, ordered by name.
func (e *Engine) Strategies() []StrategyMetadata {
	out := make([]StrategyMetadata, 0, len(e.scorers))
	for _, s := range e.scorers {
		out = append(out, s.Metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}
