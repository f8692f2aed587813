package feasibility

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreprocessor struct {
	err error
	got registry.Features
}

func (p *fakePreprocessor) Transform(f registry.Features) ([]float64, error) {
	p.got = f
	if p.err != nil {
		return nil, p.err
	}
	return []float64{1, 0, 1}, nil
}

type fakeClassifier struct {
	prob   float64
	viable bool
}

func (c fakeClassifier) PredictProba([]float64) (float64, error) { return c.prob, nil }
func (c fakeClassifier) Predict([]float64) (bool, error)         { return c.viable, nil }

type fakeRegressor float64

func (r fakeRegressor) Predict([]float64) (float64, error) { return float64(r), nil }

type fakeRegional struct {
	cols []string
	out  []float64
	err  error
}

func (m fakeRegional) NumericColumns() []string { return m.cols }
func (m fakeRegional) Predict(map[string]string) ([]float64, error) {
	return m.out, m.err
}

func record(district, soil, crop string, values map[string]float64) dataset.Record {
	return dataset.Record{District: district, SoilType: soil, Crop: crop, Values: values}
}

func sklearnData() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		record("Punjab", "Loamy", "Wheat", map[string]float64{
			dataset.ColAvgRainfall:     650,
			dataset.ColAvgTemperature:  24,
			dataset.ColPHLevel:         7.1,
			dataset.ColNitrogen:        110,
			dataset.ColMandiPrice:      20,
			dataset.ColProductionRate:  4,
			dataset.ColFertilizerUsage: 120,
		}),
		record("Punjab", "Loamy", "Rice", map[string]float64{
			dataset.ColMandiPrice:     30,
			dataset.ColProductionRate: 2,
		}),
	})
}

func sklearnModels(pre *fakePreprocessor, clf fakeClassifier, yield float64) *registry.Registry {
	return &registry.Registry{
		Preprocessor: registry.Available[registry.Preprocessor](pre),
		Classifier:   registry.Available[registry.Classifier](clf),
		Regressor:    registry.Available[registry.Regressor](fakeRegressor(yield)),
		Regional:     registry.Unavailable[registry.RegionalModel](),
	}
}

func wheatQuery() Query {
	return Query{Crop: "Wheat", District: "punjab", SoilType: "LOAMY", AreaAcres: 10, Strategy: "sklearn"}
}

func TestEvaluateSklearnProjection(t *testing.T) {
	pre := &fakePreprocessor{}
	engine := NewEngine(sklearnData(), nil, sklearnModels(pre, fakeClassifier{prob: 0.82, viable: true}, 3.0), DefaultParameters())

	res := engine.Evaluate(context.Background(), wheatQuery())

	require.True(t, res.Feasible)
	require.NotNil(t, res.Projection)
	assert.Nil(t, res.RegionalScores)
	assert.Equal(t, StatusFeasible, res.Status)
	assert.Equal(t, StrategySklearn, res.Strategy)

	p := res.Projection
	assert.InDelta(t, 0.82, p.Probability, 1e-9)
	assert.InDelta(t, 4.047, p.AreaHa, 1e-9)
	assert.InDelta(t, 3.0, p.ExpectedYield, 1e-9)
	assert.InDelta(t, 75.0, p.YieldPercentage, 1e-9)
	assert.InDelta(t, 1748.304, p.TotalRevenue, 1e-6)
	assert.InDelta(t, 121410.0, p.TotalCost, 1e-6)
	assert.InDelta(t, -119661.696, p.Profit, 1e-6)
	assert.InDelta(t, p.TotalRevenue*1.05, p.Revenue1Yr, 1e-6)
	assert.InDelta(t, p.TotalRevenue*1.1025, p.Revenue2Yr, 1e-6)
	assert.InDelta(t, 20.0, p.MandiPrice, 1e-9)

	assert.Equal(t, "wheat", pre.got.Categorical["crop"])
	assert.Equal(t, "Punjab", pre.got.Categorical["district"])
	assert.Equal(t, "Loamy", pre.got.Categorical["soil_type"])
	assert.InDelta(t, 650.0, pre.got.Numeric["avg_rain"], 1e-9)
	assert.InDelta(t, 24.0, pre.got.Numeric["temp"], 1e-9)
	assert.InDelta(t, 4.047, pre.got.Numeric["area_ha"], 1e-9)
	assert.NotContains(t, pre.got.Numeric, "Zinc_ppm")
}

func TestEvaluateSklearnClampsNegativeYield(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.7, viable: true}, -2.5), DefaultParameters())

	res := engine.Evaluate(context.Background(), wheatQuery())

	require.True(t, res.Feasible)
	assert.Zero(t, res.ExpectedYield)
	assert.Zero(t, res.TotalRevenue)
	assert.InDelta(t, -121410.0, res.Profit, 1e-6)
}

func TestEvaluateSklearnCostOverride(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), DefaultParameters())
	cost := 20000.0
	q := wheatQuery()
	q.CostPerHa = &cost

	res := engine.Evaluate(context.Background(), q)

	require.True(t, res.Feasible)
	assert.InDelta(t, 20000*4.047, res.TotalCost, 1e-6)
}

func TestEvaluateSklearnParameterOverride(t *testing.T) {
	params := DefaultParameters()
	params.MarketingLossFactor = 1
	params.YieldRealizationFactor = 1
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), params)

	res := engine.Evaluate(context.Background(), wheatQuery())

	require.True(t, res.Feasible)
	assert.InDelta(t, 3.0*200*4.047, res.TotalRevenue, 1e-6)
}

func TestEvaluateSklearnFlatGrowth(t *testing.T) {
	flat := 0.0
	params := DefaultParameters()
	params.AnnualGrowthRate = &flat
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), params)

	res := engine.Evaluate(context.Background(), wheatQuery())

	require.True(t, res.Feasible)
	assert.Equal(t, res.TotalRevenue, res.Revenue1Yr)
	assert.Equal(t, res.TotalRevenue, res.Revenue2Yr)

	params.AnnualGrowthRate = nil
	res = NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), params).
		Evaluate(context.Background(), wheatQuery())
	assert.InDelta(t, res.TotalRevenue*1.05, res.Revenue1Yr, 1e-6)
}

func TestEvaluateSklearnInfeasible(t *testing.T) {
	tests := []struct {
		name   string
		models *registry.Registry
		query  Query
		reason string
	}{
		{
			name:   "models not loaded",
			models: &registry.Registry{},
			query:  wheatQuery(),
			reason: "sklearn models not loaded",
		},
		{
			name:   "no district and soil match",
			models: sklearnModels(&fakePreprocessor{}, fakeClassifier{viable: true}, 1),
			query:  Query{Crop: "Wheat", District: "Kerala", SoilType: "Laterite", AreaAcres: 1},
			reason: "'Kerala' and 'Laterite'",
		},
		{
			name: "unseen category",
			models: sklearnModels(&fakePreprocessor{
				err: fmt.Errorf("%w: %q in column crop", registry.ErrUnknownCategory, "quinoa"),
			}, fakeClassifier{viable: true}, 1),
			query:  wheatQuery(),
			reason: "has not seen before",
		},
		{
			name:   "classifier says not viable",
			models: sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.2}, 1),
			query:  wheatQuery(),
			reason: "not viable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(sklearnData(), nil, tt.models, DefaultParameters())

			res := engine.Evaluate(context.Background(), tt.query)

			assert.False(t, res.Feasible)
			assert.Equal(t, StatusInfeasible, res.Status)
			assert.Nil(t, res.Projection)
			require.Len(t, res.Reasons, 1)
			assert.Contains(t, res.Reasons[0], tt.reason)
		})
	}
}

func TestEvaluateYieldPercentageWithoutProductionColumn(t *testing.T) {
	data := dataset.New([]dataset.Record{
		record("Punjab", "Loamy", "Wheat", map[string]float64{dataset.ColMandiPrice: 20}),
	})
	engine := NewEngine(data, nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), DefaultParameters())

	res := engine.Evaluate(context.Background(), wheatQuery())

	require.True(t, res.Feasible)
	assert.Zero(t, res.YieldPercentage)
}

func TestEvaluateInvalidInput(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, &registry.Registry{}, DefaultParameters())

	res := engine.Evaluate(context.Background(), Query{Crop: "Wheat", District: "Punjab", SoilType: "Loamy", AreaAcres: 1, Strategy: "xgboost"})
	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.Feasible)
	assert.Contains(t, res.Error, "xgboost")

	res = engine.Evaluate(context.Background(), Query{Crop: "Wheat", District: "Punjab", SoilType: "Loamy", AreaAcres: 0})
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "area")
}

func TestEvaluateRejectsNonFiniteArea(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), DefaultParameters())

	for _, area := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -2} {
		q := wheatQuery()
		q.AreaAcres = area
		res := engine.Evaluate(context.Background(), q)

		assert.Equal(t, StatusError, res.Status, "area %v", area)
		assert.False(t, res.Feasible)
		assert.Nil(t, res.Projection)
		_, err := json.Marshal(res)
		assert.NoError(t, err)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategySklearn, s)

	s, err = ParseStrategy(" agri_ml ")
	require.NoError(t, err)
	assert.Equal(t, StrategyAgriML, s)

	_, err = ParseStrategy("AGRI")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategies(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{}, 0), DefaultParameters())

	got := engine.Strategies()

	require.Len(t, got, 2)
	assert.Equal(t, StrategyAgriML, got[0].Strategy)
	assert.False(t, got[0].Available)
	assert.Equal(t, StrategySklearn, got[1].Strategy)
	assert.True(t, got[1].Available)
}

func TestResultJSONShape(t *testing.T) {
	engine := NewEngine(sklearnData(), nil, sklearnModels(&fakePreprocessor{}, fakeClassifier{prob: 0.9, viable: true}, 3.0), DefaultParameters())

	raw, err := json.Marshal(engine.Evaluate(context.Background(), wheatQuery()))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "sklearn", fields["model_used"])
	assert.Contains(t, fields, "profit_rs")
	assert.Contains(t, fields, "revenue_2yr_rs")
	assert.NotContains(t, fields, "feasibility_score")
	assert.NotContains(t, fields, "error")
}
