package feasibility

import (
	"context"
	"fmt"
	"math"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
)

const reasonRegionalUnavailable = "agri_ml model not loaded"

var (
	soilColumns     = []string{dataset.ColPHLevel, dataset.ColOrganicMatter, dataset.ColClay}
	nutrientColumns = []string{dataset.ColNitrogen, dataset.ColPhosphorus, dataset.ColPotassium, dataset.ColOrganicMatter}
)

// RegionalScorer rates a district/crop against the whole regional dataset
// using soil, rainfall and nutrient ratios.
type RegionalScorer struct {
	data   *dataset.Dataset
	models *registry.Registry
	params Parameters
}

func (s *RegionalScorer) Metadata() StrategyMetadata {
	return StrategyMetadata{
		Strategy:    StrategyAgriML,
		Name:        "Regional ratio scoring",
		Description: "Soil, rainfall and nutrient scores relative to the regional dataset",
		Available:   s.models.Regional.IsAvailable(),
	}
}

func (s *RegionalScorer) Score(_ context.Context, q Query) Result {
	model, ok := s.models.Regional.Get()
	if !ok {
		return infeasible(StrategyAgriML, reasonRegionalUnavailable)
	}

	matched := s.data.FilterByDistrictCrop(q.District, q.Crop)
	if len(matched) == 0 {
		matched = s.data.FilterByDistrict(q.District)
	}
	if len(matched) == 0 {
		return infeasible(StrategyAgriML, fmt.Sprintf("No data found for district '%s' in regional database", q.District))
	}

	scores := &RegionalScores{
		FeasibilityScore:  clampScore(s.feasibilityScore(matched)),
		ProductivityScore: clampScore(s.productivityScore(matched)),
		MatchedRows:       len(matched),
	}
	scores.ProfitLossPercent = scores.FeasibilityScore*scores.ProductivityScore/100 - 100
	if growth, ok := futureGrowth(model, matched); ok {
		scores.FutureGrowthPercent = &growth
	}

	res := Result{Strategy: StrategyAgriML, RegionalScores: scores}
	cutoff := s.params.ScoreCutoff
	if scores.FeasibilityScore > cutoff && scores.ProductivityScore > cutoff {
		res.Feasible = true
		res.Status = StatusFeasible
		return res
	}
	res.Status = StatusInfeasible
	res.Reasons = []string{fmt.Sprintf("Feasibility or productivity score is not above %g.", cutoff)}
	return res
}

func (s *RegionalScorer) feasibilityScore(matched []dataset.Record) float64 {
	soilCols := s.presentColumns(soilColumns)

	var soilScore float64
	if means := subsetMeans(matched, soilCols); len(means) > 0 {
		soilScore = average(means)
	}
	rainScore, _ := dataset.Mean(matched, dataset.ColAvgRainfall)

	soilMax := 1.0
	if len(soilCols) > 0 {
		soilMax = 0
		for _, r := range s.data.Records() {
			if v, ok := rowMean(r, soilCols); ok && v > soilMax {
				soilMax = v
			}
		}
	}
	rainMax := 1.0
	if s.data.HasColumn(dataset.ColAvgRainfall) {
		rainMax, _ = s.data.Max(dataset.ColAvgRainfall)
	}

	if soilMax <= 0 || rainMax <= 0 {
		return 0
	}
	return (soilScore/soilMax + rainScore/rainMax) / 2 * 100
}

func (s *RegionalScorer) productivityScore(matched []dataset.Record) float64 {
	cols := s.presentColumns(nutrientColumns)

	var nutrientScore float64
	for _, m := range subsetMeans(matched, cols) {
		nutrientScore += m
	}

	datasetAvg := 1.0
	if len(cols) > 0 {
		records := s.data.Records()
		var total float64
		for _, r := range records {
			for _, col := range cols {
				if v, ok := r.Value(col); ok {
					total += v
				}
			}
		}
		datasetAvg = 0
		if len(records) > 0 {
			datasetAvg = total / float64(len(records))
		}
	}

	if datasetAvg <= 0 {
		return 0
	}
	return nutrientScore / datasetAvg * 100
}

func (s *RegionalScorer) presentColumns(cols []string) []string {
	var out []string
	for _, col := range cols {
		if s.data.HasColumn(col) {
			out = append(out, col)
		}
	}
	return out
}

// futureGrowth compares the forest's predicted profile for the first matched
// row with the current subset means.
func futureGrowth(model registry.RegionalModel, matched []dataset.Record) (float64, bool) {
	first := matched[0]
	predicted, err := model.Predict(map[string]string{
		dataset.ColDistrict:   first.District,
		dataset.ColSoilType:   first.SoilType,
		dataset.ColMajorCrops: first.Crop,
		dataset.ColCrop:       first.Crop,
	})
	cols := model.NumericColumns()
	if err != nil || len(predicted) == 0 || len(predicted) != len(cols) {
		return 0, false
	}

	// Compare only the columns the matched rows actually carry.
	var current, forecast []float64
	for i, col := range cols {
		if m, ok := dataset.Mean(matched, col); ok {
			current = append(current, m)
			forecast = append(forecast, predicted[i])
		}
	}
	if len(current) == 0 {
		return 0, false
	}
	currentMean := average(current)
	if currentMean == 0 {
		return 0, false
	}
	return (average(forecast) - currentMean) / currentMean * 100, true
}

// subsetMeans returns the mean of each column that has at least one value in
// records.
func subsetMeans(records []dataset.Record, cols []string) []float64 {
	var out []float64
	for _, col := range cols {
		if m, ok := dataset.Mean(records, col); ok {
			out = append(out, m)
		}
	}
	return out
}

func rowMean(r dataset.Record, cols []string) (float64, bool) {
	var sum float64
	n := 0
	for _, col := range cols {
		if v, ok := r.Value(col); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clampScore(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
