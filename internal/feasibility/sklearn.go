package feasibility

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
)

const (
	reasonSklearnUnavailable = "sklearn models not loaded"
	reasonNotViable          = "The model predicts this crop is not viable under the given conditions."
)

// trainingFeatures maps the numeric feature names the tabular models were
// trained on to the dataset columns they are read from.
var trainingFeatures = []struct {
	Feature string
	Column  string
}{
	{"avg_rain", dataset.ColAvgRainfall},
	{"temp", dataset.ColAvgTemperature},
	{"Fertilizer_Usage_kg_per_ha", dataset.ColFertilizerUsage},
	{"pH_Level", dataset.ColPHLevel},
	{"Phosphorus_kg_per_ha", dataset.ColPhosphorus},
	{"Potassium_kg_per_ha", dataset.ColPotassium},
	{"Nitrogen_kg_per_ha", dataset.ColNitrogen},
	{"Organic_Matter_Percentage", dataset.ColOrganicMatter},
	{"Electrical_Conductivity_dS_per_m", dataset.ColElectricalConductivity},
	{"Cation_Exchange_Capacity_meq_per_100g", dataset.ColCationExchange},
	{"Zinc_ppm", dataset.ColZinc},
	{"Iron_ppm", dataset.ColIron},
	{"Manganese_ppm", dataset.ColManganese},
	{"Copper_ppm", dataset.ColCopper},
}

// SklearnScorer classifies viability and projects profit from the matched
// district/soil record.
type SklearnScorer struct {
	data   *dataset.Dataset
	models *registry.Registry
	params Parameters
}

func (s *SklearnScorer) Metadata() StrategyMetadata {
	return StrategyMetadata{
		Strategy:    StrategySklearn,
		Name:        "Tabular classifier and yield regressor",
		Description: "Viability classification and profit projection from the district and soil record",
		Available:   s.available(),
	}
}

func (s *SklearnScorer) available() bool {
	return s.models.Preprocessor.IsAvailable() &&
		s.models.Classifier.IsAvailable() &&
		s.models.Regressor.IsAvailable()
}

func (s *SklearnScorer) Score(_ context.Context, q Query) Result {
	pre, okPre := s.models.Preprocessor.Get()
	clf, okClf := s.models.Classifier.Get()
	reg, okReg := s.models.Regressor.Get()
	if !okPre || !okClf || !okReg {
		return infeasible(StrategySklearn, reasonSklearnUnavailable)
	}

	row, ok := s.data.FindByDistrictSoil(q.District, q.SoilType)
	if !ok {
		return infeasible(StrategySklearn, fmt.Sprintf(
			"No data found for the combination of '%s' and '%s'. Please check your spelling or try a different combination.",
			q.District, q.SoilType))
	}

	areaHa := q.AreaAcres * AcresToHectares
	x, err := pre.Transform(featuresFor(q, row, areaHa))
	if err != nil {
		return infeasible(StrategySklearn, transformReason(err))
	}

	prob, err := clf.PredictProba(x)
	if err != nil {
		return infeasible(StrategySklearn, "classifier failed: "+err.Error())
	}
	viable, err := clf.Predict(x)
	if err != nil {
		return infeasible(StrategySklearn, "classifier failed: "+err.Error())
	}
	if !viable {
		return infeasible(StrategySklearn, reasonNotViable)
	}

	mandiPrice, ok := row.Value(dataset.ColMandiPrice)
	if !ok {
		return infeasible(StrategySklearn, fmt.Sprintf(
			"No market price recorded for '%s' and '%s'.", row.District, row.SoilType))
	}

	expectedYield, err := reg.Predict(x)
	if err != nil {
		return infeasible(StrategySklearn, "yield regressor failed: "+err.Error())
	}
	expectedYield = math.Max(0, expectedYield)

	proj := s.project(expectedYield, mandiPrice, areaHa, q.CostPerHa)
	proj.Probability = prob
	return Result{
		Feasible:   true,
		Status:     StatusFeasible,
		Strategy:   StrategySklearn,
		Projection: proj,
	}
}

// project applies the marketing and realization discounts and compounds the
// revenue forward.
func (s *SklearnScorer) project(expectedYield, mandiPrice, areaHa float64, costOverride *float64) *Projection {
	p := s.params

	costPerHa := p.DefaultCostPerHa
	if costOverride != nil && *costOverride > 0 {
		costPerHa = *costOverride
	}

	pricePerTon := mandiPrice * p.QuintalsPerTon * p.MarketingLossFactor
	effectiveYield := expectedYield * p.YieldRealizationFactor
	totalRevenue := effectiveYield * pricePerTon * areaHa
	totalCost := costPerHa * areaHa

	var yieldPct float64
	if maxYield, ok := s.data.Max(dataset.ColProductionRate); ok && maxYield > 0 {
		yieldPct = expectedYield / maxYield * 100
	}

	return &Projection{
		ExpectedYield:   expectedYield,
		YieldPercentage: yieldPct,
		AreaHa:          areaHa,
		TotalRevenue:    totalRevenue,
		TotalCost:       totalCost,
		Profit:          totalRevenue - totalCost,
		Revenue1Yr:      totalRevenue * (1 + p.growth()),
		Revenue2Yr:      totalRevenue * math.Pow(1+p.growth(), 2),
		MandiPrice:      mandiPrice,
	}
}

func featuresFor(q Query, row dataset.Record, areaHa float64) registry.Features {
	f := registry.Features{
		Categorical: map[string]string{
			"crop":      strings.ToLower(q.Crop),
			"district":  row.District,
			"soil_type": row.SoilType,
		},
		Numeric: map[string]float64{"area_ha": areaHa},
	}
	for _, tf := range trainingFeatures {
		if v, ok := row.Value(tf.Column); ok {
			f.Numeric[tf.Feature] = v
		}
	}
	return f
}

func transformReason(err error) string {
	if errors.Is(err, registry.ErrUnknownCategory) || errors.Is(err, registry.ErrMissingFeature) {
		return fmt.Sprintf("Error during data transformation: %v. This likely means a new crop, district, or soil type was entered that the model has not seen before.", err)
	}
	return "Error during data transformation: " + err.Error()
}
