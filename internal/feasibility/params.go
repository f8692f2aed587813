package feasibility

// Parameters are the business constants of the financial projection.
type Parameters struct {
	// MarketingLossFactor discounts the mandi price for transport,
	// commission and wastage.
	MarketingLossFactor float64 `json:"marketing_loss_factor"`
	// YieldRealizationFactor discounts predicted yield for field losses.
	YieldRealizationFactor float64 `json:"yield_realization_factor"`
	// DefaultCostPerHa is the cultivation cost used when a query has none.
	DefaultCostPerHa float64 `json:"default_cost_per_ha"`
	// AnnualGrowthRate compounds revenue for the 1 and 2 year projections.
	// Nil selects the default; an explicit 0 keeps revenue flat.
	AnnualGrowthRate *float64 `json:"annual_growth_rate"`
	// QuintalsPerTon converts the per-quintal mandi price to per-ton.
	QuintalsPerTon float64 `json:"quintals_per_ton"`
	// ScoreCutoff is the minimum regional score, exclusive, for feasibility.
	ScoreCutoff float64 `json:"score_cutoff"`
}

// DefaultParameters returns the reference values.
func DefaultParameters() Parameters {
	return Parameters{
		MarketingLossFactor:    0.90,
		YieldRealizationFactor: 0.80,
		DefaultCostPerHa:       30000,
		AnnualGrowthRate:       growthRate(0.05),
		QuintalsPerTon:         10,
		ScoreCutoff:            50,
	}
}

// withDefaults fills zero fields from DefaultParameters.
func (p Parameters) withDefaults() Parameters {
	d := DefaultParameters()
	if p.MarketingLossFactor <= 0 {
		p.MarketingLossFactor = d.MarketingLossFactor
	}
	if p.YieldRealizationFactor <= 0 {
		p.YieldRealizationFactor = d.YieldRealizationFactor
	}
	if p.DefaultCostPerHa <= 0 {
		p.DefaultCostPerHa = d.DefaultCostPerHa
	}
	if p.AnnualGrowthRate == nil {
		p.AnnualGrowthRate = d.AnnualGrowthRate
	}
	if p.QuintalsPerTon <= 0 {
		p.QuintalsPerTon = d.QuintalsPerTon
	}
	if p.ScoreCutoff <= 0 {
		p.ScoreCutoff = d.ScoreCutoff
	}
	return p
}

func growthRate(v float64) *float64 {
	return &v
}

// growth returns the annual growth rate.
func (p Parameters) growth() float64 {
	if p.AnnualGrowthRate == nil {
		return *DefaultParameters().AnnualGrowthRate
	}
	return *p.AnnualGrowthRate
}
