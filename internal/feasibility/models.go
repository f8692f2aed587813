package feasibility

import (
	"errors"
	"fmt"
	"strings"
)

// AcresToHectares is the fixed area conversion factor.
const AcresToHectares = 0.4047

// Strategy selects how feasibility is evaluated.
type Strategy string

const (
	// StrategySklearn scores with the preprocessor, classifier and regressor.
	StrategySklearn Strategy = "sklearn"
	// StrategyAgriML scores with regional soil, rainfall and nutrient ratios.
	StrategyAgriML Strategy = "agri_ml"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized tokens.
var ErrUnknownStrategy = errors.New("unknown model type")

// ParseStrategy maps a selector token onto a Strategy. An empty token
// selects StrategySklearn.
func ParseStrategy(token string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(token)) {
	case StrategySklearn, "":
		return StrategySklearn, nil
	case StrategyAgriML:
		return StrategyAgriML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStrategy, token)
	}
}

// Query is one feasibility question.
type Query struct {
	Crop      string   `json:"crop"`
	District  string   `json:"district"`
	SoilType  string   `json:"soil"`
	AreaAcres float64  `json:"area"`
	Strategy  string   `json:"model"`
	CostPerHa *float64 `json:"cost_per_ha,omitempty"`
}

// Status tags a Result.
type Status string

const (
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// Result is the outcome of an evaluation. Exactly one of Projection and
// RegionalScores is set on scored results, depending on Strategy.
type Result struct {
	Feasible bool     `json:"feasible"`
	Status   Status   `json:"status"`
	Strategy Strategy `json:"model_used,omitempty"`
	Reasons  []string `json:"reasons,omitempty"`
	Error    string   `json:"error,omitempty"`

	*Projection
	*RegionalScores
}

// Projection is the financial outlook produced by the sklearn strategy.
type Projection struct {
	Probability     float64 `json:"probability"`
	ExpectedYield   float64 `json:"expected_yield_tpha"`
	YieldPercentage float64 `json:"yield_percentage"`
	AreaHa          float64 `json:"area_ha"`
	TotalRevenue    float64 `json:"total_revenue_rs"`
	TotalCost       float64 `json:"total_cost_rs"`
	Profit          float64 `json:"profit_rs"`
	Revenue1Yr      float64 `json:"revenue_1yr_rs"`
	Revenue2Yr      float64 `json:"revenue_2yr_rs"`
	MandiPrice      float64 `json:"mandi_price_rs_per_quintal"`
}

// RegionalScores are the ratio scores produced by the agri_ml strategy.
type RegionalScores struct {
	FeasibilityScore    float64  `json:"feasibility_score"`
	ProductivityScore   float64  `json:"productivity_score"`
	ProfitLossPercent   float64  `json:"profit_loss_percent"`
	FutureGrowthPercent *float64 `json:"future_growth_percent,omitempty"`
	MatchedRows         int      `json:"matched_rows"`
}

func infeasible(strategy Strategy, reasons ...string) Result {
	return Result{Status: StatusInfeasible, Strategy: strategy, Reasons: reasons}
}

func failed(msg string) Result {
	return Result{Status: StatusError, Error: msg}
}
