package registry

import (
	"fmt"
	"math"
)

// Classifier scores a transformed input vector for feasibility.
type Classifier interface {
	// PredictProba returns the probability of the positive class.
	PredictProba(x []float64) (float64, error)
	Predict(x []float64) (bool, error)
}

// Regressor predicts a single continuous target.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// LogisticClassifier is a binary logistic regression.
type LogisticClassifier struct {
	ModelID   string    `json:"model_id"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
	Threshold float64   `json:"threshold"`
}

func (m *LogisticClassifier) PredictProba(x []float64) (float64, error) {
	z, err := dot(m.Intercept, m.Coef, x)
	if err != nil {
		return 0, err
	}
	return sigmoid(z), nil
}

func (m *LogisticClassifier) Predict(x []float64) (bool, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return false, err
	}
	return p > m.threshold(), nil
}

func (m *LogisticClassifier) threshold() float64 {
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return 0.5
	}
	return m.Threshold
}

// LinearRegressor is an ordinary least squares model.
type LinearRegressor struct {
	ModelID   string    `json:"model_id"`
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

func (m *LinearRegressor) Predict(x []float64) (float64, error) {
	return dot(m.Intercept, m.Coef, x)
}

func dot(intercept float64, coef, x []float64) (float64, error) {
	if len(coef) != len(x) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrDimension, len(coef), len(x))
	}
	z := intercept
	for i, c := range coef {
		z += c * x[i]
	}
	return z, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
