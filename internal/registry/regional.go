package registry

import (
	"fmt"
)

// RegionalModel predicts the numeric agronomic profile of a district/crop.
type RegionalModel interface {
	// NumericColumns names the outputs of Predict, in order.
	NumericColumns() []string
	// Predict encodes the categorical attributes and returns one value per
	// numeric column.
	Predict(categorical map[string]string) ([]float64, error)
}

// RegionalForest is a multi-output random forest over label-encoded
// categorical columns.
type RegionalForest struct {
	ModelID string `json:"model_id"`
	// Encoders holds the sorted class list of each label encoder.
	Encoders map[string][]string `json:"encoders"`
	// FeatureOrder is the column order of the forest input.
	FeatureOrder []string `json:"feature_order"`
	NumericCols  []string `json:"numeric_cols"`
	Forest
}

// LoadRegionalForest reads a regional forest artifact.
func LoadRegionalForest(path string) (*RegionalForest, error) {
	var m RegionalForest
	if err := readArtifact(path, &m); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("regional model %s: %w", path, err)
	}
	if len(m.NumericCols) == 0 {
		return nil, fmt.Errorf("regional model %s: no numeric columns", path)
	}
	for _, col := range m.FeatureOrder {
		if _, ok := m.Encoders[col]; !ok {
			return nil, fmt.Errorf("regional model %s: no encoder for %s", path, col)
		}
	}
	return &m, nil
}

func (m *RegionalForest) NumericColumns() []string {
	return m.NumericCols
}

func (m *RegionalForest) Predict(categorical map[string]string) ([]float64, error) {
	x := make([]float64, len(m.FeatureOrder))
	for i, col := range m.FeatureOrder {
		value, ok := categorical[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, col)
		}
		code := -1
		for j, class := range m.Encoders[col] {
			if class == value {
				code = j
				break
			}
		}
		if code < 0 {
			return nil, fmt.Errorf("%w: %q in column %s", ErrUnknownCategory, value, col)
		}
		x[i] = float64(code)
	}

	out, err := m.predict(x, false)
	if err != nil {
		return nil, err
	}
	if len(out) != len(m.NumericCols) {
		return nil, fmt.Errorf("%w: forest has %d outputs for %d columns", ErrDimension, len(out), len(m.NumericCols))
	}
	return out, nil
}
