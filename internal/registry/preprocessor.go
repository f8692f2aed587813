package registry

import (
	"fmt"
)

// Features is one input row for the tabular models.
type Features struct {
	Categorical map[string]string
	Numeric     map[string]float64
}

// Preprocessor turns named features into the model input vector.
type Preprocessor interface {
	Transform(f Features) ([]float64, error)
}

// CategoricalFeature is a one-hot encoded column.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// NumericFeature is a standard-scaled column.
type NumericFeature struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// ColumnTransformer applies one-hot encoding to the categorical block
// followed by standard scaling of the numeric block.
type ColumnTransformer struct {
	ModelID       string               `json:"model_id"`
	Categorical   []CategoricalFeature `json:"categorical"`
	Numeric       []NumericFeature     `json:"numeric"`
	HandleUnknown string               `json:"handle_unknown"`
}

// LoadPreprocessor reads a column transformer artifact.
func LoadPreprocessor(path string) (*ColumnTransformer, error) {
	var ct ColumnTransformer
	if err := readArtifact(path, &ct); err != nil {
		return nil, err
	}
	if len(ct.Categorical) == 0 && len(ct.Numeric) == 0 {
		return nil, fmt.Errorf("preprocessor %s: no features", path)
	}
	return &ct, nil
}

// Width returns the length of the transformed vector.
func (ct *ColumnTransformer) Width() int {
	n := len(ct.Numeric)
	for _, c := range ct.Categorical {
		n += len(c.Categories)
	}
	return n
}

// Transform encodes f. Unseen categories fail unless HandleUnknown is
// "ignore", in which case the block is all zeros.
func (ct *ColumnTransformer) Transform(f Features) ([]float64, error) {
	out := make([]float64, 0, ct.Width())

	for _, c := range ct.Categorical {
		value, ok := f.Categorical[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, c.Name)
		}
		block := make([]float64, len(c.Categories))
		found := false
		for i, cat := range c.Categories {
			if cat == value {
				block[i] = 1
				found = true
				break
			}
		}
		if !found && ct.HandleUnknown != "ignore" {
			return nil, fmt.Errorf("%w: %q in column %s", ErrUnknownCategory, value, c.Name)
		}
		out = append(out, block...)
	}

	for _, n := range ct.Numeric {
		value, ok := f.Numeric[n.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, n.Name)
		}
		scale := n.Scale
		if scale == 0 {
			scale = 1
		}
		out = append(out, (value-n.Mean)/scale)
	}

	return out, nil
}
