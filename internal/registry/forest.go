package registry

import (
	"fmt"
)

// Tree is a fitted decision tree in flattened array form. Leaves have
// ChildrenLeft[i] == -1; Value holds per-output leaf values (regression) or
// per-class counts (classification).
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// validate checks the node arrays. Children must point strictly forward,
// which rules out cycles, and every node needs a value row of one width.
func (t *Tree) validate() error {
	n := len(t.ChildrenLeft)
	if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("malformed tree with %d nodes", n)
	}
	width := len(t.Value[0])
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if (left == -1) != (right == -1) {
			return fmt.Errorf("node %d has only one child", i)
		}
		if left != -1 && (left <= i || left >= n || right <= i || right >= n) {
			return fmt.Errorf("node %d has children %d and %d outside (%d, %d)", i, left, right, i, n)
		}
		if len(t.Value[i]) == 0 || len(t.Value[i]) != width {
			return fmt.Errorf("node %d has %d values, want %d", i, len(t.Value[i]), width)
		}
	}
	return nil
}

// leaf walks the tree for x and returns the leaf value.
func (t *Tree) leaf(x []float64) ([]float64, error) {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		f := t.Feature[node]
		if f < 0 || f >= len(x) {
			return nil, fmt.Errorf("%w: tree splits on feature %d, input has %d", ErrDimension, f, len(x))
		}
		if x[f] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node], nil
}

// Forest is an ensemble of trees whose leaf values are averaged.
type Forest struct {
	Trees []Tree `json:"trees"`
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// predict averages leaf values; normalize turns class counts into
// probabilities per tree first.
func (f *Forest) predict(x []float64, normalize bool) ([]float64, error) {
	var out []float64
	for i := range f.Trees {
		v, err := f.Trees[i].leaf(x)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]float64, len(v))
		}
		if len(v) != len(out) {
			return nil, fmt.Errorf("%w: tree %d has %d outputs, want %d", ErrDimension, i, len(v), len(out))
		}
		var total float64
		if normalize {
			for _, c := range v {
				total += c
			}
		}
		for j, c := range v {
			if normalize && total > 0 {
				c /= total
			}
			out[j] += c
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Trees))
	}
	return out, nil
}

// ForestClassifier is a binary random forest classifier.
type ForestClassifier struct {
	ModelID string `json:"model_id"`
	Forest
}

func (m *ForestClassifier) PredictProba(x []float64) (float64, error) {
	p, err := m.predict(x, true)
	if err != nil {
		return 0, err
	}
	if len(p) < 2 {
		return 0, fmt.Errorf("%w: classifier has %d classes", ErrDimension, len(p))
	}
	return p[1], nil
}

func (m *ForestClassifier) Predict(x []float64) (bool, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return false, err
	}
	return p > 0.5, nil
}

// ForestRegressor is a single-output random forest regressor.
type ForestRegressor struct {
	ModelID string `json:"model_id"`
	Forest
}

func (m *ForestRegressor) Predict(x []float64) (float64, error) {
	v, err := m.predict(x, false)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("%w: regressor has no outputs", ErrDimension)
	}
	return v[0], nil
}

// LoadClassifier reads a classifier artifact of type "logistic" or "forest".
func LoadClassifier(path string) (Classifier, error) {
	var h artifactHeader
	if err := readArtifact(path, &h); err != nil {
		return nil, err
	}
	switch h.Type {
	case "logistic", "":
		var m LogisticClassifier
		if err := readArtifact(path, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case "forest":
		var m ForestClassifier
		if err := readArtifact(path, &m); err != nil {
			return nil, err
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("classifier %s: %w", path, err)
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("classifier %s: unsupported type %q", path, h.Type)
	}
}

// LoadRegressor reads a regressor artifact of type "linear" or "forest".
func LoadRegressor(path string) (Regressor, error) {
	var h artifactHeader
	if err := readArtifact(path, &h); err != nil {
		return nil, err
	}
	switch h.Type {
	case "linear", "":
		var m LinearRegressor
		if err := readArtifact(path, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case "forest":
		var m ForestRegressor
		if err := readArtifact(path, &m); err != nil {
			return nil, err
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("regressor %s: %w", path, err)
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("regressor %s: unsupported type %q", path, h.Type)
	}
}
