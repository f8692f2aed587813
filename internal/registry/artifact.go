package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrUnknownCategory is returned when a categorical feature holds a value
	// the preprocessor was not fitted on.
	ErrUnknownCategory = errors.New("registry: unknown category")
	// ErrMissingFeature is returned when a required feature is absent.
	ErrMissingFeature = errors.New("registry: missing feature")
	// ErrDimension is returned when an input vector does not match the model.
	ErrDimension = errors.New("registry: dimension mismatch")
)

// artifactHeader is the common envelope of every exported model file.
type artifactHeader struct {
	ModelID string `json:"model_id"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

func readArtifact(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
