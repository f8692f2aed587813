package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"agronity/agronity-backend/internal/registry"
)

var (
	// ErrMissingFields is returned when a required analyze field is absent.
	ErrMissingFields = errors.New("missing required fields: crop, district, area, soil")
	// ErrInvalidArea is returned for a non-positive or infinite area.
	ErrInvalidArea = errors.New("area must be positive")
	// ErrHistoryDisabled is returned when no history store is configured.
	ErrHistoryDisabled = errors.New("evaluation history is not enabled")
	// ErrNoImageStore is returned for uploads when no image store is configured.
	ErrNoImageStore = errors.New("image store is not configured")
)

// Area accepts a JSON number or a numeric string.
type Area struct {
	Value float64
	Set   bool
}

func (a *Area) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		a.Value, a.Set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("area must be a number or a numeric string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("area %q is not a number", s)
	}
	a.Value, a.Set = n, true
	return nil
}

func (a Area) MarshalJSON() ([]byte, error) {
	if !a.Set {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// AnalyzeRequest is the body of the analyze endpoints.
type AnalyzeRequest struct {
	Crop      string   `json:"crop"`
	District  string   `json:"district"`
	Area      Area     `json:"area"`
	Soil      string   `json:"soil"`
	Model     string   `json:"model,omitempty"`
	CostPerHa *float64 `json:"cost_per_ha,omitempty"`
}

// Query validates the request. A zero area counts as missing.
func (r AnalyzeRequest) Query() (feasibility.Query, error) {
	if strings.TrimSpace(r.Crop) == "" || strings.TrimSpace(r.District) == "" ||
		strings.TrimSpace(r.Soil) == "" || !r.Area.Set || r.Area.Value == 0 {
		return feasibility.Query{}, ErrMissingFields
	}
	if !(r.Area.Value > 0) || math.IsInf(r.Area.Value, 0) {
		return feasibility.Query{}, ErrInvalidArea
	}
	return feasibility.Query{
		Crop:      strings.TrimSpace(r.Crop),
		District:  strings.TrimSpace(r.District),
		SoilType:  strings.TrimSpace(r.Soil),
		AreaAcres: r.Area.Value,
		Strategy:  r.Model,
		CostPerHa: r.CostPerHa,
	}, nil
}

// ImageRequest is the body of the analyze_image endpoint.
type ImageRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// UploadResult is returned by the image upload endpoint.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
	diagnosis.Classification
}

// ModelsResponse reports which evaluation paths are loaded.
type ModelsResponse struct {
	AvailableModels registry.Availability          `json:"available_models"`
	Strategies      []feasibility.StrategyMetadata `json:"strategies"`
	Message         string                         `json:"message"`
}
