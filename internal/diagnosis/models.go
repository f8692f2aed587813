package diagnosis

import (
	"context"
	"io"
)

// Source names the stage that produced a classification.
type Source string

const (
	SourceVision   Source = "vision"
	SourceFallback Source = "fallback"
)

// Status tags a Classification.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusUnresolved Status = "unresolved"
)

const (
	HealthHealthy  = "Healthy"
	HealthDiseased = "Diseased"

	RiskHigh = "High"
	RiskLow  = "Low"
)

// Request identifies an image by filename. Content, when set, is used
// instead of reading the image store.
type Request struct {
	Filename string
	Content  []byte
}

// Classification is either a successful Assessment or an unresolved result
// listing the supported crops.
type Classification struct {
	Status         Status   `json:"status"`
	Message        string   `json:"message,omitempty"`
	SuggestedCrops []string `json:"suggested_crops,omitempty"`

	*Assessment
}

// Assessment describes a recognized crop image.
type Assessment struct {
	Crop           string   `json:"crop,omitempty"`
	HealthStatus   string   `json:"health_status"`
	Confidence     float64  `json:"confidence"`
	DiseaseRisk    string   `json:"disease_risk"`
	Diagnosis      string   `json:"diagnosis"`
	Recommendation string   `json:"recommendation"`
	Source         Source   `json:"source"`
	AvgProduction  *float64 `json:"avg_production,omitempty"`
	MandiPrice     *float64 `json:"mandi_price,omitempty"`
}

// Diseased reports whether c is a successful classification of a diseased
// crop.
func (c Classification) Diseased() bool {
	return c.Assessment != nil && c.HealthStatus == HealthDiseased
}

// ImageSource reads stored images by name.
type ImageSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
