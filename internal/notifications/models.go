package notifications

import (
	"time"

	"agronity/agronity-backend/internal/diagnosis"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebSocket message types
const (
	WSMessageTypeAnalyze  = "analyze"
	WSMessageTypeResult   = "result"
	WSMessageTypeAlert    = "disease_alert"
	WSMessageTypePresence = "presence"
	WSMessageTypeStatus   = "status"
	WSMessageTypeError    = "error"
)

// WebSocketMessage represents WebSocket message format
type WebSocketMessage struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Data      datatypes.JSON `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Channel   string         `json:"channel,omitempty"`
	Target    string         `json:"target,omitempty"`
}

// DiseaseAlert is raised when an uploaded image is classified as diseased.
type DiseaseAlert struct {
	ID             uuid.UUID        `json:"id"`
	Filename       string           `json:"filename"`
	Crop           string           `json:"crop"`
	HealthStatus   string           `json:"health_status"`
	DiseaseRisk    string           `json:"disease_risk"`
	Confidence     float64          `json:"confidence"`
	Source         diagnosis.Source `json:"source"`
	Recommendation string           `json:"recommendation"`
	DetectedAt     time.Time        `json:"detected_at"`
}

// NewDiseaseAlert builds an alert from a classification. It reports false
// when the classification is not a diseased crop.
func NewDiseaseAlert(filename string, c diagnosis.Classification) (DiseaseAlert, bool) {
	if !c.Diseased() {
		return DiseaseAlert{}, false
	}
	return DiseaseAlert{
		ID:             uuid.New(),
		Filename:       filename,
		Crop:           c.Crop,
		HealthStatus:   c.HealthStatus,
		DiseaseRisk:    c.DiseaseRisk,
		Confidence:     c.Confidence,
		Source:         c.Source,
		Recommendation: c.Recommendation,
		DetectedAt:     time.Now().UTC(),
	}, true
}
