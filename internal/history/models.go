package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Kind distinguishes what was evaluated.
type Kind string

const (
	KindFeasibility Kind = "feasibility"
	KindImage       Kind = "image"
)

// Evaluation is one recorded feasibility or image analysis.
type Evaluation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(20);not null;index"`
	Crop      string    `json:"crop" gorm:"index"`
	District  string    `json:"district,omitempty" gorm:"index"`
	SoilType  string    `json:"soil_type,omitempty"`
	AreaAcres float64   `json:"area_acres,omitempty"`
	Filename  string    `json:"filename,omitempty"`

	Strategy string `json:"strategy,omitempty" gorm:"index"`
	Status   string `json:"status" gorm:"not null;index"`
	Feasible bool   `json:"feasible"`

	Probability       *float64 `json:"probability,omitempty"`
	Profit            *float64 `json:"profit_rs,omitempty"`
	FeasibilityScore  *float64 `json:"feasibility_score,omitempty"`
	ProductivityScore *float64 `json:"productivity_score,omitempty"`
	HealthStatus      string   `json:"health_status,omitempty"`

	Request datatypes.JSON `json:"request" gorm:"default:'{}'"`
	Result  datatypes.JSON `json:"result" gorm:"default:'{}'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName overrides the table name
func (Evaluation) TableName() string {
	return "evaluations"
}

// ListFilter narrows a history listing.
type ListFilter struct {
	Kind     Kind
	Crop     string
	District string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Summary counts evaluations by kind and outcome.
type Summary struct {
	Total      int            `json:"total"`
	ByKind     map[string]int `json:"by_kind"`
	ByStatus   map[string]int `json:"by_status"`
	ByStrategy map[string]int `json:"by_strategy"`
	Feasible   int            `json:"feasible"`
}

// Summarize aggregates evals.
func Summarize(evals []Evaluation) Summary {
	s := Summary{
		ByKind:     make(map[string]int),
		ByStatus:   make(map[string]int),
		ByStrategy: make(map[string]int),
	}
	for _, e := range evals {
		s.Total++
		s.ByKind[string(e.Kind)]++
		s.ByStatus[e.Status]++
		if e.Strategy != "" {
			s.ByStrategy[e.Strategy]++
		}
		if e.Feasible {
			s.Feasible++
		}
	}
	return s
}
