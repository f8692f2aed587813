package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Tensor is a single HWC image with channel values in [0,1].
type Tensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// At returns the value at row y, column x, channel c.
func (t Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// VisionModel scores an image for crop health. Scores above 0.5 mean
// healthy.
type VisionModel interface {
	Score(ctx context.Context, t Tensor) (float64, error)
}

// HTTPVisionModel calls a TensorFlow Serving compatible REST endpoint, e.g.
// http://host:8501/v1/models/crop_health:predict.
type HTTPVisionModel struct {
	endpoint string
	client   *http.Client
}

// NewHTTPVisionModel creates a remote vision scorer.
func NewHTTPVisionModel(endpoint string, timeout time.Duration) *HTTPVisionModel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVisionModel{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

func (m *HTTPVisionModel) Score(ctx context.Context, t Tensor) (float64, error) {
	instance := make([][][]float32, t.Height)
	for y := 0; y < t.Height; y++ {
		row := make([][]float32, t.Width)
		for x := 0; x < t.Width; x++ {
			px := make([]float32, t.Channels)
			for c := range px {
				px[c] = t.At(y, x, c)
			}
			row[x] = px
		}
		instance[y] = row
	}

	body, err := json.Marshal(predictRequest{Instances: [][][][]float32{instance}})
	if err != nil {
		return 0, fmt.Errorf("failed to encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vision model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("vision model returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode predict response: %w", err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("vision model error: %s", out.Error)
	}
	if len(out.Predictions) == 0 || len(out.Predictions[0]) == 0 {
		return 0, fmt.Errorf("vision model returned no predictions")
	}
	return out.Predictions[0][0], nil
}
