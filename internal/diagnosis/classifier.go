package diagnosis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
	"go.uber.org/zap"
)

// DefaultMaxImageBytes caps how much of a stored image is read.
const DefaultMaxImageBytes = 10 << 20

const unresolvedMessage = "Could not identify crop type from filename. Please use format like 'tomato.jpg', 'wheat.jpg', etc."

// Classifier detects crop type and health from an image, trying the vision
// model first and the filename rules second.
type Classifier struct {
	data   *dataset.Dataset
	vision registry.Handle[registry.VisionModel]
	images ImageSource
	logger *zap.Logger

	maxImageBytes int64
}

// NewClassifier creates a classifier. images may be nil when every request
// carries its content.
func NewClassifier(data *dataset.Dataset, vision registry.Handle[registry.VisionModel], images ImageSource, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{data: data, vision: vision, images: images, logger: logger, maxImageBytes: DefaultMaxImageBytes}
}

// SetMaxImageBytes bounds reads from the image store. Non-positive values
// restore the default.
func (c *Classifier) SetMaxImageBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxImageBytes
	}
	c.maxImageBytes = n
}

// Classify never fails: vision errors are logged and the rule path answers.
func (c *Classifier) Classify(ctx context.Context, req Request) Classification {
	if model, ok := c.vision.Get(); ok {
		result, err := c.classifyVision(ctx, model, req)
		if err == nil {
			return result
		}
		c.logger.Warn("Vision analysis failed, using rule-based detection",
			zap.String("filename", req.Filename),
			zap.Error(err))
	}
	return c.classifyRules(req.Filename)
}

func (c *Classifier) classifyVision(ctx context.Context, model registry.VisionModel, req Request) (Classification, error) {
	content, err := c.load(ctx, req)
	if err != nil {
		return Classification{}, err
	}
	img, err := Decode(bytes.NewReader(content))
	if err != nil {
		return Classification{}, err
	}
	confidence, err := model.Score(ctx, ToTensor(img, InputSize))
	if err != nil {
		return Classification{}, fmt.Errorf("vision inference failed: %w", err)
	}

	a := &Assessment{
		Confidence:     confidence,
		Source:         SourceVision,
		Recommendation: genericAdvisory,
	}
	if confidence > 0.5 {
		a.HealthStatus, a.DiseaseRisk, a.Diagnosis = HealthHealthy, RiskLow, "Plant appears healthy"
	} else {
		a.HealthStatus, a.DiseaseRisk, a.Diagnosis = HealthDiseased, RiskHigh, "Plant shows signs of disease"
	}
	if crop, ok := MatchCrop(req.Filename); ok {
		a.Crop = crop.Display
		a.Recommendation = crop.Advisory
		c.attachStats(a, crop)
	}
	return Classification{Status: StatusSuccess, Assessment: a}, nil
}

func (c *Classifier) load(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Content) > 0 {
		return req.Content, nil
	}
	if c.images == nil {
		return nil, errors.New("no image store configured")
	}
	rc, err := c.images.Open(ctx, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", req.Filename, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, c.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", req.Filename, err)
	}
	if int64(len(content)) > c.maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", req.Filename, c.maxImageBytes)
	}
	return content, nil
}

func (c *Classifier) classifyRules(filename string) Classification {
	crop, ok := MatchCrop(filename)
	if !ok {
		return Classification{
			Status:         StatusUnresolved,
			Message:        unresolvedMessage,
			SuggestedCrops: CropNames(),
		}
	}

	a := &Assessment{
		Crop:           crop.Display,
		HealthStatus:   HealthHealthy,
		Confidence:     0.65,
		DiseaseRisk:    RiskLow,
		Diagnosis:      "Crop identified as " + crop.Display,
		Recommendation: crop.Advisory,
		Source:         SourceFallback,
	}
	if looksDiseased(filename) {
		a.HealthStatus = HealthDiseased
		a.DiseaseRisk = RiskHigh
		a.Confidence = 0.75
	}
	c.attachStats(a, crop)
	return Classification{Status: StatusSuccess, Assessment: a}
}

func (c *Classifier) attachStats(a *Assessment, crop Crop) {
	stats := c.data.CropStats(crop.Name)
	a.AvgProduction = positive(stats.AvgProduction)
	a.MandiPrice = positive(stats.AvgMandiPrice)
}

// positive drops non-positive aggregates, which mean no usable data.
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
