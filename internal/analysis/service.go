package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"agronity/agronity-backend/internal/diagnosis"
	"agronity/agronity-backend/internal/feasibility"
	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/metrics"
	"agronity/agronity-backend/internal/notifications"
	"agronity/agronity-backend/internal/registry"
	"agronity/agronity-backend/internal/reports"
	"agronity/agronity-backend/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// imageURLTTL bounds the download link returned for an upload.
const imageURLTTL = 15 * time.Minute

// Dependencies wires a Service. Engine, Classifier and Models are required;
// the rest are optional and disable their feature when nil.
type Dependencies struct {
	Engine     *feasibility.Engine
	Classifier *diagnosis.Classifier
	Models     *registry.Registry
	History    *history.Service
	Reports    *reports.Service
	Notifier   *notifications.Service
	Images     storage.ObjectStore
	Metrics    *metrics.Metrics
}

// Service ties the scorer and classifier to history, alerts and metrics.
type Service struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewService creates a new analysis service
func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Models == nil {
		deps.Models = &registry.Registry{}
	}
	if deps.Reports == nil {
		deps.Reports = reports.NewService(logger)
	}
	return &Service{deps: deps, logger: logger}
}

// Analyze evaluates q and records the outcome.
func (s *Service) Analyze(ctx context.Context, q feasibility.Query) feasibility.Result {
	res := s.deps.Engine.Evaluate(ctx, q)

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveEvaluation(string(res.Strategy), string(res.Status))
	}
	if s.deps.History != nil {
		if _, err := s.deps.History.RecordFeasibility(ctx, q, res); err != nil {
			s.logger.Error("Failed to record feasibility evaluation", zap.Error(err))
		}
	}
	return res
}

// Report evaluates q and renders the outcome as a PDF.
func (s *Service) Report(ctx context.Context, q feasibility.Query) ([]byte, feasibility.Result, error) {
	res := s.Analyze(ctx, q)
	pdf, err := s.deps.Reports.FeasibilityPDF(q, res)
	if err != nil {
		return nil, res, err
	}
	return pdf, res, nil
}

// ClassifyImage classifies req, records it and raises a disease alert when
// the crop looks diseased.
func (s *Service) ClassifyImage(ctx context.Context, req diagnosis.Request) diagnosis.Classification {
	c := s.deps.Classifier.Classify(ctx, req)

	if s.deps.Metrics != nil {
		source, health := "", ""
		if c.Assessment != nil {
			source, health = string(c.Source), c.HealthStatus
		}
		s.deps.Metrics.ObserveClassification(source, health)
	}
	if s.deps.History != nil {
		if _, err := s.deps.History.RecordImage(ctx, req.Filename, c); err != nil {
			s.logger.Error("Failed to record image classification", zap.Error(err))
		}
	}
	s.alert(ctx, req.Filename, c)
	return c
}

func (s *Service) alert(ctx context.Context, filename string, c diagnosis.Classification) {
	if s.deps.Notifier == nil {
		return
	}
	alert, ok := notifications.NewDiseaseAlert(filename, c)
	if !ok {
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveAlert()
	}
	if err := s.deps.Notifier.NotifyDisease(ctx, alert); err != nil {
		s.logger.Error("Failed to send disease alert",
			zap.String("filename", filename),
			zap.Error(err))
	}
}

// UploadImage stores content under a fresh key and classifies it. The
// original filename drives the keyword rules.
func (s *Service) UploadImage(ctx context.Context, filename, contentType string, content []byte) (UploadResult, error) {
	if s.deps.Images == nil {
		return UploadResult{}, ErrNoImageStore
	}

	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "image"
	}
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	key := uuid.New().String() + "/" + name
	if err := s.deps.Images.Put(ctx, key, bytes.NewReader(content), contentType); err != nil {
		return UploadResult{}, fmt.Errorf("failed to store image: %w", err)
	}
	s.logger.Info("Stored uploaded image",
		zap.String("key", key),
		zap.Int("bytes", len(content)))

	res := UploadResult{Key: key}
	if p, ok := s.deps.Images.(storage.Presigner); ok {
		url, err := p.PresignedURL(ctx, key, imageURLTTL)
		if err != nil {
			s.logger.Warn("Failed to presign image URL", zap.String("key", key), zap.Error(err))
		} else {
			res.URL = url
		}
	}

	res.Classification = s.ClassifyImage(ctx, diagnosis.Request{Filename: name, Content: content})
	return res, nil
}

// Models reports registry availability and the registered strategies.
func (s *Service) Models() ModelsResponse {
	return ModelsResponse{
		AvailableModels: s.deps.Models.Availability(),
		Strategies:      s.deps.Engine.Strategies(),
		Message:         "Available models loaded",
	}
}

// Crops lists the image categories the classifier recognizes.
func (s *Service) Crops() []diagnosis.Crop {
	return diagnosis.Crops()
}

// History lists recent evaluations.
func (s *Service) History(ctx context.Context, filter history.ListFilter) ([]history.Evaluation, error) {
	if s.deps.History == nil {
		return nil, ErrHistoryDisabled
	}
	return s.deps.History.Recent(ctx, filter)
}

// ExportHistory renders the evaluations matching filter in format. Without
// a limit every matching evaluation is exported.
func (s *Service) ExportHistory(ctx context.Context, format reports.ExportFormat, filter history.ListFilter) ([]byte, error) {
	if s.deps.History == nil {
		return nil, ErrHistoryDisabled
	}
	var evals []history.Evaluation
	var err error
	if filter.Limit > 0 {
		evals, err = s.deps.History.Recent(ctx, filter)
	} else {
		evals, err = s.deps.History.All(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	return s.deps.Reports.RenderHistory(format, evals)
}

// HandleStreamMessage answers an analyze message received on the websocket
// stream.
func (s *Service) HandleStreamMessage(ctx context.Context, msg notifications.WebSocketMessage) (notifications.WebSocketMessage, error) {
	var req AnalyzeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return notifications.WebSocketMessage{}, fmt.Errorf("invalid analyze payload: %w", err)
	}
	q, err := req.Query()
	if err != nil {
		return notifications.WebSocketMessage{}, err
	}

	data, err := json.Marshal(s.Analyze(ctx, q))
	if err != nil {
		return notifications.WebSocketMessage{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return notifications.WebSocketMessage{
		Type:      notifications.WSMessageTypeResult,
		RequestID: msg.RequestID,
		Data:      data,
	}, nil
}
