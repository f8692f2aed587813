package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Publisher delivers a message to an external channel.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) error
}

// Broadcaster pushes a message to every connected websocket client.
type Broadcaster interface {
	Broadcast(message WebSocketMessage) error
}

// Service provides notification business logic
type Service struct {
	publisher   Publisher
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewService creates a new notification service. Either channel may be nil.
func NewService(publisher Publisher, broadcaster Broadcaster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{publisher: publisher, broadcaster: broadcaster, logger: logger}
}

// NotifyDisease publishes alert and broadcasts it to websocket clients. Only
// publish failures are returned; a full broadcast buffer is logged.
func (s *Service) NotifyDisease(ctx context.Context, alert DiseaseAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	if s.broadcaster != nil {
		msg := WebSocketMessage{
			Type:      WSMessageTypeAlert,
			RequestID: alert.ID.String(),
			Data:      body,
			Timestamp: time.Now(),
			Channel:   "broadcast",
		}
		if err := s.broadcaster.Broadcast(msg); err != nil {
			s.logger.Warn("Failed to broadcast disease alert", zap.String("alert_id", alert.ID.String()), zap.Error(err))
		}
	}

	if s.publisher == nil {
		return nil
	}
	subject := fmt.Sprintf("Disease risk %s: %s", alert.DiseaseRisk, alert.Crop)
	attrs := map[string]string{
		"crop":         alert.Crop,
		"disease_risk": alert.DiseaseRisk,
		"source":       string(alert.Source),
	}
	if err := s.publisher.Publish(ctx, subject, string(body), attrs); err != nil {
		return fmt.Errorf("failed to publish disease alert: %w", err)
	}

	s.logger.Info("Disease alert published",
		zap.String("alert_id", alert.ID.String()),
		zap.String("crop", alert.Crop))
	return nil
}
