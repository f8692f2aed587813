package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"agronity/agronity-backend/internal/diagnosis"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject, message string, attributes map[string]string) error {
	args := m.Called(ctx, subject, message, attributes)
	return args.Error(0)
}

type recordingBroadcaster struct {
	messages []WebSocketMessage
	err      error
}

func (b *recordingBroadcaster) Broadcast(message WebSocketMessage) error {
	b.messages = append(b.messages, message)
	return b.err
}

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out, ok := args.Get(0).(*sns.PublishOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func diseasedTomato() diagnosis.Classification {
	return diagnosis.Classification{
		Status: diagnosis.StatusSuccess,
		Assessment: &diagnosis.Assessment{
			Crop:           "Tomato",
			HealthStatus:   diagnosis.HealthDiseased,
			DiseaseRisk:    diagnosis.RiskHigh,
			Confidence:     0.75,
			Source:         diagnosis.SourceFallback,
			Recommendation: "Daily monitoring for late blight.",
		},
	}
}

func TestNewDiseaseAlert(t *testing.T) {
	alert, ok := NewDiseaseAlert("diseased_tomato.jpg", diseasedTomato())
	require.True(t, ok)
	assert.Equal(t, "Tomato", alert.Crop)
	assert.Equal(t, "diseased_tomato.jpg", alert.Filename)
	assert.NotEmpty(t, alert.ID.String())

	_, ok = NewDiseaseAlert("xyz.jpg", diagnosis.Classification{Status: diagnosis.StatusUnresolved})
	assert.False(t, ok)
}

func TestNotifyDiseasePublishesAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	alert, _ := NewDiseaseAlert("diseased_tomato.jpg", diseasedTomato())
	publisher := new(MockPublisher)
	publisher.On("Publish", ctx, "Disease risk High: Tomato", mock.AnythingOfType("string"), map[string]string{
		"crop": "Tomato", "disease_risk": "High", "source": "fallback",
	}).Return(nil)
	broadcaster := &recordingBroadcaster{}

	svc := NewService(publisher, broadcaster, zap.NewNop())
	require.NoError(t, svc.NotifyDisease(ctx, alert))

	publisher.AssertExpectations(t)
	require.Len(t, broadcaster.messages, 1)
	msg := broadcaster.messages[0]
	assert.Equal(t, WSMessageTypeAlert, msg.Type)
	var decoded DiseaseAlert
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, alert.ID, decoded.ID)
}

func TestNotifyDiseaseErrors(t *testing.T) {
	ctx := context.Background()
	alert, _ := NewDiseaseAlert("rust_wheat.jpg", diseasedTomato())

	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))
	err := NewService(publisher, &recordingBroadcaster{err: errors.New("full")}, nil).NotifyDisease(ctx, alert)
	assert.ErrorContains(t, err, "throttled")

	// broadcast failures alone are not errors
	assert.NoError(t, NewService(nil, &recordingBroadcaster{err: errors.New("full")}, nil).NotifyDisease(ctx, alert))
}

func TestSNSPublisher(t *testing.T) {
	ctx := context.Background()
	client := new(MockSNS)
	client.On("Publish", ctx, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr, ok := in.MessageAttributes["crop"]
		return ok &&
			aws.ToString(in.TopicArn) == "arn:aws:sns:ap-south-1:1:alerts" &&
			aws.ToString(in.Subject) == "subject" &&
			aws.ToString(in.Message) == "body" &&
			aws.ToString(attr.StringValue) == "Rice" &&
			aws.ToString(attr.DataType) == "String"
	})).Return(&sns.PublishOutput{}, nil).Once()
	client.On("Publish", ctx, mock.Anything).Return(nil, errors.New("denied")).Once()

	p := NewSNSPublisher(client, "arn:aws:sns:ap-south-1:1:alerts")
	require.NoError(t, p.Publish(ctx, "subject", "body", map[string]string{"crop": "Rice"}))
	assert.ErrorContains(t, p.Publish(ctx, "subject", "body", nil), "denied")
	client.AssertExpectations(t)
}
