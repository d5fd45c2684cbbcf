package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// TopicPrefix is prepended to a society id to form the topic every device
// in that society subscribes to.
const TopicPrefix = "society_"

func TopicFor(societyID string) string {
	return TopicPrefix + societyID
}

type FCMService struct {
	client *messaging.Client
	logger *zap.Logger
}

func NewFCMService(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FCMService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, logger: logger}, nil
}

// SendToSociety pushes a notification to the society's topic.
func (s *FCMService) SendToSociety(ctx context.Context, societyID, title, body string, data map[string]any) error {
	message := &messaging.Message{
		Topic: TopicFor(societyID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: stringData(data),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		s.logger.Warn("fcm: topic send failed", zap.String("society_id", societyID), zap.Error(err))
		return fmt.Errorf("send to %s: %w", message.Topic, err)
	}
	s.logger.Debug("fcm: sent", zap.String("topic", message.Topic), zap.String("message_id", id))
	return nil
}

// FCM data payloads only carry strings.
func stringData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
