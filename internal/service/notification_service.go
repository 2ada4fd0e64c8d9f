package service

import (
	"context"
	"fmt"
	"strings"

	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationService relays user-addressed bus events to connected
// websocket clients. Delivery is ephemeral: there is no notification store,
// the REST API remains the source of truth for state.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewNotificationService(subscriber *pktNats.Subscriber, hub *websocket.Hub, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

// Start subscribes to the event bus. A missing NATS connection disables
// pushes without failing startup.
func (s *NotificationService) Start() error {
	if s.subscriber == nil {
		s.logger.Warn("NotificationService", "NATS unavailable, websocket pushes disabled", nil)
		return nil
	}
	return s.subscriber.Subscribe("events.>", "notification-relay", s.handleEvent)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	eventType := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	if eventType == "SYSTEM_BROADCAST" {
		title, _ := payload["title"].(string)
		message, _ := payload["message"].(string)
		s.hub.Broadcast(websocket.NewNotification(eventType, title, message, payload))
		return nil
	}

	userId, ok := extractUserId(payload)
	if !ok {
		// Not user-addressed; nothing to push.
		return nil
	}

	notification, ok := describeEvent(eventType, payload)
	if !ok {
		return nil
	}

	s.hub.Send(userId, notification)
	s.logger.Info("NotificationService", "Pushed event", map[string]interface{}{
		"event_type": eventType,
		"user_id":    userId,
	})
	return nil
}

func extractUserId(payload map[string]interface{}) (uuid.UUID, bool) {
	raw, ok := payload["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// describeEvent maps bus events to user-facing pushes. Events without an
// entry are internal and stay off the wire.
func describeEvent(eventType string, payload map[string]interface{}) (websocket.Notification, bool) {
	fileName, _ := payload["file_name"].(string)

	switch eventType {
	case "DOCUMENT_READY":
		return websocket.NewNotification(
			eventType,
			"Document ready",
			fmt.Sprintf("%s has been processed and is ready for questions", fileName),
			payload,
		), true
	case "DOCUMENT_FAILED":
		return websocket.NewNotification(
			eventType,
			"Document processing failed",
			fmt.Sprintf("%s could not be processed, please try uploading again", fileName),
			payload,
		), true
	default:
		return websocket.Notification{}, false
	}
}
