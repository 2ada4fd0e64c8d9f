package websocket

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an ephemeral push frame. Nothing here is persisted; a
// client that is offline simply misses it and reconciles from the REST API.
type Notification struct {
	Id        uuid.UUID              `json:"id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotification stamps identity and time so callers only supply content.
func NewNotification(notifType, title, message string, data map[string]interface{}) Notification {
	return Notification{
		Id:        uuid.New(),
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
}
