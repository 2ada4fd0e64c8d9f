package entity

import (
	"time"

	"github.com/google/uuid"
)

// Partition is the isolated retrieval namespace for one chat session.
// Key is the deterministic sanitized name derived from (userId, sessionId).
type Partition struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	ChatSessionId uuid.UUID
	Key           string
	CreatedAt     time.Time
}
