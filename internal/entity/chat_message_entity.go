package entity

import (
	"time"

	"github.com/google/uuid"
)

// Citation is stored inline on the assistant message; it references a file and
// page by name because chunks may be deleted while the message survives.
type Citation struct {
	FileName   string `json:"file_name"`
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
}

type ChatMessage struct {
	Id            uuid.UUID
	Chat          string
	Role          string
	ChatSessionId uuid.UUID
	Seq           int64 // server-assigned ordering, monotonic per table
	Strategy      string
	CorrelationId string
	Citations     []Citation
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
