package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentPageDTO struct {
	PageNumber int    `json:"page_number" validate:"required,min=1"`
	Content    string `json:"content" validate:"required"`
}

type UploadDocumentRequest struct {
	ChatSessionId uuid.UUID         `json:"chat_session_id" validate:"required"`
	FileName      string            `json:"file_name" validate:"required,max=255"`
	Language      string            `json:"language" validate:"omitempty,max=16"`
	Pages         []DocumentPageDTO `json:"pages" validate:"required,min=1,dive"`
}

type UploadDocumentResponse struct {
	Id        uuid.UUID `json:"id"`
	FileName  string    `json:"file_name"`
	PageCount int       `json:"page_count"`
	Status    string    `json:"status"`
}

type GetDocumentsResponse struct {
	Id        uuid.UUID  `json:"id"`
	FileName  string     `json:"file_name"`
	PageCount int        `json:"page_count"`
	Language  string     `json:"language,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type DeleteDocumentRequest struct {
	DocumentId uuid.UUID `json:"document_id" validate:"required"`
}

// PublishIngestDocumentMessage rides the ingestion queue; the consumer
// reloads everything else from the database so retries stay idempotent.
type PublishIngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
