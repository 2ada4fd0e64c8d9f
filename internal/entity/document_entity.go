package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	ChatSessionId uuid.UUID
	FileName      string
	PageCount     int
	Language      string
	Status        DocumentStatus
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

// DocumentChunk is one page of one file, embedded for retrieval.
// FileName is denormalized so citation building never needs a join.
type DocumentChunk struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	PartitionId    uuid.UUID
	FileName       string
	PageNumber     int
	Content        string
	Language       string
	EmbeddingValue []float32
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
