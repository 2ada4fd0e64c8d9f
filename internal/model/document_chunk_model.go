package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartitionId    uuid.UUID       `gorm:"type:uuid;not null;index"` // isolation scope, one partition per session
	FileName       string          `gorm:"type:varchar(512);not null"`
	PageNumber     int             `gorm:"not null;default:1"` // 1-based, one chunk per page
	Content        string          `gorm:"type:text"`
	Language       string          `gorm:"type:varchar(16);not null;default:'en'"`
	EmbeddingValue *pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 dimensionality, NULL until ingested
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
