package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

type ByPartitionID struct {
	PartitionID uuid.UUID
}

func (s ByPartitionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("partition_id = ?", s.PartitionID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByPageOrder orders chunks in reading order for full-document assembly.
type ByPageOrder struct{}

func (s ByPageOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("file_name ASC, page_number ASC")
}
