package mapper

import (
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:            d.Id,
		UserId:        d.UserId,
		ChatSessionId: d.ChatSessionId,
		FileName:      d.FileName,
		PageCount:     d.PageCount,
		Language:      d.Language,
		Status:        entity.DocumentStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:            d.Id,
		UserId:        d.UserId,
		ChatSessionId: d.ChatSessionId,
		FileName:      d.FileName,
		PageCount:     d.PageCount,
		Language:      d.Language,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
	}
}

func (m *DocumentMapper) ChunkToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var embedding []float32
	if c.EmbeddingValue != nil {
		embedding = c.EmbeddingValue.Slice()
	}

	return &entity.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		PartitionId:    c.PartitionId,
		FileName:       c.FileName,
		PageNumber:     c.PageNumber,
		Content:        c.Content,
		Language:       c.Language,
		EmbeddingValue: embedding,
		CreatedAt:      c.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      c.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ChunkToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	// Pre-ingestion chunks carry no embedding; keep the column NULL so the
	// vector dimension check never sees an empty vector.
	var embedding *pgvector.Vector
	if len(c.EmbeddingValue) > 0 {
		v := pgvector.NewVector(c.EmbeddingValue)
		embedding = &v
	}

	return &model.DocumentChunk{
		Id:             c.Id,
		DocumentId:     c.DocumentId,
		PartitionId:    c.PartitionId,
		FileName:       c.FileName,
		PageNumber:     c.PageNumber,
		Content:        c.Content,
		Language:       c.Language,
		EmbeddingValue: embedding,
		CreatedAt:      c.CreatedAt,
		DeletedAt:      deletedAt,
	}
}
