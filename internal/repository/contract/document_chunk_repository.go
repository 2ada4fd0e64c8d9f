package contract

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocumentChunk wraps a chunk with its similarity score
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteByPartitionId(ctx context.Context, partitionId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountByPartition(ctx context.Context, partitionId uuid.UUID) (int64, error)

	// GetPages returns page-wise text for a document in page order.
	GetPages(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentChunk, error)
	// GetAllPagesInPartition returns every chunk of a partition in reading
	// order (file name, then page), for full-document answering.
	GetAllPagesInPartition(ctx context.Context, partitionId uuid.UUID) ([]*entity.DocumentChunk, error)

	// SearchSimilarWithScore returns chunks with their similarity scores,
	// scoped to one partition and filtered by threshold at the database.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, partitionId uuid.UUID, threshold float64) ([]*ScoredDocumentChunk, error)
}
