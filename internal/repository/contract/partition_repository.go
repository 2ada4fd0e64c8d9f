package contract

import (
	"context"

	"ai-docchat-be/internal/entity"

	"github.com/google/uuid"
)

type PartitionRepository interface {
	// CreateOrGet inserts the partition unless one already exists for its
	// session, and returns the surviving row. Implementations must be
	// idempotent under concurrent first access (ON CONFLICT DO NOTHING plus
	// re-read, or equivalent).
	CreateOrGet(ctx context.Context, partition *entity.Partition) (*entity.Partition, error)
	FindByChatSessionId(ctx context.Context, sessionId uuid.UUID) (*entity.Partition, error)
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
}
