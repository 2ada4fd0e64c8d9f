package implementation

import (
	"context"
	"errors"
	"fmt"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PartitionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PartitionMapper
}

func NewPartitionRepository(db *gorm.DB) contract.PartitionRepository {
	return &PartitionRepositoryImpl{
		db:     db,
		mapper: mapper.NewPartitionMapper(),
	}
}

// CreateOrGet relies on the unique index on chat_session_id: the insert is a
// no-op when a row already exists, then the surviving row is read back. Two
// racing first calls both end up with the same partition.
func (r *PartitionRepositoryImpl) CreateOrGet(ctx context.Context, partition *entity.Partition) (*entity.Partition, error) {
	m := r.mapper.ToModel(partition)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_session_id"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return nil, fmt.Errorf("partition insert failed: %w", err)
	}

	var existing model.Partition
	err = r.db.WithContext(ctx).
		Where("chat_session_id = ?", partition.ChatSessionId).
		First(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("partition read-back failed: %w", err)
	}

	return r.mapper.ToEntity(&existing), nil
}

func (r *PartitionRepositoryImpl) FindByChatSessionId(ctx context.Context, sessionId uuid.UUID) (*entity.Partition, error) {
	var m model.Partition
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PartitionRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.Partition{}).Error
}
