package mapper

import (
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"
)

type PartitionMapper struct{}

func NewPartitionMapper() *PartitionMapper {
	return &PartitionMapper{}
}

func (m *PartitionMapper) ToEntity(p *model.Partition) *entity.Partition {
	if p == nil {
		return nil
	}
	return &entity.Partition{
		Id:            p.Id,
		UserId:        p.UserId,
		ChatSessionId: p.ChatSessionId,
		Key:           p.Key,
		CreatedAt:     p.CreatedAt,
	}
}

func (m *PartitionMapper) ToModel(p *entity.Partition) *model.Partition {
	if p == nil {
		return nil
	}
	return &model.Partition{
		Id:            p.Id,
		UserId:        p.UserId,
		ChatSessionId: p.ChatSessionId,
		Key:           p.Key,
		CreatedAt:     p.CreatedAt,
	}
}
