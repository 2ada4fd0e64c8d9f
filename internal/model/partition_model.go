package model

import (
	"time"

	"github.com/google/uuid"
)

type Partition struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId uuid.UUID `gorm:"type:uuid;not null;index"`
	// One partition per session, enforced by the database so concurrent
	// create-or-get cannot produce two.
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Key           string    `gorm:"type:varchar(128);not null;uniqueIndex"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (Partition) TableName() string {
	return "partitions"
}
