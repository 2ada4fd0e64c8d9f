package partition

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/rag"

	"github.com/google/uuid"
)

// Cache is the injectable session -> partition map. Add must be an atomic
// get-or-insert so concurrent first access stays deterministic.
type Cache interface {
	Get(sessionID string) (uuid.UUID, bool)
	Add(sessionID string, partitionID uuid.UUID) bool
	Delete(sessionID string)
}

// Manager maps a (user, session) pair to its isolated retrieval partition.
type Manager struct {
	repo   contract.PartitionRepository
	cache  Cache
	logger *log.Logger
}

// NewManager creates a new partition manager
func NewManager(repo contract.PartitionRepository, cache Cache, logger *log.Logger) *Manager {
	return &Manager{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// GetOrCreate returns the partition id for the session, creating the
// partition on first access. Idempotent: racing callers converge on one row
// because the store's CreateOrGet is conflict-safe and the cache insert is
// atomic. Creation failure is fatal for the request; without a partition no
// isolation guarantee holds.
func (m *Manager) GetOrCreate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (uuid.UUID, error) {
	cacheKey := sessionId.String()

	if id, found := m.cache.Get(cacheKey); found {
		return id, nil
	}

	candidate := &entity.Partition{
		Id:            uuid.New(),
		UserId:        userId,
		ChatSessionId: sessionId,
		Key:           DeriveKey(userId, sessionId),
		CreatedAt:     time.Now(),
	}

	created, err := m.repo.CreateOrGet(ctx, candidate)
	if err != nil {
		m.logger.Printf("[ERROR] Partition create-or-get failed for session %s: %v", sessionId, err)
		return uuid.Nil, rag.NewFailure(rag.KindPartitionCreation, "partition", err)
	}

	if m.cache.Add(cacheKey, created.Id) {
		m.logger.Printf("[PARTITION] Resolved partition %s (key=%s) for session %s", created.Id, created.Key, sessionId)
	}

	return created.Id, nil
}

// Invalidate drops the cached mapping, used when a session is deleted.
func (m *Manager) Invalidate(sessionId uuid.UUID) {
	m.cache.Delete(sessionId.String())
}

// DeriveKey builds the deterministic, sanitized, collision-free partition
// name for a (user, session) pair. Session uuids are globally unique, so the
// key is too; the user component keeps the name self-describing in ops tools.
func DeriveKey(userId uuid.UUID, sessionId uuid.UUID) string {
	u := sanitize(userId.String())
	s := sanitize(sessionId.String())
	return fmt.Sprintf("u_%s_s_%s", u, s)
}

func sanitize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
