package partition

import (
	"context"
	"errors"
	"log"
	"io"
	"sync"
	"testing"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/rag"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeCache struct {
	mu sync.Mutex
	m  map[string]uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string]uuid.UUID)}
}

func (c *fakeCache) Get(key string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[key]
	return id, ok
}

func (c *fakeCache) Add(key string, id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; exists {
		return false
	}
	c.m[key] = id
	return true
}

func (c *fakeCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// fakePartitionStore mimics the database unique constraint: first insert for
// a session wins, later inserts observe the surviving row.
type fakePartitionStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*entity.Partition
	creates int
	fail    bool
}

func newFakePartitionStore() *fakePartitionStore {
	return &fakePartitionStore{rows: make(map[uuid.UUID]*entity.Partition)}
}

func (s *fakePartitionStore) CreateOrGet(ctx context.Context, p *entity.Partition) (*entity.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("connection refused")
	}
	if existing, ok := s.rows[p.ChatSessionId]; ok {
		return existing, nil
	}
	s.creates++
	cp := *p
	s.rows[p.ChatSessionId] = &cp
	return &cp, nil
}

func (s *fakePartitionStore) FindByChatSessionId(ctx context.Context, sessionId uuid.UUID) (*entity.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[sessionId], nil
}

func (s *fakePartitionStore) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sessionId)
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGetOrCreateIdempotent(t *testing.T) {
	store := newFakePartitionStore()
	m := NewManager(store, newFakeCache(), discardLogger())

	userId := uuid.New()
	sessionId := uuid.New()

	first, err := m.GetOrCreate(context.Background(), userId, sessionId)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first)

	second, err := m.GetOrCreate(context.Background(), userId, sessionId)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.creates)
}

func TestGetOrCreateConcurrentFirstAccess(t *testing.T) {
	store := newFakePartitionStore()
	m := NewManager(store, newFakeCache(), discardLogger())

	userId := uuid.New()
	sessionId := uuid.New()

	const callers = 32
	results := make([]uuid.UUID, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			id, err := m.GetOrCreate(context.Background(), userId, sessionId)
			assert.NoError(t, err)
			results[idx] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.creates, "concurrent first access must create exactly one partition")
	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
}

func TestGetOrCreateCacheHitSkipsStore(t *testing.T) {
	store := newFakePartitionStore()
	cache := newFakeCache()
	m := NewManager(store, cache, discardLogger())

	userId := uuid.New()
	sessionId := uuid.New()

	_, err := m.GetOrCreate(context.Background(), userId, sessionId)
	assert.NoError(t, err)

	// Break the store; cached lookups must not notice.
	store.fail = true
	id, err := m.GetOrCreate(context.Background(), userId, sessionId)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}

func TestGetOrCreateFailureIsFatal(t *testing.T) {
	store := newFakePartitionStore()
	store.fail = true
	m := NewManager(store, newFakeCache(), discardLogger())

	_, err := m.GetOrCreate(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err)

	kind, ok := rag.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, rag.KindPartitionCreation, kind)
	assert.True(t, rag.IsFatal(err))
}

func TestDeriveKey(t *testing.T) {
	userId := uuid.New()
	sessionId := uuid.New()

	key := DeriveKey(userId, sessionId)
	assert.Equal(t, key, DeriveKey(userId, sessionId), "key must be deterministic")
	assert.NotEqual(t, key, DeriveKey(userId, uuid.New()), "different sessions must get different keys")

	for _, r := range key {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		assert.True(t, valid, "key must stay sanitized, got %q", r)
	}
}

func TestInvalidateForcesStoreLookup(t *testing.T) {
	store := newFakePartitionStore()
	m := NewManager(store, newFakeCache(), discardLogger())

	userId := uuid.New()
	sessionId := uuid.New()

	first, _ := m.GetOrCreate(context.Background(), userId, sessionId)
	m.Invalidate(sessionId)

	second, err := m.GetOrCreate(context.Background(), userId, sessionId)
	assert.NoError(t, err)
	assert.Equal(t, first, second, "store still owns the mapping after cache invalidation")
}
