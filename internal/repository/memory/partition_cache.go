package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PartitionCache remembers session -> partition id so repeat queries skip the
// create-or-get round trip. It satisfies partition.Cache; the pipeline never
// touches go-cache directly, tests inject a plain map fake instead.
type PartitionCache struct {
	cache *cache.Cache
}

func NewPartitionCache() *PartitionCache {
	// Default expiration 1 hour, purge sweep every 10 minutes. Expiry is
	// safe: a miss just re-runs the idempotent create-or-get.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &PartitionCache{
		cache: c,
	}
}

func (r *PartitionCache) Get(sessionID string) (uuid.UUID, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

// Add stores the mapping only if absent, reporting whether this call won.
// go-cache's Add is atomic under its lock, which makes the first-access race
// deterministic: exactly one caller sees ok=true.
func (r *PartitionCache) Add(sessionID string, partitionID uuid.UUID) bool {
	return r.cache.Add(sessionID, partitionID, cache.DefaultExpiration) == nil
}

func (r *PartitionCache) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
