package advisor

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tripmates/trip-planner-api/internal/types"
)

// SuggestionCache is the cache-or-compute idiom the advisor relies on: one
// call takes a key, a TTL and a lazily-invoked compute closure, so the
// get/check/set sequence is never visible to the orchestrator. The bool
// result reports whether the value was served without running compute.
type SuggestionCache interface {
	Remember(key string, ttl time.Duration, compute func() (*types.SuggestedPlaceCollection, error)) (*types.SuggestedPlaceCollection, bool, error)
}

var _ SuggestionCache = (*MemoryCache)(nil)

// MemoryCache is the in-process TTL cache backing suggestion results.
// Concurrent misses for the same key may each compute and write;
// last-writer-wins is acceptable for this workload.
type MemoryCache struct {
	store *cache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: cache.New(defaultTTL, 10*time.Minute),
	}
}

func (c *MemoryCache) Remember(key string, ttl time.Duration, compute func() (*types.SuggestedPlaceCollection, error)) (*types.SuggestedPlaceCollection, bool, error) {
	if cached, found := c.store.Get(key); found {
		if collection, ok := cached.(*types.SuggestedPlaceCollection); ok {
			return collection, true, nil
		}
	}

	collection, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.store.Set(key, collection, ttl)
	return collection, false, nil
}
