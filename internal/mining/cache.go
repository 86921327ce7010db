package mining

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "mining:result:"

// Cache holds completed mining results in Redis so repeated reads skip
// the result payload query. A nil client disables caching transparently.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached result for the run id, or nil on miss.
func (c *Cache) Get(ctx context.Context, runID string) (*MiningResult, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, cacheKeyPrefix+runID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result MiningResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Put stores a terminal result. Non-terminal snapshots are not cached.
func (c *Cache) Put(ctx context.Context, result *MiningResult) error {
	if c == nil || c.client == nil || result == nil || !result.Terminal() {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+result.JobID, payload, c.ttl).Err()
}

// Invalidate drops the cached result for the run id.
func (c *Cache) Invalidate(ctx context.Context, runID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKeyPrefix+runID).Err()
}
