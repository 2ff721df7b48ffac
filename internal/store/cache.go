package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shotflow/api/internal/model"
)

const stateCacheTTL = 30 * time.Second

// CachedContinuityStore is a short-lived read-through cache in front of the
// durable continuity store. The durable row stays the source of truth: every
// write goes straight through and drops the cached copy.
type CachedContinuityStore struct {
	inner ContinuityStore
	redis *redis.Client
}

func NewCachedContinuityStore(inner ContinuityStore, redisClient *redis.Client) *CachedContinuityStore {
	return &CachedContinuityStore{inner: inner, redis: redisClient}
}

func stateCacheKey(projectID string) string {
	return fmt.Sprintf("continuity:%s", projectID)
}

func (c *CachedContinuityStore) GetOrCreateState(ctx context.Context, projectID, sessionID string) (*model.ContinuityState, error) {
	key := stateCacheKey(projectID)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var s model.ContinuityState
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		// Corrupt cache entry; fall through to the store.
		c.redis.Del(ctx, key)
	}

	s, err := c.inner.GetOrCreateState(ctx, projectID, sessionID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, s)
	return s, nil
}

func (c *CachedContinuityStore) UpdateState(ctx context.Context, s *model.ContinuityState) error {
	if err := c.inner.UpdateState(ctx, s); err != nil {
		return err
	}
	// Invalidate rather than refresh so a concurrent writer cannot leave a
	// stale copy behind.
	c.redis.Del(ctx, stateCacheKey(s.ProjectID))
	return nil
}

func (c *CachedContinuityStore) GetStateBySession(ctx context.Context, sessionID string) (*model.ContinuityState, error) {
	// Session lookups bypass the cache; they are rare and keyed differently.
	return c.inner.GetStateBySession(ctx, sessionID)
}

func (c *CachedContinuityStore) put(ctx context.Context, s *model.ContinuityState) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.redis.Set(ctx, stateCacheKey(s.ProjectID), data, stateCacheTTL)
}
