package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ProjectLocker serializes render jobs per project so continuity updates
// propagate in order. The lock is advisory: acquisition has a bounded wait
// and holders are fenced by a token so an expired lock cannot be released
// by a stale owner.
type ProjectLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProjectLocker(redisClient *redis.Client, ttl time.Duration) *ProjectLocker {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ProjectLocker{redis: redisClient, ttl: ttl}
}

func lockKey(projectID string) string {
	return fmt.Sprintf("renderlock:%s", projectID)
}

// Acquire blocks until the project lock is held or ctx expires. Returns the
// release token.
func (l *ProjectLocker) Acquire(ctx context.Context, projectID string) (string, error) {
	token := uuid.New().String()
	key := lockKey(projectID)

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire project lock: %w", err)
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Release drops the lock if the token still owns it.
func (l *ProjectLocker) Release(ctx context.Context, projectID, token string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`
	return l.redis.Eval(ctx, script, []string{lockKey(projectID)}, token).Err()
}
