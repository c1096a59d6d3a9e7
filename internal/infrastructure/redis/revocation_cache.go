// File: internal/infrastructure/redis/revocation_cache.go
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/smartify-home/auth-service/internal/domain/repository"
)

// RevocationCache mirrors revocation state in Redis with TTLs equal to the
// remaining lifetime of whatever the entry shadows. It is an optimization
// only: callers treat every error as a miss and fall through to the durable
// store.
type RevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a RevocationCache on the shared client.
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

func generationKey(generationID string) string {
	return fmt.Sprintf("auth:genid:blacklist:%s", generationID)
}

func revocationKey(userID string) string {
	return fmt.Sprintf("auth:user:%s:revoked_at", userID)
}

func jtiKey(kind, jti string) string {
	return fmt.Sprintf("auth:%s:blacklist:%s", kind, jti)
}

func (c *RevocationCache) MarkGenerationBlacklisted(ctx context.Context, generationID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, generationKey(generationID), "1", ttl).Err()
}

func (c *RevocationCache) GenerationBlacklisted(ctx context.Context, generationID string) (bool, error) {
	n, err := c.client.Exists(ctx, generationKey(generationID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RevocationCache) SetAccessRevocation(ctx context.Context, userID string, revokedAt time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revocationKey(userID), strconv.FormatInt(revokedAt.Unix(), 10), ttl).Err()
}

func (c *RevocationCache) AccessRevocationTime(ctx context.Context, userID string) (*time.Time, error) {
	raw, err := c.client.Get(ctx, revocationKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt revocation timestamp %q: %w", raw, err)
	}
	t := time.Unix(secs, 0)
	return &t, nil
}

func (c *RevocationCache) MarkJTIBlacklisted(ctx context.Context, kind, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, jtiKey(kind, jti), "1", ttl).Err()
}

func (c *RevocationCache) JTIBlacklisted(ctx context.Context, kind, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, jtiKey(kind, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ repository.RevocationCache = (*RevocationCache)(nil)
