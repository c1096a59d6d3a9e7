// File: internal/infrastructure/redis/srp_session_cache.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

// SRPSessionCache holds pending login attempts keyed by email. The TTL bounds
// how long a client has between session init and proof submission; a session
// that outlives it simply vanishes and the client restarts.
type SRPSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSRPSessionCache creates an SRPSessionStore on the shared client.
func NewSRPSessionCache(client *redis.Client, ttl time.Duration) *SRPSessionCache {
	return &SRPSessionCache{client: client, ttl: ttl}
}

func sessionKey(email string) string {
	return fmt.Sprintf("auth:srp:session:%s", email)
}

func (c *SRPSessionCache) Store(ctx context.Context, session *models.SRPSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal srp session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(session.Email), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store srp session: %w", err)
	}
	return nil
}

func (c *SRPSessionCache) Get(ctx context.Context, email string) (*models.SRPSession, error) {
	data, err := c.client.Get(ctx, sessionKey(email)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrAuthSession
		}
		return nil, fmt.Errorf("failed to get srp session: %w", err)
	}

	var session models.SRPSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal srp session: %w", err)
	}
	return &session, nil
}

func (c *SRPSessionCache) Delete(ctx context.Context, email string) error {
	return c.client.Del(ctx, sessionKey(email)).Err()
}

var _ repository.SRPSessionStore = (*SRPSessionCache)(nil)
