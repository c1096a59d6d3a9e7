// File: internal/domain/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"github.com/smartify-home/auth-service/internal/domain/models"
)

// UserRepository is the durable user store. FindByEmail and GetByID return
// apperrors.ErrInvalidUser when no such user exists.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, creds models.SRPCredentials) (string, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	SRPCredentials(ctx context.Context, email string) (*models.SRPCredentials, error)
	ConfirmMFA(ctx context.Context, id string) error
}

// GenerationRepository is the durable side of the generation-id store.
type GenerationRepository interface {
	// Current returns the generation id of the pair's current row, or "" when
	// none exists. With upsert set, a missing row is created atomically and
	// its fresh id returned.
	Current(ctx context.Context, userID, deviceID string, upsert bool) (string, error)
	// Rotate expires the current row with the given grace window and inserts
	// a fresh current row, returning the new generation id.
	Rotate(ctx context.Context, userID, deviceID string, grace time.Duration) (string, error)
	// BlacklistAll flips blacklisted on every row for the user, assigning the
	// fallback expiry where none is set, and returns the affected records.
	BlacklistAll(ctx context.Context, userID string, fallbackExpiry time.Time) ([]models.GenerationRecord, error)
	IsBlacklisted(ctx context.Context, generationID string) (bool, time.Time, error)
}

// RevocationRepository is the durable side of the per-user access revocation
// mark and the single-use jti blacklists.
type RevocationRepository interface {
	RecordAccessRevocation(ctx context.Context, revocation models.AccessRevocation) error
	AccessRevocationTime(ctx context.Context, userID string) (*time.Time, error)
	BlacklistAccessJTI(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessJTIBlacklisted(ctx context.Context, jti string) (bool, error)
	BlacklistMFAJTI(ctx context.Context, jti string, expiresAt time.Time) error
	IsMFAJTIBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RevocationCache is the volatile, TTL-bound mirror of revocation state.
// Implementations are best-effort: callers treat errors as cache misses and
// never fail a request on them.
type RevocationCache interface {
	MarkGenerationBlacklisted(ctx context.Context, generationID string, ttl time.Duration) error
	GenerationBlacklisted(ctx context.Context, generationID string) (bool, error)
	SetAccessRevocation(ctx context.Context, userID string, revokedAt time.Time, ttl time.Duration) error
	AccessRevocationTime(ctx context.Context, userID string) (*time.Time, error)
	MarkJTIBlacklisted(ctx context.Context, kind, jti string, ttl time.Duration) error
	JTIBlacklisted(ctx context.Context, kind, jti string) (bool, error)
}

// SRPSessionStore holds pending login attempts. Sessions are TTL-bound and
// consumed exactly once.
type SRPSessionStore interface {
	Store(ctx context.Context, session *models.SRPSession) error
	Get(ctx context.Context, email string) (*models.SRPSession, error)
	Delete(ctx context.Context, email string) error
}
