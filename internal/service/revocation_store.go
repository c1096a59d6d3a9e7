package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

// RevocationStore layers the Redis cache over the durable Postgres state for
// generation ids, revocation marks, and JTI blacklists. The database is the
// source of truth: its failures propagate. Cache failures are logged and
// swallowed so a Redis outage degrades to slower lookups, never to accepting
// a revoked token.
type RevocationStore struct {
	generations repository.GenerationRepository
	revocations repository.RevocationRepository
	cache       repository.RevocationCache

	accessTTL  time.Duration
	refreshTTL time.Duration

	logger *zap.Logger
}

const (
	blacklistKindAccess = "access"
	blacklistKindMFA    = "mfa"
)

func NewRevocationStore(
	generations repository.GenerationRepository,
	revocations repository.RevocationRepository,
	cache repository.RevocationCache,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) *RevocationStore {
	return &RevocationStore{
		generations: generations,
		revocations: revocations,
		cache:       cache,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

// CurrentGenerationID returns the live generation id for the device. With
// upsert set, a missing row is created atomically so concurrent first logins
// converge on a single id.
func (s *RevocationStore) CurrentGenerationID(ctx context.Context, userID, deviceID string, upsert bool) (string, error) {
	return s.generations.Current(ctx, userID, deviceID, upsert)
}

// RotateGenerationID retires the device's current generation id and installs
// a fresh one. The retired id stays acceptable for one access-token lifetime
// so access tokens minted just before the rotation can drain naturally.
func (s *RevocationStore) RotateGenerationID(ctx context.Context, userID, deviceID string) (string, error) {
	return s.generations.Rotate(ctx, userID, deviceID, s.accessTTL)
}

// BlacklistAllGenerationIDs kills every generation id the user has ever been
// issued, across all devices, with no grace window. The affected ids are
// pushed into the cache so verification rejects them without touching the
// database.
func (s *RevocationStore) BlacklistAllGenerationIDs(ctx context.Context, userID string) error {
	fallback := time.Now().Add(s.refreshTTL)
	records, err := s.generations.BlacklistAll(ctx, userID, fallback)
	if err != nil {
		return err
	}

	for _, record := range records {
		until := fallback
		if record.ExpiresAt != nil {
			until = *record.ExpiresAt
		}
		if err := s.cache.MarkGenerationBlacklisted(ctx, record.GenerationID, time.Until(until)); err != nil {
			s.logger.Warn("failed to cache blacklisted generation id",
				zap.String("generationId", record.GenerationID), zap.Error(err))
		}
	}
	return nil
}

// IsGenerationIDBlacklisted answers cache-first. A durable hit is backfilled
// into the cache in the background so repeated presentations of the same dead
// token stay off the database.
func (s *RevocationStore) IsGenerationIDBlacklisted(ctx context.Context, generationID string) (bool, error) {
	cached, err := s.cache.GenerationBlacklisted(ctx, generationID)
	if err != nil {
		s.logger.Warn("generation blacklist cache lookup failed",
			zap.String("generationId", generationID), zap.Error(err))
	} else if cached {
		return true, nil
	}

	blacklisted, expiresAt, err := s.generations.IsBlacklisted(ctx, generationID)
	if err != nil {
		return false, err
	}
	if !blacklisted {
		return false, nil
	}

	ttl := s.refreshTTL
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
	}
	go func() {
		backfillCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cache.MarkGenerationBlacklisted(backfillCtx, generationID, ttl); err != nil {
			s.logger.Warn("failed to backfill generation blacklist cache",
				zap.String("generationId", generationID), zap.Error(err))
		}
	}()
	return true, nil
}

// RecordAccessRevocation stamps "now" as the user's revocation cutoff: access
// tokens issued strictly before it are dead. The mark only needs to outlive
// the longest access token that could predate it.
func (s *RevocationStore) RecordAccessRevocation(ctx context.Context, userID string) error {
	// Truncated to whole seconds to line up with iat granularity, keeping the
	// strict-inequality comparison exact.
	now := time.Now().Truncate(time.Second)
	mark := models.AccessRevocation{
		UserID:    userID,
		RevokedAt: now,
		ExpiresAt: now.Add(s.accessTTL),
	}
	if err := s.revocations.RecordAccessRevocation(ctx, mark); err != nil {
		return err
	}
	if err := s.cache.SetAccessRevocation(ctx, userID, now, s.accessTTL); err != nil {
		s.logger.Warn("failed to cache access revocation mark",
			zap.String("userId", userID), zap.Error(err))
	}
	return nil
}

// IsAccessTokenRevoked reports whether an access token issued at issuedAt
// (unix seconds) falls before the user's revocation cutoff. The comparison is
// strict: a token issued in the same second as the revocation survives.
func (s *RevocationStore) IsAccessTokenRevoked(ctx context.Context, userID string, issuedAt int64) (bool, error) {
	revokedAt, err := s.cache.AccessRevocationTime(ctx, userID)
	if err != nil {
		s.logger.Warn("access revocation cache lookup failed",
			zap.String("userId", userID), zap.Error(err))
		revokedAt = nil
	}
	if revokedAt == nil {
		revokedAt, err = s.revocations.AccessRevocationTime(ctx, userID)
		if err != nil {
			return false, err
		}
	}
	if revokedAt == nil {
		return false, nil
	}
	return time.Unix(issuedAt, 0).Before(*revokedAt), nil
}

// BlacklistAccessJTI permanently rejects a single access token by its jti.
func (s *RevocationStore) BlacklistAccessJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := s.revocations.BlacklistAccessJTI(ctx, jti, expiresAt); err != nil {
		return err
	}
	if err := s.cache.MarkJTIBlacklisted(ctx, blacklistKindAccess, jti, time.Until(expiresAt)); err != nil {
		s.logger.Warn("failed to cache access jti blacklist entry",
			zap.String("jti", jti), zap.Error(err))
	}
	return nil
}

func (s *RevocationStore) IsAccessJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.jtiBlacklisted(ctx, blacklistKindAccess, jti)
}

// BlacklistMFAToken consumes an MFA token's jti so it can never be presented
// a second time.
func (s *RevocationStore) BlacklistMFAToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := s.revocations.BlacklistMFAJTI(ctx, jti, expiresAt); err != nil {
		return err
	}
	if err := s.cache.MarkJTIBlacklisted(ctx, blacklistKindMFA, jti, time.Until(expiresAt)); err != nil {
		s.logger.Warn("failed to cache mfa jti blacklist entry",
			zap.String("jti", jti), zap.Error(err))
	}
	return nil
}

func (s *RevocationStore) IsMFATokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.jtiBlacklisted(ctx, blacklistKindMFA, jti)
}

func (s *RevocationStore) jtiBlacklisted(ctx context.Context, kind, jti string) (bool, error) {
	cached, err := s.cache.JTIBlacklisted(ctx, kind, jti)
	if err != nil {
		s.logger.Warn("jti blacklist cache lookup failed",
			zap.String("kind", kind), zap.String("jti", jti), zap.Error(err))
	} else if cached {
		return true, nil
	}

	switch kind {
	case blacklistKindAccess:
		return s.revocations.IsAccessJTIBlacklisted(ctx, jti)
	default:
		return s.revocations.IsMFAJTIBlacklisted(ctx, jti)
	}
}
