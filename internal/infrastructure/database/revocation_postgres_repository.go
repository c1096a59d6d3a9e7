// File: internal/infrastructure/database/revocation_postgres_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

// pgxRevocationRepository is the durable home of the per-user access
// revocation mark and the single-use jti blacklists. Rows outlive their
// usefulness by design; expiry columns let a cleanup job reap them lazily.
type pgxRevocationRepository struct {
	db *pgxpool.Pool
}

// NewPgxRevocationRepository creates a RevocationRepository backed by Postgres.
func NewPgxRevocationRepository(db *pgxpool.Pool) repository.RevocationRepository {
	return &pgxRevocationRepository{db: db}
}

func (r *pgxRevocationRepository) RecordAccessRevocation(ctx context.Context, revocation models.AccessRevocation) error {
	query := `
		INSERT INTO access_revocations (user_id, revoked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET revoked_at = EXCLUDED.revoked_at, expires_at = EXCLUDED.expires_at`
	if _, err := r.db.Exec(ctx, query, revocation.UserID, revocation.RevokedAt, revocation.ExpiresAt); err != nil {
		return fmt.Errorf("failed to record access revocation: %w", err)
	}
	return nil
}

func (r *pgxRevocationRepository) AccessRevocationTime(ctx context.Context, userID string) (*time.Time, error) {
	query := `SELECT revoked_at FROM access_revocations WHERE user_id = $1 AND expires_at > now()`
	var revokedAt time.Time
	err := r.db.QueryRow(ctx, query, userID).Scan(&revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query access revocation: %w", err)
	}
	return &revokedAt, nil
}

func (r *pgxRevocationRepository) BlacklistAccessJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.blacklistJTI(ctx, "access_token_blacklist", jti, expiresAt)
}

func (r *pgxRevocationRepository) IsAccessJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	return r.jtiBlacklisted(ctx, "access_token_blacklist", jti)
}

func (r *pgxRevocationRepository) BlacklistMFAJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	return r.blacklistJTI(ctx, "mfa_token_blacklist", jti, expiresAt)
}

func (r *pgxRevocationRepository) IsMFAJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	return r.jtiBlacklisted(ctx, "mfa_token_blacklist", jti)
}

func (r *pgxRevocationRepository) blacklistJTI(ctx context.Context, table, jti string, expiresAt time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`, table)
	if _, err := r.db.Exec(ctx, query, jti, expiresAt); err != nil {
		return fmt.Errorf("failed to blacklist jti: %w", err)
	}
	return nil
}

func (r *pgxRevocationRepository) jtiBlacklisted(ctx context.Context, table, jti string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE jti = $1)`, table)
	var exists bool
	if err := r.db.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query jti blacklist: %w", err)
	}
	return exists, nil
}

var _ repository.RevocationRepository = (*pgxRevocationRepository)(nil)
