// File: internal/infrastructure/database/generation_postgres_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

const uniqueViolationCode = "23505"

// pgxGenerationRepository stores the per-(user,device) generation-id history.
// A partial unique index on (user_id, device_id) over current rows makes
// upsert and rotation atomic: a racing writer loses with a unique violation
// and reads the winner's row instead.
type pgxGenerationRepository struct {
	db *pgxpool.Pool
}

// NewPgxGenerationRepository creates a GenerationRepository backed by Postgres.
func NewPgxGenerationRepository(db *pgxpool.Pool) repository.GenerationRepository {
	return &pgxGenerationRepository{db: db}
}

func (r *pgxGenerationRepository) Current(ctx context.Context, userID, deviceID string, upsert bool) (string, error) {
	id, err := r.selectCurrent(ctx, r.db, userID, deviceID)
	if err != nil {
		return "", err
	}
	if id != "" || !upsert {
		return id, nil
	}

	newID := uuid.NewString()
	query := `
		INSERT INTO token_generations (user_id, device_id, generation_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, device_id) WHERE expires_at IS NULL AND NOT blacklisted DO NOTHING
		RETURNING generation_id`
	err = r.db.QueryRow(ctx, query, userID, deviceID, newID).Scan(&newID)
	if err == nil {
		return newID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to insert generation id: %w", err)
	}

	// Lost the race; the winner's row is now current.
	id, err = r.selectCurrent(ctx, r.db, userID, deviceID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("generation id upsert raced and no current row found")
	}
	return id, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *pgxGenerationRepository) selectCurrent(ctx context.Context, q querier, userID, deviceID string) (string, error) {
	query := `
		SELECT generation_id FROM token_generations
		WHERE user_id = $1 AND device_id = $2 AND expires_at IS NULL AND NOT blacklisted`
	var id string
	err := q.QueryRow(ctx, query, userID, deviceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query current generation id: %w", err)
	}
	return id, nil
}

func (r *pgxGenerationRepository) Rotate(ctx context.Context, userID, deviceID string, grace time.Duration) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	// Expire the current row with a grace window so in-flight access tokens
	// minted against the old id stay briefly valid.
	expireQuery := `
		UPDATE token_generations SET expires_at = now() + $3
		WHERE user_id = $1 AND device_id = $2 AND expires_at IS NULL AND NOT blacklisted`
	if _, err := tx.Exec(ctx, expireQuery, userID, deviceID, grace); err != nil {
		return "", fmt.Errorf("failed to expire current generation id: %w", err)
	}

	newID := uuid.NewString()
	insertQuery := `
		INSERT INTO token_generations (user_id, device_id, generation_id, created_at)
		VALUES ($1, $2, $3, now())`
	if _, err := tx.Exec(ctx, insertQuery, userID, deviceID, newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// A concurrent rotation won; surface its id.
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				return "", rbErr
			}
			return r.selectCurrent(ctx, r.db, userID, deviceID)
		}
		return "", fmt.Errorf("failed to insert rotated generation id: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit rotation: %w", err)
	}
	return newID, nil
}

func (r *pgxGenerationRepository) BlacklistAll(ctx context.Context, userID string, fallbackExpiry time.Time) ([]models.GenerationRecord, error) {
	query := `
		UPDATE token_generations
		SET blacklisted = TRUE, expires_at = COALESCE(expires_at, $2)
		WHERE user_id = $1
		RETURNING user_id, device_id, generation_id, created_at, expires_at, blacklisted`
	rows, err := r.db.Query(ctx, query, userID, fallbackExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to blacklist generation ids: %w", err)
	}
	defer rows.Close()

	var records []models.GenerationRecord
	for rows.Next() {
		var rec models.GenerationRecord
		if err := rows.Scan(&rec.UserID, &rec.DeviceID, &rec.GenerationID, &rec.CreatedAt, &rec.ExpiresAt, &rec.Blacklisted); err != nil {
			return nil, fmt.Errorf("failed to scan blacklisted generation row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blacklisted generation rows: %w", err)
	}
	return records, nil
}

func (r *pgxGenerationRepository) IsBlacklisted(ctx context.Context, generationID string) (bool, time.Time, error) {
	query := `
		SELECT expires_at FROM token_generations
		WHERE generation_id = $1 AND blacklisted`
	var expiresAt *time.Time
	err := r.db.QueryRow(ctx, query, generationID).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, fmt.Errorf("failed to query generation blacklist: %w", err)
	}
	if expiresAt == nil {
		return true, time.Time{}, nil
	}
	return true, *expiresAt, nil
}

var _ repository.GenerationRepository = (*pgxGenerationRepository)(nil)
