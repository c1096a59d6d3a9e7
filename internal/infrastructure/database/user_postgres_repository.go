// File: internal/infrastructure/database/user_postgres_repository.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

type pgxUserRepository struct {
	db *pgxpool.Pool
}

// NewPgxUserRepository creates a UserRepository backed by Postgres.
func NewPgxUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &pgxUserRepository{db: db}
}

func (r *pgxUserRepository) Create(ctx context.Context, user *models.User, creds models.SRPCredentials) (string, error) {
	id := uuid.NewString()
	households, err := json.Marshal(user.Households)
	if err != nil {
		return "", fmt.Errorf("failed to marshal household grants: %w", err)
	}

	query := `
		INSERT INTO users (id, email, display_name, salt, verifier, mfa_secret, mfa_confirmed, households, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, now())`
	_, err = r.db.Exec(ctx, query, id, user.Email, user.DisplayName, creds.Salt, creds.Verifier, user.MFASecret, households)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", apperrors.ErrUserExists
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

const userColumns = `id, email, display_name, mfa_secret, mfa_confirmed, households, created_at`

func (r *pgxUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *pgxUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *pgxUserRepository) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var households []byte
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.MFASecret, &user.MFAConfirmed, &households, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidUser
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if len(households) > 0 {
		if err := json.Unmarshal(households, &user.Households); err != nil {
			return nil, fmt.Errorf("failed to unmarshal household grants: %w", err)
		}
	}
	return &user, nil
}

func (r *pgxUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query user existence: %w", err)
	}
	return exists, nil
}

func (r *pgxUserRepository) SRPCredentials(ctx context.Context, email string) (*models.SRPCredentials, error) {
	query := `SELECT id, salt, verifier FROM users WHERE email = $1`
	var creds models.SRPCredentials
	err := r.db.QueryRow(ctx, query, email).Scan(&creds.UserID, &creds.Salt, &creds.Verifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidUser
		}
		return nil, fmt.Errorf("failed to query srp credentials: %w", err)
	}
	return &creds, nil
}

func (r *pgxUserRepository) ConfirmMFA(ctx context.Context, id string) error {
	query := `UPDATE users SET mfa_confirmed = TRUE WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to confirm mfa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidUser
	}
	return nil
}

var _ repository.UserRepository = (*pgxUserRepository)(nil)
