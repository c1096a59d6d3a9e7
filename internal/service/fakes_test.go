package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
)

// In-memory doubles for the durable stores and the cache, faithful to the
// interface contracts so the service layer can be exercised without Postgres
// or Redis.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	creds map[string]models.SRPCredentials // keyed by email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*models.User),
		creds: make(map[string]models.SRPCredentials),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User, creds models.SRPCredentials) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return "", apperrors.ErrUserExists
		}
	}
	id := uuid.NewString()
	stored := *user
	stored.ID = id
	stored.CreatedAt = time.Now()
	r.users[id] = &stored
	creds.UserID = id
	r.creds[user.Email] = creds
	return id, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrInvalidUser
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrInvalidUser
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) SRPCredentials(_ context.Context, email string) (*models.SRPCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	creds, ok := r.creds[email]
	if !ok {
		return nil, apperrors.ErrInvalidUser
	}
	return &creds, nil
}

func (r *fakeUserRepo) ConfirmMFA(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.ErrInvalidUser
	}
	u.MFAConfirmed = true
	return nil
}

type fakeGenerationRepo struct {
	mu   sync.Mutex
	rows []*models.GenerationRecord
}

func newFakeGenerationRepo() *fakeGenerationRepo { return &fakeGenerationRepo{} }

func (r *fakeGenerationRepo) current(userID, deviceID string) *models.GenerationRecord {
	for _, row := range r.rows {
		if row.UserID == userID && row.DeviceID == deviceID && row.Current() {
			return row
		}
	}
	return nil
}

func (r *fakeGenerationRepo) Current(_ context.Context, userID, deviceID string, upsert bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row := r.current(userID, deviceID); row != nil {
		return row.GenerationID, nil
	}
	if !upsert {
		return "", nil
	}
	row := &models.GenerationRecord{UserID: userID, DeviceID: deviceID, GenerationID: uuid.NewString(), CreatedAt: time.Now()}
	r.rows = append(r.rows, row)
	return row.GenerationID, nil
}

func (r *fakeGenerationRepo) Rotate(_ context.Context, userID, deviceID string, grace time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row := r.current(userID, deviceID); row != nil {
		expiry := time.Now().Add(grace)
		row.ExpiresAt = &expiry
	}
	row := &models.GenerationRecord{UserID: userID, DeviceID: deviceID, GenerationID: uuid.NewString(), CreatedAt: time.Now()}
	r.rows = append(r.rows, row)
	return row.GenerationID, nil
}

func (r *fakeGenerationRepo) BlacklistAll(_ context.Context, userID string, fallbackExpiry time.Time) ([]models.GenerationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []models.GenerationRecord
	for _, row := range r.rows {
		if row.UserID != userID || row.Blacklisted {
			continue
		}
		row.Blacklisted = true
		if row.ExpiresAt == nil {
			expiry := fallbackExpiry
			row.ExpiresAt = &expiry
		}
		affected = append(affected, *row)
	}
	return affected, nil
}

func (r *fakeGenerationRepo) IsBlacklisted(_ context.Context, generationID string) (bool, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.GenerationID == generationID && row.Blacklisted {
			expiry := time.Time{}
			if row.ExpiresAt != nil {
				expiry = *row.ExpiresAt
			}
			return true, expiry, nil
		}
	}
	return false, time.Time{}, nil
}

type fakeRevocationRepo struct {
	mu         sync.Mutex
	revokedAt  map[string]time.Time
	accessJTIs map[string]bool
	mfaJTIs    map[string]bool
}

func newFakeRevocationRepo() *fakeRevocationRepo {
	return &fakeRevocationRepo{
		revokedAt:  make(map[string]time.Time),
		accessJTIs: make(map[string]bool),
		mfaJTIs:    make(map[string]bool),
	}
}

func (r *fakeRevocationRepo) RecordAccessRevocation(_ context.Context, revocation models.AccessRevocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revokedAt[revocation.UserID] = revocation.RevokedAt
	return nil
}

func (r *fakeRevocationRepo) AccessRevocationTime(_ context.Context, userID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.revokedAt[userID]; ok {
		return &at, nil
	}
	return nil, nil
}

func (r *fakeRevocationRepo) BlacklistAccessJTI(_ context.Context, jti string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessJTIs[jti] = true
	return nil
}

func (r *fakeRevocationRepo) IsAccessJTIBlacklisted(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessJTIs[jti], nil
}

func (r *fakeRevocationRepo) BlacklistMFAJTI(_ context.Context, jti string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mfaJTIs[jti] = true
	return nil
}

func (r *fakeRevocationRepo) IsMFAJTIBlacklisted(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mfaJTIs[jti], nil
}

type fakeRevocationCache struct {
	mu          sync.Mutex
	generations map[string]bool
	revocations map[string]time.Time
	jtis        map[string]bool
}

func newFakeRevocationCache() *fakeRevocationCache {
	return &fakeRevocationCache{
		generations: make(map[string]bool),
		revocations: make(map[string]time.Time),
		jtis:        make(map[string]bool),
	}
}

func (c *fakeRevocationCache) MarkGenerationBlacklisted(_ context.Context, generationID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[generationID] = true
	return nil
}

func (c *fakeRevocationCache) GenerationBlacklisted(_ context.Context, generationID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[generationID], nil
}

func (c *fakeRevocationCache) SetAccessRevocation(_ context.Context, userID string, revokedAt time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revocations[userID] = revokedAt
	return nil
}

func (c *fakeRevocationCache) AccessRevocationTime(_ context.Context, userID string) (*time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at, ok := c.revocations[userID]; ok {
		return &at, nil
	}
	return nil, nil
}

func (c *fakeRevocationCache) MarkJTIBlacklisted(_ context.Context, kind, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jtis[kind+":"+jti] = true
	return nil
}

func (c *fakeRevocationCache) JTIBlacklisted(_ context.Context, kind, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jtis[kind+":"+jti], nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.SRPSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.SRPSession)}
}

func (s *fakeSessionStore) Store(_ context.Context, session *models.SRPSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.Email] = &copied
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, email string) (*models.SRPSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[email]
	if !ok {
		return nil, apperrors.ErrAuthSession
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, email)
	return nil
}

// fakeTOTP accepts a single hard-coded code for any secret.
type fakeTOTP struct {
	accepted string
}

func (f *fakeTOTP) GenerateSecret(string) (string, string, error) {
	return "FAKESECRETBASE32", "otpauth://totp/test", nil
}

func (f *fakeTOTP) ValidateCode(_, code string) bool {
	return code == f.accepted
}
