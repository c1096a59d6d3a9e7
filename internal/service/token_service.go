package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/config"
	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
)

// TokenService owns the lifecycle of the four token kinds: minting the
// login bundle, verification against revocation state, refresh, and the
// revocation operations themselves.
type TokenService struct {
	codec       *TokenCodec
	users       repository.UserRepository
	revocations *RevocationStore

	accessTTL  time.Duration
	refreshTTL time.Duration
	mfaTTL     time.Duration

	logger *zap.Logger
}

func NewTokenService(
	codec *TokenCodec,
	users repository.UserRepository,
	revocations *RevocationStore,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		codec:       codec,
		users:       users,
		revocations: revocations,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		mfaTTL:      cfg.MFATokenTTL,
		logger:      logger,
	}
}

// GenerateAllTokens mints the access/refresh/id bundle for a device. All
// three carry the device's current generation id and a fresh snapshot of the
// user's household grants.
func (s *TokenService) GenerateAllTokens(ctx context.Context, userID, deviceID string) (*models.TokenBundle, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrInvalidUser
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	generationID, err := s.revocations.CurrentGenerationID(ctx, userID, deviceID, true)
	if err != nil {
		return nil, err
	}

	return s.mintBundle(user, deviceID, generationID)
}

func (s *TokenService) mintBundle(user *models.User, deviceID, generationID string) (*models.TokenBundle, error) {
	now := time.Now().Unix()
	snapshot := user.TokenSnapshot()
	refreshJTI := uuid.NewString()

	refresh := models.RefreshTokenPayload{
		CommonClaims: models.CommonClaims{UserID: user.ID, Type: models.TokenTypeRefresh, IssuedAt: now},
		GenerationID: generationID,
		JTI:          refreshJTI,
	}
	access := models.AccessTokenPayload{
		CommonClaims: models.CommonClaims{UserID: user.ID, Type: models.TokenTypeAccess, IssuedAt: now},
		GenerationID: generationID,
		JTI:          uuid.NewString(),
		RefreshJTI:   refreshJTI,
		DeviceID:     deviceID,
		User:         snapshot,
	}
	id := models.IDTokenPayload{
		CommonClaims: models.CommonClaims{UserID: user.ID, Type: models.TokenTypeID, IssuedAt: now},
		GenerationID: generationID,
		User:         snapshot,
		Name:         user.DisplayName,
	}

	var bundle models.TokenBundle
	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		bundle.AccessToken, errs[0] = s.codec.Issue(access, s.accessTTL, true)
	}()
	go func() {
		defer wg.Done()
		bundle.RefreshToken, errs[1] = s.codec.Issue(refresh, s.refreshTTL, true)
	}()
	go func() {
		defer wg.Done()
		bundle.IDToken, errs[2] = s.codec.Issue(id, s.refreshTTL, false)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &bundle, nil
}

// VerifyToken decodes the token and checks it against every applicable
// revocation surface. An invalid or revoked token comes back as ok=false; a
// non-nil error means the durable store could not be consulted and the caller
// must not treat the token as either valid or invalid.
func (s *TokenService) VerifyToken(ctx context.Context, token string, encrypted bool) (models.TokenPayload, bool, error) {
	payload, err := s.codec.Decode(token, encrypted)
	if err != nil {
		s.logger.Debug("token failed decoding", zap.Error(err))
		return nil, false, nil
	}

	if generationID := models.GenerationID(payload); generationID != "" {
		blacklisted, err := s.revocations.IsGenerationIDBlacklisted(ctx, generationID)
		if err != nil {
			return nil, false, err
		}
		if blacklisted {
			return nil, false, nil
		}
	}

	if access, ok := payload.(models.AccessTokenPayload); ok {
		blacklisted, err := s.revocations.IsAccessJTIBlacklisted(ctx, access.JTI)
		if err != nil {
			return nil, false, err
		}
		if blacklisted {
			return nil, false, nil
		}
		revoked, err := s.revocations.IsAccessTokenRevoked(ctx, access.UserID, access.IssuedAt)
		if err != nil {
			return nil, false, err
		}
		if revoked {
			return nil, false, nil
		}
	}

	return payload, true, nil
}

// RefreshTokens exchanges a still-valid refresh token for a fresh bundle.
// The refresh token must belong to the presenting device: its generation id
// is cross-checked against the device's current one, so a token stolen onto
// another device context is useless.
//
// TODO: rotate the refresh jti chain on refresh instead of reusing the
// generation id for the bundle's whole lifetime.
func (s *TokenService) RefreshTokens(ctx context.Context, refreshToken, deviceID string) (*models.TokenBundle, error) {
	payload, ok, err := s.VerifyToken(ctx, refreshToken, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewTokenValidationError("refresh token failed verification")
	}

	refresh, ok := payload.(models.RefreshTokenPayload)
	if !ok {
		return nil, apperrors.NewTokenValidationError("token is not a refresh token")
	}

	current, err := s.revocations.CurrentGenerationID(ctx, refresh.UserID, deviceID, false)
	if err != nil {
		return nil, err
	}
	if current == "" || current != refresh.GenerationID {
		return nil, apperrors.NewTokenValidationError("refresh token does not match device generation")
	}

	user, err := s.users.GetByID(ctx, refresh.UserID)
	if err != nil {
		return nil, err
	}
	return s.mintBundle(user, deviceID, refresh.GenerationID)
}

// RevokeDeviceRefreshTokens signs one device out by rotating its generation
// id. Outstanding access tokens for the device survive one access lifetime.
func (s *TokenService) RevokeDeviceRefreshTokens(ctx context.Context, userID, deviceID string) error {
	_, err := s.revocations.RotateGenerationID(ctx, userID, deviceID)
	return err
}

// RevokeAllTokensImmediately is the panic button: every refresh token on
// every device dies now, and every access token issued before this instant
// dies with them.
func (s *TokenService) RevokeAllTokensImmediately(ctx context.Context, userID string) error {
	if err := s.revocations.BlacklistAllGenerationIDs(ctx, userID); err != nil {
		return err
	}
	return s.revocations.RecordAccessRevocation(ctx, userID)
}

// BlacklistAccessToken invalidates a single access token ahead of its expiry
// without touching the refresh token that spawned it.
func (s *TokenService) BlacklistAccessToken(ctx context.Context, accessToken string) error {
	payload, ok, err := s.VerifyToken(ctx, accessToken, true)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewTokenValidationError("access token failed verification")
	}

	access, ok := payload.(models.AccessTokenPayload)
	if !ok {
		return apperrors.NewTokenValidationError("token is not an access token")
	}
	if access.ExpiresAt == 0 {
		return apperrors.NewTokenValidationError("access token has no expiry")
	}
	return s.revocations.BlacklistAccessJTI(ctx, access.JTI, time.Unix(access.ExpiresAt, 0))
}

// CreateMFAToken mints the short-lived challenge token handed out after a
// successful password proof when the account has MFA. formattedKey is only
// set during initial TOTP enrollment.
func (s *TokenService) CreateMFAToken(ctx context.Context, userID, deviceID, formattedKey string) (string, error) {
	payload := models.MFATokenPayload{
		CommonClaims: models.CommonClaims{UserID: userID, Type: models.TokenTypeMFA, IssuedAt: time.Now().Unix()},
		JTI:          uuid.NewString(),
		DeviceID:     deviceID,
		FormattedKey: formattedKey,
	}
	return s.codec.Issue(payload, s.mfaTTL, true)
}

// VerifyMFAToken validates a challenge token and consumes it: the jti is
// blacklisted before the payload is returned, so the token is single-use
// whatever the caller does next.
func (s *TokenService) VerifyMFAToken(ctx context.Context, token string) (*models.MFATokenPayload, error) {
	payload, err := s.codec.Decode(token, true)
	if err != nil {
		return nil, err
	}
	mfa, ok := payload.(models.MFATokenPayload)
	if !ok {
		return nil, apperrors.NewTokenValidationError("token is not an mfa token")
	}

	blacklisted, err := s.revocations.IsMFATokenBlacklisted(ctx, mfa.JTI)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, apperrors.NewTokenValidationError("mfa token already used")
	}

	expiresAt := time.Unix(mfa.ExpiresAt, 0)
	if mfa.ExpiresAt == 0 {
		expiresAt = time.Now().Add(s.mfaTTL)
	}
	if err := s.revocations.BlacklistMFAToken(ctx, mfa.JTI, expiresAt); err != nil {
		return nil, err
	}
	return &mfa, nil
}
