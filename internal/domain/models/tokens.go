// File: internal/domain/models/tokens.go
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
)

// TokenType discriminates the four token payload shapes.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
	TokenTypeID      TokenType = "ID"
	TokenTypeMFA     TokenType = "MFA"
)

// CommonClaims carries the fields shared by every token kind. Timestamps are
// whole seconds since epoch, truncated.
type CommonClaims struct {
	UserID    string    `json:"userId"`
	Type      TokenType `json:"type"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp,omitempty"`
}

// jwt.Claims implementation so every payload variant can be signed and have
// its exp/iat validated by golang-jwt.

func (c CommonClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c CommonClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c CommonClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c CommonClaims) GetIssuer() (string, error)              { return "", nil }
func (c CommonClaims) GetSubject() (string, error)             { return c.UserID, nil }
func (c CommonClaims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// TokenUser is the user snapshot embedded in access and ID tokens. It is a
// point-in-time copy of the user's household permissions, refreshed on every
// token issue.
type TokenUser struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Households []HouseholdGrant `json:"households,omitempty"`
}

// HouseholdGrant records one household the user belongs to and their role in it.
type HouseholdGrant struct {
	HouseholdID string `json:"householdId"`
	Role        string `json:"role"`
}

// TokenPayload is the sealed union of the four token payload shapes. The
// unexported marker keeps outside packages from adding a fifth variant, so a
// decoded token is provably one of these.
type TokenPayload interface {
	isTokenPayload()
	TokenType() TokenType
	Common() CommonClaims
	// Validate fails closed when a required field is missing.
	Validate() error
}

// RefreshTokenPayload is the payload of a refresh token.
type RefreshTokenPayload struct {
	CommonClaims
	GenerationID string `json:"generationId"`
	JTI          string `json:"jti"`
}

func (RefreshTokenPayload) isTokenPayload()        {}
func (p RefreshTokenPayload) TokenType() TokenType { return TokenTypeRefresh }
func (p RefreshTokenPayload) Common() CommonClaims { return p.CommonClaims }

func (p RefreshTokenPayload) Validate() error {
	if p.Type != TokenTypeRefresh {
		return apperrors.NewTokenValidationError("refresh payload has type %q", p.Type)
	}
	if p.UserID == "" || p.JTI == "" || p.GenerationID == "" {
		return apperrors.NewTokenValidationError("refresh payload missing required fields")
	}
	return nil
}

// AccessTokenPayload is the payload of an access token. RefreshJTI points back
// at the refresh token that spawned it. DeviceID is stamped at mint time and is
// the only device identity trusted for per-device operations; a client-supplied
// header cannot override it.
type AccessTokenPayload struct {
	CommonClaims
	GenerationID string    `json:"generationId"`
	JTI          string    `json:"jti"`
	RefreshJTI   string    `json:"refreshJti"`
	DeviceID     string    `json:"deviceId"`
	User         TokenUser `json:"user"`
}

func (AccessTokenPayload) isTokenPayload()        {}
func (p AccessTokenPayload) TokenType() TokenType { return TokenTypeAccess }
func (p AccessTokenPayload) Common() CommonClaims { return p.CommonClaims }

func (p AccessTokenPayload) Validate() error {
	if p.Type != TokenTypeAccess {
		return apperrors.NewTokenValidationError("access payload has type %q", p.Type)
	}
	if p.UserID == "" || p.JTI == "" || p.RefreshJTI == "" || p.GenerationID == "" || p.DeviceID == "" {
		return apperrors.NewTokenValidationError("access payload missing required fields")
	}
	return nil
}

// IDTokenPayload is the payload of an ID token. It is signed but not
// encrypted so the client can read it; it must never be used for
// authorization decisions.
type IDTokenPayload struct {
	CommonClaims
	GenerationID string    `json:"generationId"`
	User         TokenUser `json:"user"`
	Name         string    `json:"name"`
}

func (IDTokenPayload) isTokenPayload()        {}
func (p IDTokenPayload) TokenType() TokenType { return TokenTypeID }
func (p IDTokenPayload) Common() CommonClaims { return p.CommonClaims }

func (p IDTokenPayload) Validate() error {
	if p.Type != TokenTypeID {
		return apperrors.NewTokenValidationError("id payload has type %q", p.Type)
	}
	if p.UserID == "" || p.GenerationID == "" {
		return apperrors.NewTokenValidationError("id payload missing required fields")
	}
	return nil
}

// MFATokenPayload is the payload of the short-lived MFA challenge token.
// FormattedKey is only populated while the user's TOTP setup is unconfirmed,
// so the confirmation endpoint can verify against a secret that is not yet
// stored as trusted.
type MFATokenPayload struct {
	CommonClaims
	JTI          string `json:"jti"`
	DeviceID     string `json:"deviceId"`
	FormattedKey string `json:"formattedKey,omitempty"`
}

func (MFATokenPayload) isTokenPayload()        {}
func (p MFATokenPayload) TokenType() TokenType { return TokenTypeMFA }
func (p MFATokenPayload) Common() CommonClaims { return p.CommonClaims }

func (p MFATokenPayload) Validate() error {
	if p.Type != TokenTypeMFA {
		return apperrors.NewTokenValidationError("mfa payload has type %q", p.Type)
	}
	if p.UserID == "" || p.JTI == "" || p.DeviceID == "" {
		return apperrors.NewTokenValidationError("mfa payload missing required fields")
	}
	return nil
}

// GenerationID returns the generation id carried by the payload, or "" for
// payload kinds that do not carry one (MFA).
func GenerationID(p TokenPayload) string {
	switch v := p.(type) {
	case RefreshTokenPayload:
		return v.GenerationID
	case AccessTokenPayload:
		return v.GenerationID
	case IDTokenPayload:
		return v.GenerationID
	default:
		return ""
	}
}

// TokenBundle is the triple handed back after a successful login or refresh.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
}
