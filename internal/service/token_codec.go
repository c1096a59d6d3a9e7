package service

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainErrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/infrastructure/security"
)

// TokenCodec turns token payloads into wire strings and back. Every token is
// an HS256-signed JWT; encrypted kinds are additionally sealed with AES-GCM so
// their claims are opaque to the client holding them.
type TokenCodec struct {
	signingKey []byte
	encryptor  security.EncryptionService
}

func NewTokenCodec(signingSecret string, encryptor security.EncryptionService) *TokenCodec {
	return &TokenCodec{
		signingKey: []byte(signingSecret),
		encryptor:  encryptor,
	}
}

// Issue stamps the payload with an expiry, signs it, and optionally encrypts
// the signed compact form. A non-positive lifetime issues a token without an
// exp claim.
func (c *TokenCodec) Issue(payload models.TokenPayload, lifetime time.Duration, encrypt bool) (string, error) {
	if lifetime > 0 {
		payload = withExpiry(payload, time.Now().Add(lifetime).Unix())
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}

	claims, ok := payload.(jwt.Claims)
	if !ok {
		return "", domainErrors.NewTokenValidationError("payload is not signable")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", err
	}
	if !encrypt {
		return signed, nil
	}
	return c.encryptor.Encrypt(signed)
}

// Decode reverses Issue: decrypt when the kind calls for it, verify the
// signature and expiry, then map the raw claims onto the typed payload.
// All failures come back as a TokenValidationError.
func (c *TokenCodec) Decode(token string, encrypted bool) (models.TokenPayload, error) {
	raw := token
	if encrypted {
		decrypted, err := c.encryptor.Decrypt(token)
		if err != nil {
			return nil, domainErrors.NewTokenValidationError("token decryption failed: %v", err)
		}
		raw = decrypted
	}

	parsed, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return c.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, domainErrors.NewTokenValidationError("token verification failed: %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domainErrors.NewTokenValidationError("unexpected claims shape")
	}
	return parsePayload(claims)
}

// parsePayload selects the concrete payload type from the "type" claim and
// fails closed on anything it does not recognize or that is missing fields.
func parsePayload(claims jwt.MapClaims) (models.TokenPayload, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, domainErrors.NewTokenValidationError("claims not serializable: %v", err)
	}

	var tag struct {
		Type models.TokenType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, domainErrors.NewTokenValidationError("missing token type")
	}

	var payload models.TokenPayload
	switch tag.Type {
	case models.TokenTypeAccess:
		var p models.AccessTokenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, domainErrors.NewTokenValidationError("malformed access token claims: %v", err)
		}
		payload = p
	case models.TokenTypeRefresh:
		var p models.RefreshTokenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, domainErrors.NewTokenValidationError("malformed refresh token claims: %v", err)
		}
		payload = p
	case models.TokenTypeID:
		var p models.IDTokenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, domainErrors.NewTokenValidationError("malformed id token claims: %v", err)
		}
		payload = p
	case models.TokenTypeMFA:
		var p models.MFATokenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, domainErrors.NewTokenValidationError("malformed mfa token claims: %v", err)
		}
		payload = p
	default:
		return nil, domainErrors.NewTokenValidationError("unknown token type %q", string(tag.Type))
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func withExpiry(payload models.TokenPayload, exp int64) models.TokenPayload {
	switch p := payload.(type) {
	case models.AccessTokenPayload:
		p.ExpiresAt = exp
		return p
	case models.RefreshTokenPayload:
		p.ExpiresAt = exp
		return p
	case models.IDTokenPayload:
		p.ExpiresAt = exp
		return p
	case models.MFATokenPayload:
		p.ExpiresAt = exp
		return p
	default:
		return payload
	}
}
