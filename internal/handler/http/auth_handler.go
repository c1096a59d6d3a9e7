package http

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/config"
	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/service"
)

// Cookie names the clients rely on. All four are HTTP-only; the ID token is
// additionally mirrored readable in the response body since it is the one
// token clients are meant to inspect.
const (
	cookieAccessToken  = "access-token"
	cookieRefreshToken = "refresh-token"
	cookieIDToken      = "id-token"
	cookieMFAToken     = "mfa-token"
)

// AuthHandler exposes registration and the SRP login flow over HTTP.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
	tokens *service.TokenService
	cfg    config.AuthConfig
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, tokens *service.TokenService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		logger: logger.Named("auth_handler"),
		auth:   auth,
		tokens: tokens,
		cfg:    cfg,
	}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequestBody)
		return
	}

	result, err := h.auth.RegisterUser(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"userId":     result.UserID,
		"otpAuthUrl": result.OTPAuthURL,
	})
}

type sessionRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// InitSession handles POST /api/v1/auth/session: the opening move of the SRP
// handshake. Unknown emails get the same vague 401 as a wrong password so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) InitSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequestBody)
		return
	}

	challenge, err := h.auth.InitAuthSession(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidUser) {
			c.JSON(http.StatusUnauthorized, invalidRequestBody)
			return
		}
		h.logger.Error("failed to init auth session", zap.Error(err))
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"salt": challenge.Salt,
		"B":    challenge.ServerPublic.Text(16),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	DeviceID string `json:"deviceId" binding:"required"`
	A        string `json:"A" binding:"required"`     // client public value, hex
	Proof    string `json:"proof" binding:"required"` // client proof Mc, hex
}

// Login handles POST /api/v1/auth/login: the proof exchange. On success the
// client gets the server proof plus an MFA challenge cookie; no access tokens
// exist yet.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequestBody)
		return
	}

	clientPublic, aok := new(big.Int).SetString(req.A, 16)
	clientProof, pok := new(big.Int).SetString(req.Proof, 16)
	if !aok || !pok {
		c.JSON(http.StatusUnauthorized, invalidRequestBody)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.DeviceID, clientPublic, clientProof)
	if err != nil {
		h.logger.Debug("login rejected", zap.String("email", req.Email), zap.Error(err))
		writeServiceError(c, err)
		return
	}

	// SameSite=None: the MFA confirmation may arrive from a companion app
	// origin rather than the web client that ran the handshake.
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(cookieMFAToken, result.MFAToken, int(h.cfg.MFATokenTTL.Seconds()), "/", "", true, true)

	c.JSON(http.StatusOK, gin.H{
		"serverProof":  result.ServerProof.Text(16),
		"mfaConfirmed": result.MFAConfirmed,
	})
}

type mfaVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyMFA handles POST /api/v1/auth/mfa/verify: consumes the MFA challenge
// cookie, checks the TOTP code, and on success issues the full token bundle.
func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req mfaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequestBody)
		return
	}

	mfaToken, err := c.Cookie(cookieMFAToken)
	if err != nil || mfaToken == "" {
		c.JSON(http.StatusUnauthorized, invalidRequestBody)
		return
	}

	userID, bundle, err := h.auth.CompleteMFALogin(c.Request.Context(), mfaToken, req.Code)
	if err != nil {
		h.logger.Debug("mfa verification rejected", zap.Error(err))
		writeServiceError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(cookieMFAToken, "", -1, "/", "", true, true)
	h.setTokenCookies(c, bundle)

	c.JSON(http.StatusOK, gin.H{
		"userId":  userID,
		"idToken": bundle.IDToken,
	})
}

type refreshRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// Refresh handles POST /api/v1/auth/refresh: exchanges the refresh cookie for
// a fresh bundle, bound to the presenting device.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, invalidRequestBody)
		return
	}

	refreshToken, err := c.Cookie(cookieRefreshToken)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, invalidRequestBody)
		return
	}

	bundle, err := h.tokens.RefreshTokens(c.Request.Context(), refreshToken, req.DeviceID)
	if err != nil {
		h.logger.Debug("token refresh rejected", zap.Error(err))
		writeServiceError(c, err)
		return
	}

	h.setTokenCookies(c, bundle)
	c.JSON(http.StatusOK, gin.H{"idToken": bundle.IDToken})
}

// Logout handles POST /api/v1/auth/logout: signs out the presenting device.
// The access token is blacklisted outright; the device's refresh tokens die
// through generation rotation.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity := MustIdentity(c)

	if accessToken, err := c.Cookie(cookieAccessToken); err == nil && accessToken != "" {
		if err := h.tokens.BlacklistAccessToken(c.Request.Context(), accessToken); err != nil {
			h.logger.Warn("failed to blacklist access token on logout",
				zap.String("userId", identity.UserID), zap.Error(err))
		}
	}
	if err := h.tokens.RevokeDeviceRefreshTokens(c.Request.Context(), identity.UserID, identity.DeviceID()); err != nil {
		h.logger.Error("failed to revoke device tokens", zap.String("userId", identity.UserID), zap.Error(err))
		writeServiceError(c, err)
		return
	}

	h.clearTokenCookies(c)
	c.Status(http.StatusNoContent)
}

// LogoutAll handles POST /api/v1/auth/logout-all: the panic button. Every
// token on every device is dead before the response is written.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity := MustIdentity(c)

	if err := h.tokens.RevokeAllTokensImmediately(c.Request.Context(), identity.UserID); err != nil {
		h.logger.Error("failed to revoke all tokens", zap.String("userId", identity.UserID), zap.Error(err))
		writeServiceError(c, err)
		return
	}

	h.clearTokenCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, bundle *models.TokenBundle) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cookieAccessToken, bundle.AccessToken, int(h.cfg.AccessTokenTTL.Seconds()), "/", "", true, true)
	c.SetCookie(cookieRefreshToken, bundle.RefreshToken, int(h.cfg.RefreshTokenTTL.Seconds()), "/", "", true, true)
	c.SetCookie(cookieIDToken, bundle.IDToken, int(h.cfg.RefreshTokenTTL.Seconds()), "/", "", true, true)
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cookieAccessToken, "", -1, "/", "", true, true)
	c.SetCookie(cookieRefreshToken, "", -1, "/", "", true, true)
	c.SetCookie(cookieIDToken, "", -1, "/", "", true, true)
}
