package service

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/domain/repository"
	"github.com/smartify-home/auth-service/internal/infrastructure/security"
)

// AuthService drives registration and the SRP login handshake. The server
// never sees the password: registration stores a verifier derived client-side
// or (for first-party clients) computed here from the transported password,
// and login proves knowledge of it without replaying it.
type AuthService struct {
	srp      *security.SRPService
	totp     security.TOTPService
	users    repository.UserRepository
	sessions repository.SRPSessionStore
	tokens   *TokenService
	logger   *zap.Logger
}

func NewAuthService(
	srp *security.SRPService,
	totp security.TOTPService,
	users repository.UserRepository,
	sessions repository.SRPSessionStore,
	tokens *TokenService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		srp:      srp,
		totp:     totp,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegistrationResult is handed back to the client after a successful signup.
// OTPAuthURL seeds the authenticator app; the secret is not trusted until the
// user confirms a code through the MFA flow.
type RegistrationResult struct {
	UserID     string
	OTPAuthURL string
}

// RegisterUser creates the account with its SRP credentials and a pending
// TOTP secret. Duplicate emails surface as ErrUserExists.
func (s *AuthService) RegisterUser(ctx context.Context, email, displayName, password string) (*RegistrationResult, error) {
	salt, err := s.srp.GenerateSalt()
	if err != nil {
		return nil, err
	}
	verifier, err := s.srp.ComputeVerifier(salt, password)
	if err != nil {
		return nil, err
	}

	secret, otpURL, err := s.totp.GenerateSecret(email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       email,
		DisplayName: displayName,
		MFASecret:   secret,
	}
	creds := models.SRPCredentials{
		Salt:     salt,
		Verifier: verifier.Text(10),
	}
	userID, err := s.users.Create(ctx, user, creds)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("userId", userID))
	return &RegistrationResult{UserID: userID, OTPAuthURL: otpURL}, nil
}

// SessionChallenge is the server's opening of the SRP handshake.
type SessionChallenge struct {
	Salt         string
	ServerPublic *big.Int
}

// InitAuthSession starts a login attempt: it loads the user's credentials,
// generates the per-session server keys, parks the whole state in the session
// store, and hands the client the salt and B. Unknown emails surface as
// ErrInvalidUser; the transport layer is expected to flatten that into the
// same response as a bad proof.
func (s *AuthService) InitAuthSession(ctx context.Context, email string) (*SessionChallenge, error) {
	creds, err := s.users.SRPCredentials(ctx, email)
	if err != nil {
		return nil, err
	}
	verifier, ok := new(big.Int).SetString(creds.Verifier, 10)
	if !ok {
		return nil, apperrors.ErrInvalidUser
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	b, B, err := s.srp.GenerateServerKeys(verifier)
	if err != nil {
		return nil, err
	}

	session := &models.SRPSession{
		UserID:       creds.UserID,
		Email:        email,
		Salt:         creds.Salt,
		Verifier:     creds.Verifier,
		ServerSecret: b.Text(16),
		ServerPublic: B.Text(16),
		MFAKey:       user.MFASecret,
		MFAConfirmed: user.MFAConfirmed,
	}
	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, err
	}

	return &SessionChallenge{Salt: creds.Salt, ServerPublic: B}, nil
}

// LoginResult carries the server proof that convinces the client it talked to
// the real server, plus the MFA challenge token gating the actual token issue.
type LoginResult struct {
	UserID       string
	ServerProof  *big.Int
	MFAToken     string
	MFAConfirmed bool
}

// Login completes the handshake. The pending session is consumed on retrieval
// whatever the outcome, so a failed proof forces a full restart. A correct
// proof yields the server proof and an MFA token; no access tokens are issued
// until the TOTP code checks out.
func (s *AuthService) Login(ctx context.Context, email, deviceID string, clientPublic, clientProof *big.Int) (*LoginResult, error) {
	session, err := s.sessions.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, email); err != nil {
		s.logger.Warn("failed to delete consumed auth session",
			zap.String("userId", session.UserID), zap.Error(err))
	}

	verifier, vok := new(big.Int).SetString(session.Verifier, 10)
	b, bok := new(big.Int).SetString(session.ServerSecret, 16)
	B, Bok := new(big.Int).SetString(session.ServerPublic, 16)
	if !vok || !bok || !Bok {
		return nil, apperrors.ErrAuthSession
	}

	serverProof, err := s.srp.VerifyClientProof(security.ProofParams{
		Verifier:     verifier,
		A:            clientPublic,
		B:            B,
		ServerSecret: b,
		ClientProof:  clientProof,
	})
	if err != nil {
		return nil, err
	}

	// During enrollment the secret rides inside the encrypted MFA token so the
	// confirmation endpoint can verify against it before it is marked trusted.
	formattedKey := ""
	if !session.MFAConfirmed {
		formattedKey = session.MFAKey
	}
	mfaToken, err := s.tokens.CreateMFAToken(ctx, session.UserID, deviceID, formattedKey)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		UserID:       session.UserID,
		ServerProof:  serverProof,
		MFAToken:     mfaToken,
		MFAConfirmed: session.MFAConfirmed,
	}, nil
}

// CompleteMFALogin consumes the MFA challenge token, checks the TOTP code,
// and on success mints the full token bundle for the device named in the
// challenge. For unconfirmed accounts the code is checked against the key
// carried in the token and, when it matches, the secret is promoted to
// trusted.
func (s *AuthService) CompleteMFALogin(ctx context.Context, mfaToken, code string) (string, *models.TokenBundle, error) {
	challenge, err := s.tokens.VerifyMFAToken(ctx, mfaToken)
	if err != nil {
		return "", nil, err
	}

	if challenge.FormattedKey != "" {
		// Enrollment path: token carries the untrusted secret. A stale
		// enrollment token presented after the account was confirmed must not
		// silently re-confirm against it.
		user, err := s.users.GetByID(ctx, challenge.UserID)
		if err != nil {
			return "", nil, err
		}
		if user.MFAConfirmed {
			return "", nil, apperrors.ErrMFAAlreadyConfirmed
		}
		if !s.totp.ValidateCode(challenge.FormattedKey, code) {
			return "", nil, apperrors.ErrMFAIncorrectCode
		}
		if err := s.users.ConfirmMFA(ctx, challenge.UserID); err != nil {
			return "", nil, err
		}
	} else {
		user, err := s.users.GetByID(ctx, challenge.UserID)
		if err != nil {
			return "", nil, err
		}
		if !user.MFAConfirmed {
			return "", nil, apperrors.ErrMFANotConfirmed
		}
		if !s.totp.ValidateCode(user.MFASecret, code) {
			return "", nil, apperrors.ErrMFAIncorrectCode
		}
	}

	bundle, err := s.tokens.GenerateAllTokens(ctx, challenge.UserID, challenge.DeviceID)
	if err != nil {
		return "", nil, err
	}
	return challenge.UserID, bundle, nil
}

// VerifyMFACode checks a TOTP code for an already-confirmed account, for
// step-up checks outside the login flow.
func (s *AuthService) VerifyMFACode(ctx context.Context, userID, code string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.MFAConfirmed {
		return false, apperrors.ErrMFANotConfirmed
	}
	return s.totp.ValidateCode(user.MFASecret, code), nil
}
