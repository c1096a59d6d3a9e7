package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/config"
	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
	"github.com/smartify-home/auth-service/internal/infrastructure/security"
)

// The client half of the handshake, written against the protocol itself
// rather than the server package, so an accidental change to the group
// constants or hashing convention breaks these tests.

const clientGroupNHex = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8" +
	"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B" +
	"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748" +
	"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6" +
	"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6" +
	"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

type srpClient struct {
	n, g *big.Int
	a, A *big.Int
}

func newSRPClient(t *testing.T) *srpClient {
	t.Helper()
	n, ok := new(big.Int).SetString(clientGroupNHex, 16)
	require.True(t, ok)
	g := big.NewInt(2)

	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	a := new(big.Int).SetBytes(buf)

	return &srpClient{n: n, g: g, a: a, A: new(big.Int).Exp(g, a, n)}
}

func clientHash(input string) *big.Int {
	sum := sha256.Sum256([]byte(input))
	n, _ := new(big.Int).SetString(hex.EncodeToString(sum[:]), 16)
	return n
}

func clientHex(n *big.Int) string {
	return strings.ToLower(n.Text(16))
}

// prove runs the client side of the proof exchange for the given challenge.
func (c *srpClient) prove(salt, password string, B *big.Int) (Mc, K *big.Int) {
	x := clientHash(salt + password)
	u := clientHash(clientHex(c.A) + clientHex(B))

	gx := new(big.Int).Exp(c.g, x, c.n)
	base := new(big.Int).Sub(B, gx)
	base.Mod(base, c.n)
	exponent := new(big.Int).Mul(u, x)
	exponent.Add(exponent, c.a)
	S := new(big.Int).Exp(base, exponent, c.n)

	K = clientHash(clientHex(S))
	Mc = clientHash(clientHex(c.A) + clientHex(B) + clientHex(K))
	return Mc, K
}

type authFixture struct {
	auth     *AuthService
	tokens   *TokenService
	users    *fakeUserRepo
	sessions *fakeSessionStore
	totp     *fakeTOTP
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	encryptor, err := security.NewAESGCMEncryptionService(hex.EncodeToString(key))
	require.NoError(t, err)

	cfg := config.AuthConfig{
		SigningSecret:   "auth-fixture-secret",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: time.Hour,
		MFATokenTTL:     2 * time.Minute,
	}

	users := newFakeUserRepo()
	sessions := newFakeSessionStore()
	totp := &fakeTOTP{accepted: "123456"}

	store := NewRevocationStore(newFakeGenerationRepo(), newFakeRevocationRepo(), newFakeRevocationCache(),
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, zap.NewNop())
	codec := NewTokenCodec(cfg.SigningSecret, encryptor)
	tokens := NewTokenService(codec, users, store, cfg, zap.NewNop())
	auth := NewAuthService(security.NewSRPService(), totp, users, sessions, tokens, zap.NewNop())

	return &authFixture{auth: auth, tokens: tokens, users: users, sessions: sessions, totp: totp}
}

func TestRegisterAndLogin_FullFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, result.UserID)
	require.NotEmpty(t, result.OTPAuthURL)

	challenge, err := f.auth.InitAuthSession(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Salt)
	require.NotNil(t, challenge.ServerPublic)

	client := newSRPClient(t)
	Mc, _ := client.prove(challenge.Salt, "hunter2hunter2", challenge.ServerPublic)

	login, err := f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	require.NoError(t, err, "the right password must pass the proof")
	require.NotEmpty(t, login.MFAToken)
	assert.Equal(t, result.UserID, login.UserID)
	assert.False(t, login.MFAConfirmed, "fresh accounts have unconfirmed MFA")

	// The server proof must be H(A || B || Mc) under the shared conventions.
	expectedProof := clientHash(clientHex(client.A) + clientHex(challenge.ServerPublic) + clientHex(Mc))
	assert.Zero(t, expectedProof.Cmp(login.ServerProof))

	// Completing MFA enrollment confirms the secret and yields tokens.
	userID, bundle, err := f.auth.CompleteMFALogin(ctx, login.MFAToken, "123456")
	require.NoError(t, err)
	assert.Equal(t, result.UserID, userID)
	require.NotEmpty(t, bundle.AccessToken)

	user, err := f.users.GetByID(ctx, result.UserID)
	require.NoError(t, err)
	assert.True(t, user.MFAConfirmed, "a correct enrollment code promotes the secret to trusted")

	_, ok, err := f.tokens.VerifyToken(ctx, bundle.AccessToken, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "the real password")
	require.NoError(t, err)

	challenge, err := f.auth.InitAuthSession(ctx, "ada@example.com")
	require.NoError(t, err)

	client := newSRPClient(t)
	Mc, _ := client.prove(challenge.Salt, "a wrong guess", challenge.ServerPublic)

	_, err = f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	assert.True(t, errors.Is(err, apperrors.ErrIncorrectPassword))
}

func TestLogin_SessionConsumedOnFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "the real password")
	require.NoError(t, err)

	challenge, err := f.auth.InitAuthSession(ctx, "ada@example.com")
	require.NoError(t, err)

	client := newSRPClient(t)
	Mc, _ := client.prove(challenge.Salt, "a wrong guess", challenge.ServerPublic)
	_, err = f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	require.Error(t, err)

	// Even the right proof cannot reuse the consumed session.
	Mc, _ = client.prove(challenge.Salt, "the real password", challenge.ServerPublic)
	_, err = f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	assert.True(t, errors.Is(err, apperrors.ErrAuthSession))
}

func TestLogin_WithoutSession(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Login(context.Background(), "nobody@example.com", "device-1", big.NewInt(1), big.NewInt(1))
	assert.True(t, errors.Is(err, apperrors.ErrAuthSession))
}

func TestInitAuthSession_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.InitAuthSession(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidUser))
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "password-one")
	require.NoError(t, err)

	_, err = f.auth.RegisterUser(ctx, "ada@example.com", "Imposter", "password-two")
	assert.True(t, errors.Is(err, apperrors.ErrUserExists))
}

func TestCompleteMFALogin_WrongCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "hunter2hunter2")
	require.NoError(t, err)
	challenge, err := f.auth.InitAuthSession(ctx, "ada@example.com")
	require.NoError(t, err)

	client := newSRPClient(t)
	Mc, _ := client.prove(challenge.Salt, "hunter2hunter2", challenge.ServerPublic)
	login, err := f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	require.NoError(t, err)

	_, _, err = f.auth.CompleteMFALogin(ctx, login.MFAToken, "000000")
	assert.True(t, errors.Is(err, apperrors.ErrMFAIncorrectCode))

	// The challenge token was consumed by the failed attempt.
	_, _, err = f.auth.CompleteMFALogin(ctx, login.MFAToken, "123456")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestCompleteMFALogin_StaleEnrollmentToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "hunter2hunter2")
	require.NoError(t, err)
	challenge, err := f.auth.InitAuthSession(ctx, "ada@example.com")
	require.NoError(t, err)

	client := newSRPClient(t)
	Mc, _ := client.prove(challenge.Salt, "hunter2hunter2", challenge.ServerPublic)
	login, err := f.auth.Login(ctx, "ada@example.com", "device-1", client.A, Mc)
	require.NoError(t, err)
	require.False(t, login.MFAConfirmed, "the token carries the enrollment key")

	// The account gets confirmed elsewhere while the enrollment token is
	// still outstanding.
	require.NoError(t, f.users.ConfirmMFA(ctx, result.UserID))

	// The stale token must not re-confirm the account or issue a bundle,
	// even with a correct code.
	_, _, err = f.auth.CompleteMFALogin(ctx, login.MFAToken, "123456")
	assert.True(t, errors.Is(err, apperrors.ErrMFAAlreadyConfirmed))
}

func TestVerifyMFACode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.auth.RegisterUser(ctx, "ada@example.com", "Ada", "hunter2hunter2")
	require.NoError(t, err)

	// Not yet confirmed.
	_, err = f.auth.VerifyMFACode(ctx, result.UserID, "123456")
	assert.True(t, errors.Is(err, apperrors.ErrMFANotConfirmed))

	require.NoError(t, f.users.ConfirmMFA(ctx, result.UserID))

	ok, err := f.auth.VerifyMFACode(ctx, result.UserID, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.auth.VerifyMFACode(ctx, result.UserID, "654321")
	require.NoError(t, err)
	assert.False(t, ok)
}
