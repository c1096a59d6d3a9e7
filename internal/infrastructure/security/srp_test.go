// File: internal/infrastructure/security/srp_test.go
package security

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
)

// testClient plays the client half of the handshake, deriving the shared key
// from the password the way a real client library would.
type testClient struct {
	salt     string
	password string
	a        *big.Int // client private scalar
	A        *big.Int // client public value
}

func newTestClient(t *testing.T, salt, password string) *testClient {
	t.Helper()
	a, err := randomBigInt(32)
	require.NoError(t, err)
	return &testClient{
		salt:     salt,
		password: password,
		a:        a,
		A:        new(big.Int).Exp(srpG, a, srpN),
	}
}

// prove derives the session key from the server's B and returns the client
// proof Mc plus the derived key K.
func (c *testClient) prove(B *big.Int) (Mc, K *big.Int) {
	x := hashInt(c.salt + c.password)
	u := hashInt(canonHex(c.A) + canonHex(B))

	// S = (B - g^x)^(a + u*x) mod N
	gx := new(big.Int).Exp(srpG, x, srpN)
	base := new(big.Int).Sub(B, gx)
	base.Mod(base, srpN)
	exponent := new(big.Int).Mul(u, x)
	exponent.Add(exponent, c.a)
	S := new(big.Int).Exp(base, exponent, srpN)

	K = hashInt(canonHex(S))
	Mc = hashInt(canonHex(c.A) + canonHex(B) + canonHex(K))
	return Mc, K
}

func (c *testClient) checkServerProof(B, Mc, Ms *big.Int) bool {
	expected := hashInt(canonHex(c.A) + canonHex(B) + canonHex(Mc))
	return expected.Cmp(Ms) == 0
}

func TestSRPHandshake_CorrectPassword(t *testing.T) {
	srp := NewSRPService()

	salt, err := srp.GenerateSalt()
	require.NoError(t, err)
	verifier, err := srp.ComputeVerifier(salt, "correct horse battery staple")
	require.NoError(t, err)

	b, B, err := srp.GenerateServerKeys(verifier)
	require.NoError(t, err)

	client := newTestClient(t, salt, "correct horse battery staple")
	Mc, _ := client.prove(B)

	Ms, err := srp.VerifyClientProof(ProofParams{
		Verifier:     verifier,
		A:            client.A,
		B:            B,
		ServerSecret: b,
		ClientProof:  Mc,
	})
	require.NoError(t, err, "a client holding the right password must pass")
	assert.True(t, client.checkServerProof(B, Mc, Ms),
		"the server proof must convince the client in turn")
}

func TestSRPHandshake_WrongPassword(t *testing.T) {
	srp := NewSRPService()

	salt, err := srp.GenerateSalt()
	require.NoError(t, err)
	verifier, err := srp.ComputeVerifier(salt, "the real password")
	require.NoError(t, err)

	b, B, err := srp.GenerateServerKeys(verifier)
	require.NoError(t, err)

	client := newTestClient(t, salt, "a guessed password")
	Mc, _ := client.prove(B)

	_, err = srp.VerifyClientProof(ProofParams{
		Verifier:     verifier,
		A:            client.A,
		B:            B,
		ServerSecret: b,
		ClientProof:  Mc,
	})
	assert.True(t, errors.Is(err, apperrors.ErrIncorrectPassword))
}

func TestSRPHandshake_RejectsZeroClientValue(t *testing.T) {
	srp := NewSRPService()

	salt, err := srp.GenerateSalt()
	require.NoError(t, err)
	verifier, err := srp.ComputeVerifier(salt, "pw")
	require.NoError(t, err)

	b, B, err := srp.GenerateServerKeys(verifier)
	require.NoError(t, err)

	// A ≡ 0 mod N forces S = 0 regardless of password; must be rejected
	// before any proof comparison.
	for _, A := range []*big.Int{big.NewInt(0), new(big.Int).Set(srpN)} {
		_, err = srp.VerifyClientProof(ProofParams{
			Verifier:     verifier,
			A:            A,
			B:            B,
			ServerSecret: b,
			ClientProof:  big.NewInt(1),
		})
		assert.True(t, errors.Is(err, apperrors.ErrIncorrectPassword))
	}
}

func TestSRPHandshake_NilParams(t *testing.T) {
	srp := NewSRPService()
	_, err := srp.VerifyClientProof(ProofParams{})
	assert.True(t, errors.Is(err, apperrors.ErrIncorrectPassword))
}

func TestComputeVerifier_Deterministic(t *testing.T) {
	srp := NewSRPService()

	v1, err := srp.ComputeVerifier("aabbcc", "password")
	require.NoError(t, err)
	v2, err := srp.ComputeVerifier("aabbcc", "password")
	require.NoError(t, err)
	assert.Zero(t, v1.Cmp(v2), "same salt and password must give the same verifier")

	v3, err := srp.ComputeVerifier("ddeeff", "password")
	require.NoError(t, err)
	assert.NotZero(t, v1.Cmp(v3), "a different salt must change the verifier")
}

func TestComputeVerifier_RejectsEmptyInputs(t *testing.T) {
	srp := NewSRPService()
	_, err := srp.ComputeVerifier("", "password")
	assert.Error(t, err)
	_, err = srp.ComputeVerifier("salt", "")
	assert.Error(t, err)
}

func TestGenerateSalt_Unique(t *testing.T) {
	srp := NewSRPService()
	s1, err := srp.GenerateSalt()
	require.NoError(t, err)
	s2, err := srp.GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, s1, 32, "16 random bytes hex encoded")
	assert.NotEqual(t, s1, s2)
}
