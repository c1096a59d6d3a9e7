// File: internal/infrastructure/security/srp.go
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
)

// RFC 5054 2048-bit group.
const srpNHex = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAAE82918A9962F0B93B8" +
	"55F97993EC975EEAA80D740ADBF4FF747359D041D5C33EA71D281E446B14773B" +
	"CA97B43A23FB801676BD207A436C6481F1D2B9078717461A5B9D32E688F87748" +
	"544523B524B0D57D5EA77A2775D2ECFA032CFBDBF52FB3786160279004E57AE6" +
	"AF874E7303CE53299CCC041C7BC308D82A5698F3A8D0C38271AE35F8E9DBFBB6" +
	"94B5C803D89F7AE435DE236D525F54759B65E372FCD68EF20FA7111F9E4AFF73"

var (
	srpN = mustParseHex(srpNHex)
	srpG = big.NewInt(2)
)

func mustParseHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("srp: bad group constant")
	}
	return n
}

// SRPService implements the server half of the SRP handshake. The one
// correctness-critical convention: every hash input is the lowercase unpadded
// hex form of the operand, concatenated in argument order and digested with
// SHA-256. Both sides must use the same encoding or the proofs never match.
type SRPService struct{}

func NewSRPService() *SRPService {
	return &SRPService{}
}

// hashHex returns the SHA-256 digest of the input string, hex encoded.
func hashHex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// hashInt digests the input and reinterprets the digest as an unsigned
// big integer.
func hashInt(input string) *big.Int {
	n, _ := new(big.Int).SetString(hashHex(input), 16)
	return n
}

// canonHex is the canonical big-integer encoding used for every hash input.
func canonHex(n *big.Int) string {
	return strings.ToLower(n.Text(16))
}

// randomBigInt returns a cryptographically random integer of byteLength bytes.
func randomBigInt(byteLength int) (*big.Int, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return new(big.Int).SetBytes(buf), nil
}

// GenerateSalt returns a fresh 16-byte salt, hex encoded.
func (s *SRPService) GenerateSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ComputeVerifier derives the stored verifier from the password:
// x = H(salt || password), verifier = g^x mod N. Deterministic for a given
// (salt, password) pair; neither password nor x survives the call.
func (s *SRPService) ComputeVerifier(salt, password string) (*big.Int, error) {
	if salt == "" || password == "" {
		return nil, fmt.Errorf("salt and password must not be empty")
	}
	x := hashInt(salt + password)
	return modExp(srpG, x, srpN), nil
}

// GenerateServerKeys produces the per-session server scalar b and public
// value B = (verifier + g^b) mod N.
func (s *SRPService) GenerateServerKeys(verifier *big.Int) (b, B *big.Int, err error) {
	b, err = randomBigInt(32)
	if err != nil {
		return nil, nil, err
	}
	gb := modExp(srpG, b, srpN)
	B = new(big.Int).Add(verifier, gb)
	B.Mod(B, srpN)
	return b, B, nil
}

// ProofParams is everything VerifyClientProof needs from the pending session
// plus the client's contribution.
type ProofParams struct {
	Verifier     *big.Int
	A            *big.Int // client public value
	B            *big.Int // server public value
	ServerSecret *big.Int // server private scalar b
	ClientProof  *big.Int // Mc
}

// VerifyClientProof checks the client's proof against the session key both
// sides should have derived and, on success, returns the server proof
// Ms = H(A || B || Mc). Any mismatch is ErrIncorrectPassword; the caller must
// restart from session init.
func (s *SRPService) VerifyClientProof(p ProofParams) (*big.Int, error) {
	if p.Verifier == nil || p.A == nil || p.B == nil || p.ServerSecret == nil || p.ClientProof == nil {
		return nil, apperrors.ErrIncorrectPassword
	}

	// A ≡ 0 mod N would let a client force S = 0.
	if new(big.Int).Mod(p.A, srpN).Sign() == 0 {
		return nil, apperrors.ErrIncorrectPassword
	}

	u := hashInt(canonHex(p.A) + canonHex(p.B))
	if u.Sign() == 0 {
		return nil, apperrors.ErrIncorrectPassword
	}

	// S = (A * verifier^u mod N)^b mod N
	vu := modExp(p.Verifier, u, srpN)
	avu := new(big.Int).Mul(p.A, vu)
	avu.Mod(avu, srpN)
	S := modExp(avu, p.ServerSecret, srpN)

	K := hashInt(canonHex(S))

	expectedMc := hashInt(canonHex(p.A) + canonHex(p.B) + canonHex(K))
	if expectedMc.Cmp(p.ClientProof) != 0 {
		return nil, apperrors.ErrIncorrectPassword
	}

	return hashInt(canonHex(p.A) + canonHex(p.B) + canonHex(p.ClientProof)), nil
}
