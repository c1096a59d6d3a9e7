// File: internal/infrastructure/security/totp_service.go
package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService is the opaque code oracle the auth core consults. The core
// never inspects codes itself.
type TOTPService interface {
	GenerateSecret(accountName string) (secretBase32, otpAuthURL string, err error)
	ValidateCode(secretBase32, code string) bool
}

type pquernaTOTPService struct {
	issuerName string
}

// NewTOTPService creates a TOTPService backed by pquerna/otp.
// issuerName is the label shown in authenticator apps.
func NewTOTPService(issuerName string) TOTPService {
	if strings.TrimSpace(issuerName) == "" {
		issuerName = "Smartify"
	}
	return &pquernaTOTPService{issuerName: issuerName}
}

func (s *pquernaTOTPService) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", fmt.Errorf("accountName cannot be empty for TOTP secret generation")
	}
	if strings.Contains(accountName, ":") || strings.Contains(s.issuerName, ":") {
		return "", "", fmt.Errorf("issuer and account name cannot contain a colon")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuerName,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  20,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

func (s *pquernaTOTPService) ValidateCode(secretBase32, code string) bool {
	if strings.TrimSpace(secretBase32) == "" || strings.TrimSpace(code) == "" {
		return false
	}

	valid, err := totp.ValidateCustom(code, secretBase32, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1, // one period of clock drift either side
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

var _ TOTPService = (*pquernaTOTPService)(nil)
