// File: internal/infrastructure/security/encryption_service.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// EncryptionService wraps token strings in authenticated encryption so their
// contents are opaque to the client. Direct mode: one symmetric key, no key
// wrapping.
type EncryptionService interface {
	Encrypt(plainText string) (string, error)
	Decrypt(cipherTextBase64 string) (string, error)
}

// aesGCMEncryptionService implements EncryptionService using AES-256-GCM.
// Output layout is base64(nonce || ciphertext || tag).
type aesGCMEncryptionService struct {
	key []byte
}

// NewAESGCMEncryptionService creates an EncryptionService from a hex-encoded
// 32-byte key.
func NewAESGCMEncryptionService(keyHex string) (EncryptionService, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}
	return &aesGCMEncryptionService{key: key}, nil
}

func (s *aesGCMEncryptionService) Encrypt(plainText string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	cipherText := gcm.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, cipherText...)), nil
}

func (s *aesGCMEncryptionService) Decrypt(cipherTextBase64 string) (string, error) {
	nonceAndCiphertext, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(nonceAndCiphertext) < nonceSize {
		return "", errors.New("ciphertext too short to contain nonce")
	}

	nonce, actualCiphertext := nonceAndCiphertext[:nonceSize], nonceAndCiphertext[nonceSize:]

	plainTextBytes, err := gcm.Open(nil, nonce, actualCiphertext, nil)
	if err != nil {
		// "message authentication failed" covers both wrong key and tampering.
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plainTextBytes), nil
}

var _ EncryptionService = (*aesGCMEncryptionService)(nil)
