// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks a value produced by Sealer.Seal
const sealedPrefix = "enc:v1:"

// Sealer protects the stored credential at rest with AES-GCM. A Sealer
// without a secret passes values through unchanged.
type Sealer struct {
	key []byte
}

// NewSealer derives a 32 byte key from secret. An empty secret disables sealing.
func NewSealer(secret string) *Sealer {
	if secret == "" {
		return &Sealer{}
	}
	sum := sha256.Sum256([]byte(secret))
	return &Sealer{key: sum[:]}
}

// Enabled reports whether values are encrypted
func (s *Sealer) Enabled() bool {
	return s != nil && len(s.key) > 0
}

// Seal encrypts plaintext when a secret is configured
func (s *Sealer) Seal(plaintext string) (string, error) {
	if !s.Enabled() {
		return plaintext, nil
	}
	ciphertext, err := encrypt([]byte(plaintext), s.key)
	if err != nil {
		return "", err
	}
	return sealedPrefix + ciphertext, nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is,
// so a credential written before a secret was configured still loads.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !s.Enabled() {
		return "", fmt.Errorf("sealed credential found but no secret configured")
	}
	plaintext, err := decrypt(strings.TrimPrefix(value, sealedPrefix), s.key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decrypt(encoded string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, body := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, body, nil)
}
