package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const keyBytes = 32

var ErrKeyRequired = errors.New("vault: encryption key required in production")

// Vault encrypts small secrets (API keys) at rest with AES-256-GCM. The key
// is loaded once per process and read-only afterwards.
type Vault struct {
	aead cipher.AEAD
	log  zerolog.Logger
}

// New builds a Vault from a base64-encoded 32-byte key. A missing key is a
// hard failure in production. Outside production a transient key is generated
// instead: anything encrypted with it is unrecoverable after restart, which
// is acceptable only as a development convenience.
func New(encodedKey string, production bool, log zerolog.Logger) (*Vault, error) {
	var key []byte
	if encodedKey == "" {
		if production {
			return nil, ErrKeyRequired
		}
		key = make([]byte, keyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate transient key: %w", err)
		}
		log.Warn().Msg("no encryption key configured; using a transient key, stored secrets will not survive a restart")
	} else {
		decoded, err := base64.StdEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		if len(decoded) != keyBytes {
			return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keyBytes, len(decoded))
		}
		key = decoded
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Vault{aead: aead, log: log}, nil
}

// Encrypt seals a secret. Empty input maps to empty output, not an error.
// The random nonce is prepended to the ciphertext before base64 encoding.
func (v *Vault) Encrypt(plaintext string) string {
	if plaintext == "" {
		return ""
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		v.log.Error().Err(err).Msg("vault encrypt failed")
		return ""
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt opens a sealed secret. Empty input maps to empty output. Any
// failure (wrong key, tampered or truncated ciphertext) is logged and
// surfaces as an empty string: callers must treat an empty result as
// "absent", not necessarily "was empty".
func (v *Vault) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		v.log.Error().Err(err).Msg("vault decrypt failed")
		return ""
	}

	nonceSize := v.aead.NonceSize()
	if len(sealed) < nonceSize {
		v.log.Error().Msg("vault decrypt failed: ciphertext too short")
		return ""
	}

	plaintext, err := v.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		v.log.Error().Err(err).Msg("vault decrypt failed")
		return ""
	}
	return string(plaintext)
}
