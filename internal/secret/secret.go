// Package secret seals integration credentials at rest.
//
// A Sealer derives an AES-256 key from a passphrase with argon2id and seals
// values with AES-GCM. Sealed output is a base64 envelope of
// salt || nonce || ciphertext, so each value carries its own salt.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrNoKey is returned when a Sealer is built without a passphrase.
	ErrNoKey = errors.New("credential key is empty")
	// ErrDecrypt is returned when an envelope cannot be opened.
	ErrDecrypt = errors.New("failed to decrypt credential")
)

const (
	keySize   = 32
	saltSize  = 16
	nonceSize = 12
	memory    = 64 * 1024
	threads   = 4
)

// Sealer seals and opens string values with a passphrase-derived key.
type Sealer struct {
	passphrase []byte
	rand       io.Reader
}

// NewSealer returns a Sealer for the given passphrase.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	return &Sealer{passphrase: []byte(passphrase), rand: rand.Reader}, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, 1, memory, threads, keySize)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext and returns the base64 envelope.
func (s *Sealer) Seal(plaintext string) (string, error) {
	buf := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	salt, nonce := buf[:saltSize], buf[saltSize:]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	out := gcm.Seal(buf, nonce, []byte(plaintext), salt)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts an envelope produced by Seal.
func (s *Sealer) Open(envelope string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(envelope)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(data) < saltSize+nonceSize {
		return "", ErrDecrypt
	}
	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, data[saltSize+nonceSize:], salt)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// Mask hides all but the last four characters of a secret for display.
func Mask(s string) string {
	const visible = 4
	r := []rune(s)
	if len(r) <= visible {
		return "****"
	}
	return "****" + string(r[len(r)-visible:])
}
