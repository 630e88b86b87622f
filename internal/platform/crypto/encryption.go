package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Service seals short values (session cookies) with AES-256-GCM.
type Service struct {
	key []byte
}

// New derives a 32 byte key from secret for the given purpose, so one
// SESSION_SECRET can back several independent keys.
func New(secret, purpose string) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	return &Service{key: key}, nil
}

func DeriveKey(secret, purpose string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte("leaveportal:"+purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, plain, nil)
	return append(nonce, ciphertext...), nil
}

func (s *Service) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:gcm.NonceSize()]
	data := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, data, nil)
}

// SealString returns a URL-safe encoding suitable for a cookie value.
func (s *Service) SealString(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	sealed, err := s.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Service) OpenString(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	plain, err := s.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *Service) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
