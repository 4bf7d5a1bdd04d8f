// Package crypt seals small secrets, such as a saved admin token, with
// AES-256-GCM.
//
// Ciphertext is base64url(nonce || ciphertext || tag), safe to keep in a file
// or an environment variable.
//
//	box, err := crypt.NewBox(config.AppKey())
//	enc, err := box.EncryptJSON(session)
//	err = box.DecryptJSON(enc, &session)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// Box encrypts with a key derived from a secret string.
type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 32-byte key from secret with SHA-256.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("crypt: empty key")
	}
	k := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return &Box{aead: gcm}, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	return b.EncryptBytes([]byte(plaintext))
}

func (b *Box) EncryptBytes(data []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	raw, err := b.DecryptBytes(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (b *Box) DecryptBytes(encoded string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}
	n := b.aead.NonceSize()
	if len(data) < n {
		return nil, ErrDecrypt
	}
	plain, err := b.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// EncryptJSON marshals v to JSON then encrypts it.
func (b *Box) EncryptJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypt: marshal: %w", err)
	}
	return b.EncryptBytes(raw)
}

// DecryptJSON decrypts encoded and unmarshals the result into dest.
func (b *Box) DecryptJSON(encoded string, dest any) error {
	raw, err := b.DecryptBytes(encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("crypt: unmarshal: %w", err)
	}
	return nil
}
