// Package seal wraps XChaCha20-Poly1305 sealing for secrets persisted to
// disk. Every caller derives its own key from the master secret with a
// distinct info string, so a blob sealed for one purpose cannot be opened
// under another even with the same master.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the derived key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Envelope is a sealed blob at rest. Ciphertext carries the AEAD tag.
type Envelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Derive derives a purpose-bound key from the master secret using
// HKDF-SHA256.
func Derive(master []byte, salt, info string) ([]byte, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("derive: empty master secret")
	}
	reader := hkdf.New(sha256.New, master, []byte(salt), []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under key with a fresh random nonce. aad is
// authenticated but not encrypted; Open fails if it differs.
func Seal(key, plaintext, aad []byte) (Envelope, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("seal: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("seal nonce: %w", err)
	}
	return Envelope{
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, aad),
	}, nil
}

// Open decrypts an envelope sealed by Seal.
func Open(key []byte, env Envelope, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}
