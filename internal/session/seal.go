package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealBroken is returned when sealed tokens cannot be opened with the current key.
var ErrSealBroken = errors.New("sealed tokens cannot be opened")

// Sealer encrypts token pairs before they reach a repository.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the key from secret: 64 hex characters are used directly,
// any other secret of at least 32 bytes is hashed with SHA-256.
func NewSealer(secret string) (*Sealer, error) {
	s := &Sealer{}
	if len(secret) == 64 {
		if raw, err := hex.DecodeString(secret); err == nil {
			copy(s.key[:], raw)
			return s, nil
		}
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	s.key = sha256.Sum256([]byte(secret))
	return s, nil
}

// Seal encrypts t. The nonce is prepended to the box.
func (s *Sealer) Seal(t Tokens) ([]byte, error) {
	plain, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding tokens: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(box []byte) (Tokens, error) {
	var t Tokens
	if len(box) < nonceSize+secretbox.Overhead {
		return t, ErrSealBroken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return t, ErrSealBroken
	}
	if err := json.Unmarshal(plain, &t); err != nil {
		return t, fmt.Errorf("decoding tokens: %w", err)
	}
	return t, nil
}
