package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	hkdfInfo  = "clinic-studio publish credentials v1"
)

// ErrNoSecret is returned when a sealed record is used without a key.
var ErrNoSecret = errors.New("credential key is not configured")

// ErrDecrypt is returned when a sealed record fails authentication.
var ErrDecrypt = errors.New("failed to decrypt sealed record")

// Sealer encrypts records with NaCl secretbox under a key derived from a
// passphrase with HKDF-SHA256.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the box key from secret. An empty secret is rejected.
func NewSealer(secret string) (*Sealer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	s := &Sealer{}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return s, nil
}

// Seal returns nonce || box.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

type sealedRecord struct {
	Box []byte `json:"box"`
}

// SaveSealed encrypts v and stores it under key.
func SaveSealed(ctx context.Context, st Store, sealer *Sealer, key string, v any) error {
	if sealer == nil {
		return ErrNoSecret
	}
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal sealed record: %w", err)
	}
	box, err := sealer.Seal(plain)
	if err != nil {
		return err
	}
	return st.SaveRecord(ctx, key, sealedRecord{Box: box})
}

// LoadSealed decrypts the record under key into v.
func LoadSealed(ctx context.Context, st Store, sealer *Sealer, key string, v any) (bool, error) {
	if sealer == nil {
		return false, ErrNoSecret
	}
	var rec sealedRecord
	found, err := st.LoadRecord(ctx, key, &rec)
	if err != nil || !found {
		return found, err
	}
	plain, err := sealer.Open(rec.Box)
	if err != nil {
		return true, err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return true, fmt.Errorf("failed to unmarshal sealed record: %w", err)
	}
	return true, nil
}
