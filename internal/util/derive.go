package util

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrEmptyKeyMaterial is returned by DeriveKey when there is nothing to
// derive from.
var ErrEmptyKeyMaterial = errors.New("empty key material")

// DeriveKey expands a local secret into an AES-256 key dedicated to purpose
// (HKDF-SHA256, no salt). Different purposes yield unrelated keys, so one
// wrapping key file can serve several sealed records.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptyKeyMaterial
	}
	if purpose == "" {
		return nil, fmt.Errorf("deriving key: purpose is required")
	}
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", purpose, err)
	}
	return key, nil
}
