package vault

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"github.com/jmcleod/switchboard/internal/util"
)

// Validation constants.
const (
	MaxNameLength   = 128
	MaxSecretLength = 4096
	MaxIDLength     = 256
)

func validateID(id string) error {
	if id == "" {
		return validationErrorf("credential id must not be empty")
	}
	if len(id) > MaxIDLength {
		return validationErrorf("credential id exceeds maximum length of %d", MaxIDLength)
	}
	if !utf8.ValidString(id) {
		return validationErrorf("credential id contains invalid UTF-8")
	}
	for _, r := range id {
		if r == '/' || unicode.IsControl(r) {
			return validationErrorf("credential id contains forbidden character %q", r)
		}
	}
	return nil
}

// normalizeName trims and NFKC-normalizes a display name, substituting
// DefaultKeyName when nothing is left.
func normalizeName(name string) (string, error) {
	name = util.Normalize(name)
	if name == "" {
		return DefaultKeyName, nil
	}
	if len(name) > MaxNameLength {
		return "", validationErrorf("name exceeds maximum length of %d", MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", validationErrorf("name contains control character")
		}
	}
	return name, nil
}

func validateSecret(secret []byte) error {
	trimmed := bytes.TrimSpace(secret)
	if len(trimmed) == 0 {
		return ErrEmptySecret
	}
	if len(secret) > MaxSecretLength {
		return validationErrorf("key value exceeds maximum length of %d", MaxSecretLength)
	}
	if !utf8.Valid(trimmed) {
		return validationErrorf("key value contains invalid UTF-8")
	}
	if bytes.ContainsFunc(trimmed, unicode.IsSpace) {
		return validationErrorf("key value must not contain whitespace")
	}
	return nil
}
