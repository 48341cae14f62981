package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, validateID("12"))
	assert.NoError(t, validateID("key-abc"))

	err := validateID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	err = validateID(strings.Repeat("1", MaxIDLength+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum length")

	err = validateID("1/../2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden character")

	err = validateID("1\x00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden character")
}

func TestNormalizeName(t *testing.T) {
	name, err := normalizeName("   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyName, name)

	name, err = normalizeName("  Production OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, "Production OpenAI", name)

	// Fullwidth letters fold to ASCII under NFKC.
	name, err = normalizeName("Ｐrod")
	require.NoError(t, err)
	assert.Equal(t, "Prod", name)

	_, err = normalizeName(strings.Repeat("n", MaxNameLength+1))
	assert.Error(t, err)

	_, err = normalizeName("bad\x07name")
	assert.Error(t, err)
}

func TestValidateSecret(t *testing.T) {
	assert.NoError(t, validateSecret([]byte("sk-test-123")))
	assert.NoError(t, validateSecret([]byte("  sk-test-123\n")))
	assert.ErrorIs(t, validateSecret(nil), ErrEmptySecret)
	assert.ErrorIs(t, validateSecret([]byte(" \t ")), ErrEmptySecret)

	err := validateSecret([]byte("sk test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whitespace")

	err = validateSecret([]byte(strings.Repeat("k", MaxSecretLength+1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum length")
}
