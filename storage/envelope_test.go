package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/internal/util"
)

func TestEnvelope(t *testing.T) {
	key, err := util.NewAESKey()
	require.NoError(t, err)
	plain := []byte("bearer-token")
	aad := []byte("context")

	env, err := SealRecord(key, plain, aad)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Ver)
	assert.Equal(t, "aes256gcm", env.Scheme)

	decrypted, err := OpenRecord(key, env, aad)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain, decrypted))

	t.Run("WrongAAD", func(t *testing.T) {
		_, err := OpenRecord(key, env, []byte("wrong context"))
		assert.Error(t, err)
	})

	t.Run("WrongKey", func(t *testing.T) {
		other, err := util.NewAESKey()
		require.NoError(t, err)
		_, err = OpenRecord(other, env, aad)
		assert.Error(t, err)
	})

	t.Run("UnsupportedScheme", func(t *testing.T) {
		bad := *env
		bad.Scheme = "raw"
		_, err := OpenRecord(key, &bad, aad)
		assert.ErrorContains(t, err, "unsupported envelope scheme")
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		bad := *env
		bad.Ver = 2
		_, err := OpenRecord(key, &bad, aad)
		assert.ErrorContains(t, err, "unsupported envelope version")
	})
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	t.Run("InvalidLength", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "short.key")
		require.NoError(t, os.WriteFile(bad, []byte("c2hvcnQ="), 0o600))
		_, err := LoadOrCreateKey(bad)
		assert.ErrorContains(t, err, "invalid key length")
	})
}
