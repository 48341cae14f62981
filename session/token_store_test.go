package session_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/storage"
	bboltstore "github.com/jmcleod/switchboard/storage/bbolt"
	"github.com/jmcleod/switchboard/storage/memory"
)

func TestSealedTokenStore(t *testing.T) {
	repo := memory.NewRepository()
	key, err := util.RandomBytes(32)
	require.NoError(t, err)
	ts, err := session.NewSealedTokenStore(repo, key)
	require.NoError(t, err)
	defer ts.Close()

	got, err := ts.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, ts.Clear())

	require.NoError(t, ts.Save("tok-123"))
	got, err = ts.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)

	env, err := repo.Get("__console", "TOKEN", "current")
	require.NoError(t, err)
	assert.NotContains(t, string(env.Ciphertext), "tok-123")

	require.NoError(t, ts.Clear())
	got, err = ts.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSealedTokenStoreWrongKey(t *testing.T) {
	repo := memory.NewRepository()
	k1, _ := util.RandomBytes(32)
	k2, _ := util.RandomBytes(32)

	a, err := session.NewSealedTokenStore(repo, k1)
	require.NoError(t, err)
	require.NoError(t, a.Save("tok-123"))

	b, err := session.NewSealedTokenStore(repo, k2)
	require.NoError(t, err)
	_, err = b.Load()
	assert.Error(t, err)
}

func TestSealedTokenStoreKeyLength(t *testing.T) {
	_, err := session.NewSealedTokenStore(memory.NewRepository(), []byte("short"))
	assert.Error(t, err)
}

func TestSealedTokenStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	key, err := storage.LoadOrCreateKey(filepath.Join(dir, "console.key"))
	require.NoError(t, err)

	db, err := bboltstore.NewRepositoryFromFile(filepath.Join(dir, "console.db"), nil)
	require.NoError(t, err)
	ts, err := session.NewSealedTokenStore(db, key)
	require.NoError(t, err)
	require.NoError(t, ts.Save("tok-persist"))
	require.NoError(t, db.Close())

	key, err = storage.LoadOrCreateKey(filepath.Join(dir, "console.key"))
	require.NoError(t, err)
	db, err = bboltstore.NewRepositoryFromFile(filepath.Join(dir, "console.db"), nil)
	require.NoError(t, err)
	defer db.Close()
	ts, err = session.NewSealedTokenStore(db, key)
	require.NoError(t, err)

	got, err := ts.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-persist", got)
}
