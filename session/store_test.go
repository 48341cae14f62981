package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/storage/memory"
)

// fakeResolver accepts a fixed set of tokens, reading the current one from
// the store it is attached to.
type fakeResolver struct {
	store *session.Store
	valid map[string]session.User
	err   error
	calls atomic.Int32
}

func (f *fakeResolver) Resolve(ctx context.Context) (session.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return session.User{}, f.err
	}
	u, ok := f.valid[f.store.Token()]
	if !ok {
		return session.User{}, errors.New("Could not validate credentials")
	}
	return u, nil
}

func newTokenStore(t *testing.T) *session.SealedTokenStore {
	t.Helper()
	key, err := util.RandomBytes(32)
	require.NoError(t, err)
	ts, err := session.NewSealedTokenStore(memory.NewRepository(), key)
	require.NoError(t, err)
	t.Cleanup(ts.Close)
	return ts
}

func newStore(t *testing.T, tokens session.TokenStore) (*session.Store, *fakeResolver) {
	t.Helper()
	res := &fakeResolver{valid: map[string]session.User{
		"good": {Username: "admin", Role: "admin"},
	}}
	s := session.NewStore(tokens, res)
	res.store = s
	return s, res
}

func TestLoginLogout(t *testing.T) {
	tokens := newTokenStore(t)
	s, _ := newStore(t, tokens)

	require.NoError(t, s.Login(t.Context(), "good"))
	assert.True(t, s.IsAuthenticated())
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "admin", u.Username)

	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "good", saved)

	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	saved, err = tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, saved)

	// Idempotent.
	s.Logout()
	assert.False(t, s.IsAuthenticated())
}

func TestLoginEmptyToken(t *testing.T) {
	s, res := newStore(t, newTokenStore(t))
	assert.ErrorIs(t, s.Login(t.Context(), ""), session.ErrEmptyToken)
	assert.Zero(t, res.calls.Load())
}

func TestLoginRejected(t *testing.T) {
	tokens := newTokenStore(t)
	s, _ := newStore(t, tokens)

	err := s.Login(t.Context(), "forged")
	require.ErrorIs(t, err, session.ErrSessionRejected)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())

	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestResolveIdentityFailsClosed(t *testing.T) {
	s, res := newStore(t, newTokenStore(t))
	require.NoError(t, s.Login(t.Context(), "good"))

	res.err = errors.New("dial tcp: connection refused")
	err := s.ResolveIdentity(t.Context())
	require.ErrorIs(t, err, session.ErrSessionRejected)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestResolveIdentityWithoutToken(t *testing.T) {
	s, res := newStore(t, newTokenStore(t))
	assert.ErrorIs(t, s.ResolveIdentity(t.Context()), session.ErrNoToken)
	assert.Zero(t, res.calls.Load())
}

func TestResolveIdentityDiscardsStaleAnswer(t *testing.T) {
	tokens := newTokenStore(t)
	var s *session.Store
	s = session.NewStore(tokens, session.ResolverFunc(func(ctx context.Context) (session.User, error) {
		// The operator logs out while the answer is in flight.
		s.Logout()
		return session.User{Username: "admin"}, nil
	}))

	err := s.Login(t.Context(), "good")
	assert.ErrorIs(t, err, session.ErrSuperseded)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestLogoutIfCurrent(t *testing.T) {
	tokens := newTokenStore(t)
	s, res := newStore(t, tokens)
	res.valid["fresh"] = session.User{Username: "admin", Role: "admin"}
	require.NoError(t, s.Login(t.Context(), "fresh"))

	assert.False(t, s.LogoutIfCurrent("good"))
	assert.False(t, s.LogoutIfCurrent(""))
	assert.True(t, s.IsAuthenticated())
	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved)

	assert.True(t, s.LogoutIfCurrent("fresh"))
	assert.False(t, s.IsAuthenticated())
	saved, err = tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestResolveIdentityFailureForReplacedToken(t *testing.T) {
	tokens := newTokenStore(t)
	var s *session.Store
	first := true
	s = session.NewStore(tokens, session.ResolverFunc(func(ctx context.Context) (session.User, error) {
		if first {
			// A new sign-in lands while the old token's answer is in flight.
			first = false
			require.NoError(t, s.Login(ctx, "fresh"))
			return session.User{}, errors.New("Could not validate credentials")
		}
		return session.User{Username: "admin", Role: "admin"}, nil
	}))

	err := s.Login(t.Context(), "old")
	assert.ErrorIs(t, err, session.ErrSuperseded)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "fresh", s.Token())
	saved, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved)
}

func TestRestore(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		tokens := newTokenStore(t)
		require.NoError(t, tokens.Save("good"))
		s, _ := newStore(t, tokens)

		assert.False(t, s.Restored())
		s.Restore(t.Context())
		assert.True(t, s.Restored())
		assert.True(t, s.IsAuthenticated())
	})

	t.Run("RevokedToken", func(t *testing.T) {
		tokens := newTokenStore(t)
		require.NoError(t, tokens.Save("revoked"))
		s, _ := newStore(t, tokens)

		s.Restore(t.Context())
		assert.True(t, s.Restored())
		assert.False(t, s.IsAuthenticated())
		saved, err := tokens.Load()
		require.NoError(t, err)
		assert.Empty(t, saved)
	})

	t.Run("NoToken", func(t *testing.T) {
		s, res := newStore(t, newTokenStore(t))
		s.Restore(t.Context())
		assert.True(t, s.Restored())
		assert.False(t, s.IsAuthenticated())
		assert.Zero(t, res.calls.Load())
	})

	t.Run("RunsOnce", func(t *testing.T) {
		tokens := newTokenStore(t)
		require.NoError(t, tokens.Save("good"))
		s, res := newStore(t, tokens)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Restore(context.Background())
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), res.calls.Load())
		assert.True(t, s.Restored())
	})

	t.Run("UnreadableStorage", func(t *testing.T) {
		s, res := newStore(t, brokenTokenStore{})
		s.Restore(t.Context())
		assert.True(t, s.Restored())
		assert.False(t, s.IsAuthenticated())
		assert.Zero(t, res.calls.Load())
	})
}

func TestRestoredOnlyAfterResolution(t *testing.T) {
	tokens := newTokenStore(t)
	require.NoError(t, tokens.Save("good"))

	var s *session.Store
	var restoredDuring bool
	s = session.NewStore(tokens, session.ResolverFunc(func(ctx context.Context) (session.User, error) {
		restoredDuring = s.Restored()
		return session.User{Username: "admin"}, nil
	}))
	s.Restore(t.Context())
	assert.False(t, restoredDuring)
	assert.True(t, s.Restored())
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t, newTokenStore(t))

	var states []session.State
	cancel := s.Subscribe(func(st session.State) {
		states = append(states, st)
	})

	require.NoError(t, s.Login(t.Context(), "good"))
	s.Logout()
	cancel()
	require.NoError(t, s.Login(t.Context(), "good"))

	require.Len(t, states, 3)
	assert.False(t, states[0].Authenticated)
	assert.Equal(t, "good", states[0].Token)
	assert.True(t, states[1].Authenticated)
	require.NotNil(t, states[1].User)
	assert.Equal(t, "admin", states[1].User.Username)
	assert.False(t, states[2].Authenticated)
	assert.Empty(t, states[2].Token)
}

func TestStateInvariant(t *testing.T) {
	s, _ := newStore(t, newTokenStore(t))
	check := func(st session.State) {
		if st.User != nil {
			assert.NotEmpty(t, st.Token)
		}
	}
	s.Subscribe(check)
	require.NoError(t, s.Login(t.Context(), "good"))
	check(s.State())
	s.Logout()
	check(s.State())
}

type brokenTokenStore struct{}

func (brokenTokenStore) Load() (string, error) { return "", errors.New("disk on fire") }
func (brokenTokenStore) Save(string) error     { return errors.New("disk on fire") }
func (brokenTokenStore) Clear() error          { return errors.New("disk on fire") }
