// Package session holds the operator's bearer token and the identity it
// resolves to, and decides whether the console is authenticated.
//
// A Store starts empty. Restore loads a previously saved token and validates
// it; Login installs a fresh one. Any failure to resolve the identity behind
// a token logs the session out: there is one fail-closed path.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// User is the identity behind a token.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// State is a point-in-time snapshot of a Store.
type State struct {
	Restored      bool   `json:"restored"`
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	Token         string `json:"-"`
}

// Resolver answers "who am I" for the token currently held by the Store.
type Resolver interface {
	Resolve(ctx context.Context) (User, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (User, error)

func (f ResolverFunc) Resolve(ctx context.Context) (User, error) { return f(ctx) }

// Store is the session state shared by every console surface. It is safe for
// concurrent use; no lock is held while the resolver runs.
type Store struct {
	tokens   TokenStore
	resolver Resolver
	logger   *slog.Logger

	restoreOnce sync.Once

	mu       sync.RWMutex
	token    string
	user     *User
	restored bool

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns an empty, not yet restored Store. tokens is the durable
// home of the token; resolver is consulted after every restore and login.
func NewStore(tokens TokenStore, resolver Resolver, opts ...Option) *Store {
	s := &Store{
		tokens:   tokens,
		resolver: resolver,
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "session")
	return s
}

// Restore loads the saved token, if any, and resolves its identity. It runs
// once per Store; later calls wait for the first to finish and return.
// Restored reports true only after identity resolution has completed.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		token, err := s.tokens.Load()
		if err != nil {
			s.logger.Warn("reading saved session token", "error", err)
			token = ""
		}
		if token != "" {
			s.mu.Lock()
			s.token = token
			s.mu.Unlock()
			if err := s.ResolveIdentity(ctx); err != nil {
				s.logger.Info("saved session is no longer valid", "error", err)
			}
		}
		s.mu.Lock()
		s.restored = true
		s.mu.Unlock()
		s.notify()
	})
}

// Login installs token, persists it and resolves its identity. When the
// gateway rejects the token the session is logged out and the returned error
// wraps ErrSessionRejected.
func (s *Store) Login(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	s.token = token
	s.user = nil
	if err := s.tokens.Save(token); err != nil {
		s.logger.Warn("persisting session token", "error", err)
	}
	s.mu.Unlock()
	s.notify()

	return s.ResolveIdentity(ctx)
}

// Logout clears the token, the identity and the durable copy. Calling it on
// an empty session is harmless.
func (s *Store) Logout() {
	s.mu.Lock()
	changed := s.clearLocked()
	s.mu.Unlock()
	if changed {
		s.logger.Debug("session cleared")
		s.notify()
	}
}

// LogoutIfCurrent logs out only while token is still the session's token. A
// rejection that arrives after the operator signed in again is ignored. It
// reports whether the session was cleared.
func (s *Store) LogoutIfCurrent(token string) bool {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		s.logger.Debug("ignoring rejection of a replaced token")
		return false
	}
	s.clearLocked()
	s.mu.Unlock()
	s.logger.Debug("session cleared")
	s.notify()
	return true
}

// clearLocked drops the token and identity, in memory and on disk, and
// reports whether there was anything to drop. s.mu must be held so a
// concurrent Login cannot have its saved token wiped.
func (s *Store) clearLocked() bool {
	changed := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("clearing saved session token", "error", err)
	}
	return changed
}

// ResolveIdentity asks the resolver who the current token belongs to. Any
// failure logs the session out. An answer for a token that has since been
// replaced or cleared is discarded and reported as ErrSuperseded.
func (s *Store) ResolveIdentity(ctx context.Context) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return ErrNoToken
	}

	user, err := s.resolver.Resolve(ctx)

	s.mu.Lock()
	current := s.token
	if current == token && err == nil {
		s.user = &user
	}
	s.mu.Unlock()

	switch {
	case current != token && current != "":
		s.logger.Debug("discarding identity for replaced token")
		return ErrSuperseded
	case err != nil:
		// The token may already be gone if the gateway client's
		// unauthorized hook logged out first.
		s.LogoutIfCurrent(token)
		return fmt.Errorf("%w: %w", ErrSessionRejected, err)
	case current != token:
		s.logger.Debug("discarding identity for cleared token")
		return ErrSuperseded
	}
	s.logger.Debug("identity resolved", "username", user.Username, "role", user.Role)
	s.notify()
	return nil
}

// IsAuthenticated reports whether an identity has been resolved.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Restored reports whether the startup restore has completed.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// Token returns the current bearer token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the resolved identity.
func (s *Store) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		Restored:      s.restored,
		Authenticated: s.user != nil,
		Token:         s.token,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// Subscribe registers fn to receive the new State after every change. fn
// runs on the goroutine that made the change and must not call back into
// Subscribe. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	st := s.State()
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
