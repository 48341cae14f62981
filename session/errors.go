package session

import "errors"

var (
	// ErrEmptyToken is returned by Login when no token is given.
	ErrEmptyToken = errors.New("empty session token")
	// ErrSessionRejected is returned when the gateway did not accept the
	// token during identity resolution. The session is logged out.
	ErrSessionRejected = errors.New("session rejected")
	// ErrNoToken is returned by ResolveIdentity when there is no token.
	ErrNoToken = errors.New("no session token")
	// ErrSuperseded is returned when the token changed while its identity
	// was being resolved. The stale answer is discarded.
	ErrSuperseded = errors.New("session token changed during identity resolution")
)
