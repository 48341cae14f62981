package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jmcleod/switchboard/internal/util"
)

const (
	// throttleFailures consecutive refusals for one username start a lockout.
	throttleFailures = 5
	throttleBase     = 1 * time.Minute
	throttleMax      = 15 * time.Minute
	throttleExpiry   = 1 * time.Hour
)

// loginThrottle slows down password guessing through the console by locking a
// username out with exponential backoff after repeated gateway refusals.
type loginThrottle struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	now      func() time.Time
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

func newLoginThrottle() *loginThrottle {
	return &loginThrottle{
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
	}
}

func throttleKey(username string) string {
	return util.Fold(util.Normalize(username))
}

// check reports whether username is locked out and for how long. A nil
// throttle never locks anyone out.
func (t *loginThrottle) check(username string) (bool, time.Duration) {
	if t == nil {
		return false, 0
	}
	key := throttleKey(username)
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.attempts[key]
	if !ok {
		return false, 0
	}
	now := t.now()
	if now.Sub(rec.lastFailure) > throttleExpiry {
		delete(t.attempts, key)
		return false, 0
	}
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

func (t *loginThrottle) recordFailure(username string) {
	if t == nil {
		return
	}
	key := throttleKey(username)
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, rec := range t.attempts {
		if now.Sub(rec.lastFailure) > throttleExpiry {
			delete(t.attempts, k)
		}
	}

	rec, ok := t.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		t.attempts[key] = rec
	}
	rec.failures++
	rec.lastFailure = now
	if rec.failures < throttleFailures {
		return
	}
	lockout := throttleBase
	for i := throttleFailures; i < rec.failures && lockout < throttleMax; i++ {
		lockout *= 2
	}
	rec.lockedUntil = now.Add(min(lockout, throttleMax))
}

func (t *loginThrottle) recordSuccess(username string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, throttleKey(username))
}

func writeThrottled(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(max(int(retryAfter.Seconds()), 1)))
	writeError(w, http.StatusTooManyRequests, "too many failed sign-in attempts; try again later")
}
