package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginThrottleLockout(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := newLoginThrottle()
	th.now = clock.now

	for range throttleFailures - 1 {
		th.recordFailure("admin")
	}
	blocked, _ := th.check("admin")
	assert.False(t, blocked)

	th.recordFailure("ADMIN ")
	blocked, wait := th.check("admin")
	assert.True(t, blocked, "usernames are compared case-insensitively")
	assert.Equal(t, throttleBase, wait)

	th.recordFailure("admin")
	_, wait = th.check("admin")
	assert.Equal(t, 2*throttleBase, wait, "backoff doubles")

	blocked, _ = th.check("someone-else")
	assert.False(t, blocked)

	clock.t = clock.t.Add(2 * throttleBase)
	blocked, _ = th.check("admin")
	assert.False(t, blocked)
}

func TestLoginThrottleCapAndReset(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := newLoginThrottle()
	th.now = clock.now

	for range throttleFailures + 10 {
		th.recordFailure("admin")
	}
	_, wait := th.check("admin")
	assert.Equal(t, throttleMax, wait)

	th.recordSuccess("admin")
	blocked, _ := th.check("admin")
	assert.False(t, blocked)
}

func TestLoginThrottleExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := newLoginThrottle()
	th.now = clock.now

	for range throttleFailures - 1 {
		th.recordFailure("admin")
	}
	clock.t = clock.t.Add(throttleExpiry + time.Minute)
	th.recordFailure("admin")
	blocked, _ := th.check("admin")
	assert.False(t, blocked, "stale failures are forgotten")
}

func TestWriteThrottled(t *testing.T) {
	w := httptest.NewRecorder()
	writeThrottled(w, 200*time.Millisecond)
	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestNilLoginThrottle(t *testing.T) {
	var th *loginThrottle
	for range throttleFailures + 1 {
		th.recordFailure("admin")
	}
	blocked, wait := th.check("admin")
	assert.False(t, blocked)
	assert.Zero(t, wait)
	th.recordSuccess("admin")
}
