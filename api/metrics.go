package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertBulkKeyDelete     AlertType = "bulk_key_delete"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

type slidingCounter struct {
	hits      []time.Time
	window    time.Duration
	threshold int
}

// add records a hit at now and reports the count if the threshold was
// reached, resetting the window so one burst raises one alert.
func (c *slidingCounter) add(now time.Time) (int, bool) {
	c.hits = trimWindow(append(c.hits, now), now, c.window)
	n := len(c.hits)
	if n < c.threshold {
		return n, false
	}
	c.hits = c.hits[:0]
	return n, true
}

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures slidingCounter
	keyDeletes    slidingCounter

	alertFn AlertFunc
	now     func() time.Time
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 10
	defaultKeyDeleteWindow       = 5 * time.Minute
	defaultKeyDeleteThreshold    = 5
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginFailures: slidingCounter{window: defaultLoginFailureWindow, threshold: defaultLoginFailureThreshold},
		keyDeletes:    slidingCounter{window: defaultKeyDeleteWindow, threshold: defaultKeyDeleteThreshold},
		alertFn:       alertFn,
		now:           time.Now,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	var (
		c   *slidingCounter
		typ AlertType
		msg string
	)
	switch event {
	case AuditLoginFailure:
		c, typ, msg = &m.loginFailures, AlertLoginFailureSpike, "sign-in failure rate exceeds threshold"
	case AuditKeyDeleted:
		c, typ, msg = &m.keyDeletes, AlertBulkKeyDelete, "provider key deletion rate exceeds threshold"
	default:
		return
	}

	m.mu.Lock()
	now := m.now()
	n, fire := c.add(now)
	threshold := c.threshold
	m.mu.Unlock()

	if fire {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     n,
			Threshold: threshold,
			Timestamp: now,
		})
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
