// Package logs reads the gateway's request log for display.
package logs

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/util"
)

// DefaultInterval is the polling period used by Follow when none is given.
const DefaultInterval = 10 * time.Second

// Status is the outcome of a proxied request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one proxied request.
type Entry struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	Model            string `json:"model"`
	KeyName          string `json:"key_name"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Latency          string `json:"latency"`
	Status           Status `json:"status"`
}

// Source is the gateway call the viewer depends on.
type Source interface {
	ListLogs(ctx context.Context) ([]gateway.LogRecord, error)
}

// Viewer holds the most recent snapshot of the request log.
type Viewer struct {
	src    Source
	logger *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	err     error
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) {
		v.logger = logger
	}
}

// NewViewer returns a Viewer with an empty snapshot.
func NewViewer(src Source, opts ...Option) *Viewer {
	v := &Viewer{src: src}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	v.logger = v.logger.With("component", "logs")
	return v
}

// Fetch loads the request log. A failure empties the snapshot and is kept
// for Err; it is never returned, so the view degrades instead of blocking.
func (v *Viewer) Fetch(ctx context.Context) []Entry {
	records, err := v.src.ListLogs(ctx)
	if err != nil {
		v.logger.Warn("loading request logs", "error", err)
		v.mu.Lock()
		v.entries = nil
		v.err = err
		v.mu.Unlock()
		return []Entry{}
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entryFromRecord(rec))
	}
	v.mu.Lock()
	v.entries = entries
	v.err = nil
	v.mu.Unlock()
	return slices.Clone(entries)
}

// Entries returns the last snapshot without contacting the gateway.
func (v *Viewer) Entries() []Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.entries)
}

// Err returns the error of the most recent failed Fetch.
func (v *Viewer) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Reset drops the snapshot and the recorded error.
func (v *Viewer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
	v.err = nil
}

// Follow fetches immediately and then every interval until ctx is done,
// passing each snapshot to fn. A non-positive interval means
// DefaultInterval. It returns ctx.Err().
func (v *Viewer) Follow(ctx context.Context, interval time.Duration, fn func([]Entry)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		entries := v.Fetch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(entries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Search returns the entries of the last snapshot whose model or credential
// name contains term, ignoring case, optionally restricted to one status.
func (v *Viewer) Search(term string, status Status) []Entry {
	term = util.Normalize(term)
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		if status != "" && e.Status != status {
			continue
		}
		if term != "" && !util.ContainsFold(e.Model, term) && !util.ContainsFold(e.KeyName, term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entryFromRecord(rec gateway.LogRecord) Entry {
	status := Status(strings.ToLower(strings.TrimSpace(rec.Status)))
	if status != StatusSuccess {
		status = StatusError
	}
	return Entry{
		ID:               string(rec.ID),
		Timestamp:        rec.Timestamp,
		Model:            rec.Model,
		KeyName:          rec.KeyName,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		Latency:          rec.Latency,
		Status:           status,
	}
}
