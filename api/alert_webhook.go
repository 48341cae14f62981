package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	alertQueueSize    = 64
	alertSendAttempts = 2
)

// AlertWebhook forwards anomaly alerts to an external HTTP endpoint. Notify
// never blocks: alerts are queued and delivered by a background goroutine,
// and dropped when the queue is full.
type AlertWebhook struct {
	url        string
	authHeader string
	client     *http.Client
	logger     *slog.Logger
	retryDelay time.Duration

	alerts    chan AlertEvent
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAlertWebhook starts a dispatcher posting to url. authHeader, when set,
// is a "Name: value" pair added to every request.
func NewAlertWebhook(url, authHeader string, logger *slog.Logger) (*AlertWebhook, error) {
	if authHeader != "" && !strings.Contains(authHeader, ":") {
		return nil, fmt.Errorf("alert webhook header %q is not in \"Name: value\" form", authHeader)
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &AlertWebhook{
		url:        url,
		authHeader: authHeader,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "alert-webhook"),
		retryDelay: time.Second,
		alerts:     make(chan AlertEvent, alertQueueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Notify queues e for delivery. It has the AlertFunc signature.
func (w *AlertWebhook) Notify(e AlertEvent) {
	select {
	case w.alerts <- e:
	default:
		w.logger.Warn("queue full, dropping alert", "type", e.Type)
	}
}

// Close stops accepting alerts and waits for queued ones to be sent.
func (w *AlertWebhook) Close() {
	w.closeOnce.Do(func() {
		close(w.alerts)
		w.wg.Wait()
	})
}

func (w *AlertWebhook) loop() {
	defer w.wg.Done()
	for e := range w.alerts {
		w.send(e)
	}
}

// send posts e, retrying once after a transport error or a 5xx answer.
func (w *AlertWebhook) send(e AlertEvent) {
	body, err := json.Marshal(e)
	if err != nil {
		w.logger.Warn("encoding alert", "error", err)
		return
	}
	for attempt := 1; attempt <= alertSendAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(w.retryDelay)
		}
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			w.logger.Warn("building alert request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "switchboard-alerts/1")
		if name, value, ok := strings.Cut(w.authHeader, ":"); ok {
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		resp, err := w.client.Do(req)
		if err != nil {
			w.logger.Warn("delivering alert", "error", err, "attempt", attempt)
			continue
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode < 300:
			return
		case resp.StatusCode >= 500:
			w.logger.Warn("alert endpoint failed", "status", resp.StatusCode, "attempt", attempt)
		default:
			w.logger.Warn("alert endpoint refused alert", "status", resp.StatusCode)
			return
		}
	}
}
