package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess       AuditEvent = "login_success"
	AuditLoginFailure       AuditEvent = "login_failure"
	AuditLoginThrottled     AuditEvent = "login_throttled"
	AuditLogout             AuditEvent = "logout"
	AuditRegister           AuditEvent = "register"
	AuditSessionExpired     AuditEvent = "session_expired"
	AuditKeyCreated         AuditEvent = "key_created"
	AuditKeyUpdated         AuditEvent = "key_updated"
	AuditKeyDeleted         AuditEvent = "key_deleted"
	AuditKeyDeleteFailed    AuditEvent = "key_delete_failed"
	AuditKeyDeleteRequested AuditEvent = "key_delete_requested"
	AuditKeyDeleteCancelled AuditEvent = "key_delete_cancelled"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. Secrets never reach it; keys are
// identified by id and display prefix only.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", append(base, attrs...)...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logUser is a convenience for events attributed to an operator.
func (al *auditLogger) logUser(event AuditEvent, r *http.Request, username string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("username", username)}, extra...)...)
}

// logFailure logs a refused action with the reason the gateway gave.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("reason", reason)}, extra...)...)
}
