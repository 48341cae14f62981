// Package api exposes a console.Console over a small JSON API for the
// embedded single-page shell and for scripting against a running
// "switchboard serve".
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/guard"
)

// DefaultBasePath is where the API is expected to be mounted.
const DefaultBasePath = "/api"

// LoginPath is the page unauthenticated operators are sent to.
const LoginPath = "/login"

// API holds the dependencies needed by the REST handlers.
type API struct {
	console  *console.Console
	audit    *auditLogger
	throttle *loginThrottle
	alertFn  AlertFunc
	basePath string
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAlertHandler registers fn to receive anomaly alerts derived from the
// audit stream (bursts of failed sign-ins or deletes).
func WithAlertHandler(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithLoginThrottle locks a username out with exponential backoff after
// repeated refused sign-ins. Off by default: the gateway owns rate limiting.
func WithLoginThrottle() Option {
	return func(a *API) {
		a.throttle = newLoginThrottle()
	}
}

// WithBasePath sets the path the router is mounted under, used to build the
// documentation links. Default: DefaultBasePath.
func WithBasePath(p string) Option {
	return func(a *API) {
		a.basePath = p
	}
}

// New creates a new API serving c.
func New(c *console.Console, opts ...Option) *API {
	a := &API{
		console:  c,
		basePath: DefaultBasePath,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)
	r.Use(CSRFMiddleware)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: a.basePath + "/openapi.yaml",
		Path:    trimSlash(a.basePath + "/docs"),
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: a.basePath + "/openapi.yaml",
		Path:    trimSlash(a.basePath + "/redoc"),
	}, nil))

	r.Get("/session", a.GetSession)
	r.Post("/session/login", a.Login)
	r.Post("/session/register", a.Register)
	r.Post("/session/logout", a.Logout)
	r.Get("/providers", a.ListProviders)

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware(a.console.Session(), LoginPath))
		r.Use(a.watchExpiry)

		r.Get("/keys", a.ListKeys)
		r.Post("/keys", a.CreateKey)
		r.Patch("/keys/{keyID}", a.UpdateKey)
		r.Put("/keys/pending-delete", a.RequestDelete)
		r.Delete("/keys/pending-delete", a.CancelDelete)
		r.Post("/keys/pending-delete/confirm", a.ConfirmDelete)
		r.Get("/keys/selected", a.GetSelected)
		r.Put("/keys/selected", a.SelectKey)
		r.Delete("/keys/selected", a.DeselectKey)

		r.Get("/logs", a.ListLogs)
		r.Get("/routing", a.GetRouting)

		r.Get("/chat", a.GetChat)
		r.Post("/chat", a.SendChat)
		r.Delete("/chat", a.ClearChat)
		r.Put("/chat/settings", a.UpdateChatSettings)
	})

	return r
}

func trimSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
