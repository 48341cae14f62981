// Package guard gates the console's protected views on the session state.
//
// A view is only decided once the startup restore has finished; until then
// the guard answers with a loading state instead of a redirect, so a saved
// session is never bounced to the login page while it is being validated.
package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrLoginRequired is returned by Require when the session is not admitted.
var ErrLoginRequired = errors.New("login required")

// Signal is the session state the guard reads.
type Signal interface {
	Restored() bool
	IsAuthenticated() bool
}

// Decision is the outcome of evaluating a Signal.
type Decision int

const (
	// Wait means the restore is still running; render a loading state.
	Wait Decision = iota
	// Admit means the protected view may render.
	Admit
	// RedirectToLogin means there is no authenticated session.
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Admit:
		return "admit"
	case RedirectToLogin:
		return "redirect"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Decide evaluates s. It never redirects before the restore has completed.
func Decide(s Signal) Decision {
	if !s.Restored() {
		return Wait
	}
	if s.IsAuthenticated() {
		return Admit
	}
	return RedirectToLogin
}

// Require is the non-HTTP form of the guard used by CLI commands.
func Require(s Signal) error {
	switch Decide(s) {
	case Admit:
		return nil
	case Wait:
		return fmt.Errorf("%w: session restore has not completed", ErrLoginRequired)
	default:
		return ErrLoginRequired
	}
}

// Middleware protects next. While the restore runs it answers 503 with
// Retry-After so the client polls; without a session it redirects page
// loads to loginPath?next=<original path> and answers API calls with 401.
func Middleware(s Signal, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Decide(s) {
			case Admit:
				next.ServeHTTP(w, r)
			case Wait:
				writeLoading(w, r)
			default:
				if isPageRequest(r) {
					target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
					"login": loginPath,
				})
			}
		})
	}
}

// RedirectAuthenticated sends an already authenticated operator away from
// the login page: to the local path in the next query parameter when there
// is one, otherwise to home. Everyone else reaches next.
func RedirectAuthenticated(s Signal, home string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Decide(s) != Admit {
				next.ServeHTTP(w, r)
				return
			}
			target := home
			if n := r.URL.Query().Get("next"); isLocalPath(n) {
				target = n
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// isLocalPath accepts only same-origin absolute paths, rejecting
// scheme-relative ("//host") and backslash tricks.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func isPageRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

const loadingPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Switchboard</title></head>
<body><p>Loading&hellip;</p></body></html>
`

func writeLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if isPageRequest(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if r.Method != http.MethodHead {
			w.Write([]byte(loadingPage))
		}
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session is loading"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
