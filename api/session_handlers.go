package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/session"
)

func (a *API) sessionResponse() SessionResponse {
	st := a.console.Session().State()
	return SessionResponse{
		Restored:      st.Restored,
		Authenticated: st.Authenticated,
		User:          st.User,
	}
}

// GetSession reports the session state and issues the CSRF cookie.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	resp := a.sessionResponse()
	resp.CSRFToken = ensureCSRFCookie(w, r)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// Login signs the operator in. A refusal leaves the current session as it
// was and returns the gateway's explanation verbatim.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxSessionBodySize)
	if !ok {
		return
	}
	if blocked, wait := a.throttle.check(req.Username); blocked {
		a.audit.logFailure(AuditLoginThrottled, r, "too many failed attempts", slog.String("username", req.Username))
		writeThrottled(w, wait)
		return
	}

	err := a.console.SignIn(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		a.throttle.recordSuccess(req.Username)
	case errors.Is(err, console.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case gateway.IsUnauthorized(err):
		a.throttle.recordFailure(req.Username)
		a.audit.logFailure(AuditLoginFailure, r, gateway.Message(err), slog.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, gateway.Message(err))
		return
	case errors.Is(err, session.ErrSessionRejected):
		a.audit.logFailure(AuditLoginFailure, r, "identity could not be resolved", slog.String("username", req.Username))
		mapError(w, err)
		return
	default:
		a.audit.logFailure(AuditLoginFailure, r, gateway.Message(err), slog.String("username", req.Username))
		mapError(w, err)
		return
	}

	resp := a.sessionResponse()
	username := req.Username
	if resp.User != nil {
		username = resp.User.Username
	}
	a.audit.logUser(AuditLoginSuccess, r, username)
	writeJSON(w, http.StatusOK, resp)
}

// Register creates an operator account on the gateway without signing in.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RegisterRequest](w, r, maxSessionBodySize)
	if !ok {
		return
	}
	user, err := a.console.Register(r.Context(), console.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.logUser(AuditRegister, r, user.Username, slog.String("role", user.Role))
	writeJSON(w, http.StatusCreated, RegisterResponse{User: user})
}

// Logout ends the session. It succeeds on an empty session too.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := a.console.Session().User(); ok {
		a.audit.logUser(AuditLogout, r, u.Username)
	}
	a.console.SignOut()
	w.WriteHeader(http.StatusNoContent)
}
