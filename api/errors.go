package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/switchboard/chat"
	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/guard"
	"github.com/jmcleod/switchboard/routing"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/vault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorMessage is the text surfaced next to the control that failed: the
// gateway's own explanation when it gave one.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return gateway.Message(err)
}

func mapError(w http.ResponseWriter, err error) {
	var validationErr *vault.ValidationError
	var gatewayErr *gateway.Error
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, vault.ErrEmptySecret),
		errors.Is(err, vault.ErrUnknownProvider),
		errors.Is(err, routing.ErrUnknownModel),
		errors.Is(err, console.ErrMissingCredentials),
		errors.Is(err, console.ErrWeakPassword),
		errors.Is(err, console.ErrInvalidEmail),
		errors.Is(err, session.ErrEmptyToken),
		errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vault.ErrNoPendingDelete),
		errors.Is(err, vault.ErrDeleteInProgress),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionRejected),
		errors.Is(err, guard.ErrLoginRequired):
		writeError(w, http.StatusUnauthorized, errorMessage(err))
	case errors.Is(err, gateway.ErrUnreachable):
		writeError(w, http.StatusBadGateway, errorMessage(err))
	case errors.As(err, &gatewayErr):
		status := gatewayErr.StatusCode
		if status < 400 || status > 499 {
			status = http.StatusBadGateway
		}
		writeError(w, status, gatewayErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
