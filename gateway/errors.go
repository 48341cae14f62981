package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnreachable wraps every transport-level failure. Its message is the
// generic connectivity text shown when the server gave no explanation.
var ErrUnreachable = errors.New("unable to reach the gateway service")

// Error is a non-2xx response from the gateway.
type Error struct {
	StatusCode int
	// Message is the server-provided explanation, or a generic description
	// of the status when the body carried none.
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(status int, body []byte) *Error {
	msg := serverMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{StatusCode: status, Message: msg}
}

// serverMessage extracts the explanation from a gateway error body. The
// gateway answers {"detail": "..."}; validation failures carry a list of
// {"msg": "..."} objects instead.
func serverMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a gateway response.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// Message returns the text to show an operator for err: the server's
// message when one was given, otherwise the generic connectivity message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnreachable) {
		return ErrUnreachable.Error()
	}
	return err.Error()
}
