package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider indicates a provider name outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrEmptySecret indicates a create request without key material.
	ErrEmptySecret = errors.New("key value must not be empty")
	// ErrNoPendingDelete is returned by ConfirmDelete when nothing awaits confirmation.
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	// ErrDeleteInProgress is returned while a confirmed delete is still executing.
	ErrDeleteInProgress = errors.New("a delete is already in progress")
	// ErrCredentialNotFound indicates an id that is not in the cached list.
	ErrCredentialNotFound = errors.New("credential not found")
)

// ValidationError reports malformed input rejected before any gateway call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
