package api

import (
	"github.com/jmcleod/switchboard/chat"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/logs"
	"github.com/jmcleod/switchboard/routing"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/vault"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse is returned from GET /session and the login endpoint.
type SessionResponse struct {
	Restored      bool          `json:"restored"`
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
	CSRFToken     string        `json:"csrf_token,omitempty"`
}

// LoginRequest is the JSON body for POST /session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for POST /session/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// RegisterResponse is returned from POST /session/register.
type RegisterResponse struct {
	User *gateway.User `json:"user"`
}

// ListKeysResponse is returned from GET /keys. Error carries the generic
// message when the list could not be loaded; Keys is then empty.
type ListKeysResponse struct {
	Keys  []vault.Credential `json:"keys"`
	Error string             `json:"error,omitempty"`
}

// CreateKeyRequest is the JSON body for POST /keys.
type CreateKeyRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	KeyValue string `json:"key_value"`
}

// UpdateKeyRequest is the JSON body for PATCH /keys/{keyID}.
type UpdateKeyRequest struct {
	IsActive *bool `json:"is_active"`
}

// KeyIDRequest names one credential, for PUT /keys/pending-delete and
// PUT /keys/selected.
type KeyIDRequest struct {
	ID string `json:"id"`
}

// PendingDeleteResponse describes the delete confirmation gate.
type PendingDeleteResponse struct {
	TargetID  string `json:"target_id,omitempty"`
	Executing bool   `json:"executing"`
}

// DeletedResponse is returned once a confirmed delete completes.
type DeletedResponse struct {
	DeletedID string             `json:"deleted_id"`
	Keys      []vault.Credential `json:"keys"`
}

// SelectedResponse is returned from GET /keys/selected.
type SelectedResponse struct {
	Key *vault.Credential `json:"key"`
}

// ListProvidersResponse is returned from GET /providers.
type ListProvidersResponse struct {
	Providers []vault.ProviderInfo `json:"providers"`
}

// ListLogsResponse is returned from GET /logs.
type ListLogsResponse struct {
	Entries    []logs.Entry   `json:"entries"`
	Error      string         `json:"error,omitempty"`
	Pagination PaginationMeta `json:"pagination"`
}

// RoutingResponse is returned from GET /routing.
type RoutingResponse struct {
	Routes []routing.Route `json:"routes"`
}

// ChatStateResponse is the playground's settings and transcript.
type ChatStateResponse struct {
	Model    routing.Model  `json:"model"`
	Memory   bool           `json:"memory"`
	Messages []chat.Message `json:"messages"`
}

// ChatSendRequest is the JSON body for POST /chat.
type ChatSendRequest struct {
	Message string `json:"message"`
}

// ChatSettingsRequest is the JSON body for PUT /chat/settings. Omitted
// fields keep their value.
type ChatSettingsRequest struct {
	Model  *string `json:"model,omitempty"`
	Memory *bool   `json:"memory,omitempty"`
}
