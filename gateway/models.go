package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned from POST /auth/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// User is returned from GET /auth/me and POST /auth/register.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
}

// RecordID is a server-assigned identifier. The gateway emits integer ids;
// RecordID accepts both JSON numbers and strings and always holds the string form.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// KeyRecord is one element of GET /admin/keys.
type KeyRecord struct {
	ID        RecordID `json:"id"`
	Name      string   `json:"name"`
	Provider  string   `json:"provider"`
	KeyPrefix string   `json:"key_prefix"`
	IsActive  bool     `json:"is_active"`
	UsedToday float64  `json:"used_today"`
}

// CreateKeyRequest is the JSON body for POST /admin/keys. KeyValue is only
// read during CreateKey and is never retained or converted to a string.
type CreateKeyRequest struct {
	Name     string
	Provider string
	KeyValue []byte
}

// UpdateKeyRequest is the JSON body for PATCH /admin/keys/{id}.
type UpdateKeyRequest struct {
	IsActive *bool `json:"is_active,omitempty"`
}

// LogRecord is one element of GET /admin/logs.
type LogRecord struct {
	ID               RecordID `json:"id"`
	Timestamp        string   `json:"timestamp"`
	Model            string   `json:"model"`
	KeyName          string   `json:"key_name"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	Latency          string   `json:"latency"`
	Status           string   `json:"status"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON body for POST /chat. Model is a logical model name
// (smart, fast, cheap or any) that the gateway routes to a provider.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatChoice is one completion returned by POST /chat.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage counts the tokens spent on a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the result of POST /chat. Model is the concrete provider
// model that served the request.
type ChatResponse struct {
	ID      string       `json:"id"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}
