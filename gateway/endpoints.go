package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ErrNoAccessToken is returned when a successful login response carries no token.
var ErrNoAccessToken = errors.New("login response carried no access token")

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, &resp, true)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return resp.AccessToken, nil
}

// Register creates an operator account. The first account on a fresh
// gateway becomes its admin.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me resolves the identity behind the current bearer token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListKeys returns every credential record visible to the operator.
func (c *Client) ListKeys(ctx context.Context) ([]KeyRecord, error) {
	var keys []KeyRecord
	if err := c.Do(ctx, http.MethodGet, "/admin/keys", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// CreateKey stores a new provider credential.
func (c *Client) CreateKey(ctx context.Context, req CreateKeyRequest) (*KeyRecord, error) {
	body, err := encodeCreateKey(req)
	if err != nil {
		return nil, err
	}
	defer body.Destroy()

	var key KeyRecord
	if err := c.Do(ctx, http.MethodPost, "/admin/keys", rawJSON(body.Bytes()), &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateKey patches a credential record.
func (c *Client) UpdateKey(ctx context.Context, id string, req UpdateKeyRequest) (*KeyRecord, error) {
	var key KeyRecord
	if err := c.Do(ctx, http.MethodPatch, "/admin/keys/"+url.PathEscape(id), req, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// DeleteKey removes a credential record. It is irreversible.
func (c *Client) DeleteKey(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/admin/keys/"+url.PathEscape(id), nil, nil)
}

// ListLogs returns recent gateway request logs.
func (c *Client) ListLogs(ctx context.Context) ([]LogRecord, error) {
	var logs []LogRecord
	if err := c.Do(ctx, http.MethodGet, "/admin/logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ErrNoChoices is returned when a chat response carries no completion.
var ErrNoChoices = errors.New("chat response carried no choices")

// Chat sends a conversation to the gateway's router and returns the
// completion it produced.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.Do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &resp, nil
}
