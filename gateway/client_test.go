package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/gatewaytest"
)

func newClient(srv *gatewaytest.Server, token *string, opts ...gateway.Option) *gateway.Client {
	opts = append([]gateway.Option{
		gateway.WithTokenSource(gateway.TokenSourceFunc(func() string { return *token })),
	}, opts...)
	return gateway.NewClient(srv.URL, opts...)
}

func TestClientAttachesBearerOnlyWhenPresent(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddUser("admin", "secret", "admin")

	token := ""
	c := newClient(srv, &token)

	_, err := c.Me(t.Context())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusCode(err))

	token = srv.IssueToken("admin")
	me, err := c.Me(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, "admin", me.Role)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)
}

func TestClientLogin(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddUser("admin", "secret", "admin")

	token := ""
	c := newClient(srv, &token)

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := c.Login(t.Context(), "admin", "wrong")
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials", gateway.Message(err))
		assert.True(t, gateway.IsUnauthorized(err))
	})

	t.Run("Success", func(t *testing.T) {
		tok, err := c.Login(t.Context(), "admin", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, tok)
	})
}

func TestClientLoginWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer srv.Close()

	_, err := gateway.NewClient(srv.URL).Login(t.Context(), "admin", "secret")
	assert.ErrorIs(t, err, gateway.ErrNoAccessToken)
}

func TestClientUnreachable(t *testing.T) {
	srv := gatewaytest.NewServer()
	url := srv.URL
	srv.Close()

	_, err := gateway.NewClient(url).ListKeys(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnreachable)
	assert.Equal(t, "unable to reach the gateway service", gateway.Message(err))
	assert.Zero(t, gateway.StatusCode(err))
}

func TestClientCanceledContext(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := gateway.NewClient(srv.URL).ListKeys(ctx)
	assert.ErrorIs(t, err, gateway.ErrUnreachable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Username already registered"}`, "Username already registered"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","provider"],"msg":"field required"}]}`, "field required"},
		{"error field", http.StatusForbidden, `{"error":"forbidden"}`, "forbidden"},
		{"message field", http.StatusConflict, `{"message":"conflict"}`, "conflict"},
		{"no body", http.StatusInternalServerError, ``, "request failed with status 500"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "request failed with status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := gateway.NewClient(srv.URL).Do(t.Context(), http.MethodGet, "/anything", nil, nil)
			require.Error(t, err)
			var apiErr *gateway.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, gateway.Message(err))
		})
	}
}

func TestClientNeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := gateway.NewClient(srv.URL).Do(t.Context(), http.MethodPost, "/admin/keys", map[string]string{"a": "b"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientUnauthorizedHook(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddUser("admin", "secret", "admin")

	var fired atomic.Int32
	var rejected atomic.Value
	token := srv.IssueToken("admin")
	issued := token
	c := newClient(srv, &token, gateway.WithUnauthorizedHandler(func(tok string) {
		fired.Add(1)
		rejected.Store(tok)
	}))

	_, err := c.ListKeys(t.Context())
	require.NoError(t, err)
	assert.Zero(t, fired.Load())

	t.Run("PublicEndpointDoesNotFire", func(t *testing.T) {
		_, err := c.Login(t.Context(), "admin", "wrong")
		require.Error(t, err)
		assert.Zero(t, fired.Load())
	})

	t.Run("RevokedTokenFires", func(t *testing.T) {
		srv.RevokeTokens()
		_, err := c.ListKeys(t.Context())
		require.Error(t, err)
		assert.Equal(t, int32(1), fired.Load())
		assert.Equal(t, issued, rejected.Load(), "hook receives the token that was sent")
	})

	t.Run("NoTokenDoesNotFire", func(t *testing.T) {
		token = ""
		_, err := c.ListKeys(t.Context())
		require.Error(t, err)
		assert.Equal(t, int32(1), fired.Load())
	})
}

func TestClientKeyEndpoints(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddUser("admin", "secret", "admin")
	token := srv.IssueToken("admin")
	c := newClient(srv, &token)
	ctx := t.Context()

	created, err := c.CreateKey(ctx, gateway.CreateKeyRequest{Name: "Prod", Provider: "openai", KeyValue: []byte("sk-test-123")})
	require.NoError(t, err)
	assert.Equal(t, gateway.RecordID("1"), created.ID)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := c.UpdateKey(ctx, string(created.ID), gateway.UpdateKeyRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	keys, err := c.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "sk-test...", keys[0].KeyPrefix)
	assert.False(t, keys[0].IsActive)

	require.NoError(t, c.DeleteKey(ctx, string(created.ID)))
	keys, err = c.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	err = c.DeleteKey(ctx, "42")
	assert.Equal(t, http.StatusNotFound, gateway.StatusCode(err))
	assert.Equal(t, "Key not found", gateway.Message(err))
}

func TestClientChat(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	token := ""
	c := newClient(srv, &token)
	req := gateway.ChatRequest{
		Model:       "fast",
		Messages:    []gateway.ChatMessage{{Role: "user", Content: "ping"}},
		Temperature: 0.7,
	}

	_, err := c.Chat(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, "No available providers for model fast", gateway.Message(err))

	srv.SeedKey(gatewaytest.Key{Name: "Groq", Provider: "groq", KeyValue: "gsk_a", IsActive: true})
	resp, err := c.Chat(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "echo: ping", resp.Choices[0].Message.Content)
	assert.Equal(t, "groq-test", resp.Model)
	assert.Equal(t, 3, resp.Usage.TotalTokens)

	chats := srv.Chats()
	require.Len(t, chats, 2)
	assert.InDelta(t, 0.7, chats[1].Temperature, 1e-9)
}

func TestClientChatWithoutChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := gateway.NewClient(srv.URL).Chat(t.Context(), gateway.ChatRequest{Model: "any"})
	assert.ErrorIs(t, err, gateway.ErrNoChoices)
}

func TestRecordIDUnmarshal(t *testing.T) {
	var rec struct {
		A gateway.RecordID `json:"a"`
		B gateway.RecordID `json:"b"`
		C gateway.RecordID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":17,"b":"k-9","c":null}`), &rec))
	assert.Equal(t, gateway.RecordID("17"), rec.A)
	assert.Equal(t, gateway.RecordID("k-9"), rec.B)
	assert.Equal(t, gateway.RecordID(""), rec.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &rec))
}
