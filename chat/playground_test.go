package chat_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/chat"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/gatewaytest"
	"github.com/jmcleod/switchboard/routing"
)

func setup(t *testing.T) (*chat.Playground, *gatewaytest.Server) {
	t.Helper()
	srv := gatewaytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("admin", "secret", "admin")
	srv.SeedKey(gatewaytest.Key{Name: "Prod", Provider: "openai", KeyValue: "sk-a", IsActive: true})
	token := srv.IssueToken("admin")
	client := gateway.NewClient(srv.URL, gateway.WithTokenSource(gateway.TokenSourceFunc(func() string { return token })))
	return chat.NewPlayground(client), srv
}

func TestSend(t *testing.T) {
	p, srv := setup(t)

	reply, err := p.Send(t.Context(), "  Hello there ")
	require.NoError(t, err)
	assert.Equal(t, chat.RoleAssistant, reply.Role)
	assert.Equal(t, "echo: Hello there", reply.Content)
	assert.Equal(t, "openai-test", reply.Model)
	assert.Equal(t, 3, reply.TotalTokens)
	assert.Regexp(t, `^\d+\.\ds$`, reply.Latency)

	chats := srv.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, "smart", chats[0].Model)
	assert.InDelta(t, 0.7, chats[0].Temperature, 1e-9)
	assert.Equal(t, []gatewaytest.ChatMessage{{Role: "user", Content: "Hello there"}}, chats[0].Messages)

	assert.Equal(t, []chat.Message{{Role: chat.RoleUser, Content: "Hello there"}, reply}, p.Transcript())
	reqs := srv.Requests()
	assert.NotEmpty(t, reqs[len(reqs)-1].Authorization, "chat carries the bearer token")
}

func TestSendWithMemory(t *testing.T) {
	p, srv := setup(t)
	ctx := t.Context()

	_, err := p.Send(ctx, "first")
	require.NoError(t, err)
	_, err = p.Send(ctx, "second")
	require.NoError(t, err)

	chats := srv.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, []gatewaytest.ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "echo: first"},
		{Role: "user", Content: "second"},
	}, chats[1].Messages)
}

func TestSendWithoutMemory(t *testing.T) {
	p, srv := setup(t)
	ctx := t.Context()
	p.SetMemory(false)

	_, err := p.Send(ctx, "first")
	require.NoError(t, err)
	_, err = p.Send(ctx, "second")
	require.NoError(t, err)

	chats := srv.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, []gatewaytest.ChatMessage{{Role: "user", Content: "second"}}, chats[1].Messages)
	assert.Len(t, p.Transcript(), 4, "the transcript keeps every turn")
}

func TestSendFailureIsRecordedButNotResent(t *testing.T) {
	p, srv := setup(t)
	ctx := t.Context()

	srv.FailNext("POST /chat", http.StatusInternalServerError, "No available providers for model smart")
	reply, err := p.Send(ctx, "first")
	require.Error(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, "Error: No available providers for model smart", reply.Content)

	transcript := p.Transcript()
	require.Len(t, transcript, 2)
	assert.True(t, transcript[0].Failed)

	_, err = p.Send(ctx, "second")
	require.NoError(t, err)
	chats := srv.Chats()
	require.Len(t, chats, 1, "the failed request never reached the handler")
	assert.Equal(t, []gatewaytest.ChatMessage{{Role: "user", Content: "second"}}, chats[0].Messages)
}

func TestSendEmpty(t *testing.T) {
	p, srv := setup(t)
	_, err := p.Send(t.Context(), " \n ")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	assert.Empty(t, p.Transcript())
	assert.Zero(t, srv.CountRequests(http.MethodPost, "/chat"))
}

func TestSettings(t *testing.T) {
	p, srv := setup(t)

	model, memory := p.Settings()
	assert.Equal(t, routing.ModelSmart, model)
	assert.True(t, memory)

	require.NoError(t, p.SetModel("FAST"))
	assert.ErrorIs(t, p.SetModel("turbo"), routing.ErrUnknownModel)
	p.SetMemory(false)
	model, memory = p.Settings()
	assert.Equal(t, routing.ModelFast, model)
	assert.False(t, memory)

	_, err := p.Send(t.Context(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fast", srv.Chats()[0].Model)

	p.Reset()
	model, memory = p.Settings()
	assert.Equal(t, routing.ModelSmart, model)
	assert.True(t, memory)
	assert.Empty(t, p.Transcript())
}

// blockingGateway holds Chat until release is closed.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatResponse, error) {
	close(g.entered)
	<-g.release
	return &gateway.ChatResponse{
		Model:   "test",
		Choices: []gateway.ChatChoice{{Message: gateway.ChatMessage{Role: "assistant", Content: "late"}}},
	}, nil
}

func TestClearDiscardsReplyInFlight(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	p := chat.NewPlayground(gw)

	done := make(chan chat.Message)
	go func() {
		reply, _ := p.Send(context.Background(), "question")
		done <- reply
	}()
	<-gw.entered

	_, err := p.Send(t.Context(), "another")
	assert.ErrorIs(t, err, chat.ErrBusy)

	p.Clear()
	close(gw.release)
	reply := <-done
	assert.Equal(t, "late", reply.Content)
	assert.Empty(t, p.Transcript())
}
