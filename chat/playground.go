// Package chat is the console's playground for trying the gateway's logical
// models in a running conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/routing"
)

const (
	// DefaultModel is the logical model a new playground talks to.
	DefaultModel = routing.ModelSmart
	// Temperature is sent with every request.
	Temperature = 0.7
)

var (
	// ErrEmptyMessage is returned by Send for a blank message.
	ErrEmptyMessage = errors.New("message must not be empty")
	// ErrBusy is returned by Send while an earlier message awaits its reply.
	ErrBusy = errors.New("a message is already awaiting a reply")
)

// Role identifies who wrote a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the transcript. Model, TotalTokens and Latency are
// set on successful replies only. Failed marks both halves of an exchange the
// gateway refused; failed turns are shown but never sent as history.
type Message struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	Model       string `json:"model,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	Latency     string `json:"latency,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

// Gateway is the call the playground depends on.
type Gateway interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatResponse, error)
}

// Playground holds one conversation and its settings.
type Playground struct {
	gw     Gateway
	logger *slog.Logger

	mu         sync.Mutex
	model      routing.Model
	memory     bool
	sending    bool
	generation int
	transcript []Message
}

// Option configures a Playground.
type Option func(*Playground)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Playground) {
		p.logger = logger
	}
}

// NewPlayground returns an empty conversation on DefaultModel with memory on.
func NewPlayground(gw Gateway, opts ...Option) *Playground {
	p := &Playground{gw: gw, model: DefaultModel, memory: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "chat")
	return p
}

// Settings returns the logical model and whether earlier turns are sent
// along with each message.
func (p *Playground) Settings() (routing.Model, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model, p.memory
}

// SetModel switches the logical model for later messages.
func (p *Playground) SetModel(m routing.Model) error {
	m, err := routing.ParseModel(string(m))
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.model = m
	p.mu.Unlock()
	return nil
}

// SetMemory turns sending the conversation history on or off.
func (p *Playground) SetMemory(on bool) {
	p.mu.Lock()
	p.memory = on
	p.mu.Unlock()
}

// Transcript returns every turn so far, oldest first.
func (p *Playground) Transcript() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.transcript)
}

// Clear empties the transcript. A reply still in flight is returned to its
// caller but not added.
func (p *Playground) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transcript = nil
	p.generation++
}

// Reset clears the transcript and restores the default settings.
func (p *Playground) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transcript = nil
	p.generation++
	p.model = DefaultModel
	p.memory = true
}

// Send posts content, preceded by the earlier turns when memory is on, and
// records the exchange. When the gateway refuses, the reply is an error turn
// carrying the gateway's message and the error is returned as well.
func (p *Playground) Send(ctx context.Context, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return Message{}, ErrBusy
	}
	p.sending = true
	model := p.model
	var history []gateway.ChatMessage
	if p.memory {
		history = p.historyLocked()
	}
	gen := p.generation
	p.transcript = append(p.transcript, Message{Role: RoleUser, Content: content})
	asked := len(p.transcript) - 1
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.sending = false
		p.mu.Unlock()
	}()

	start := time.Now()
	resp, err := p.gw.Chat(ctx, gateway.ChatRequest{
		Model:       string(model),
		Messages:    append(history, gateway.ChatMessage{Role: string(RoleUser), Content: content}),
		Temperature: Temperature,
	})
	if err != nil {
		p.logger.Warn("chat request failed", "model", model, "error", err)
		reply := Message{Role: RoleAssistant, Content: "Error: " + gateway.Message(err), Failed: true}
		p.record(gen, asked, reply)
		return reply, err
	}

	reply := Message{
		Role:        RoleAssistant,
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
		Latency:     formatLatency(time.Since(start)),
	}
	p.logger.Debug("chat reply", "model", model, "served_by", resp.Model, "tokens", reply.TotalTokens)
	p.record(gen, asked, reply)
	return reply, nil
}

// record appends reply unless the transcript was cleared meanwhile. A failed
// reply also marks the question at index asked.
func (p *Playground) record(gen, asked int, reply Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return
	}
	if reply.Failed {
		p.transcript[asked].Failed = true
	}
	p.transcript = append(p.transcript, reply)
}

func (p *Playground) historyLocked() []gateway.ChatMessage {
	out := make([]gateway.ChatMessage, 0, len(p.transcript)+1)
	for _, m := range p.transcript {
		if m.Failed {
			continue
		}
		out = append(out, gateway.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
