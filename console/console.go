// Package console wires one operator session to the gateway client and the
// views that depend on it. A Console replaces process-wide state: every
// front end (CLI command, local server) owns exactly one and passes it down.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"sync"
	"unicode/utf8"

	"github.com/jmcleod/switchboard/chat"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/logs"
	"github.com/jmcleod/switchboard/routing"
	"github.com/jmcleod/switchboard/session"
	"github.com/jmcleod/switchboard/vault"
)

// MinPasswordLength is enforced on registration before the gateway is called.
const MinPasswordLength = 8

var (
	// ErrMissingCredentials is returned when a username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrWeakPassword is returned by Register for passwords that are too short.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrInvalidEmail is returned by Register for a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Config is the console core's configuration.
type Config struct {
	// APIURL is the gateway base URL, e.g. http://localhost:8000/api/v1.
	APIURL string
}

// Console owns one session and everything that depends on it.
type Console struct {
	session *session.Store
	gateway *gateway.Client
	vault   *vault.Controller
	logs    *logs.Viewer
	chat    *chat.Playground
	logger  *slog.Logger

	httpClient *http.Client

	teardownOnce sync.Once
	unsubscribe  func()
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// WithHTTPClient sets the http.Client used to reach the gateway.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Console) {
		c.httpClient = hc
	}
}

// New builds a Console. The session reads and writes its token through
// tokens; the gateway client attaches that token to every call and logs the
// session out when the gateway rejects it.
func New(cfg Config, tokens session.TokenStore, opts ...Option) *Console {
	c := &Console{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.session = session.NewStore(tokens, session.ResolverFunc(c.fetchIdentity),
		session.WithLogger(c.logger))

	gwOpts := []gateway.Option{
		gateway.WithTokenSource(c.session),
		gateway.WithUnauthorizedHandler(func(token string) { c.session.LogoutIfCurrent(token) }),
		gateway.WithLogger(c.logger),
	}
	if c.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(c.httpClient))
	}
	c.gateway = gateway.NewClient(cfg.APIURL, gwOpts...)
	c.vault = vault.NewController(c.gateway, vault.WithLogger(c.logger))
	c.logs = logs.NewViewer(c.gateway, logs.WithLogger(c.logger))
	c.chat = chat.NewPlayground(c.gateway, chat.WithLogger(c.logger))

	c.unsubscribe = c.session.Subscribe(func(st session.State) {
		if !st.Authenticated {
			c.vault.Reset()
			c.logs.Reset()
			c.chat.Reset()
		}
	})
	return c
}

// Session returns the session store.
func (c *Console) Session() *session.Store { return c.session }

// Gateway returns the gateway client.
func (c *Console) Gateway() *gateway.Client { return c.gateway }

// Vault returns the credential controller.
func (c *Console) Vault() *vault.Controller { return c.vault }

// Logs returns the request log viewer.
func (c *Console) Logs() *logs.Viewer { return c.logs }

// Chat returns the chat playground.
func (c *Console) Chat() *chat.Playground { return c.chat }

// Init restores the saved session. It blocks until identity resolution has
// finished; servers run it in the background so the guard can report the
// loading state meanwhile.
func (c *Console) Init(ctx context.Context) {
	c.session.Restore(ctx)
	if st := c.session.State(); st.User != nil {
		c.logger.Info("session restored", "username", st.User.Username)
	}
}

// Teardown logs out and drops every cache. The Console must not be used
// afterwards.
func (c *Console) Teardown() {
	c.teardownOnce.Do(func() {
		c.session.Logout()
		c.vault.Reset()
		c.logs.Reset()
		c.chat.Reset()
		c.unsubscribe()
	})
}

// SignIn exchanges credentials for a token and installs it. When the gateway
// refuses the credentials the session is left untouched and the error
// carries the gateway's message (see gateway.Message).
func (c *Console) SignIn(ctx context.Context, username, password string) error {
	username = util.Normalize(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	token, err := c.gateway.Login(ctx, username, password)
	if err != nil {
		c.logger.Info("sign-in refused", "username", username, "error", gateway.Message(err))
		return err
	}
	if err := c.session.Login(ctx, token); err != nil {
		return err
	}
	c.logger.Info("signed in", "username", username)
	return nil
}

// SignOut ends the session.
func (c *Console) SignOut() {
	c.session.Logout()
}

// RegisterInput describes a new operator account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account on the gateway. It does not sign in.
func (c *Console) Register(ctx context.Context, in RegisterInput) (*gateway.User, error) {
	username := util.Normalize(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	email := util.Normalize(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
		}
	}
	user, err := c.gateway.Register(ctx, gateway.RegisterRequest{
		Username: username,
		Email:    email,
		Password: in.Password,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("account registered", "username", user.Username, "role", user.Role)
	return user, nil
}

// Routes reloads the credential list and previews every logical model.
func (c *Console) Routes(ctx context.Context) []routing.Route {
	return routing.PreviewAll(c.vault.List(ctx))
}

func (c *Console) fetchIdentity(ctx context.Context) (session.User, error) {
	u, err := c.gateway.Me(ctx)
	if err != nil {
		return session.User{}, err
	}
	if u.Username == "" {
		return session.User{}, errors.New("identity response carried no username")
	}
	return session.User{Username: u.Username, Role: u.Role}, nil
}
