package vault

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/internal/util"
)

// Gateway is the subset of the gateway client the controller calls.
type Gateway interface {
	ListKeys(ctx context.Context) ([]gateway.KeyRecord, error)
	CreateKey(ctx context.Context, req gateway.CreateKeyRequest) (*gateway.KeyRecord, error)
	UpdateKey(ctx context.Context, id string, req gateway.UpdateKeyRequest) (*gateway.KeyRecord, error)
	DeleteKey(ctx context.Context, id string) error
}

var _ Gateway = (*gateway.Client)(nil)

// PendingDelete is the state of the delete confirmation gate. A zero value
// means idle.
type PendingDelete struct {
	TargetID  string `json:"target_id,omitempty"`
	Executing bool   `json:"executing"`
}

// Controller owns the cached credential list and the operations on it. It is
// safe for concurrent use. No lock is held across a gateway call, so two
// concurrent reloads may interleave; the one that finishes last wins.
type Controller struct {
	gw     Gateway
	logger *slog.Logger

	mu       sync.RWMutex
	creds    []Credential
	err      error
	pending  PendingDelete
	selected string
}

// NewController returns a Controller with an empty cache.
func NewController(gw Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{gw: gw}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "vault")
	return c
}

// List reloads the credential list from the gateway and returns it. On
// failure the cache is emptied, the error is kept for Err and an empty list
// is returned.
func (c *Controller) List(ctx context.Context) []Credential {
	records, err := c.gw.ListKeys(ctx)
	if err != nil {
		c.logger.Warn("loading credentials", "error", err)
		c.mu.Lock()
		c.creds = nil
		c.err = err
		c.mu.Unlock()
		return []Credential{}
	}

	creds := make([]Credential, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		cred, err := normalizeRecord(rec)
		if err != nil {
			c.logger.Warn("skipping credential record", "id", string(rec.ID), "provider", rec.Provider, "error", err)
			continue
		}
		if seen[cred.ID] {
			c.logger.Warn("skipping duplicate credential record", "id", cred.ID)
			continue
		}
		seen[cred.ID] = true
		creds = append(creds, cred)
	}

	c.mu.Lock()
	c.creds = creds
	c.err = nil
	c.mu.Unlock()
	return slices.Clone(creds)
}

// Credentials returns the cached list without contacting the gateway.
func (c *Controller) Credentials() []Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.creds)
}

// Err returns the error from the most recent failed List, or nil when the
// last List succeeded.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Create adds a credential and reloads the list. The secret is moved into a
// locked buffer, which wipes in.Secret, and goes to the gateway client
// without becoming a string; the buffer is destroyed after the single
// attempt. A blank name becomes DefaultKeyName.
func (c *Controller) Create(ctx context.Context, in CreateInput) (Credential, error) {
	defer util.WipeBytes(in.Secret)

	if !in.Provider.Valid() {
		return Credential{}, fmt.Errorf("%w: %d", ErrUnknownProvider, int(in.Provider))
	}
	if err := validateSecret(in.Secret); err != nil {
		return Credential{}, err
	}
	name, err := normalizeName(in.Name)
	if err != nil {
		return Credential{}, err
	}

	secret := memguard.NewBufferFromBytes(bytes.TrimSpace(in.Secret))
	defer secret.Destroy()

	rec, err := c.gw.CreateKey(ctx, gateway.CreateKeyRequest{
		Name:     name,
		Provider: in.Provider.String(),
		KeyValue: secret.Bytes(),
	})
	if err != nil {
		return Credential{}, fmt.Errorf("creating credential: %w", err)
	}
	c.logger.Info("credential created", "id", string(rec.ID), "provider", in.Provider.String())

	c.List(ctx)

	cred, err := normalizeRecord(*rec)
	if err != nil {
		// The gateway accepted the key; only its echo is unusable.
		return Credential{ID: string(rec.ID), Name: name, Provider: in.Provider, IsActive: rec.IsActive}, nil
	}
	return cred, nil
}

// SetActive enables or disables a credential and reloads the list. Setting a
// credential to the state it already has is harmless.
func (c *Controller) SetActive(ctx context.Context, id string, active bool) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := c.gw.UpdateKey(ctx, id, gateway.UpdateKeyRequest{IsActive: &active}); err != nil {
		return fmt.Errorf("updating credential %s: %w", id, err)
	}
	c.logger.Info("credential status changed", "id", id, "active", active)
	c.List(ctx)
	return nil
}

// RequestDelete arms the confirmation gate for id. Requesting again replaces
// the target.
func (c *Controller) RequestDelete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending.Executing {
		return ErrDeleteInProgress
	}
	c.pending = PendingDelete{TargetID: id}
	return nil
}

// CancelDelete disarms the confirmation gate. It has no effect on a delete
// that is already executing.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending.Executing {
		c.pending = PendingDelete{}
	}
}

// PendingDelete returns the state of the confirmation gate.
func (c *Controller) PendingDelete() PendingDelete {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// ConfirmDelete deletes the credential the gate is armed for and reloads the
// list. The gate returns to idle whether or not the delete succeeded. It
// returns the deleted id.
func (c *Controller) ConfirmDelete(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.pending.Executing {
		c.mu.Unlock()
		return "", ErrDeleteInProgress
	}
	id := c.pending.TargetID
	if id == "" {
		c.mu.Unlock()
		return "", ErrNoPendingDelete
	}
	c.pending.Executing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = PendingDelete{}
		c.mu.Unlock()
	}()

	if err := c.gw.DeleteKey(ctx, id); err != nil {
		return id, fmt.Errorf("deleting credential %s: %w", id, err)
	}
	c.logger.Info("credential deleted", "id", id)

	c.mu.Lock()
	if c.selected == id {
		c.selected = ""
	}
	c.mu.Unlock()

	c.List(ctx)
	return id, nil
}

// Select shows the credential id in the settings panel.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	c.selected = id
	return nil
}

// Deselect closes the settings panel.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ""
}

// Selected returns the credential shown in the settings panel, read from the
// current cache. It reports false when nothing is selected or the selected
// credential is no longer in the list.
func (c *Controller) Selected() (Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == "" {
		return Credential{}, false
	}
	i := c.indexLocked(c.selected)
	if i < 0 {
		return Credential{}, false
	}
	return c.creds[i], true
}

// Filter returns the cached credentials whose name or provider contains term,
// ignoring case. An empty term matches everything.
func (c *Controller) Filter(term string) []Credential {
	term = util.Normalize(term)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if term == "" {
		return slices.Clone(c.creds)
	}
	out := make([]Credential, 0, len(c.creds))
	for _, cred := range c.creds {
		info := cred.Provider.Info()
		if util.ContainsFold(cred.Name, term) ||
			util.ContainsFold(info.Value, term) ||
			util.ContainsFold(info.Label, term) {
			out = append(out, cred)
		}
	}
	return out
}

// Reset drops the cache, the recorded error, the delete gate and the
// selection.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = nil
	c.err = nil
	c.pending = PendingDelete{}
	c.selected = ""
}

func (c *Controller) indexLocked(id string) int {
	return slices.IndexFunc(c.creds, func(cred Credential) bool { return cred.ID == id })
}
