// Package vault keeps the console's cached view of the operator's provider
// credentials in sync with the gateway.
//
// Every mutation is one authorized gateway call followed by a full reload of
// the list; the cache is never patched locally. Deletes go through a
// request/confirm gate and there is no way around it.
package vault

import (
	"strings"

	"github.com/jmcleod/switchboard/gateway"
)

// Defaults applied to records and inputs with blank fields.
const (
	DefaultKeyName      = "My API Key"
	DefaultInstanceName = "API Instance"
	DefaultKeyPrefix    = "sk-***"
)

// Credential is the cached, normalized form of a gateway key record. The
// secret itself is never held client side; KeyPrefix is what the gateway
// chose to reveal.
type Credential struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Provider   Provider `json:"provider"`
	KeyPrefix  string   `json:"key_prefix"`
	IsActive   bool     `json:"is_active"`
	UsedAmount float64  `json:"used_amount"`
}

// CreateInput describes a credential to add. Secret is wiped by Create
// whatever the outcome.
type CreateInput struct {
	Name     string
	Provider Provider
	Secret   []byte
}

func normalizeRecord(rec gateway.KeyRecord) (Credential, error) {
	provider, err := ParseProvider(rec.Provider)
	if err != nil {
		return Credential{}, err
	}
	if rec.ID == "" {
		return Credential{}, validationErrorf("record has no id")
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = DefaultInstanceName
	}
	prefix := rec.KeyPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return Credential{
		ID:         string(rec.ID),
		Name:       name,
		Provider:   provider,
		KeyPrefix:  prefix,
		IsActive:   rec.IsActive,
		UsedAmount: rec.UsedToday,
	}, nil
}
