// Package routing previews how the gateway would route a logical model given
// the operator's current credentials.
package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmcleod/switchboard/vault"
)

// ErrUnknownModel indicates a logical model name the gateway does not route.
var ErrUnknownModel = errors.New("unknown logical model")

// Model is a logical model name clients request instead of a concrete one.
type Model string

const (
	ModelSmart Model = "smart"
	ModelFast  Model = "fast"
	ModelCheap Model = "cheap"
	ModelAny   Model = "any"
)

// priorities mirrors the gateway router: providers are tried in order and
// the first one holding an active key serves the request.
var priorities = map[Model][]vault.Provider{
	ModelSmart: {vault.ProviderOpenAI, vault.ProviderAnthropic, vault.ProviderGemini, vault.ProviderMistral, vault.ProviderPerplexity},
	ModelFast:  {vault.ProviderGroq, vault.ProviderOpenAI, vault.ProviderGemini, vault.ProviderMistral, vault.ProviderTogether},
	ModelCheap: {vault.ProviderDeepSeek, vault.ProviderGroq, vault.ProviderGemini, vault.ProviderMistral, vault.ProviderTogether},
	ModelAny: {
		vault.ProviderOpenAI, vault.ProviderGemini, vault.ProviderGroq, vault.ProviderAnthropic,
		vault.ProviderDeepSeek, vault.ProviderMistral, vault.ProviderPerplexity, vault.ProviderTogether,
		vault.ProviderOpenRouter, vault.ProviderCohere, vault.ProviderXAI,
	},
}

// Models returns the logical models in display order.
func Models() []Model {
	return []Model{ModelSmart, ModelFast, ModelCheap, ModelAny}
}

// ParseModel validates a logical model name, ignoring case.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := priorities[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
	return m, nil
}

// Candidate is one provider in a model's priority list.
type Candidate struct {
	Provider  vault.Provider `json:"provider"`
	Label     string         `json:"label"`
	Priority  int            `json:"priority"`
	Available bool           `json:"available"`
}

// Route is the routing outcome for one logical model.
type Route struct {
	Model      Model           `json:"model"`
	Candidates []Candidate     `json:"providers"`
	Selected   *vault.Provider `json:"selected"`
}

// Preview reports, for each provider in m's priority list, whether
// creds include an active key for it, and which provider would be selected.
func Preview(m Model, creds []vault.Credential) (Route, error) {
	order, ok := priorities[m]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownModel, string(m))
	}
	active := make(map[vault.Provider]bool)
	for _, c := range creds {
		if c.IsActive {
			active[c.Provider] = true
		}
	}

	p := Route{Model: m, Candidates: make([]Candidate, 0, len(order))}
	for i, provider := range order {
		available := active[provider]
		p.Candidates = append(p.Candidates, Candidate{
			Provider:  provider,
			Label:     provider.Info().Label,
			Priority:  i + 1,
			Available: available,
		})
		if available && p.Selected == nil {
			selected := provider
			p.Selected = &selected
		}
	}
	return p, nil
}

// PreviewAll previews every logical model.
func PreviewAll(creds []vault.Credential) []Route {
	out := make([]Route, 0, len(priorities))
	for _, m := range Models() {
		p, _ := Preview(m, creds)
		out = append(out, p)
	}
	return out
}
