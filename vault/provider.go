package vault

import (
	"fmt"
	"strings"
)

// Provider identifies an upstream LLM provider a credential belongs to.
type Provider int

const (
	ProviderOpenAI Provider = iota
	ProviderAnthropic
	ProviderGemini
	ProviderMistral
	ProviderDeepSeek
	ProviderGroq
	ProviderPerplexity
	ProviderTogether
	ProviderOpenRouter
	ProviderCohere
	ProviderXAI

	numProviders
)

// ProviderInfo is the display metadata of a Provider.
type ProviderInfo struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
}

// providerTable is indexed by Provider. Its length is fixed by numProviders,
// so adding a constant without an entry leaves a zero ProviderInfo that
// TestProviderTableComplete catches.
var providerTable = [numProviders]ProviderInfo{
	ProviderOpenAI:     {Value: "openai", Label: "OpenAI", Placeholder: "sk-proj-..."},
	ProviderAnthropic:  {Value: "anthropic", Label: "Anthropic", Placeholder: "sk-ant-api03-..."},
	ProviderGemini:     {Value: "gemini", Label: "Gemini", Placeholder: "AIza..."},
	ProviderMistral:    {Value: "mistral", Label: "Mistral AI", Placeholder: "Mistral API Key (32 chars)"},
	ProviderDeepSeek:   {Value: "deepseek", Label: "DeepSeek", Placeholder: "sk-..."},
	ProviderGroq:       {Value: "groq", Label: "Groq", Placeholder: "gsk_..."},
	ProviderPerplexity: {Value: "perplexity", Label: "Perplexity", Placeholder: "pplx-..."},
	ProviderTogether:   {Value: "together", Label: "Together AI", Placeholder: "Together API Key"},
	ProviderOpenRouter: {Value: "openrouter", Label: "OpenRouter", Placeholder: "sk-or-v1-..."},
	ProviderCohere:     {Value: "cohere", Label: "Cohere", Placeholder: "Cohere API Key (40 chars)"},
	ProviderXAI:        {Value: "xai", Label: "xAI (Grok)", Placeholder: "xAI-..."},
}

// Providers returns every supported provider in display order.
func Providers() []Provider {
	out := make([]Provider, numProviders)
	for i := range out {
		out[i] = Provider(i)
	}
	return out
}

// ParseProvider maps a provider's wire value ("openai", "xai", ...) to a
// Provider. Matching ignores case and surrounding space.
func ParseProvider(s string) (Provider, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, info := range providerTable {
		if info.Value == v {
			return Provider(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Valid reports whether p is one of the defined providers.
func (p Provider) Valid() bool {
	return p >= 0 && p < numProviders
}

// Info returns the display metadata for p, or a zero ProviderInfo if p is invalid.
func (p Provider) Info() ProviderInfo {
	if !p.Valid() {
		return ProviderInfo{}
	}
	return providerTable[p]
}

func (p Provider) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Provider(%d)", int(p))
	}
	return providerTable[p].Value
}

func (p Provider) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProvider, int(p))
	}
	return []byte(providerTable[p].Value), nil
}

func (p *Provider) UnmarshalText(text []byte) error {
	parsed, err := ParseProvider(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
