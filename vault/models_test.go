package vault

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/gateway"
)

func TestProviderTableComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Providers() {
		info := p.Info()
		assert.NotEmpty(t, info.Value, "provider %d has no value", int(p))
		assert.NotEmpty(t, info.Label, "provider %s has no label", info.Value)
		assert.NotEmpty(t, info.Placeholder, "provider %s has no placeholder", info.Value)
		assert.False(t, seen[info.Value], "duplicate provider value %s", info.Value)
		seen[info.Value] = true
	}
	assert.Len(t, seen, 11)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("openai")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	p, err = ParseProvider("  XAI ")
	require.NoError(t, err)
	assert.Equal(t, ProviderXAI, p)
	assert.Equal(t, "xAI (Grok)", p.Info().Label)

	_, err = ParseProvider("llama")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = ParseProvider("")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviderText(t *testing.T) {
	data, err := json.Marshal(struct {
		P Provider `json:"p"`
	}{ProviderTogether})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"together"}`, string(data))

	var out struct {
		P Provider `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"mistral"}`), &out))
	assert.Equal(t, ProviderMistral, out.P)
	assert.Error(t, json.Unmarshal([]byte(`{"p":"nope"}`), &out))

	_, err = Provider(99).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.False(t, Provider(-1).Valid())
	assert.Equal(t, "Provider(99)", Provider(99).String())
}

func TestNormalizeRecord(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cred, err := normalizeRecord(gateway.KeyRecord{ID: "7", Provider: "groq"})
		require.NoError(t, err)
		assert.Equal(t, Credential{
			ID:        "7",
			Name:      DefaultInstanceName,
			Provider:  ProviderGroq,
			KeyPrefix: DefaultKeyPrefix,
		}, cred)
	})

	t.Run("Populated", func(t *testing.T) {
		cred, err := normalizeRecord(gateway.KeyRecord{
			ID: "3", Name: "Prod", Provider: "anthropic", KeyPrefix: "sk-ant-...",
			IsActive: true, UsedToday: 12.5,
		})
		require.NoError(t, err)
		assert.Equal(t, "Prod", cred.Name)
		assert.Equal(t, "sk-ant-...", cred.KeyPrefix)
		assert.True(t, cred.IsActive)
		assert.Equal(t, 12.5, cred.UsedAmount)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		_, err := normalizeRecord(gateway.KeyRecord{ID: "1", Provider: "llama"})
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("MissingID", func(t *testing.T) {
		_, err := normalizeRecord(gateway.KeyRecord{Provider: "openai"})
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}
