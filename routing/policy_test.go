package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/switchboard/vault"
)

func TestParseModel(t *testing.T) {
	m, err := ParseModel(" Smart ")
	require.NoError(t, err)
	assert.Equal(t, ModelSmart, m)

	_, err = ParseModel("gpt-4o")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestEveryModelHasPriorities(t *testing.T) {
	for _, m := range Models() {
		assert.NotEmpty(t, priorities[m], m)
	}
	assert.Len(t, priorities[ModelAny], len(vault.Providers()))
}

func TestPreviewSelectsFirstActive(t *testing.T) {
	creds := []vault.Credential{
		{ID: "1", Provider: vault.ProviderOpenAI, IsActive: false},
		{ID: "2", Provider: vault.ProviderGemini, IsActive: true},
		{ID: "3", Provider: vault.ProviderAnthropic, IsActive: true},
	}

	p, err := Preview(ModelSmart, creds)
	require.NoError(t, err)
	require.NotNil(t, p.Selected)
	assert.Equal(t, vault.ProviderAnthropic, *p.Selected)
	require.Len(t, p.Candidates, 5)
	assert.Equal(t, Candidate{Provider: vault.ProviderOpenAI, Label: "OpenAI", Priority: 1}, p.Candidates[0])
	assert.True(t, p.Candidates[1].Available)

	p, err = Preview(ModelFast, creds)
	require.NoError(t, err)
	require.NotNil(t, p.Selected)
	assert.Equal(t, vault.ProviderGemini, *p.Selected)
}

func TestPreviewNoKeys(t *testing.T) {
	p, err := Preview(ModelCheap, nil)
	require.NoError(t, err)
	assert.Nil(t, p.Selected)
	for _, c := range p.Candidates {
		assert.False(t, c.Available)
	}

	_, err = Preview("turbo", nil)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestPreviewAll(t *testing.T) {
	all := PreviewAll([]vault.Credential{{ID: "1", Provider: vault.ProviderXAI, IsActive: true}})
	require.Len(t, all, 4)
	assert.Equal(t, ModelSmart, all[0].Model)
	assert.Nil(t, all[0].Selected)
	require.NotNil(t, all[3].Selected)
	assert.Equal(t, vault.ProviderXAI, *all[3].Selected)
}
