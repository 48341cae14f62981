package uuid

import (
	"testing"

	googleuuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsCanonicalV4(t *testing.T) {
	id := New()
	assert.Len(t, id, 36)

	parsed, err := googleuuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, googleuuid.Version(4), parsed.Version())
	assert.Equal(t, id, parsed.String(), "request ids are sent in lower-case canonical form")
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
