package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsVersion7(t *testing.T) {
	t.Parallel()

	id, err := New().NewID()
	require.NoError(t, err)
	parsed, err := goUUID.Parse(id)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestNewIDsAreUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[string]struct{}, 100)
	prev := ""
	for i := 0; i < 100; i++ {
		id, err := gen.NewID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate pass id %s", id)
		seen[id] = struct{}{}
		require.Greater(t, id, prev)
		prev = id
	}
}
