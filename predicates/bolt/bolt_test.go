package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/aiml/core"

	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ core.Predicates = &Store{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "predicates.db")
	ctx := context.Background()

	s := NewStore(filename)
	require.NoError(t, s.Open())

	v, err := s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, s.Set(ctx, "name", "u1", "alice", "Bob"))
	require.NoError(t, s.Set(ctx, "topic", "u1", "alice", "PETS"))
	require.NoError(t, s.Set(ctx, "name", "u10", "alice", "Carol"))

	v, err = s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "Bob", v)

	// Persistence across a reopen.
	require.NoError(t, s.Close())
	s = NewStore(filename)
	require.NoError(t, s.Open())
	defer s.Close()

	v, err = s.Get(ctx, "topic", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "PETS", v)

	n, err := s.Forget(ctx, "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	v, err = s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "", v)

	v, err = s.Get(ctx, "name", "u10", "alice")
	require.NoError(t, err)
	require.Equal(t, "Carol", v)
}
