package predicates

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	v, err := s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, s.Set(ctx, "name", "u1", "alice", "Bob"))
	require.NoError(t, s.Set(ctx, "name", "u2", "alice", "Carol"))
	require.NoError(t, s.Set(ctx, "name", "u1", "eliza", "Robert"))

	for _, tc := range []struct {
		user, bot, want string
	}{
		{"u1", "alice", "Bob"},
		{"u2", "alice", "Carol"},
		{"u1", "eliza", "Robert"},
		{"u2", "eliza", ""},
	} {
		v, err := s.Get(ctx, "name", tc.user, tc.bot)
		require.NoError(t, err)
		require.Equal(t, tc.want, v, "%s/%s", tc.user, tc.bot)
	}
}

func TestMemoryConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			for j := 0; j < 100; j++ {
				if err := s.Set(ctx, "n", user, "b", fmt.Sprint(j)); err != nil {
					t.Error(err)
				}
				if _, err := s.Get(ctx, "n", user, "b"); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}
	wg.Wait()
	v, err := s.Get(ctx, "n", "u3", "b")
	require.NoError(t, err)
	require.Equal(t, "99", v)
}

func TestDefaulted(t *testing.T) {
	ctx := context.Background()
	s := WithDefaults(NewMemory(), map[string]map[string]string{
		"alice": {"name": "friend"},
	})

	v, err := s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "friend", v)

	v, err = s.Get(ctx, "name", "u1", "eliza")
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, s.Set(ctx, "name", "u1", "alice", "Bob"))
	v, err = s.Get(ctx, "name", "u1", "alice")
	require.NoError(t, err)
	require.Equal(t, "Bob", v)
}
