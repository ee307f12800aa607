package devicestore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "like_a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "like_a", "true"))
	require.NoError(t, store.Set(ctx, "like_b", "true"))
	require.NoError(t, store.Set(ctx, "chat_name", "Ana"))
	require.NoError(t, store.Set(ctx, "chat_name", "Ben"))

	value, ok, err := store.Get(ctx, "chat_name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ben", value)

	keys, err := store.Keys(ctx, "like_")
	require.NoError(t, err)
	require.Equal(t, []string{"like_a", "like_b"}, keys)

	require.NoError(t, store.Delete(ctx, "like_a"))
	_, ok, err = store.Get(ctx, "like_a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "last_uploader_name", "Ana"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "last_uploader_name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ana", value)
}
