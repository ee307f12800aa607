package offline

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, network *fakeNetwork, storage Storage) *Controller {
	t.Helper()
	origin, err := url.Parse("http://board.test")
	require.NoError(t, err)
	return NewController(Options{
		Origin:    origin,
		Shell:     []string{"/index.html"},
		Storage:   storage,
		Transport: network,
		Logger:    zerolog.Nop(),
	})
}

func TestControllerActivationDeletesForeignGenerations(t *testing.T) {
	items := &atomic.Value{}
	items.Store(`[]`)
	network := newFakeNetwork(boardHandler(items))
	storage := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, "some-other-app", "GET http://x/", CachedResponse{Status: 200}))

	controller := newTestController(t, network, storage)
	require.NoError(t, controller.Register(ctx, "v1"))
	require.Equal(t, "v1", controller.Active())

	get(t, controller, "/api/items")
	names, err := storage.Generations(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"lost-and-found-api-v1", "lost-and-found-v1"}, names)

	require.NoError(t, controller.Register(ctx, "v2"))
	require.Equal(t, "v1", controller.Active())
	require.Equal(t, "v2", controller.Waiting())

	require.NoError(t, controller.Post(ctx, MessageSkipWaiting))
	require.Equal(t, "v2", controller.Active())
	require.Empty(t, controller.Waiting())

	names, err = storage.Generations(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"lost-and-found-v2"}, names)
}

func TestControllerClearCache(t *testing.T) {
	items := &atomic.Value{}
	items.Store(`[]`)
	network := newFakeNetwork(boardHandler(items))
	storage := NewMemoryStorage()
	ctx := context.Background()

	controller := newTestController(t, network, storage)
	require.NoError(t, controller.Register(ctx, "v1"))
	get(t, controller, "/api/items")

	require.NoError(t, controller.Post(ctx, MessageClearCache))
	names, err := storage.Generations(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	require.Error(t, controller.Post(ctx, Message("RELOAD")))
}

func TestControllerPassesThroughBeforeRegistration(t *testing.T) {
	items := &atomic.Value{}
	items.Store(`[{"id":"a"}]`)
	network := newFakeNetwork(boardHandler(items))
	controller := newTestController(t, network, nil)

	resp := get(t, controller, "/api/items")
	require.Equal(t, `[{"id":"a"}]`, readBody(t, resp))
	require.NoError(t, controller.SyncPending(context.Background()))
}

func TestRedisStorageGenerations(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	storage := NewRedisStorage(client, "boardctl")
	ctx := context.Background()

	entry := CachedResponse{Status: 200, Body: []byte(`[]`)}
	require.NoError(t, storage.Put(ctx, "lost-and-found-api-v1", "GET http://board.test/api/items", entry))

	got, ok, err := storage.Get(ctx, "lost-and-found-api-v1", "GET http://board.test/api/items")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Body, got.Body)

	_, ok, err = storage.Get(ctx, "lost-and-found-api-v1", "GET http://board.test/api/chat/messages")
	require.NoError(t, err)
	require.False(t, ok)

	names, err := storage.Generations(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"lost-and-found-api-v1"}, names)

	require.NoError(t, storage.DeleteGeneration(ctx, "lost-and-found-api-v1"))
	names, err = storage.Generations(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}
