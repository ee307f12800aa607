package cli

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/devicestore"
	"github.com/noah-isme/lostfound-api/internal/client/engine"
	"github.com/noah-isme/lostfound-api/internal/config"
	"github.com/noah-isme/lostfound-api/internal/offline"
	"github.com/noah-isme/lostfound-api/internal/testutil"
)

const testBaseURL = "http://board.test"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type harness struct {
	app     *App
	out     *bytes.Buffer
	network *testutil.Transport
}

func newHarness(t *testing.T, gateway *testutil.Gateway, input string) *harness {
	t.Helper()
	network := gateway.Transport()
	origin, err := url.Parse(testBaseURL)
	require.NoError(t, err)
	controller := offline.NewController(offline.Options{Origin: origin, Shell: []string{}, Transport: network, Logger: zerolog.Nop()})
	require.NoError(t, controller.Register(context.Background(), "v1.0.0"))

	out := &bytes.Buffer{}
	cfg := config.ClientConfig{BaseURL: testBaseURL, PollInterval: time.Hour, Transport: "poll"}
	app := newApp(cfg, api.New(testBaseURL, controller, zerolog.Nop()), devicestore.NewMemory(), strings.NewReader(input), out, zerolog.Nop())
	t.Cleanup(func() { require.NoError(t, app.Close()) })
	return &harness{app: app, out: out, network: network}
}

func (h *harness) run(t *testing.T, args ...string) string {
	t.Helper()
	h.out.Reset()
	require.NoError(t, h.app.Run(context.Background(), args))
	return h.out.String()
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o600))
	return path
}

func TestPostFeedAndLike(t *testing.T) {
	h := newHarness(t, testutil.NewGateway(t), "")

	out := h.run(t, "post", "-name", "Ana", "-number", "555", "-description", "blue umbrella", "-photo", writePhoto(t))
	require.Contains(t, out, "Posted ")
	id := h.app.feed.Items()[0].ID

	out = h.run(t, "feed")
	require.Contains(t, out, "blue umbrella")
	require.Contains(t, out, "♡ 0")

	out = h.run(t, "like", id)
	require.Contains(t, out, id+" ♥ 1")

	out = h.run(t, "like", id)
	require.NotContains(t, out, "♥ 2")

	out = h.run(t, "unlike", id)
	require.Contains(t, out, id+" ♡ 0")

	out = h.run(t, "mine")
	require.Contains(t, out, "Uploads by Ana (555): 1")

	out = h.run(t, "post", "-description", "red scarf", "-photo", writePhoto(t))
	require.Contains(t, out, "Posted ")
	require.Len(t, h.app.feed.RecentUploads(context.Background()), 2)
}

func TestCommentsCommand(t *testing.T) {
	h := newHarness(t, testutil.NewGateway(t), "")
	h.run(t, "post", "-name", "Ana", "-number", "555", "-description", "keys", "-photo", writePhoto(t))
	id := h.app.feed.Items()[0].ID

	out := h.run(t, "comments", id)
	require.Contains(t, out, "No comments yet.")

	h.run(t, "comment", id, "-name", "Ben", "-text", "first")
	out = h.run(t, "comment", id, "-name", "Cy", "second", "one")
	require.Less(t, strings.Index(out, "Ben: first"), strings.Index(out, "Cy: second one"))
}

func TestDeleteOnlyOwnItems(t *testing.T) {
	gateway := testutil.NewGateway(t)
	owner := newHarness(t, gateway, "")
	other := newHarness(t, gateway, "")
	owner.run(t, "post", "-name", "Ana", "-number", "555", "-description", "keys", "-photo", writePhoto(t))
	id := owner.app.feed.Items()[0].ID

	require.ErrorIs(t, other.app.Run(context.Background(), []string{"delete", id}), engine.ErrNotOwner)
	require.Contains(t, other.out.String(), "you can only delete your own uploads")

	out := owner.run(t, "delete", id)
	require.Contains(t, out, "Deleted "+id)
}

func TestSayAndChatLoop(t *testing.T) {
	gateway := testutil.NewGateway(t)
	speaker := newHarness(t, gateway, "")
	speaker.run(t, "say", "-name", "Ben", "anyone", "lose", "keys?")

	listener := newHarness(t, gateway, "mine!\n/reply\nthe silver ones\n/clear\n/quit\n")
	out := listener.run(t, "chat", "-name", "Ana")
	require.Contains(t, out, "Joined the chat as Ana")
	require.Contains(t, out, "anyone lose keys?")
	require.Contains(t, out, "mine!")
	require.Contains(t, out, "Replying to Ana: mine!")
	require.Contains(t, out, "┆ Ana: mine!")
	require.Contains(t, out, "Messages cleared locally")

	listed, err := gateway.Chat.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "the silver ones", listed[2].Message)
	require.NotNil(t, listed[2].ReplyTo)
}

func TestChatLoopPromptsForName(t *testing.T) {
	h := newHarness(t, testutil.NewGateway(t), "\nAna\nhello\n/leave\n")
	out := h.run(t, "chat")
	require.Contains(t, out, "Enter a name to join the chat.")
	require.Contains(t, out, "Please enter your name.")
	require.Contains(t, out, "Joined the chat as Ana")
	require.Contains(t, out, "hello")
	require.Empty(t, h.app.chat.Name())
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t, testutil.NewGateway(t), "")
	ctx := context.Background()

	require.ErrorIs(t, h.app.Run(ctx, nil), ErrUsage)
	require.ErrorIs(t, h.app.Run(ctx, []string{"bogus"}), ErrUsage)
	require.ErrorIs(t, h.app.Run(ctx, []string{"like"}), ErrUsage)
	require.ErrorIs(t, h.app.Run(ctx, []string{"post", "-description", "x"}), ErrUsage)
	require.ErrorIs(t, h.app.Run(ctx, []string{"say"}), ErrUsage)
}

func TestFeedOfflineBanner(t *testing.T) {
	h := newHarness(t, testutil.NewGateway(t), "")
	h.run(t, "feed")

	h.network.SetOnline(false)
	out := h.run(t, "feed")
	require.Contains(t, out, "[offline]")
	require.Contains(t, out, "No items posted yet.")
}

func TestNewAppReleasesRedisOnBadBaseURL(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	cfg := config.ClientConfig{
		BaseURL:       "://no-scheme",
		PollInterval:  time.Hour,
		StatePath:     filepath.Join(t.TempDir(), "state.db"),
		Transport:     "poll",
		CacheVersion:  "v1.0.0",
		CacheRedisURL: "redis://" + server.Addr(),
	}

	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	require.Nil(t, app)
	require.Eventually(t, func() bool {
		return server.CurrentConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
}
