package engine

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/devicestore"
	"github.com/noah-isme/lostfound-api/internal/client/render"
	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/offline"
	"github.com/noah-isme/lostfound-api/internal/testutil"
)

const testBaseURL = "http://board.test"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// newDevice returns a client for gateway that goes through its own offline
// layer, plus the switch for its network.
func newDevice(t *testing.T, gateway *testutil.Gateway) (*api.Client, *testutil.Transport) {
	t.Helper()
	network := gateway.Transport()

	origin, err := url.Parse(testBaseURL)
	require.NoError(t, err)
	controller := offline.NewController(offline.Options{
		Origin:    origin,
		Shell:     []string{},
		Transport: network,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, controller.Register(context.Background(), "v1.0.0"))

	return api.New(testBaseURL, controller, zerolog.Nop()), network
}

func seedItem(t *testing.T, client *api.Client, name, number, description string) string {
	t.Helper()
	created := client.CreateItem(context.Background(), dto.ItemCreateRequest{
		Name:        name,
		Number:      number,
		Description: description,
		Photo:       DataURL(pngBytes),
	})
	require.True(t, created.IsOK(), created.Err)
	return created.Data.ID
}

type likeUpdate struct {
	ID    string
	Liked bool
	Likes int64
}

type feedView struct {
	mu         sync.Mutex
	rendered   [][]FeedItem
	likes      []likeUpdate
	busy       []string
	loadErrors []string
	alerts     []string
	offline    []bool
}

func (v *feedView) RenderFeed(items []FeedItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rendered = append(v.rendered, items)
}

func (v *feedView) UpdateLike(id string, liked bool, likes int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.likes = append(v.likes, likeUpdate{ID: id, Liked: liked, Likes: likes})
}

func (v *feedView) SetBusy(control string, busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := "on"
	if !busy {
		state = "off"
	}
	v.busy = append(v.busy, control+"="+state)
}

func (v *feedView) ShowLoadError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loadErrors = append(v.loadErrors, message)
}

func (v *feedView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *feedView) SetOffline(offline bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offline = append(v.offline, offline)
}

func (v *feedView) lastRender() []FeedItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.rendered) == 0 {
		return nil
	}
	return v.rendered[len(v.rendered)-1]
}

type chatView struct {
	mu       sync.Mutex
	renders  [][]render.Line
	appends  [][]render.Line
	empty    []string
	scrolls  int
	atBottom bool
	joined   string
	send     []bool
	upload   []bool
	reply    *dto.ChatReply
	alerts   []string
	offline  []bool
}

func (v *chatView) RenderMessages(lines []render.Line) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, lines)
}

func (v *chatView) AppendMessages(lines []render.Line) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appends = append(v.appends, lines)
}

func (v *chatView) ShowEmpty(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.empty = append(v.empty, message)
}

func (v *chatView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *chatView) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.atBottom
}

func (v *chatView) SetJoined(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.joined = name
}

func (v *chatView) SetSendEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.send = append(v.send, enabled)
}

func (v *chatView) SetUploadEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.upload = append(v.upload, enabled)
}

func (v *chatView) ShowReply(reply *dto.ChatReply) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reply = reply
}

func (v *chatView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *chatView) SetOffline(offline bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offline = append(v.offline, offline)
}

func (v *chatView) counts() (renders, appends, scrolls int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders), len(v.appends), v.scrolls
}

// gatedFeed holds Like calls until release is closed.
type gatedFeed struct {
	FeedBackend
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFeed) Like(ctx context.Context, id string) api.Result[api.Ack] {
	g.entered <- struct{}{}
	<-g.release
	return g.FeedBackend.Like(ctx, id)
}

// gatedChat holds PostChatMessage calls until release is closed.
type gatedChat struct {
	ChatBackend
	entered chan struct{}
	release chan struct{}
}

func (g *gatedChat) PostChatMessage(ctx context.Context, payload dto.ChatPostRequest) api.Result[api.Ack] {
	g.entered <- struct{}{}
	<-g.release
	return g.ChatBackend.PostChatMessage(ctx, payload)
}

// gatedStore holds the next read of key after it has been read, until
// release is closed. Later reads pass through.
type gatedStore struct {
	devicestore.Store
	mu      sync.Mutex
	key     string
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) arm(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.key = key
	g.armed = true
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := g.Store.Get(ctx, key)

	g.mu.Lock()
	hold := g.armed && key == g.key
	if hold {
		g.armed = false
	}
	g.mu.Unlock()

	if hold {
		g.entered <- struct{}{}
		<-g.release
	}
	return value, ok, err
}
