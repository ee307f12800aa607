// Package testutil runs the real gateway in-process for client side tests.
package testutil

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/config"
	"github.com/noah-isme/lostfound-api/internal/database"
	"github.com/noah-isme/lostfound-api/internal/handler"
	"github.com/noah-isme/lostfound-api/internal/repository"
	"github.com/noah-isme/lostfound-api/internal/router"
	"github.com/noah-isme/lostfound-api/internal/service"
)

// Gateway is an in-memory gateway reachable through Transport.
type Gateway struct {
	App  *fiber.App
	Chat service.ChatService
}

// NewGateway wires the gateway on a private in-memory SQLite database.
func NewGateway(t *testing.T) *Gateway {
	t.Helper()

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.Nop()
	items := service.NewItemService(repository.NewItemRepository(db), repository.NewCommentRepository(db), nil, nil, logger)
	chat := service.NewChatService(repository.NewChatRepository(db), nil, nil, nil, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "test"}, router.Dependencies{
		ItemHandler: handler.NewItemHandler(items, logger),
		ChatHandler: handler.NewChatHandler(chat, nil, logger),
	})
	return &Gateway{App: app, Chat: chat}
}

// Transport returns a RoundTripper that serves requests from the gateway
// until it is switched off.
func (g *Gateway) Transport() *Transport {
	return &Transport{app: g.App}
}

// Transport adapts fiber's in-process test hook to http.RoundTripper.
type Transport struct {
	app  *fiber.App
	down atomic.Bool
}

// ErrNetworkDown is returned while the transport is switched off.
var ErrNetworkDown = fmt.Errorf("dial tcp: connect: network is unreachable")

// SetOnline toggles connectivity.
func (t *Transport) SetOnline(online bool) {
	t.down.Store(!online)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.down.Load() {
		return nil, ErrNetworkDown
	}
	resp, err := t.app.Test(req, -1)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}
