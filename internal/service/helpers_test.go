package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lostfound-api/internal/database"
	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func newTestItemService(t *testing.T, cache *FeedCache) (ItemService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewItemService(repository.NewItemRepository(db), repository.NewCommentRepository(db), cache, nil, testLogger())
	return svc, db
}

func postItem(t *testing.T, svc ItemService, name string) string {
	t.Helper()
	id, err := svc.CreateItem(context.Background(), dto.ItemCreateRequest{
		Name:        name,
		Number:      "555-0100",
		Description: "found near the station",
		Photo:       "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	return id
}

// heldItemRepository pauses the next ListLatest after it has read the table,
// until release is closed.
type heldItemRepository struct {
	repository.ItemRepository
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (r *heldItemRepository) hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = true
}

func (r *heldItemRepository) ListLatest(ctx context.Context, limit int) ([]models.Item, error) {
	items, err := r.ItemRepository.ListLatest(ctx, limit)

	r.mu.Lock()
	held := r.armed
	r.armed = false
	r.mu.Unlock()

	if held {
		r.entered <- struct{}{}
		<-r.release
	}
	return items, err
}
