package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/lostfound-api/internal/models"
)

func TestChatRepositoryListRecentIsChronological(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i := 0; i < 105; i++ {
		message := models.ChatMessage{Name: "ana", Message: fmt.Sprintf("m%d", i), Timestamp: base + int64(i)}
		require.NoError(t, repo.Push(ctx, &message))
	}

	messages, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, messages, 100)
	require.Equal(t, "m5", messages[0].Message)
	require.Equal(t, "m104", messages[99].Message)
}

func TestChatRepositoryKeepsReplySnapshot(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	snapshot := models.ReplySnapshot{Name: "ben", Message: "where?", Timestamp: 42, Image: true}
	reply := models.ChatMessage{Name: "ana", Message: "by the gate", ReplyTo: datatypes.NewJSONType(snapshot), Timestamp: time.Now().UnixMilli()}
	plain := models.ChatMessage{Name: "ana", Message: "hello", Timestamp: time.Now().UnixMilli()}
	require.NoError(t, repo.Push(ctx, &reply))
	require.NoError(t, repo.Push(ctx, &plain))

	messages, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, snapshot, messages[0].ReplyTo.Data())
	require.True(t, messages[1].ReplyTo.Data().IsZero())
}

func TestCommentRepositoryNewestFirst(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	items := NewItemRepository(db)
	now := time.Now().UnixMilli()
	item := models.Item{Name: "Ana", Number: "1", Description: "wallet", Photo: "p", Timestamp: now}
	otherItem := models.Item{Name: "Cy", Number: "2", Description: "scarf", Photo: "p", Timestamp: now}
	require.NoError(t, items.Push(ctx, &item))
	require.NoError(t, items.Push(ctx, &otherItem))

	x := models.Comment{ItemID: item.ID, Name: "ana", Text: "X", Timestamp: now}
	y := models.Comment{ItemID: item.ID, Name: "ben", Text: "Y", Timestamp: now + 1}
	other := models.Comment{ItemID: otherItem.ID, Name: "cy", Text: "Z", Timestamp: now + 2}
	require.NoError(t, repo.Push(ctx, &x))
	require.NoError(t, repo.Push(ctx, &y))
	require.NoError(t, repo.Push(ctx, &other))

	comments, err := repo.ListLatest(ctx, item.ID, 3)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "Y", comments[0].Text)
	require.Equal(t, "X", comments[1].Text)
}
