// Package engine holds the board client's state: the item feed with
// optimistic likes and the chat room with incremental rendering. Screens,
// network and device storage are injected through the interfaces below.
package engine

import (
	"context"
	"errors"

	"github.com/noah-isme/lostfound-api/internal/client/api"
	"github.com/noah-isme/lostfound-api/internal/client/render"
	"github.com/noah-isme/lostfound-api/internal/dto"
)

// Device storage keys.
const (
	likeKeyPrefix      = "like_"
	keyUploaderName    = "last_uploader_name"
	keyUploaderNumber  = "last_uploader_number"
	keyChatDisplayName = "chatUserName"
)

var (
	// ErrBusy is returned when the control for an operation is still disabled.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotJoined is returned by chat operations before a display name is set.
	ErrNotJoined = errors.New("join the chat first")
	// ErrNotOwner is returned when deleting an item uploaded under another identity.
	ErrNotOwner = errors.New("you can only delete your own uploads")
	// ErrInvalidInput covers client side form checks.
	ErrInvalidInput = errors.New("invalid input")
)

// FeedBackend is the slice of the gateway the feed needs. *api.Client satisfies it.
type FeedBackend interface {
	ListItems(ctx context.Context) api.Result[[]dto.ItemResponse]
	CreateItem(ctx context.Context, payload dto.ItemCreateRequest) api.Result[api.Ack]
	Like(ctx context.Context, id string) api.Result[api.Ack]
	Unlike(ctx context.Context, id string) api.Result[api.Ack]
	DeleteItem(ctx context.Context, id string) api.Result[api.Ack]
	AddComment(ctx context.Context, id string, payload dto.CommentCreateRequest) api.Result[api.Ack]
	ListComments(ctx context.Context, id string) api.Result[[]dto.CommentResponse]
}

// ChatBackend is the slice of the gateway the chat room needs. *api.Client satisfies it.
type ChatBackend interface {
	PostChatMessage(ctx context.Context, payload dto.ChatPostRequest) api.Result[api.Ack]
	ListChatMessages(ctx context.Context, limit int) api.Result[[]dto.ChatMessageResponse]
}

// FeedItem is an item as shown on the feed screen.
type FeedItem struct {
	Item  dto.ItemResponse
	Liked bool
	Likes int64
}

// FeedView is the feed screen.
type FeedView interface {
	RenderFeed(items []FeedItem)
	UpdateLike(id string, liked bool, likes int64)
	// SetBusy enables or disables a mutating control. Controls are named
	// "submit", "like:<id>", "delete:<id>" and "comment:<id>".
	SetBusy(control string, busy bool)
	// ShowLoadError replaces the feed with an error and a retry affordance.
	ShowLoadError(message string)
	Alert(message string)
	SetOffline(offline bool)
}

// ChatView is the chat room screen.
type ChatView interface {
	RenderMessages(lines []render.Line)
	AppendMessages(lines []render.Line)
	ShowEmpty(message string)
	ScrollToBottom()
	AtBottom() bool
	SetJoined(name string)
	SetSendEnabled(enabled bool)
	SetUploadEnabled(enabled bool)
	ShowReply(reply *dto.ChatReply)
	Alert(message string)
	SetOffline(offline bool)
}

// UpdateSource tells the chat room when to look for new messages.
type UpdateSource interface {
	// Run blocks until ctx is done, calling refresh whenever new messages may exist.
	Run(ctx context.Context, refresh func(context.Context)) error
}
