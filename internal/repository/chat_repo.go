package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lostfound-api/internal/models"
)

// ChatRepository persists messages of the shared chat room.
type ChatRepository interface {
	Push(ctx context.Context, message *models.ChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Push(ctx context.Context, message *models.ChatMessage) error {
	key, err := NewPushKey(time.UnixMilli(message.Timestamp))
	if err != nil {
		return err
	}
	message.ID = key
	return r.db.WithContext(ctx).Create(message).Error
}

// ListRecent returns the latest messages in chronological order.
func (r *chatRepository) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var messages []models.ChatMessage
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
