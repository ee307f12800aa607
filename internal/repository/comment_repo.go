package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lostfound-api/internal/models"
)

// CommentRepository persists comments attached to items.
type CommentRepository interface {
	Push(ctx context.Context, comment *models.Comment) error
	ListLatest(ctx context.Context, itemID string, limit int) ([]models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository constructs a comment repository backed by GORM.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Push(ctx context.Context, comment *models.Comment) error {
	key, err := NewPushKey(time.UnixMilli(comment.Timestamp))
	if err != nil {
		return err
	}
	comment.ID = key
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListLatest returns the newest comments of an item, newest first.
func (r *commentRepository) ListLatest(ctx context.Context, itemID string, limit int) ([]models.Comment, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}

	return comments, nil
}
