package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lostfound-api/internal/models"
)

// maxTransactionAttempts bounds the compare-and-swap loop of Transact.
const maxTransactionAttempts = 25

// ErrTransactionConflict is returned when a counter update keeps losing races.
var ErrTransactionConflict = errors.New("transaction retries exhausted")

// ItemRepository persists lost and found posts.
type ItemRepository interface {
	Push(ctx context.Context, item *models.Item) error
	ListLatest(ctx context.Context, limit int) ([]models.Item, error)
	Get(ctx context.Context, id string) (models.Item, error)
	Exists(ctx context.Context, id string) (bool, error)
	Transact(ctx context.Context, id string, update func(current int64) int64) (int64, error)
	Delete(ctx context.Context, id string) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository constructs a GORM-backed item repository.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

// Push assigns a push key derived from the item timestamp and writes the item.
func (r *itemRepository) Push(ctx context.Context, item *models.Item) error {
	key, err := NewPushKey(time.UnixMilli(item.Timestamp))
	if err != nil {
		return err
	}
	item.ID = key
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) ListLatest(ctx context.Context, limit int) ([]models.Item, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var items []models.Item
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

func (r *itemRepository) Get(ctx context.Context, id string) (models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return models.Item{}, err
	}
	return item, nil
}

func (r *itemRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transact applies update to the like counter with compare-and-swap semantics: the
// write only lands if the counter still holds the value update saw, otherwise the
// current value is re-read and update runs again.
func (r *itemRepository) Transact(ctx context.Context, id string, update func(current int64) int64) (int64, error) {
	db := r.db.WithContext(ctx)

	for attempt := 0; attempt < maxTransactionAttempts; attempt++ {
		var item models.Item
		if err := db.Select("id", "likes").Where("id = ?", id).First(&item).Error; err != nil {
			return 0, err
		}

		next := update(item.Likes)
		result := db.Model(&models.Item{}).
			Where("id = ? AND likes = ?", id, item.Likes).
			UpdateColumn("likes", next)
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 1 {
			return next, nil
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	return 0, fmt.Errorf("item %s: %w", id, ErrTransactionConflict)
}

// Delete removes the item together with its comments.
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Item{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
