package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/observability"
	"github.com/noah-isme/lostfound-api/internal/repository"
)

const (
	itemListLimit      = 50
	commentListLimit   = 50
	recentCommentLimit = 3
)

// ItemService exposes the feed operations of the board.
type ItemService interface {
	CreateItem(ctx context.Context, payload dto.ItemCreateRequest) (string, error)
	ListItems(ctx context.Context, limit int) ([]dto.ItemResponse, error)
	IncrementLike(ctx context.Context, id string) (int64, error)
	DecrementLike(ctx context.Context, id string) (int64, error)
	DeleteItem(ctx context.Context, id string) error
	AddComment(ctx context.Context, itemID string, payload dto.CommentCreateRequest) (string, error)
	ListComments(ctx context.Context, itemID string, limit int) ([]dto.CommentResponse, error)
	ListRecentComments(ctx context.Context, itemID string) ([]dto.CommentResponse, error)
}

type itemService struct {
	items     repository.ItemRepository
	comments  repository.CommentRepository
	cache     *FeedCache
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewItemService constructs the item service. cache may be nil.
func NewItemService(items repository.ItemRepository, comments repository.CommentRepository, cache *FeedCache, validate *validator.Validate, logger zerolog.Logger) ItemService {
	if validate == nil {
		validate = validator.New()
	}
	return &itemService{
		items:     items,
		comments:  comments,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "item_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lostfound-api/internal/service/items"),
		now:       time.Now,
	}
}

func (s *itemService) CreateItem(ctx context.Context, payload dto.ItemCreateRequest) (string, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Number = strings.TrimSpace(payload.Number)
	payload.Description = strings.TrimSpace(payload.Description)
	payload.Photo = strings.TrimSpace(payload.Photo)

	if err := s.validator.Struct(payload); err != nil {
		return "", validationError("all fields are required")
	}

	ctx, span := s.tracer.Start(ctx, "items.create")
	defer span.End()

	item := models.Item{
		Name:        payload.Name,
		Number:      payload.Number,
		Description: payload.Description,
		Photo:       payload.Photo,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.items.Push(ctx, &item); err != nil {
		span.RecordError(err)
		return "", storageError("create item", err)
	}

	span.SetAttributes(attribute.String("item.id", item.ID))
	s.cache.Invalidate(ctx, itemsNamespace)
	s.logger.Info().Str("item_id", item.ID).Msg("item posted")

	return item.ID, nil
}

func (s *itemService) ListItems(ctx context.Context, limit int) ([]dto.ItemResponse, error) {
	if limit <= 0 || limit > itemListLimit {
		limit = itemListLimit
	}

	field := fmt.Sprintf("limit:%d", limit)
	var cached []dto.ItemResponse
	generation, hit := s.cache.Get(ctx, itemsNamespace, field, &cached)
	if hit {
		return cached, nil
	}

	items, err := s.items.ListLatest(ctx, limit)
	if err != nil {
		return nil, storageError("list items", err)
	}

	response := dto.NewItemResponseSlice(items)
	s.cache.Set(ctx, itemsNamespace, generation, field, response)
	return response, nil
}

func (s *itemService) IncrementLike(ctx context.Context, id string) (int64, error) {
	return s.transactLikes(ctx, id, "increment", func(current int64) int64 {
		return current + 1
	})
}

func (s *itemService) DecrementLike(ctx context.Context, id string) (int64, error) {
	return s.transactLikes(ctx, id, "decrement", func(current int64) int64 {
		if current <= 0 {
			return 0
		}
		return current - 1
	})
}

func (s *itemService) transactLikes(ctx context.Context, id, direction string, update func(int64) int64) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, validationError("item id is required")
	}

	ctx, span := s.tracer.Start(ctx, "items.likes."+direction, trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	likes, err := s.items.Transact(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		outcome := "error"
		if errors.Is(err, repository.ErrTransactionConflict) {
			outcome = "conflict"
		}
		observability.LikeTransactions().WithLabelValues(direction, outcome).Inc()
		return 0, storageError(direction+" likes", err)
	}

	observability.LikeTransactions().WithLabelValues(direction, "committed").Inc()
	s.cache.Invalidate(ctx, itemsNamespace)
	return likes, nil
}

func (s *itemService) DeleteItem(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("item id is required")
	}

	ctx, span := s.tracer.Start(ctx, "items.delete", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	if err := s.items.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return storageError("delete item", err)
	}

	s.cache.Invalidate(ctx, itemsNamespace, commentsNamespace(id))
	s.logger.Info().Str("item_id", id).Msg("item deleted")
	return nil
}

func (s *itemService) AddComment(ctx context.Context, itemID string, payload dto.CommentCreateRequest) (string, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Text = strings.TrimSpace(payload.Text)

	if err := s.validator.Struct(payload); err != nil {
		return "", validationError("name and text are required")
	}

	if err := s.ensureItem(ctx, itemID); err != nil {
		return "", err
	}

	comment := models.Comment{
		ItemID:    itemID,
		Name:      payload.Name,
		Text:      payload.Text,
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.comments.Push(ctx, &comment); err != nil {
		return "", storageError("add comment", err)
	}

	s.cache.Invalidate(ctx, commentsNamespace(itemID))
	return comment.ID, nil
}

func (s *itemService) ListComments(ctx context.Context, itemID string, limit int) ([]dto.CommentResponse, error) {
	if limit <= 0 || limit > commentListLimit {
		limit = commentListLimit
	}

	field := fmt.Sprintf("limit:%d", limit)
	var cached []dto.CommentResponse
	generation, hit := s.cache.Get(ctx, commentsNamespace(itemID), field, &cached)
	if hit {
		return cached, nil
	}

	if err := s.ensureItem(ctx, itemID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListLatest(ctx, itemID, limit)
	if err != nil {
		return nil, storageError("list comments", err)
	}

	response := dto.NewCommentResponseSlice(comments)
	s.cache.Set(ctx, commentsNamespace(itemID), generation, field, response)
	return response, nil
}

func (s *itemService) ListRecentComments(ctx context.Context, itemID string) ([]dto.CommentResponse, error) {
	return s.ListComments(ctx, itemID, recentCommentLimit)
}

func (s *itemService) ensureItem(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("%w: item", ErrNotFound)
	}

	exists, err := s.items.Exists(ctx, itemID)
	if err != nil {
		return storageError("lookup item", err)
	}
	if !exists {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return nil
}

const itemsNamespace = "items"

func commentsNamespace(itemID string) string {
	return "comments:" + itemID
}
