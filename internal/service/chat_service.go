package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/observability"
	"github.com/noah-isme/lostfound-api/internal/repository"
)

const (
	chatListLimit     = 100
	replyPreviewRunes = 100
	chatNamespace     = "chat"
)

// ChatService manages the global chat room.
type ChatService interface {
	Post(ctx context.Context, payload dto.ChatPostRequest) (dto.ChatMessageResponse, error)
	List(ctx context.Context, limit int) ([]dto.ChatMessageResponse, error)
	Broadcaster() *ChatBroadcaster
	Start(ctx context.Context)
}

type chatService struct {
	repo        repository.ChatRepository
	cache       *FeedCache
	broadcaster *ChatBroadcaster
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewChatService creates the chat service. cache and broadcaster may be nil.
func NewChatService(repo repository.ChatRepository, cache *FeedCache, broadcaster *ChatBroadcaster, validate *validator.Validate, logger zerolog.Logger) ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if broadcaster == nil {
		broadcaster = NewChatBroadcaster(nil, nil, "", logger)
	}
	return &chatService{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lostfound-api/internal/service/chat"),
		now:         time.Now,
	}
}

func (s *chatService) Start(ctx context.Context) {
	s.broadcaster.Start(ctx)
}

func (s *chatService) Broadcaster() *ChatBroadcaster {
	return s.broadcaster
}

func (s *chatService) Post(ctx context.Context, payload dto.ChatPostRequest) (dto.ChatMessageResponse, error) {
	// Length limits apply to the text as received; trimming happens after.
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatMessageResponse{}, validationError("%s", describeValidation(err))
	}

	payload.Name = strings.TrimSpace(payload.Name)
	payload.Message = strings.TrimSpace(payload.Message)
	payload.Image = strings.TrimSpace(payload.Image)
	payload.ImageType = strings.TrimSpace(payload.ImageType)

	if payload.Name == "" {
		return dto.ChatMessageResponse{}, validationError("name is required")
	}
	if payload.Message == "" && payload.Image == "" {
		return dto.ChatMessageResponse{}, validationError("message or image is required")
	}

	if payload.Image != "" && payload.ImageType == "" {
		inferred, ok := inferImageType(payload.Image)
		if !ok {
			return dto.ChatMessageResponse{}, validationError("image must be an image data URL")
		}
		payload.ImageType = inferred
	}

	kind := "text"
	if payload.Image != "" {
		kind = "image"
	}

	ctx, span := s.tracer.Start(ctx, "chat.post", trace.WithAttributes(attribute.String("chat.kind", kind)))
	defer span.End()

	model := models.ChatMessage{
		Name:      payload.Name,
		Message:   payload.Message,
		Image:     payload.Image,
		ImageType: payload.ImageType,
		Timestamp: s.now().UnixMilli(),
	}
	if payload.ReplyTo != nil {
		model.ReplyTo = datatypes.NewJSONType(snapshotOf(*payload.ReplyTo))
	}

	if err := s.repo.Push(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.ChatMessageResponse{}, storageError("post chat message", err)
	}

	response := dto.NewChatMessageResponse(model)
	s.cache.Invalidate(ctx, chatNamespace)
	s.broadcaster.Publish(ctx, response)
	observability.ChatMessages().WithLabelValues(kind).Inc()

	return response, nil
}

func (s *chatService) List(ctx context.Context, limit int) ([]dto.ChatMessageResponse, error) {
	if limit <= 0 || limit > chatListLimit {
		limit = chatListLimit
	}

	field := "limit:" + strconv.Itoa(limit)
	var cached []dto.ChatMessageResponse
	generation, hit := s.cache.Get(ctx, chatNamespace, field, &cached)
	if hit {
		return cached, nil
	}

	messages, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, storageError("list chat messages", err)
	}

	response := dto.NewChatMessageResponseSlice(messages)
	s.cache.Set(ctx, chatNamespace, generation, field, response)
	return response, nil
}

// snapshotOf freezes the replied-to message, keeping only a preview of its text.
func snapshotOf(reply dto.ChatReply) models.ReplySnapshot {
	return models.ReplySnapshot{
		Name:      strings.TrimSpace(reply.Name),
		Message:   truncateRunes(strings.TrimSpace(reply.Message), replyPreviewRunes),
		Timestamp: reply.Timestamp,
		Image:     reply.Image,
	}
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}

// inferImageType reads the media type of a data URL, falling back to sniffing
// the decoded payload. Only image types are accepted.
func inferImageType(dataURL string) (string, bool) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", false
	}
	header, body, ok := strings.Cut(rest, ",")
	if !ok {
		return "", false
	}

	mediaType, _, _ := strings.Cut(header, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if strings.HasPrefix(mediaType, "image/") {
		return mediaType, true
	}

	if !strings.HasSuffix(header, ";base64") {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", false
	}
	detected := mimetype.Detect(raw)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", false
	}
	return detected.String(), true
}

// describeValidation renders the first failed rule in a client friendly form.
func describeValidation(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "invalid payload"
	}
	field := strings.ToLower(fieldErrors[0].Field())
	switch fieldErrors[0].Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErrors[0].Param())
	default:
		return field + " is invalid"
	}
}
