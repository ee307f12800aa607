package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/service"
	"github.com/noah-isme/lostfound-api/internal/utils"
)

// ChatHandler wires the chat room endpoints including the push stream.
type ChatHandler struct {
	service service.ChatService
	limiter fiber.Handler
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler. limiter guards message posting and may be nil.
func NewChatHandler(service service.ChatService, limiter fiber.Handler, logger zerolog.Logger) *ChatHandler {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &ChatHandler{
		service: service,
		limiter: limiter,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/messages", h.list)
	router.Post("/messages", h.limiter, h.post)

	router.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/stream", websocket.New(h.stream))
}

func (h *ChatHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid limit")
	}

	messages, err := h.service.List(withRequestContext(c), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, "Chat room not found", "Failed to fetch messages")
	}
	return utils.SendList(c, messages)
}

func (h *ChatHandler) post(c *fiber.Ctx) error {
	var payload dto.ChatPostRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	message, err := h.service.Post(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "Chat room not found", "Failed to send message")
	}
	return utils.SendCreated(c, message.ID)
}

func (h *ChatHandler) stream(conn *websocket.Conn) {
	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("chat stream connected")
	h.service.Broadcaster().ServeStream(conn)
	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("chat stream disconnected")
}
