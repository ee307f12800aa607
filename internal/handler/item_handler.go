package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/service"
	"github.com/noah-isme/lostfound-api/internal/utils"
)

const itemNotFound = "Item not found"

// ItemHandler exposes the feed, like and comment endpoints.
type ItemHandler struct {
	service service.ItemService
	logger  zerolog.Logger
}

// NewItemHandler constructs an item handler.
func NewItemHandler(service service.ItemService, logger zerolog.Logger) *ItemHandler {
	return &ItemHandler{
		service: service,
		logger:  logger.With().Str("component", "item_handler").Logger(),
	}
}

// Register wires item routes.
func (h *ItemHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Delete("/:id", h.delete)
	router.Post("/:id/like", h.like)
	router.Post("/:id/unlike", h.unlike)
	router.Get("/:id/comments", h.listComments)
	router.Post("/:id/comments", h.addComment)
	router.Get("/:id/recent-comments", h.recentComments)
}

func (h *ItemHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid limit")
	}

	items, err := h.service.ListItems(withRequestContext(c), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to fetch items")
	}
	return utils.SendList(c, items)
}

func (h *ItemHandler) create(c *fiber.Ctx) error {
	var payload dto.ItemCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	id, err := h.service.CreateItem(withRequestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to save item")
	}
	return utils.SendCreated(c, id)
}

func (h *ItemHandler) delete(c *fiber.Ctx) error {
	if err := h.service.DeleteItem(withRequestContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to delete item")
	}
	return utils.SendSuccess(c)
}

func (h *ItemHandler) like(c *fiber.Ctx) error {
	if _, err := h.service.IncrementLike(withRequestContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to like item")
	}
	return utils.SendSuccess(c)
}

func (h *ItemHandler) unlike(c *fiber.Ctx) error {
	if _, err := h.service.DecrementLike(withRequestContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to unlike item")
	}
	return utils.SendSuccess(c)
}

func (h *ItemHandler) listComments(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid limit")
	}

	comments, err := h.service.ListComments(withRequestContext(c), c.Params("id"), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to fetch comments")
	}
	return utils.SendList(c, comments)
}

func (h *ItemHandler) recentComments(c *fiber.Ctx) error {
	comments, err := h.service.ListRecentComments(withRequestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to fetch comments")
	}
	return utils.SendList(c, comments)
}

func (h *ItemHandler) addComment(c *fiber.Ctx) error {
	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	id, err := h.service.AddComment(withRequestContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, itemNotFound, "Failed to add comment")
	}
	return utils.SendCreated(c, id)
}
