package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/service"
	"github.com/noah-isme/lostfound-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendServiceError maps the service error taxonomy onto HTTP statuses. The
// gateway never retries; storage failures are logged and reported as 500.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, notFound, failure string) error {
	switch {
	case service.IsValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, notFound)
	default:
		requestLogger(logger, c).Error().Err(err).Msg(failure)
		return utils.SendError(c, fiber.StatusInternalServerError, failure)
	}
}

func validationMessage(err error) string {
	message := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	if message == "" {
		return "invalid payload"
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
