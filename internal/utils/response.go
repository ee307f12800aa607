package utils

import "github.com/gofiber/fiber/v2"

// AckResponse acknowledges a write. ID is set when the write created a record.
type AckResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SendList writes a bare JSON array. A nil slice is sent as [].
func SendList[T any](c *fiber.Ctx, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

// SendSuccess acknowledges a write without a body beyond the success flag.
func SendSuccess(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(AckResponse{Success: true})
}

// SendCreated acknowledges a write that produced a record with the given id.
func SendCreated(c *fiber.Ctx, id string) error {
	return c.Status(fiber.StatusOK).JSON(AckResponse{Success: true, ID: id})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   message,
	})
}
