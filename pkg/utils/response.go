package utils

import "github.com/gofiber/fiber/v2"

// Success writes the success envelope: a message plus the payload under a
// resource-specific key ("users", "project", "result", ...).
func Success(c *fiber.Ctx, status int, message, key string, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		key:       payload,
	})
}

// Error writes the failure envelope. The outer message names the outcome
// class, the error field carries the client-safe reason.
func Error(c *fiber.Ctx, status int, reason string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": statusMessage(status),
		"error":   reason,
	})
}

func statusMessage(status int) string {
	switch {
	case status == fiber.StatusBadRequest:
		return "Invalid request."
	case status == fiber.StatusUnauthorized:
		return "Authorization failed."
	case status >= fiber.StatusInternalServerError:
		return "Unexpected error."
	default:
		return "Request failed."
	}
}

// Paginated writes one result page. When pagination was disabled the whole
// filtered set is a single page and perPage reports its size.
func Paginated(c *fiber.Ctx, message, key string, payload interface{}, opts PageOptions, total int64) error {
	page := opts.Page
	perPage := opts.PerPage
	if !opts.Paginate {
		page = 1
		perPage = int(total)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": message,
		key:       payload,
		"pagination": fiber.Map{
			"page":       page,
			"perPage":    perPage,
			"totalCount": total,
		},
	})
}
