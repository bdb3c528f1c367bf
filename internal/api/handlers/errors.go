package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/analysis"
)

// respondError maps the service error taxonomy onto HTTP statuses. A
// persistence failure after a successful completion still returns the
// generated content so the caller does not lose the work.
func respondError(c *fiber.Ctx, err error) error {
	category := analysis.Category(err)

	status := fiber.StatusInternalServerError
	switch category {
	case "invalid_request", "no_valid_input":
		status = fiber.StatusBadRequest
	case "session_busy":
		status = fiber.StatusConflict
	case "empty_result":
		status = fiber.StatusUnprocessableEntity
	case "persistence":
		status = fiber.StatusBadGateway
	}

	if status == fiber.StatusInternalServerError {
		logrus.WithError(err).Error("Request failed")
	}

	body := fiber.Map{
		"error": err.Error(),
		"code":  category,
	}
	var pe *analysis.PersistenceError
	if errors.As(err, &pe) && pe.Content != "" {
		body["content"] = pe.Content
	}

	return c.Status(status).JSON(body)
}
