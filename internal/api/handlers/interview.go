package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/services"
)

// Interview handles POST /api/interview. Form fields: message (required),
// user_id and session_id (generated when absent).
func Interview(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		message := c.FormValue("data")
		if message == "" {
			return respondError(c, fmt.Errorf("%w: data is required", analysis.ErrInvalidRequest))
		}

		userID := c.FormValue("user_id")
		sessionID := c.FormValue("session_id")
		if userID == "" {
			userID = shortID()
		}
		if sessionID == "" {
			sessionID = shortID()
		}

		reply, err := svc.Interview.Chat(c.UserContext(), userID, sessionID, message)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"user_id":    userID,
			"session_id": sessionID,
			"content":    reply,
		})
	}
}
