package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/memory"
	"github.com/viab/viab-backend/internal/services"
)

// GetSessions handles GET /api/sessions?user_id=...
func GetSessions(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return respondError(c, fmt.Errorf("%w: user_id is required", analysis.ErrInvalidRequest))
		}

		sessions, err := svc.Sessions.List(c.UserContext(), userID)
		if err != nil {
			return respondError(c, &analysis.PersistenceError{Err: err})
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	}
}

// GetSessionMemory handles GET /api/sessions/:id/memory?user_id=...
// It exposes the consolidated project facts for a session.
func GetSessionMemory(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		sessionID := c.Params("id")
		if userID == "" || sessionID == "" {
			return respondError(c, fmt.Errorf("%w: user_id and session id are required", analysis.ErrInvalidRequest))
		}

		scope := memory.Scope{UserID: userID, SessionID: sessionID}
		entries, err := svc.Store.List(c.UserContext(), scope)
		if err != nil {
			return respondError(c, &analysis.PersistenceError{Err: err})
		}

		return c.JSON(fiber.Map{
			"user_id":    userID,
			"session_id": sessionID,
			"memory":     entries,
		})
	}
}

// GetSessionTranscript handles GET /api/sessions/:id/transcript?user_id=...
func GetSessionTranscript(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		sessionID := c.Params("id")
		if userID == "" || sessionID == "" {
			return respondError(c, fmt.Errorf("%w: user_id and session id are required", analysis.ErrInvalidRequest))
		}

		turns, err := svc.Transcripts.List(c.UserContext(), userID, sessionID)
		if err != nil {
			return respondError(c, &analysis.PersistenceError{Err: err})
		}
		return c.JSON(fiber.Map{"turns": turns})
	}
}
