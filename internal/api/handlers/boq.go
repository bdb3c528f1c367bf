package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/services"
)

// GenerateBOQ handles POST /api/generate-boq. Form fields: user_id and
// session_id, both required since the BOQ is built from that session's
// accumulated analysis.
func GenerateBOQ(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.FormValue("user_id")
		sessionID := c.FormValue("session_id")
		if userID == "" || sessionID == "" {
			return respondError(c, fmt.Errorf("%w: user_id and session_id are required", analysis.ErrInvalidRequest))
		}

		result, err := svc.BOQ.Generate(c.UserContext(), userID, sessionID, c.FormValue("data"))
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"user_id":    userID,
			"session_id": sessionID,
			"boq":        result.BOQ,
			"facts_used": result.FactsUsed,
			"accuracy":   result.Accuracy,
		})
	}
}
