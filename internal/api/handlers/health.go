package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
)

// Health handles GET /api/health. Database reachability is reported but does
// not change the status code; the process is up either way.
func Health(db *sqlx.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if db == nil {
			dbStatus = "not configured"
		} else if err := db.PingContext(c.UserContext()); err != nil {
			dbStatus = "unreachable"
		}

		return c.JSON(fiber.Map{
			"status":   "healthy",
			"service":  "viab-backend",
			"database": dbStatus,
		})
	}
}
