package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/jmoiron/sqlx"

	"github.com/viab/viab-backend/internal/api/handlers"
	"github.com/viab/viab-backend/internal/services"
	"github.com/viab/viab-backend/internal/staging"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, svc *services.Services, stager *staging.Stager, db *sqlx.DB) {
	api := app.Group("/api")

	// Agent pipeline
	api.Post("/analyze", handlers.Analyze(svc, stager))
	api.Post("/interview", handlers.Interview(svc))
	api.Post("/generate-boq", handlers.GenerateBOQ(svc))

	// Session introspection
	api.Get("/sessions", handlers.GetSessions(svc))
	api.Get("/sessions/:id/memory", handlers.GetSessionMemory(svc))
	api.Get("/sessions/:id/transcript", handlers.GetSessionTranscript(svc))

	api.Get("/health", handlers.Health(db))

	// Streaming analysis
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analyze", websocket.New(handlers.AnalyzeStream(svc)))
}
