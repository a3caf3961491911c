package routes

import (
	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/gofiber/fiber/v2"
)

func RealtimeRoutes(app *fiber.App, h *handlers.RealtimeHandler) {
	api := app.Group("/api/v1")

	api.Use("/ws", h.Upgrade)
	api.Get("/ws", h.Serve())
}
