package routes

import (
	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/anjiri1684/career_mentor/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, secret []byte, h *handlers.BookingHandler) {
	api := app.Group("/api/v1")

	sessions := api.Group("/sessions", middleware.Protected(secret))
	sessions.Post("", middleware.RoleRequired(auth.RoleStudent), h.RequestSession)
	sessions.Get("/me", middleware.RoleRequired(auth.RoleStudent), h.MySessions)
	sessions.Get("/:sessionId", h.GetSession)
	sessions.Get("/:sessionId/accept", h.AcceptSession)
	sessions.Post("/:sessionId/accept", h.AcceptSession)
	sessions.Post("/:sessionId/cancel", h.CancelSession)

	admin := api.Group("/admin", middleware.Protected(secret), middleware.AdminRequired())
	admin.Post("/sessions/:sessionId/confirm", h.ConfirmSession)
}
