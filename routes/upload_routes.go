package routes

import (
	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/gofiber/fiber/v2"
)

// UploadRoutes is public: resume and payout QR images are uploaded before
// the account exists.
func UploadRoutes(app *fiber.App, h *handlers.UploadHandler) {
	api := app.Group("/api/v1")

	api.Get("/uploads/signature", h.GenerateUploadSignature)
}
