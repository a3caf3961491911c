package routes

import (
	"time"

	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func AuthRoutes(app *fiber.App, h *handlers.AuthHandler) {
	api := app.Group("/api/v1")

	authGroup := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	authGroup.Post("/students/register", h.RegisterStudent)
	authGroup.Post("/mentors/register", h.RegisterMentor)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/logout", h.Logout)
}
