package routes

import (
	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/anjiri1684/career_mentor/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, secret []byte, h *handlers.ProfileHandler) {
	api := app.Group("/api/v1")

	student := api.Group("/students/me", middleware.Protected(secret), middleware.RoleRequired(auth.RoleStudent))
	student.Get("/dashboard", h.StudentDashboard)
	student.Put("/resume", h.UpdateResume)
	student.Get("/recommendations", h.Recommendations)

	api.Get("/sessions/:sessionId/plan", middleware.Protected(secret),
		middleware.RoleRequired(auth.RoleStudent, auth.RoleMentor), h.SessionPlan)

	mentors := api.Group("/mentors", middleware.Protected(secret))
	mentors.Get("/me/dashboard", middleware.RoleRequired(auth.RoleMentor), h.MentorDashboard)
	mentors.Patch("/:email/status", middleware.RoleRequired(auth.RoleMentor, auth.RoleAdmin), h.SetMentorStatus)
}
