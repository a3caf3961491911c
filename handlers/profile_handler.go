package handlers

import (
	"context"
	"log/slog"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/middleware"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DashboardAPI interface {
	Student(ctx context.Context, id auth.Identity) (*services.StudentDashboard, error)
	Mentor(ctx context.Context, id auth.Identity) (*services.MentorDashboard, error)
}

type AdvisorAPI interface {
	RecommendMentors(ctx context.Context, id auth.Identity) (string, error)
	SessionPlan(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (string, error)
}

type ProfileHandler struct {
	dashboards DashboardAPI
	identity   IdentityAPI
	advisor    AdvisorAPI
	log        *slog.Logger
}

func NewProfileHandler(dashboards DashboardAPI, identity IdentityAPI, advisor AdvisorAPI, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{dashboards: dashboards, identity: identity, advisor: advisor, log: log}
}

type ResumeRequest struct {
	ResumeURL string `json:"resume_url" validate:"required,url"`
}

type MentorStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *ProfileHandler) StudentDashboard(c *fiber.Ctx) error {
	dashboard, err := h.dashboards.Student(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dashboard)
}

func (h *ProfileHandler) MentorDashboard(c *fiber.Ctx) error {
	dashboard, err := h.dashboards.Mentor(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dashboard)
}

func (h *ProfileHandler) UpdateResume(c *fiber.Ctx) error {
	var req ResumeRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	feedback, err := h.identity.UpdateResume(c.UserContext(), middleware.CurrentIdentity(c), req.ResumeURL)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"resume_feedback": feedback})
}

// SetMentorStatus serves PATCH /mentors/:email/status. Mentors may only
// change their own status.
func (h *ProfileHandler) SetMentorStatus(c *fiber.Ctx) error {
	var req MentorStatusRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	email := c.Params("email")
	status := models.MentorStatus(req.Status)
	if err := h.identity.SetMentorStatus(c.UserContext(), middleware.CurrentIdentity(c), email, status); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"email": email, "status": status})
}

func (h *ProfileHandler) Recommendations(c *fiber.Ctx) error {
	text, err := h.advisor.RecommendMentors(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"recommendations": text})
}

func (h *ProfileHandler) SessionPlan(c *fiber.Ctx) error {
	sessionID, ok, err := sessionIDParam(c, "sessionId")
	if !ok {
		return err
	}
	plan, err := h.advisor.SessionPlan(c.UserContext(), middleware.CurrentIdentity(c), sessionID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"session_id": sessionID, "plan": plan})
}
