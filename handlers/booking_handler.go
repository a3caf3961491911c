package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/middleware"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BookingAPI interface {
	RequestSession(ctx context.Context, id auth.Identity, req services.SessionRequest) (*models.Session, error)
	AcceptSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*models.Session, error)
	ConfirmPayment(ctx context.Context, sessionID uuid.UUID, actor string) (*models.Session, error)
	CancelSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*services.CancelResult, error)
	GetSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*models.Session, error)
	StudentSessions(ctx context.Context, id auth.Identity) ([]models.Session, error)
}

type BookingHandler struct {
	bookings BookingAPI
	log      *slog.Logger
}

func NewBookingHandler(bookings BookingAPI, log *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

type SessionRequestBody struct {
	MentorEmail     string    `json:"mentor_email" validate:"required,email"`
	Date            time.Time `json:"date" validate:"required"`
	DurationMinutes int       `json:"duration" validate:"required,min=1,max=480"`
	Topics          string    `json:"topics"`
}

func (h *BookingHandler) RequestSession(c *fiber.Ctx) error {
	var req SessionRequestBody
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	session, err := h.bookings.RequestSession(c.UserContext(), middleware.CurrentIdentity(c), services.SessionRequest{
		MentorEmail:     req.MentorEmail,
		ScheduledAt:     req.Date,
		DurationMinutes: req.DurationMinutes,
		Topics:          req.Topics,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// AcceptSession serves both the emailed GET link and the POST action.
func (h *BookingHandler) AcceptSession(c *fiber.Ctx) error {
	id, ok, err := sessionIDParam(c, "sessionId")
	if !ok {
		return err
	}

	session, err := h.bookings.AcceptSession(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message":      "Session accepted, payment link sent to the student",
		"session":      session,
		"payment_link": session.PaymentLink,
	})
}

// ConfirmSession lets an admin complete a paid session by hand.
func (h *BookingHandler) ConfirmSession(c *fiber.Ctx) error {
	id, ok, err := sessionIDParam(c, "sessionId")
	if !ok {
		return err
	}

	session, err := h.bookings.ConfirmPayment(c.UserContext(), id, middleware.CurrentIdentity(c).Email)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(session)
}

func (h *BookingHandler) CancelSession(c *fiber.Ctx) error {
	id, ok, err := sessionIDParam(c, "sessionId")
	if !ok {
		return err
	}

	result, err := h.bookings.CancelSession(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *BookingHandler) GetSession(c *fiber.Ctx) error {
	id, ok, err := sessionIDParam(c, "sessionId")
	if !ok {
		return err
	}

	session, err := h.bookings.GetSession(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(session)
}

func (h *BookingHandler) MySessions(c *fiber.Ctx) error {
	sessions, err := h.bookings.StudentSessions(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(sessions)
}
