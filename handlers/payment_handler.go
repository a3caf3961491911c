package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/payments"
	"github.com/anjiri1684/career_mentor/services"
	"github.com/anjiri1684/career_mentor/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PaymentAPI interface {
	ConfirmCheckout(ctx context.Context, sessionID uuid.UUID) (*services.PaymentConfirmation, error)
	ConfirmWebhook(ctx context.Context, checkout *payments.Checkout) (*models.Session, error)
}

type PaymentHandler struct {
	payments      PaymentAPI
	webhookSecret string
	log           *slog.Logger
	now           func() time.Time
}

func NewPaymentHandler(api PaymentAPI, webhookSecret string, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: api, webhookSecret: webhookSecret, log: log, now: time.Now}
}

// PaymentSuccess is the gateway's success redirect.
func (h *PaymentHandler) PaymentSuccess(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	confirmation, err := h.payments.ConfirmCheckout(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message":      "Payment successful",
		"mentor_name":  confirmation.MentorName,
		"meeting_link": confirmation.MeetingLink,
		"session_date": confirmation.ScheduledAt,
		"session":      confirmation.Session,
	})
}

func (h *PaymentHandler) PaymentCancel(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":    "Payment was cancelled. The session stays accepted until it is paid or cancelled.",
		"session_id": c.Query("session_id"),
	})
}

// Webhook receives signed gateway events. Only completed checkouts change
// state; every other verified event is acknowledged and ignored.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	event, err := payments.ParseWebhook(c.Body(), c.Get("Stripe-Signature"), h.webhookSecret, h.now())
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	if event.Type != payments.EventCheckoutCompleted || event.Checkout == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	session, err := h.payments.ConfirmWebhook(c.UserContext(), event.Checkout)
	if err != nil {
		if unrecoverable(err) {
			h.log.Warn("ignoring webhook checkout",
				slog.String("event_id", event.ID), utils.ErrAttr(err))
			return c.JSON(fiber.Map{"received": true})
		}
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"received": true, "session_id": session.ID})
}

// unrecoverable reports errors that a redelivery of the same event cannot
// fix. The gateway retries any non-2xx answer.
func unrecoverable(err error) bool {
	return errors.Is(err, services.ErrValidation) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrConflict)
}
