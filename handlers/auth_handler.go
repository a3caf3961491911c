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
)

type IdentityAPI interface {
	RegisterStudent(ctx context.Context, reg services.StudentRegistration) (*services.AuthResult, error)
	RegisterMentor(ctx context.Context, reg services.MentorRegistration) (*services.AuthResult, error)
	Login(ctx context.Context, role auth.Role, email, password string) (*services.AuthResult, error)
	SetMentorStatus(ctx context.Context, actor auth.Identity, mentorEmail string, status models.MentorStatus) error
	UpdateResume(ctx context.Context, actor auth.Identity, resumeURL string) (*models.ResumeFeedback, error)
}

// CookieOptions control the token cookie set on login and registration.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	identity IdentityAPI
	cookie   CookieOptions
	log      *slog.Logger
}

func NewAuthHandler(identity IdentityAPI, cookie CookieOptions, log *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, cookie: cookie, log: log}
}

// setTokenCookie lets links opened from email authenticate. Lax keeps the
// cookie on top-level navigations from a mail client.
func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookie.TTL),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

type StudentRegisterRequest struct {
	Name           string   `json:"name" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=8"`
	Degree         string   `json:"degree"`
	EducationStage string   `json:"education_stage" validate:"required"`
	CareerGoal     string   `json:"career_goal" validate:"required"`
	Interests      string   `json:"interests"`
	Skills         []string `json:"skills"`
	Experience     string   `json:"experience"`
	ResumeURL      string   `json:"resume_url" validate:"omitempty,url"`
}

type MentorRegisterRequest struct {
	Name               string   `json:"name" validate:"required"`
	Email              string   `json:"email" validate:"required,email"`
	Password           string   `json:"password" validate:"required,min=8"`
	CurrentRole        string   `json:"current_role" validate:"required"`
	Availability       []string `json:"availability"`
	HourlyRate         float64  `json:"hourly_rate" validate:"gt=0"`
	NotificationMethod string   `json:"notification_method" validate:"omitempty,oneof=email sms"`
	MeetingLink        string   `json:"meeting_link" validate:"required,url"`
	PayoutUPI          string   `json:"payout_upi"`
	PayoutQRURL        string   `json:"payout_qr_url" validate:"omitempty,url"`
	Skills             []string `json:"skills"`
}

type LoginRequest struct {
	Role     string `json:"role" validate:"required,oneof=student mentor admin"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) RegisterStudent(c *fiber.Ctx) error {
	var req StudentRegisterRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.identity.RegisterStudent(c.UserContext(), services.StudentRegistration{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Degree:         req.Degree,
		EducationStage: req.EducationStage,
		CareerGoal:     req.CareerGoal,
		Interests:      req.Interests,
		Skills:         req.Skills,
		Experience:     req.Experience,
		ResumeURL:      req.ResumeURL,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.setTokenCookie(c, result.Token)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) RegisterMentor(c *fiber.Ctx) error {
	var req MentorRegisterRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.identity.RegisterMentor(c.UserContext(), services.MentorRegistration{
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		CurrentRole:        req.CurrentRole,
		Availability:       req.Availability,
		HourlyRate:         req.HourlyRate,
		NotificationMethod: req.NotificationMethod,
		MeetingLink:        req.MeetingLink,
		PayoutUPI:          req.PayoutUPI,
		PayoutQRURL:        req.PayoutQRURL,
		Skills:             req.Skills,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.setTokenCookie(c, result.Token)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	result, err := h.identity.Login(c.UserContext(), auth.Role(req.Role), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.setTokenCookie(c, result.Token)
	return c.JSON(result)
}
