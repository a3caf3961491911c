package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type IdentityStore interface {
	ProfileLookup
	PutStudent(ctx context.Context, student *models.Student) error
	PutMentor(ctx context.Context, mentor *models.Mentor) error
	GetAdmin(ctx context.Context, email string) (*models.Admin, error)
	UpdateMentorStatus(ctx context.Context, email string, status models.MentorStatus) error
	UpdateResumeFeedback(ctx context.Context, email string, resumeURL *string, feedback *models.ResumeFeedback) error
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type ResumeAnalyzer interface {
	Analyze(ctx context.Context, resumeURL string) *models.ResumeFeedback
}

type DirectoryInvalidator interface {
	Invalidate(ctx context.Context)
}

type IdentityService struct {
	store     IdentityStore
	tokens    TokenIssuer
	resumes   ResumeAnalyzer
	directory DirectoryInvalidator
	log       *slog.Logger
	now       func() time.Time
}

func NewIdentityService(store IdentityStore, tokens TokenIssuer, resumes ResumeAnalyzer, directory DirectoryInvalidator, log *slog.Logger) *IdentityService {
	return &IdentityService{
		store:     store,
		tokens:    tokens,
		resumes:   resumes,
		directory: directory,
		log:       log,
		now:       time.Now,
	}
}

type StudentRegistration struct {
	Name           string
	Email          string
	Password       string
	Degree         string
	EducationStage string
	CareerGoal     string
	Interests      string
	Skills         []string
	Experience     string
	ResumeURL      string
}

type MentorRegistration struct {
	Name               string
	Email              string
	Password           string
	CurrentRole        string
	Availability       []string
	HourlyRate         float64
	NotificationMethod string
	MeetingLink        string
	PayoutUPI          string
	PayoutQRURL        string
	Skills             []string
}

type AuthResult struct {
	Token string    `json:"token"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

func (s *IdentityService) RegisterStudent(ctx context.Context, reg StudentRegistration) (*AuthResult, error) {
	email, err := s.checkCredentials(reg.Name, reg.Email, reg.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnregistered(ctx, email, s.studentExists); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &models.Student{
		Email:          email,
		Name:           strings.TrimSpace(reg.Name),
		PasswordHash:   string(hash),
		Degree:         reg.Degree,
		EducationStage: reg.EducationStage,
		CareerGoal:     reg.CareerGoal,
		Interests:      reg.Interests,
		Skills:         nonNil(reg.Skills),
		Experience:     reg.Experience,
		StudyPlan:      StudyPlan(reg.EducationStage, reg.CareerGoal, reg.Skills),
		JoinedAt:       s.now().UTC(),
	}
	if reg.ResumeURL != "" {
		resumeURL := reg.ResumeURL
		student.ResumeURL = &resumeURL
		student.ResumeFeedback = s.resumes.Analyze(ctx, resumeURL)
	}

	if err := s.store.PutStudent(ctx, student); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "student registered", slog.String("email", email))
	return s.issue(auth.Identity{Email: email, Role: auth.RoleStudent})
}

func (s *IdentityService) RegisterMentor(ctx context.Context, reg MentorRegistration) (*AuthResult, error) {
	email, err := s.checkCredentials(reg.Name, reg.Email, reg.Password)
	if err != nil {
		return nil, err
	}
	if reg.HourlyRate <= 0 {
		return nil, validationf("hourly rate must be positive")
	}
	if err := s.ensureUnregistered(ctx, email, s.mentorExists); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	mentor := &models.Mentor{
		Email:              email,
		Name:               strings.TrimSpace(reg.Name),
		PasswordHash:       string(hash),
		CurrentRole:        reg.CurrentRole,
		Availability:       nonNil(reg.Availability),
		HourlyRate:         reg.HourlyRate,
		NotificationMethod: reg.NotificationMethod,
		MeetingLink:        reg.MeetingLink,
		PayoutIdentifier:   PayoutIdentifier(reg.PayoutUPI, reg.PayoutQRURL),
		Status:             models.MentorActive,
		Skills:             nonNil(reg.Skills),
		RegisteredAt:       s.now().UTC(),
	}
	if reg.PayoutQRURL != "" {
		qr := reg.PayoutQRURL
		mentor.PayoutQRURL = &qr
	}

	if err := s.store.PutMentor(ctx, mentor); err != nil {
		return nil, err
	}
	s.directory.Invalidate(ctx)
	s.log.InfoContext(ctx, "mentor registered", slog.String("email", email))
	return s.issue(auth.Identity{Email: email, Role: auth.RoleMentor})
}

// PayoutIdentifier prefers an uploaded QR image and falls back to a UPI
// payment URI.
func PayoutIdentifier(upi, qrURL string) string {
	upi = strings.TrimSpace(upi)
	if qrURL != "" || upi == "" {
		return qrURL
	}
	return "upi://pay?pa=" + upi
}

func (s *IdentityService) Login(ctx context.Context, role auth.Role, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)

	var hash string
	var err error
	switch role {
	case auth.RoleStudent:
		var student *models.Student
		if student, err = s.store.GetStudent(ctx, email); err == nil {
			hash = student.PasswordHash
		}
	case auth.RoleMentor:
		var mentor *models.Mentor
		if mentor, err = s.store.GetMentor(ctx, email); err == nil {
			hash = mentor.PasswordHash
		}
	case auth.RoleAdmin:
		var admin *models.Admin
		if admin, err = s.store.GetAdmin(ctx, email); err == nil {
			hash = admin.PasswordHash
		}
	default:
		return nil, validationf("unknown role %q", role)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return s.issue(auth.Identity{Email: email, Role: role})
}

// SetMentorStatus is allowed for the mentor themself or an admin.
func (s *IdentityService) SetMentorStatus(ctx context.Context, actor auth.Identity, mentorEmail string, status models.MentorStatus) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	mentorEmail = models.NormalizeEmail(mentorEmail)
	self := actor.Is(auth.RoleMentor) && models.NormalizeEmail(actor.Email) == mentorEmail
	if !self && !actor.Is(auth.RoleAdmin) {
		return fmt.Errorf("%w: cannot change another mentor's status", ErrForbidden)
	}
	if !status.Valid() {
		return validationf("status must be active or inactive")
	}

	if err := s.store.UpdateMentorStatus(ctx, mentorEmail, status); err != nil {
		return translateStoreErr(err)
	}
	s.directory.Invalidate(ctx)
	s.log.InfoContext(ctx, "mentor status changed",
		slog.String("mentor", mentorEmail),
		slog.String("status", string(status)),
		slog.String("by", actor.Email))
	return nil
}

// UpdateResume re-runs resume analysis for the calling student.
func (s *IdentityService) UpdateResume(ctx context.Context, actor auth.Identity, resumeURL string) (*models.ResumeFeedback, error) {
	if !actor.Is(auth.RoleStudent) {
		return nil, fmt.Errorf("%w: student access required", ErrForbidden)
	}
	if strings.TrimSpace(resumeURL) == "" {
		return nil, validationf("resume url is required")
	}

	feedback := s.resumes.Analyze(ctx, resumeURL)
	if err := s.store.UpdateResumeFeedback(ctx, actor.Email, &resumeURL, feedback); err != nil {
		return nil, translateStoreErr(err)
	}
	return feedback, nil
}

func (s *IdentityService) Student(ctx context.Context, email string) (*models.Student, error) {
	student, err := s.store.GetStudent(ctx, email)
	return student, translateStoreErr(err)
}

func (s *IdentityService) Mentor(ctx context.Context, email string) (*models.Mentor, error) {
	mentor, err := s.store.GetMentor(ctx, email)
	return mentor, translateStoreErr(err)
}

func (s *IdentityService) checkCredentials(name, email, password string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", validationf("name is required")
	}
	normalized := models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(normalized); err != nil || normalized == "" {
		return "", validationf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return "", validationf("password must be at least %d characters", minPasswordLength)
	}
	return normalized, nil
}

func (s *IdentityService) ensureUnregistered(ctx context.Context, email string, exists func(context.Context, string) (bool, error)) error {
	found, err := exists(ctx, email)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %s is already registered", ErrConflict, email)
	}
	return nil
}

func (s *IdentityService) studentExists(ctx context.Context, email string) (bool, error) {
	_, err := s.store.GetStudent(ctx, email)
	return lookupResult(err)
}

func (s *IdentityService) mentorExists(ctx context.Context, email string) (bool, error) {
	_, err := s.store.GetMentor(ctx, email)
	return lookupResult(err)
}

func lookupResult(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *IdentityService) issue(id auth.Identity) (*AuthResult, error) {
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, Email: id.Email, Role: id.Role}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
