package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/utils"
	"github.com/google/uuid"
)

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type SessionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// AdvisorService asks the AI collaborator for free-text advice. Its output
// is shown to users as-is and never drives decisions.
type AdvisorService struct {
	profiles ProfileLookup
	sessions SessionReader
	ai       TextGenerator
	log      *slog.Logger
}

func NewAdvisorService(profiles ProfileLookup, sessions SessionReader, ai TextGenerator, log *slog.Logger) *AdvisorService {
	return &AdvisorService{profiles: profiles, sessions: sessions, ai: ai, log: log}
}

func (s *AdvisorService) RecommendMentors(ctx context.Context, id auth.Identity) (string, error) {
	if !id.Is(auth.RoleStudent) {
		return "", fmt.Errorf("%w: student access required", ErrForbidden)
	}
	student, err := s.profiles.GetStudent(ctx, id.Email)
	if err != nil {
		return "", translateStoreErr(err)
	}

	prompt := fmt.Sprintf("Recommend mentors for a student with:\n- Skills: %s\n- Career Goal: %s\n",
		strings.Join(student.Skills, ", "), student.CareerGoal)

	text, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		s.log.ErrorContext(ctx, "mentor recommendation failed", slog.String("student", student.Email), utils.ErrAttr(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}

// SessionPlan drafts an agenda for a session from the mentor's expertise and
// the student's goal. Only the two participants may ask for it, and not once
// the session was cancelled.
func (s *AdvisorService) SessionPlan(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (string, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", translateStoreErr(err)
	}
	email := models.NormalizeEmail(id.Email)
	if email != session.StudentEmail && email != session.MentorEmail {
		return "", fmt.Errorf("%w: not a participant of session %s", ErrForbidden, sessionID)
	}
	if session.Status == models.SessionCancelled {
		return "", fmt.Errorf("%w: session %s is cancelled", ErrConflict, sessionID)
	}

	mentor, err := s.profiles.GetMentor(ctx, session.MentorEmail)
	if err != nil {
		return "", translateStoreErr(err)
	}
	student, err := s.profiles.GetStudent(ctx, session.StudentEmail)
	if err != nil {
		return "", translateStoreErr(err)
	}

	expertise := strings.Join(mentor.Skills, ", ")
	if mentor.CurrentRole != "" {
		expertise = strings.TrimPrefix(mentor.CurrentRole+"; "+expertise, "; ")
	}
	prompt := fmt.Sprintf("Create a %d-minute mentorship session plan between:\n"+
		"- Mentor Expertise: %s\n- Student Goals: %s\n- Requested Topics: %s\n\n"+
		"Include:\n1. 5-minute intro\n2. Focus segments\n3. 10-minute Q&A\n4. Action items\n\n"+
		"Format as markdown bullet points\n",
		session.DurationMinutes, expertise, student.CareerGoal, session.Topics)

	text, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		s.log.ErrorContext(ctx, "session plan failed", slog.String("session_id", sessionID.String()), utils.ErrAttr(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}
