package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/models"
)

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"

	advancedScore = 70
)

// StudyPlan picks the plan for an education stage.
func StudyPlan(stage, goal string, skills []string) string {
	switch stage {
	case "1st Year":
		return fmt.Sprintf("Focus on fundamentals: Python, Math. Start exploring %s", goal)
	case "2nd Year":
		return fmt.Sprintf("Build projects using %s. Join %s communities", strings.Join(skills, ", "), goal)
	case "3rd Year":
		return fmt.Sprintf("Master %s-specific tools | LeetCode 3x/week | Mock interviews", goal)
	case "4th Year":
		return "Job prep: Resume polishing, networking, company research"
	case "Final Semester":
		return "Finalize job applications | Practice behavioral interviews"
	}
	return "Custom plan for " + goal
}

// WeeksLeft counts whole weeks remaining in a program that started at
// joined. It never goes below zero.
func WeeksLeft(joined, now time.Time, programWeeks int) int {
	end := joined.AddDate(0, 0, 7*programWeeks)
	days := int(end.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

func Level(feedback *models.ResumeFeedback) string {
	switch {
	case !feedback.Usable():
		return LevelBeginner
	case feedback.Score < advancedScore:
		return LevelIntermediate
	}
	return LevelAdvanced
}

type StudentDashboard struct {
	Name           string                 `json:"name"`
	Education      string                 `json:"education"`
	Goal           string                 `json:"goal"`
	Skills         []string               `json:"skills"`
	StudyPlan      string                 `json:"study_plan"`
	ResumeFeedback *models.ResumeFeedback `json:"resume_feedback"`
	WeeksLeft      int                    `json:"weeks_left"`
	Level          string                 `json:"level"`
	Mentors        []models.Mentor        `json:"mentors"`
}

type MentorDashboard struct {
	Mentor   *models.Mentor   `json:"mentor"`
	Pending  []models.Session `json:"pending_sessions"`
	Upcoming []models.Session `json:"upcoming_sessions"`
}

type ActiveMentorLister interface {
	ActiveMentors(ctx context.Context) ([]models.Mentor, error)
}

type MentorSessionLister interface {
	MentorSessions(ctx context.Context, id auth.Identity) (*MentorSessions, error)
}

type DashboardService struct {
	profiles     ProfileLookup
	directory    ActiveMentorLister
	sessions     MentorSessionLister
	programWeeks int
	now          func() time.Time
}

func NewDashboardService(profiles ProfileLookup, directory ActiveMentorLister, sessions MentorSessionLister, programWeeks int) *DashboardService {
	if programWeeks <= 0 {
		programWeeks = 16
	}
	return &DashboardService{
		profiles:     profiles,
		directory:    directory,
		sessions:     sessions,
		programWeeks: programWeeks,
		now:          time.Now,
	}
}

func (s *DashboardService) Student(ctx context.Context, id auth.Identity) (*StudentDashboard, error) {
	if !id.Is(auth.RoleStudent) {
		return nil, fmt.Errorf("%w: student access required", ErrForbidden)
	}
	student, err := s.profiles.GetStudent(ctx, id.Email)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	mentors, err := s.directory.ActiveMentors(ctx)
	if err != nil {
		return nil, err
	}

	return &StudentDashboard{
		Name:           student.Name,
		Education:      student.EducationStage,
		Goal:           student.CareerGoal,
		Skills:         student.Skills,
		StudyPlan:      student.StudyPlan,
		ResumeFeedback: student.ResumeFeedback,
		WeeksLeft:      WeeksLeft(student.JoinedAt, s.now(), s.programWeeks),
		Level:          Level(student.ResumeFeedback),
		Mentors:        mentors,
	}, nil
}

func (s *DashboardService) Mentor(ctx context.Context, id auth.Identity) (*MentorDashboard, error) {
	if !id.Is(auth.RoleMentor) {
		return nil, fmt.Errorf("%w: mentor access required", ErrForbidden)
	}
	mentor, err := s.profiles.GetMentor(ctx, id.Email)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	sessions, err := s.sessions.MentorSessions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MentorDashboard{Mentor: mentor, Pending: sessions.Pending, Upcoming: sessions.Upcoming}, nil
}
