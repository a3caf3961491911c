package models

import (
	"strings"
	"time"
)

type Student struct {
	Email          string          `gorm:"primaryKey;size:255" json:"email"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	PasswordHash   string          `gorm:"not null" json:"-"`
	Degree         string          `gorm:"size:255" json:"degree"`
	EducationStage string          `gorm:"size:50" json:"education_stage"`
	CareerGoal     string          `gorm:"size:255" json:"career_goal"`
	Interests      string          `gorm:"type:text" json:"interests"`
	Skills         []string        `gorm:"type:jsonb;serializer:json" json:"skills"`
	Experience     string          `gorm:"type:text" json:"experience"`
	StudyPlan      string          `gorm:"type:text" json:"study_plan"`
	ResumeURL      *string         `gorm:"size:1024" json:"resume_url,omitempty"`
	ResumeFeedback *ResumeFeedback `gorm:"type:jsonb;serializer:json" json:"resume_feedback,omitempty"`

	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
	UpdatedAt time.Time `json:"-"`
}

// ResumeFeedback is a snapshot of the last resume analysis. Error is set
// instead of the other fields when the analysis could not run.
type ResumeFeedback struct {
	Skills        []string `json:"skills"`
	MissingSkills []string `json:"missing_skills"`
	Score         int      `json:"score"`
	Experience    int      `json:"experience"`
	Error         string   `json:"error,omitempty"`
}

func (f *ResumeFeedback) Usable() bool {
	return f != nil && f.Error == ""
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
