package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anjiri1684/career_mentor/clients"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/utils"
)

const (
	pointsPerSkill = 10
	maxResumeScore = 100
)

var expectedSkills = []string{"Git"}

type ResumeExtractor interface {
	Extract(ctx context.Context, resumeURL string) (*clients.ResumeExtract, error)
}

type ResumeService struct {
	extractor ResumeExtractor
	log       *slog.Logger
}

func NewResumeService(extractor ResumeExtractor, log *slog.Logger) *ResumeService {
	return &ResumeService{extractor: extractor, log: log}
}

// Analyze never fails: extraction errors are returned inside the feedback.
func (s *ResumeService) Analyze(ctx context.Context, resumeURL string) *models.ResumeFeedback {
	extract, err := s.extractor.Extract(ctx, resumeURL)
	if err != nil {
		s.log.WarnContext(ctx, "resume analysis failed", slog.String("resume_url", resumeURL), utils.ErrAttr(err))
		return &models.ResumeFeedback{Error: err.Error()}
	}
	return ScoreResume(extract)
}

func ScoreResume(extract *clients.ResumeExtract) *models.ResumeFeedback {
	skills := extract.Skills
	if skills == nil {
		skills = []string{}
	}

	missing := []string{}
	for _, want := range expectedSkills {
		if !hasSkill(skills, want) {
			missing = append(missing, want)
		}
	}

	return &models.ResumeFeedback{
		Skills:        skills,
		MissingSkills: missing,
		Score:         min(len(skills)*pointsPerSkill, maxResumeScore),
		Experience:    len(extract.Experience),
	}
}

func hasSkill(skills []string, want string) bool {
	for _, s := range skills {
		if strings.EqualFold(strings.TrimSpace(s), want) {
			return true
		}
	}
	return false
}
