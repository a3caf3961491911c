package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/anjiri1684/career_mentor/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityStore keeps students, mentors and admins keyed by email.
type IdentityStore struct {
	db *gorm.DB
}

func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// MentorQuery filters QueryMentors. Zero values mean no filter.
// OrderBy accepts name, hourly_rate or registered_at, "-" prefixed for descending.
type MentorQuery struct {
	Status  models.MentorStatus
	Skill   string
	OrderBy string
	Limit   int
}

type StudentQuery struct {
	EducationStage string
	OrderBy        string
	Limit          int
}

// PutStudent upserts by email; the last write wins.
func (s *IdentityStore) PutStudent(ctx context.Context, student *models.Student) error {
	student.Email = models.NormalizeEmail(student.Email)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(student).Error
	if err != nil {
		return fmt.Errorf("put student %s: %w", student.Email, err)
	}
	return nil
}

func (s *IdentityStore) GetStudent(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err, "student", email)
	}
	return &student, nil
}

func (s *IdentityStore) UpdateResumeFeedback(ctx context.Context, email string, resumeURL *string, feedback *models.ResumeFeedback) error {
	res := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("email = ?", models.NormalizeEmail(email)).
		Select("resume_url", "resume_feedback").
		Updates(&models.Student{ResumeURL: resumeURL, ResumeFeedback: feedback})
	if res.Error != nil {
		return fmt.Errorf("update resume feedback %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("student %s: %w", email, ErrNotFound)
	}
	return nil
}

// PutMentor upserts by email; the last write wins.
func (s *IdentityStore) PutMentor(ctx context.Context, mentor *models.Mentor) error {
	mentor.Email = models.NormalizeEmail(mentor.Email)
	if mentor.Status == "" {
		mentor.Status = models.MentorActive
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(mentor).Error
	if err != nil {
		return fmt.Errorf("put mentor %s: %w", mentor.Email, err)
	}
	return nil
}

func (s *IdentityStore) GetMentor(ctx context.Context, email string) (*models.Mentor, error) {
	var mentor models.Mentor
	if err := s.db.WithContext(ctx).First(&mentor, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err, "mentor", email)
	}
	return &mentor, nil
}

func (s *IdentityStore) UpdateMentorStatus(ctx context.Context, email string, status models.MentorStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid mentor status %q", status)
	}
	res := s.db.WithContext(ctx).
		Model(&models.Mentor{}).
		Where("email = ?", models.NormalizeEmail(email)).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update mentor status %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mentor %s: %w", email, ErrNotFound)
	}
	return nil
}

func (s *IdentityStore) GetAdmin(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err, "admin", email)
	}
	return &admin, nil
}

// QueryMentors returns a lazy sequence over matching mentors. Rows are read
// from the database while the caller ranges; the sequence can be ranged once.
func (s *IdentityStore) QueryMentors(ctx context.Context, q MentorQuery) (iter.Seq2[models.Mentor, error], error) {
	tx := s.db.WithContext(ctx).Model(&models.Mentor{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Skill != "" {
		skill, err := json.Marshal([]string{q.Skill})
		if err != nil {
			return nil, err
		}
		tx = tx.Where("skills @> ?", string(skill))
	}
	order, err := orderClause(q.OrderBy, "name", "hourly_rate", "registered_at")
	if err != nil {
		return nil, err
	}
	if order != "" {
		tx = tx.Order(order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return lazyRows[models.Mentor](tx), nil
}

func (s *IdentityStore) QueryStudents(ctx context.Context, q StudentQuery) (iter.Seq2[models.Student, error], error) {
	tx := s.db.WithContext(ctx).Model(&models.Student{})
	if q.EducationStage != "" {
		tx = tx.Where("education_stage = ?", q.EducationStage)
	}
	order, err := orderClause(q.OrderBy, "name", "joined_at")
	if err != nil {
		return nil, err
	}
	if order != "" {
		tx = tx.Order(order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return lazyRows[models.Student](tx), nil
}

func lazyRows[T any](tx *gorm.DB) iter.Seq2[T, error] {
	var consumed atomic.Bool
	return func(yield func(T, error) bool) {
		var zero T
		if !consumed.CompareAndSwap(false, true) {
			yield(zero, ErrSequenceConsumed)
			return
		}

		rows, err := tx.Rows()
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var item T
			if err := tx.ScanRows(rows, &item); err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, key, err)
}
