package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/career_mentor/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionLedger stores sessions and their status history. Status only ever
// changes through Transition.
type SessionLedger struct {
	db *gorm.DB
}

func NewSessionLedger(db *gorm.DB) *SessionLedger {
	return &SessionLedger{db: db}
}

// TransitionRequest moves SessionID from From to To. Payment is written in
// the same statement when set.
type TransitionRequest struct {
	SessionID uuid.UUID
	From      models.SessionStatus
	To        models.SessionStatus
	Actor     string
	Payment   *models.PaymentDetails
}

type SessionQuery struct {
	MentorEmail   string
	StudentEmail  string
	Statuses      []models.SessionStatus
	ScheduledFrom time.Time
	OrderBy       string
	Limit         int
}

// Create stores a new pending session and its initial history row.
func (l *SessionLedger) Create(ctx context.Context, session *models.Session, actor string) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Status = models.SessionPending

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		event := models.SessionEvent{
			ID:        uuid.New(),
			SessionID: session.ID,
			ToStatus:  models.SessionPending,
			Actor:     actor,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("record session event: %w", err)
		}
		return nil
	})
}

func (l *SessionLedger) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := l.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id.String())
	}
	return &session, nil
}

// Transition applies a conditional status write: the row changes only if its
// current status is still req.From. A lost race reports ErrStatusConflict.
func (l *SessionLedger) Transition(ctx context.Context, req TransitionRequest) (*models.Session, error) {
	if !req.From.CanTransitionTo(req.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.From, req.To)
	}

	var updated models.Session
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     req.To,
			"updated_at": time.Now(),
		}
		if p := req.Payment; p != nil {
			updates["payment_link"] = p.Link
			updates["payment_id"] = p.ID
			updates["amount_cents"] = p.AmountCents
			updates["currency"] = p.Currency
		}

		res := tx.Model(&models.Session{}).
			Where("id = ? AND status = ?", req.SessionID, req.From).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update session status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var current models.Session
			if err := tx.Select("status").First(&current, "id = ?", req.SessionID).Error; err != nil {
				return notFound(err, "session", req.SessionID.String())
			}
			return fmt.Errorf("%w: session %s is %s, expected %s", ErrStatusConflict, req.SessionID, current.Status, req.From)
		}

		event := models.SessionEvent{
			ID:         uuid.New(),
			SessionID:  req.SessionID,
			FromStatus: req.From,
			ToStatus:   req.To,
			Actor:      req.Actor,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("record session event: %w", err)
		}

		return tx.First(&updated, "id = ?", req.SessionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// List returns sessions matching q. OrderBy accepts created_at or scheduled_at.
func (l *SessionLedger) List(ctx context.Context, q SessionQuery) ([]models.Session, error) {
	tx := l.db.WithContext(ctx).Model(&models.Session{})
	if q.MentorEmail != "" {
		tx = tx.Where("mentor_email = ?", models.NormalizeEmail(q.MentorEmail))
	}
	if q.StudentEmail != "" {
		tx = tx.Where("student_email = ?", models.NormalizeEmail(q.StudentEmail))
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if !q.ScheduledFrom.IsZero() {
		tx = tx.Where("scheduled_at >= ?", q.ScheduledFrom)
	}
	order, err := orderClause(q.OrderBy, "created_at", "scheduled_at")
	if err != nil {
		return nil, err
	}
	if order == "" {
		order = "created_at ASC"
	}
	tx = tx.Order(order)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var sessions []models.Session
	if err := tx.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SetReceiptURL attaches a receipt to a completed session. Status is untouched.
func (l *SessionLedger) SetReceiptURL(ctx context.Context, id uuid.UUID, url string) error {
	res := l.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND status = ?", id, models.SessionCompleted).
		Update("receipt_url", url)
	if res.Error != nil {
		return fmt.Errorf("set receipt url: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("completed session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (l *SessionLedger) Events(ctx context.Context, id uuid.UUID) ([]models.SessionEvent, error) {
	var events []models.SessionEvent
	err := l.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	return events, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
