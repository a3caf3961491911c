package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionAccepted  SessionStatus = "accepted"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:  {SessionAccepted, SessionCancelled},
	SessionAccepted: {SessionCompleted, SessionCancelled},
}

// CanTransitionTo reports whether next is a legal edge from s.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Session is a booked mentorship meeting. Student and mentor are referenced
// by email only; the payment fields are written once, on acceptance.
type Session struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	StudentEmail    string        `gorm:"size:255;not null;index" json:"student_email"`
	StudentName     string        `gorm:"size:255" json:"student_name"`
	MentorEmail     string        `gorm:"size:255;not null;index" json:"mentor_email"`
	ScheduledAt     time.Time     `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	Topics          string        `gorm:"type:text" json:"topics"`
	Status          SessionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	PaymentLink *string `gorm:"size:1024" json:"payment_link,omitempty"`
	PaymentID   *string `gorm:"size:255;unique" json:"payment_id,omitempty"`
	AmountCents *int64  `json:"amount_cents,omitempty"`
	Currency    *string `gorm:"size:3" json:"currency,omitempty"`
	ReceiptURL  *string `gorm:"size:1024" json:"receipt_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Amount returns the frozen price in major units, or zero before acceptance.
func (s *Session) Amount() float64 {
	if s.AmountCents == nil {
		return 0
	}
	return float64(*s.AmountCents) / 100
}

func (s *Session) Involves(email string) bool {
	return email != "" && (s.StudentEmail == email || s.MentorEmail == email)
}

// PaymentDetails are the checkout fields stored with the accepted transition.
type PaymentDetails struct {
	Link        string
	ID          string
	AmountCents int64
	Currency    string
}

// SessionEvent is one row of a session's status history.
type SessionEvent struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	SessionID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"session_id"`
	FromStatus SessionStatus `gorm:"size:20" json:"from_status"`
	ToStatus   SessionStatus `gorm:"size:20;not null" json:"to_status"`
	Actor      string        `gorm:"size:255" json:"actor"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SessionStatusChange is pushed to connected clients.
type SessionStatusChange struct {
	SessionID uuid.UUID     `json:"session_id"`
	Status    SessionStatus `json:"status"`
	At        time.Time     `json:"at"`
}
