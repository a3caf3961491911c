package models

import (
	"math"
	"time"
)

type MentorStatus string

const (
	MentorActive   MentorStatus = "active"
	MentorInactive MentorStatus = "inactive"
)

func (s MentorStatus) Valid() bool {
	return s == MentorActive || s == MentorInactive
}

type Mentor struct {
	Email              string       `gorm:"primaryKey;size:255" json:"email"`
	Name               string       `gorm:"size:255;not null" json:"name"`
	PasswordHash       string       `gorm:"not null" json:"-"`
	CurrentRole        string       `gorm:"size:255" json:"current_role"`
	Availability       []string     `gorm:"type:jsonb;serializer:json" json:"availability"`
	HourlyRate         float64      `gorm:"type:numeric(10,2);not null" json:"hourly_rate"`
	NotificationMethod string       `gorm:"size:20" json:"notification_method"`
	MeetingLink        string       `gorm:"size:1024" json:"meeting_link"`
	PayoutIdentifier   string       `gorm:"size:255" json:"payout_identifier"`
	PayoutQRURL        *string      `gorm:"size:1024" json:"payout_qr_url,omitempty"`
	Status             MentorStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	Skills             []string     `gorm:"type:jsonb;serializer:json" json:"skills"`

	RegisteredAt time.Time `gorm:"not null;index" json:"registered_at"`
	UpdatedAt    time.Time `json:"-"`
}

func (m *Mentor) IsActive() bool {
	return m.Status == MentorActive
}

// HourlyRateCents converts the stored two-decimal rate to minor units.
func (m *Mentor) HourlyRateCents() int64 {
	return int64(math.Round(m.HourlyRate * 100))
}
