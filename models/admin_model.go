package models

import "time"

type Admin struct {
	Email        string    `gorm:"primaryKey;size:255" json:"email"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
