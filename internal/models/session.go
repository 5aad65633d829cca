package models

import "time"

// Session binds an opaque token to an account email until ExpiresAt.
type Session struct {
	Token     string    `json:"token" gorm:"primaryKey;type:varchar(64)"`
	Email     string    `json:"email" gorm:"index;type:varchar(255);not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}
