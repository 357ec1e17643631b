package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a refresh-token login issued after a successful identity
// provider callback. The token itself is never serialized.
type Session struct {
	ID           uuid.UUID `json:"id" example:"0b6f2c1e-7d4a-4f0e-9a51-3c2e8d7f1a90"`
	UserID       int64     `json:"-"`
	RefreshToken string    `json:"-"`
	UserAgent    string    `json:"user_agent" example:"Mozilla/5.0 (X11; Linux x86_64)"`
	ClientIP     string    `json:"client_ip" example:"203.0.113.7"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
