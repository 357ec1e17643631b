package models

import "time"

type User struct {
	ID             int64      `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	DisplayName    string     `json:"display_name" db:"display_name"`
	AvatarURL      *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	StorageUsedMB  float64    `json:"storage_used_mb" db:"storage_used_mb"`
	StorageLimitMB float64    `json:"storage_limit_mb" db:"storage_limit_mb"`
	IsAdmin        bool       `json:"is_admin" db:"is_admin"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
