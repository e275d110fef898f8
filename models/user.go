// Package models contains domain entities and business models for the statistics system
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	Callsign string `gorm:"size:16;not null;index:idx_users_callsign" json:"callsign"`
	Name     string `gorm:"size:255;not null" json:"name"`

	Email        string `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	Language string `gorm:"size:8;default:en" json:"language"`

	// Status and verification
	IsEmailVerified *bool `gorm:"default:false" json:"is_email_verified"`
	IsActive        *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	IsAdmin         *bool `gorm:"default:false" json:"is_admin"`

	// Timestamps
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Sessions           []UserSession       `gorm:"foreignKey:UserID" json:"-"`
	APIKeys            []APIKey            `gorm:"foreignKey:UserID" json:"-"`
	VerificationTokens []VerificationToken `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Email           *string
	Callsign        *string
	IsEmailVerified *bool
	IsActive        *bool
	IsAdmin         *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}
