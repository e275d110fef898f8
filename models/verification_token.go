// Package models contains domain entities and business models for the statistics system
package models

import (
	"time"
)

// Verification token purpose constants
const (
	TokenPurposeEmailVerify   = "email_verify"
	TokenPurposePasswordReset = "password_reset"
	TokenPurposeEmailChange   = "email_change"
)

// VerificationToken is a single-use, expiring token mailed to a user for
// email verification, password reset or email change. Expired and used
// tokens are pruned by the maintenance scheduler.
type VerificationToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_verification_tokens_user_id" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Token     string     `gorm:"size:64;not null;uniqueIndex:uk_verification_tokens_token" json:"-"` // Never serialize token
	Purpose   string     `gorm:"size:32;not null;index:idx_verification_tokens_purpose" json:"purpose"`
	NewEmail  *string    `gorm:"size:255" json:"new_email,omitempty"` // Only for email_change
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null;index:idx_verification_tokens_expires_at" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (VerificationToken) TableName() string {
	return "verification_tokens"
}

// VerificationTokenFilter represents filter criteria for token queries
type VerificationTokenFilter struct {
	ID      *uint
	UserID  *uint
	Token   *string
	Purpose *string
}

func (t *VerificationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *VerificationToken) IsUsable() bool {
	return t.UsedAt == nil && !t.IsExpired()
}
