// Package models contains domain entities and business models for the statistics system
package models

import (
	"time"

	"github.com/ea7klk/bm-stats/utils"
)

type UserSession struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	UserID       uint    `gorm:"not null;index:idx_sessions_user_id" json:"user_id"`
	User         User    `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	SessionToken string  `gorm:"size:255;not null;uniqueIndex:idx_sessions_session_token" json:"-"` // Never serialize token
	RefreshToken *string `gorm:"size:255;uniqueIndex:idx_sessions_refresh_token" json:"-"`          // Never serialize refresh token
	IPAddress    *string `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent    *string `gorm:"type:text" json:"user_agent,omitempty"`
	IsActive     *bool   `gorm:"default:true;index:idx_sessions_is_active" json:"is_active"`

	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	LastAccessedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"last_accessed_at"`
	ExpiresAt      time.Time `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// UserSessionFilter represents filter criteria for session queries
type UserSessionFilter struct {
	ID            *uint
	UserID        *uint
	IsActive      *bool
	IPAddress     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}

func (s *UserSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *UserSession) IsValid() bool {
	return utils.IsTrue(s.IsActive) && !s.IsExpired()
}
