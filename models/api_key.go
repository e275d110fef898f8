// Package models contains domain entities and business models for the statistics system
package models

import (
	"time"

	"github.com/ea7klk/bm-stats/utils"
	"github.com/google/uuid"
)

// APIKey grants programmatic access to the authenticated statistics API.
// The key material itself is a UUID; it is returned to the owner exactly
// once at creation time.
type APIKey struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_api_keys_user_id" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Key        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_api_keys_key" json:"-"` // Never serialize key material
	Label      string    `gorm:"size:64;not null" json:"label"`
	IsActive   *bool     `gorm:"default:true;index:idx_api_keys_is_active" json:"is_active"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

// APIKeyFilter represents filter criteria for API key queries
type APIKeyFilter struct {
	ID       *uint
	UserID   *uint
	Key      *uuid.UUID
	IsActive *bool
}

func (k *APIKey) IsUsable() bool {
	return utils.IsTrue(k.IsActive) && k.RevokedAt == nil
}
