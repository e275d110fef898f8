// Package models contains domain entities and business models for the statistics system
package models

import (
	"time"
)

// Talkgroup is one entry of the talkgroup directory: reference data mapping
// a talkgroup id to its name and geography. The directory is bulk-upserted
// once daily from an external CSV source and read-only everywhere else.
type Talkgroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TalkgroupID int64     `gorm:"not null;uniqueIndex:idx_talkgroups_talkgroup_id" json:"talkgroup_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	CountryCode string    `gorm:"size:8;index:idx_talkgroups_country_code" json:"country_code"`
	CountryName string    `gorm:"size:128" json:"country_name"`
	Continent   *string   `gorm:"size:32;index:idx_talkgroups_continent" json:"continent,omitempty"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Talkgroup) TableName() string {
	return "talkgroups"
}

// TalkgroupFilter represents filter criteria for talkgroup directory queries
type TalkgroupFilter struct {
	ID          *uint
	TalkgroupID *int64
	CountryCode *string
	Continent   *string
	NameLike    *string
}
