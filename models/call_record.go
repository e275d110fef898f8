// Package models contains domain entities and business models for the statistics system
package models

// CallRecord is one completed radio transmission heard on the network.
//
// Column identifiers are case-sensitive (quoted) and form a fixed contract
// with the statistics queries; do not rename them.
type CallRecord struct {
	ID              uint    `gorm:"primaryKey;column:id" json:"id"`
	SourceID        int64   `gorm:"column:SourceID;not null;index:idx_calls_source_id" json:"source_id"`
	SourceCall      string  `gorm:"column:SourceCall;size:16;not null;index:idx_calls_source_call" json:"source_call"`
	SourceName      *string `gorm:"column:SourceName;size:255" json:"source_name,omitempty"`
	DestinationID   int64   `gorm:"column:DestinationID;not null;index:idx_calls_destination_id" json:"destination_id"`
	DestinationCall *string `gorm:"column:DestinationCall;size:16" json:"destination_call,omitempty"`
	DestinationName string  `gorm:"column:DestinationName;size:255;not null" json:"destination_name"`
	Start           int64   `gorm:"column:Start;not null;index:idx_calls_start" json:"start"`
	Stop            int64   `gorm:"column:Stop;not null" json:"stop"`
	TalkerAlias     *string `gorm:"column:TalkerAlias;size:255" json:"talker_alias,omitempty"`
	Duration        int64   `gorm:"column:Duration;not null" json:"duration"`
	CreatedAt       int64   `gorm:"column:CreatedAt;not null" json:"created_at"`
}

func (CallRecord) TableName() string {
	return "calls"
}

// CallRecordFilter represents filter criteria for call record queries
type CallRecordFilter struct {
	ID            *uint
	SourceID      *int64
	SourceCall    *string
	DestinationID *int64
	StartAfter    *int64
	StartBefore   *int64
}

// CallStatsFilter is the validated filter set for aggregation queries.
// It is built once at the HTTP boundary and passed immutably down to the
// repository; zero/nil fields mean "filter not applied".
type CallStatsFilter struct {
	// Since is the absolute lower bound on Start (unix seconds).
	Since int64
	// Continent restricts destinations to talkgroups of this continent.
	Continent *string
	// Country further restricts within the continent (two-letter code).
	Country *string
	// TalkgroupID restricts to a single destination talkgroup.
	TalkgroupID *int64
	// CallsignLike is a SQL LIKE pattern matched against SourceCall.
	CallsignLike *string
	// Limit caps the number of returned groups.
	Limit int
}

// TalkgroupActivity is one aggregation row when grouping by talkgroup.
type TalkgroupActivity struct {
	DestinationID   int64  `gorm:"column:destination_id" json:"destinationId"`
	DestinationName string `gorm:"column:destination_name" json:"destinationName"`
	Count           int64  `gorm:"column:count" json:"count"`
	TotalDuration   int64  `gorm:"column:total_duration" json:"totalDuration"`
}

// CallsignActivity is one aggregation row when grouping by source callsign.
type CallsignActivity struct {
	Callsign      string `gorm:"column:callsign" json:"callsign"`
	Name          string `gorm:"column:name" json:"name"`
	Count         int64  `gorm:"column:count" json:"count"`
	TotalDuration int64  `gorm:"column:total_duration" json:"totalDuration"`
}
