// Package dto contains Data Transfer Objects for API request and response structures
package dto

// StatsQueryRequest carries the aggregation query parameters.
// All fields arrive as query string values and are coerced by the flow layer.
type StatsQueryRequest struct {
	// Unknown window tokens coerce to the default window rather than failing
	TimeRange string `query:"timeRange" json:"timeRange,omitempty" validate:"omitempty,max=8"`
	Continent string `query:"continent" json:"continent,omitempty" validate:"omitempty,max=32"`
	Country   string `query:"country" json:"country,omitempty" validate:"omitempty,max=8"`
	// Talkgroup and Limit are coerced, not validated: values that fail to
	// parse leave the filter unset so public dashboards never see a 400
	Talkgroup string `query:"talkgroup" json:"talkgroup,omitempty" validate:"omitempty,max=16"`
	Callsign  string `query:"callsign" json:"callsign,omitempty" validate:"omitempty,max=32"`
	Limit     string `query:"limit" json:"limit,omitempty" validate:"omitempty,max=16"`
}

// TalkgroupStatsEntry is one row of the per-talkgroup aggregation
type TalkgroupStatsEntry struct {
	DestinationID   int64  `json:"destinationId"`
	DestinationName string `json:"destinationName"`
	Count           int64  `json:"count"`
	TotalDuration   int64  `json:"totalDuration"`
}

// CallsignStatsEntry is one row of the per-callsign aggregation
type CallsignStatsEntry struct {
	Callsign      string `json:"callsign"`
	Name          string `json:"name"`
	Count         int64  `json:"count"`
	TotalDuration int64  `json:"totalDuration"`
}

// CountryOption is a selectable country in the filter dropdowns
type CountryOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// StatsFiltersResponse lists the filter values the directory currently knows
type StatsFiltersResponse struct {
	TimeRanges []string        `json:"timeRanges"`
	Continents []string        `json:"continents"`
	Countries  []CountryOption `json:"countries"`
}

// IngestStatusResponse reports the state of the event-feed pipeline
type IngestStatusResponse struct {
	Connected      bool   `json:"connected"`
	InsertedTotal  uint64 `json:"inserted_total"`
	RetainedCalls  int64  `json:"retained_calls"`
	TalkgroupCount int64  `json:"talkgroup_count"`
}
