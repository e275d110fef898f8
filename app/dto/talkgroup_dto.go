// Package dto contains Data Transfer Objects for API request and response structures
package dto

// TalkgroupDTO represents a talkgroup directory entry for API responses
type TalkgroupDTO struct {
	TalkgroupID int64   `json:"talkgroup_id"`
	Name        string  `json:"name"`
	CountryCode string  `json:"country_code"`
	CountryName string  `json:"country_name"`
	Continent   *string `json:"continent,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
}

// ListTalkgroupsRequest carries the directory listing filters
type ListTalkgroupsRequest struct {
	Continent string `query:"continent" json:"continent,omitempty" validate:"omitempty,max=32"`
	Country   string `query:"country" json:"country,omitempty" validate:"omitempty,max=8"`
	Search    string `query:"search" json:"search,omitempty" validate:"omitempty,max=64"`
}

// ListTalkgroupsResponse represents the directory listing
type ListTalkgroupsResponse struct {
	Talkgroups []TalkgroupDTO `json:"talkgroups"`
	Total      int64          `json:"total"`
}
