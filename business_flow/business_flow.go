// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:              user.ID,
		UUID:            user.UUID.String(),
		Callsign:        user.Callsign,
		Name:            user.Name,
		Email:           user.Email,
		Language:        user.Language,
		IsEmailVerified: user.IsEmailVerified,
		IsActive:        user.IsActive,
		IsAdmin:         user.IsAdmin,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
	}
}

// ToSessionDTO converts a session model to SessionDTO for authentication responses
func ToSessionDTO(session models.UserSession) dto.SessionDTO {
	var refresh string
	if session.RefreshToken != nil {
		refresh = *session.RefreshToken
	}
	return dto.SessionDTO{
		AccessToken:  session.SessionToken,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToTalkgroupDTO converts a talkgroup directory entry to TalkgroupDTO
func ToTalkgroupDTO(tg models.Talkgroup) dto.TalkgroupDTO {
	return dto.TalkgroupDTO{
		TalkgroupID: tg.TalkgroupID,
		Name:        tg.Name,
		CountryCode: tg.CountryCode,
		CountryName: tg.CountryName,
		Continent:   tg.Continent,
		UpdatedAt:   tg.UpdatedAt.Format(time.RFC3339),
	}
}

// ToAPIKeyDTO converts an API key model to its masked DTO form
func ToAPIKeyDTO(key models.APIKey) dto.APIKeyDTO {
	d := dto.APIKeyDTO{
		ID:        key.ID,
		MaskedKey: maskAPIKey(key.Key.String()),
		Label:     key.Label,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt.Format(time.RFC3339),
	}
	if key.LastUsedAt != nil {
		s := key.LastUsedAt.Format(time.RFC3339)
		d.LastUsedAt = &s
	}
	if key.RevokedAt != nil {
		s := key.RevokedAt.Format(time.RFC3339)
		d.RevokedAt = &s
	}
	return d
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
