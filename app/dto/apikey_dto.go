// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateAPIKeyRequest represents the request to mint a new API key
type CreateAPIKeyRequest struct {
	Label string `json:"label" validate:"required,min=1,max=64"`
}

// APIKeyDTO represents an API key for API responses.
// Key is only populated on creation; listings return the masked form.
type APIKeyDTO struct {
	ID         uint    `json:"id"`
	Key        string  `json:"key,omitempty"`
	MaskedKey  string  `json:"masked_key,omitempty"`
	Label      string  `json:"label"`
	IsActive   *bool   `json:"is_active"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
	RevokedAt  *string `json:"revoked_at,omitempty"`
}

// CreateAPIKeyResponse represents the response after creating an API key
type CreateAPIKeyResponse struct {
	Message string    `json:"message"`
	APIKey  APIKeyDTO `json:"api_key"`
}

// ListAPIKeysResponse represents the user's API keys
type ListAPIKeysResponse struct {
	APIKeys []APIKeyDTO `json:"api_keys"`
}

// RevokeAPIKeyResponse represents the response after revoking an API key
type RevokeAPIKeyResponse struct {
	Message string `json:"message"`
}
