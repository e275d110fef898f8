// Package businessflow contains the core business logic for API key management
package businessflow

import (
	"context"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/google/uuid"
)

// APIKeyFlow handles minting, listing and revoking API keys
type APIKeyFlow interface {
	CreateAPIKey(ctx context.Context, userID uint, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error)
	ListAPIKeys(ctx context.Context, userID uint) (*dto.ListAPIKeysResponse, error)
	RevokeAPIKey(ctx context.Context, userID uint, keyID uint) (*dto.RevokeAPIKeyResponse, error)
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// APIKeyFlowImpl implements the API key business flow
type APIKeyFlowImpl struct {
	apiKeyRepo repository.APIKeyRepository
	userRepo   repository.UserRepository
}

// NewAPIKeyFlow creates a new API key flow instance
func NewAPIKeyFlow(apiKeyRepo repository.APIKeyRepository, userRepo repository.UserRepository) APIKeyFlow {
	return &APIKeyFlowImpl{
		apiKeyRepo: apiKeyRepo,
		userRepo:   userRepo,
	}
}

// CreateAPIKey mints a new key for the user. The key material is only
// returned here; listings show the masked form.
func (a *APIKeyFlowImpl) CreateAPIKey(ctx context.Context, userID uint, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	user, err := a.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("CREATE_API_KEY_FAILED", "Create API key failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	key := &models.APIKey{
		UserID:   userID,
		Key:      uuid.New(),
		Label:    req.Label,
		IsActive: utils.ToPtr(true),
	}
	if err := a.apiKeyRepo.Save(ctx, key); err != nil {
		return nil, NewBusinessError("CREATE_API_KEY_FAILED", "Create API key failed", err)
	}

	d := ToAPIKeyDTO(*key)
	d.Key = key.Key.String()

	return &dto.CreateAPIKeyResponse{
		Message: "API key created. Store it now; it will not be shown again.",
		APIKey:  d,
	}, nil
}

// ListAPIKeys returns the user's keys in masked form
func (a *APIKeyFlowImpl) ListAPIKeys(ctx context.Context, userID uint) (*dto.ListAPIKeysResponse, error) {
	keys, err := a.apiKeyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("LIST_API_KEYS_FAILED", "List API keys failed", err)
	}

	resp := &dto.ListAPIKeysResponse{APIKeys: make([]dto.APIKeyDTO, 0, len(keys))}
	for _, key := range keys {
		resp.APIKeys = append(resp.APIKeys, ToAPIKeyDTO(*key))
	}

	return resp, nil
}

// RevokeAPIKey deactivates a key owned by the user
func (a *APIKeyFlowImpl) RevokeAPIKey(ctx context.Context, userID uint, keyID uint) (*dto.RevokeAPIKeyResponse, error) {
	key, err := a.apiKeyRepo.ByID(ctx, keyID)
	if err != nil {
		return nil, NewBusinessError("REVOKE_API_KEY_FAILED", "Revoke API key failed", err)
	}
	if key == nil {
		return nil, NewBusinessError("API_KEY_NOT_FOUND", "API key not found", ErrAPIKeyNotFound)
	}
	if key.UserID != userID {
		return nil, NewBusinessError("API_KEY_ACCESS_DENIED", "API key access denied", ErrAPIKeyAccessDenied)
	}
	if key.RevokedAt != nil {
		return nil, NewBusinessError("API_KEY_REVOKED", "API key has been revoked", ErrAPIKeyRevoked)
	}

	if err := a.apiKeyRepo.Revoke(ctx, keyID, userID); err != nil {
		return nil, NewBusinessError("REVOKE_API_KEY_FAILED", "Revoke API key failed", err)
	}

	return &dto.RevokeAPIKeyResponse{Message: "API key revoked"}, nil
}

// Authenticate resolves a raw key to its record, touching last-used on
// success. Returns ErrAPIKeyNotFound for unknown or unusable keys.
func (a *APIKeyFlowImpl) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	parsed, err := uuid.Parse(rawKey)
	if err != nil {
		return nil, ErrAPIKeyNotFound
	}

	key, err := a.apiKeyRepo.ByKey(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if key == nil || !key.IsUsable() {
		return nil, ErrAPIKeyNotFound
	}

	_ = a.apiKeyRepo.TouchLastUsed(ctx, key.ID, utils.UTCNow())
	return key, nil
}
