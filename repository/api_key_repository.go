// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKeyRepositoryImpl implements APIKeyRepository interface
type APIKeyRepositoryImpl struct {
	*BaseRepository[models.APIKey, models.APIKeyFilter]
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &APIKeyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.APIKey, models.APIKeyFilter](db),
	}
}

// ByKey retrieves an active API key by its key material
func (r *APIKeyRepositoryImpl) ByKey(ctx context.Context, key uuid.UUID) (*models.APIKey, error) {
	db := r.getDB(ctx)

	var apiKey models.APIKey
	err := db.Where("key = ? AND is_active = ?", key, true).
		Preload("User").
		First(&apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find API key: %w", err)
	}

	return &apiKey, nil
}

// ListByUser retrieves all API keys belonging to a user
func (r *APIKeyRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.APIKey, error) {
	filter := models.APIKeyFilter{UserID: &userID}
	return r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
}

// Revoke deactivates an API key owned by the given user
func (r *APIKeyRepositoryImpl) Revoke(ctx context.Context, id uint, userID uint) error {
	db := r.getDB(ctx)

	res := db.Model(&models.APIKey{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke API key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// TouchLastUsed records the time the key last authenticated a request
func (r *APIKeyRepositoryImpl) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)

	return db.Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// ByFilter retrieves API keys matching the filter criteria
func (r *APIKeyRepositoryImpl) ByFilter(ctx context.Context, filter models.APIKeyFilter, orderBy string, limit, offset int) ([]*models.APIKey, error) {
	db := r.getDB(ctx)

	var keys []*models.APIKey
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&keys).Error
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Count returns the number of API keys matching the filter
func (r *APIKeyRepositoryImpl) Count(ctx context.Context, filter models.APIKeyFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.APIKey{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any API key matching the filter exists
func (r *APIKeyRepositoryImpl) Exists(ctx context.Context, filter models.APIKeyFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *APIKeyRepositoryImpl) applyFilter(db *gorm.DB, filter models.APIKeyFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Key != nil {
		db = db.Where("key = ?", *filter.Key)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	return db
}
