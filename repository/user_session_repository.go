// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession, models.UserSessionFilter]
}

// NewUserSessionRepository creates a new user session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession, models.UserSessionFilter](db),
	}
}

// BySessionToken retrieves an active, unexpired session by session token
func (r *UserSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)

	var session models.UserSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("User").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves an active, unexpired session by refresh token
func (r *UserSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)

	var session models.UserSession
	err := db.Where("refresh_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("User").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ExpireSession deactivates a single session
func (r *UserSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.UserSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"is_active":  false,
			"expires_at": utils.UTCNow(),
		}).Error
}

// ExpireAllUserSessions deactivates all active sessions of a user
func (r *UserSessionRepositoryImpl) ExpireAllUserSessions(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active":  false,
			"expires_at": utils.UTCNow(),
		}).Error
}

// DeleteExpired removes sessions whose expiry has passed. Used by the
// maintenance scheduler to keep the table bounded.
func (r *UserSessionRepositoryImpl) DeleteExpired(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	res := db.Where("expires_at <= ?", time.Now()).Delete(&models.UserSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves sessions matching the filter criteria
func (r *UserSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.UserSessionFilter, orderBy string, limit, offset int) ([]*models.UserSession, error) {
	db := r.getDB(ctx)

	var sessions []*models.UserSession
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

	err := query.Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *UserSessionRepositoryImpl) Count(ctx context.Context, filter models.UserSessionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.UserSession{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *UserSessionRepositoryImpl) Exists(ctx context.Context, filter models.UserSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UserSessionRepositoryImpl) applyFilter(db *gorm.DB, filter models.UserSessionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IPAddress != nil {
		db = db.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		db = db.Where("expires_at >= ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	return db
}
