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

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByEmail retrieves a user by email address
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return &user, nil
}

// ByUUID retrieves a user by UUID
func (r *UserRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.User, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user UUID: %w", err)
	}

	db := r.getDB(ctx)

	var user models.User
	err = db.Where("uuid = ?", parsed).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by UUID: %w", err)
	}

	return &user, nil
}

// UpdatePassword updates a user's password hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	db := r.getDB(ctx)

	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// UpdateEmailVerified marks a user's email address as verified
func (r *UserRepositoryImpl) UpdateEmailVerified(ctx context.Context, userID uint, verifiedAt time.Time) error {
	db := r.getDB(ctx)

	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_email_verified": true,
			"email_verified_at": verifiedAt,
			"updated_at":        utils.UTCNow(),
		}).Error
}

// UpdateEmail changes a user's email address and resets verification
func (r *UserRepositoryImpl) UpdateEmail(ctx context.Context, userID uint, email string) error {
	db := r.getDB(ctx)

	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"email":             email,
			"is_email_verified": true,
			"email_verified_at": utils.UTCNow(),
			"updated_at":        utils.UTCNow(),
		}).Error
}

// UpdateLastLogin records the time of a successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	db := r.getDB(ctx)

	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
}

// ByFilter retrieves users matching the filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)

	var users []*models.User
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

	err := query.Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// Count returns the number of users matching the filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.User{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any user matching the filter exists
func (r *UserRepositoryImpl) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UserRepositoryImpl) applyFilter(db *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Callsign != nil {
		db = db.Where("callsign = ?", *filter.Callsign)
	}
	if filter.IsEmailVerified != nil {
		db = db.Where("is_email_verified = ?", *filter.IsEmailVerified)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsAdmin != nil {
		db = db.Where("is_admin = ?", *filter.IsAdmin)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
