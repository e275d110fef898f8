// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"gorm.io/gorm"
)

// VerificationTokenRepositoryImpl implements VerificationTokenRepository interface
type VerificationTokenRepositoryImpl struct {
	*BaseRepository[models.VerificationToken, models.VerificationTokenFilter]
}

// NewVerificationTokenRepository creates a new verification token repository
func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &VerificationTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VerificationToken, models.VerificationTokenFilter](db),
	}
}

// ByToken retrieves a verification token by its token string
func (r *VerificationTokenRepositoryImpl) ByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	db := r.getDB(ctx)

	var vt models.VerificationToken
	err := db.Where("token = ?", token).
		Preload("User").
		First(&vt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}

	return &vt, nil
}

// MarkUsed stamps the token as consumed
func (r *VerificationTokenRepositoryImpl) MarkUsed(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)

	return db.Model(&models.VerificationToken{}).
		Where("id = ?", id).
		Update("used_at", at).Error
}

// DeleteExpired removes tokens whose expiry has passed or that were
// already used. Used by the maintenance scheduler.
func (r *VerificationTokenRepositoryImpl) DeleteExpired(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	res := db.Where("expires_at <= ? OR used_at IS NOT NULL", time.Now()).
		Delete(&models.VerificationToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves verification tokens matching the filter criteria
func (r *VerificationTokenRepositoryImpl) ByFilter(ctx context.Context, filter models.VerificationTokenFilter, orderBy string, limit, offset int) ([]*models.VerificationToken, error) {
	db := r.getDB(ctx)

	var tokens []*models.VerificationToken
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

	err := query.Find(&tokens).Error
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

// Count returns the number of tokens matching the filter
func (r *VerificationTokenRepositoryImpl) Count(ctx context.Context, filter models.VerificationTokenFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.VerificationToken{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any token matching the filter exists
func (r *VerificationTokenRepositoryImpl) Exists(ctx context.Context, filter models.VerificationTokenFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *VerificationTokenRepositoryImpl) applyFilter(db *gorm.DB, filter models.VerificationTokenFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Token != nil {
		db = db.Where("token = ?", *filter.Token)
	}
	if filter.Purpose != nil {
		db = db.Where("purpose = ?", *filter.Purpose)
	}
	return db
}
