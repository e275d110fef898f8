// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ea7klk/bm-stats/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TalkgroupRepositoryImpl implements TalkgroupRepository interface
type TalkgroupRepositoryImpl struct {
	*BaseRepository[models.Talkgroup, models.TalkgroupFilter]
}

// NewTalkgroupRepository creates a new talkgroup directory repository
func NewTalkgroupRepository(db *gorm.DB) TalkgroupRepository {
	return &TalkgroupRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Talkgroup, models.TalkgroupFilter](db),
	}
}

// ByTalkgroupID retrieves one directory entry by its talkgroup id
func (r *TalkgroupRepositoryImpl) ByTalkgroupID(ctx context.Context, talkgroupID int64) (*models.Talkgroup, error) {
	db := r.getDB(ctx)

	var tg models.Talkgroup
	err := db.Where("talkgroup_id = ?", talkgroupID).First(&tg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find talkgroup %d: %w", talkgroupID, err)
	}

	return &tg, nil
}

// UpsertBatch inserts or updates directory entries keyed by talkgroup_id.
// Re-running with identical input leaves row count and content unchanged.
func (r *TalkgroupRepositoryImpl) UpsertBatch(ctx context.Context, entries []*models.Talkgroup) error {
	if len(entries) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "talkgroup_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "country_code", "country_name", "continent", "updated_at"}),
	}).CreateInBatches(entries, 500).Error
	if err != nil {
		return fmt.Errorf("failed to upsert talkgroups: %w", err)
	}

	return nil
}

// ListContinents returns the distinct continents present in the directory
func (r *TalkgroupRepositoryImpl) ListContinents(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)

	var continents []string
	err := db.Model(&models.Talkgroup{}).
		Distinct("continent").
		Where("continent IS NOT NULL").
		Order("continent ASC").
		Pluck("continent", &continents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list continents: %w", err)
	}

	return continents, nil
}

// ListCountries returns one representative row per country on a continent
func (r *TalkgroupRepositoryImpl) ListCountries(ctx context.Context, continent string) ([]models.Talkgroup, error) {
	db := r.getDB(ctx)

	var rows []models.Talkgroup
	err := db.Model(&models.Talkgroup{}).
		Select("DISTINCT ON (country_code) *").
		Where("continent = ?", continent).
		Order("country_code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list countries for continent %s: %w", continent, err)
	}

	return rows, nil
}

// ByFilter retrieves directory entries matching the filter criteria
func (r *TalkgroupRepositoryImpl) ByFilter(ctx context.Context, filter models.TalkgroupFilter, orderBy string, limit, offset int) ([]*models.Talkgroup, error) {
	db := r.getDB(ctx)

	var entries []*models.Talkgroup
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

	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of directory entries matching the filter
func (r *TalkgroupRepositoryImpl) Count(ctx context.Context, filter models.TalkgroupFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Talkgroup{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any directory entry matching the filter exists
func (r *TalkgroupRepositoryImpl) Exists(ctx context.Context, filter models.TalkgroupFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TalkgroupRepositoryImpl) applyFilter(db *gorm.DB, filter models.TalkgroupFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TalkgroupID != nil {
		db = db.Where("talkgroup_id = ?", *filter.TalkgroupID)
	}
	if filter.CountryCode != nil {
		db = db.Where("country_code = ?", *filter.CountryCode)
	}
	if filter.Continent != nil {
		db = db.Where("continent = ?", *filter.Continent)
	}
	if filter.NameLike != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.NameLike+"%")
	}
	return db
}
