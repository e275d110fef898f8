// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
	"gorm.io/gorm"
)

// CallRecordRepositoryImpl implements CallRecordRepository interface
type CallRecordRepositoryImpl struct {
	*BaseRepository[models.CallRecord, models.CallRecordFilter]
}

// NewCallRecordRepository creates a new call record repository
func NewCallRecordRepository(db *gorm.DB) CallRecordRepository {
	return &CallRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CallRecord, models.CallRecordFilter](db),
	}
}

// ByFilter retrieves call records matching the filter criteria
func (r *CallRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.CallRecordFilter, orderBy string, limit, offset int) ([]*models.CallRecord, error) {
	db := r.getDB(ctx)

	var records []*models.CallRecord
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

	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of call records matching the filter
func (r *CallRecordRepositoryImpl) Count(ctx context.Context, filter models.CallRecordFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CallRecord{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any call record matching the filter exists
func (r *CallRecordRepositoryImpl) Exists(ctx context.Context, filter models.CallRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CallRecordRepositoryImpl) applyFilter(db *gorm.DB, filter models.CallRecordFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.SourceID != nil {
		db = db.Where(`"SourceID" = ?`, *filter.SourceID)
	}
	if filter.SourceCall != nil {
		db = db.Where(`"SourceCall" = ?`, *filter.SourceCall)
	}
	if filter.DestinationID != nil {
		db = db.Where(`"DestinationID" = ?`, *filter.DestinationID)
	}
	if filter.StartAfter != nil {
		db = db.Where(`"Start" >= ?`, *filter.StartAfter)
	}
	if filter.StartBefore != nil {
		db = db.Where(`"Start" < ?`, *filter.StartBefore)
	}
	return db
}

// PruneOlderThan deletes all call records whose Start is strictly before
// the given unix timestamp. Returns the number of deleted rows.
func (r *CallRecordRepositoryImpl) PruneOlderThan(ctx context.Context, startBefore int64) (int64, error) {
	db := r.getDB(ctx)

	res := db.Where(`"Start" < ?`, startBefore).Delete(&models.CallRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune call records: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// applyStatsFilter translates a CallStatsFilter into WHERE conditions.
// The reserved local talkgroup is always excluded here, regardless of the
// ingest-side filtering, so legacy rows can never surface in statistics.
func (r *CallRecordRepositoryImpl) applyStatsFilter(db *gorm.DB, filter models.CallStatsFilter) *gorm.DB {
	db = db.Where(`"Start" >= ?`, filter.Since).
		Where(`"DestinationID" <> ?`, utils.LocalTalkgroupID)

	if filter.TalkgroupID != nil {
		db = db.Where(`"DestinationID" = ?`, *filter.TalkgroupID)
	}
	if filter.CallsignLike != nil {
		db = db.Where(`"SourceCall" LIKE ?`, *filter.CallsignLike)
	}
	if filter.Continent != nil {
		sub := r.DB.Model(&models.Talkgroup{}).
			Select("talkgroup_id").
			Where("continent = ?", *filter.Continent)
		if filter.Country != nil {
			sub = sub.Where("country_code = ?", *filter.Country)
		}
		db = db.Where(`"DestinationID" IN (?)`, sub)
	}

	return db
}

// GroupByTalkgroup computes per-talkgroup call counts and summed durations
// for the records matching the filter, ordered by count descending.
func (r *CallRecordRepositoryImpl) GroupByTalkgroup(ctx context.Context, filter models.CallStatsFilter) ([]models.TalkgroupActivity, error) {
	db := r.getDB(ctx)

	query := r.applyStatsFilter(db.Model(&models.CallRecord{}), filter).
		Select(`"DestinationID" AS destination_id, "DestinationName" AS destination_name, COUNT(*) AS count, SUM("Duration") AS total_duration`).
		Group(`"DestinationID", "DestinationName"`).
		Order("count DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	rows := make([]models.TalkgroupActivity, 0)
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group calls by talkgroup: %w", err)
	}

	return rows, nil
}

// GroupByCallsign computes per-callsign call counts and summed durations
// for the records matching the filter, ordered by count descending. The
// display name is an arbitrary-but-consistent one for the callsign.
func (r *CallRecordRepositoryImpl) GroupByCallsign(ctx context.Context, filter models.CallStatsFilter) ([]models.CallsignActivity, error) {
	db := r.getDB(ctx)

	query := r.applyStatsFilter(db.Model(&models.CallRecord{}), filter).
		Select(`"SourceCall" AS callsign, MAX(COALESCE("SourceName", '')) AS name, COUNT(*) AS count, SUM("Duration") AS total_duration`).
		Group(`"SourceCall"`).
		Order("count DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	rows := make([]models.CallsignActivity, 0)
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group calls by callsign: %w", err)
	}

	return rows, nil
}
