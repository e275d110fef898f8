// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CallRecordRepository defines operations for persisted call records.
// Records are insert-only; the only mutation is bulk deletion by the
// retention job.
type CallRecordRepository interface {
	Repository[models.CallRecord, models.CallRecordFilter]
	PruneOlderThan(ctx context.Context, startBefore int64) (int64, error)
	GroupByTalkgroup(ctx context.Context, filter models.CallStatsFilter) ([]models.TalkgroupActivity, error)
	GroupByCallsign(ctx context.Context, filter models.CallStatsFilter) ([]models.CallsignActivity, error)
}

// TalkgroupRepository defines operations for the talkgroup directory
type TalkgroupRepository interface {
	Repository[models.Talkgroup, models.TalkgroupFilter]
	ByTalkgroupID(ctx context.Context, talkgroupID int64) (*models.Talkgroup, error)
	UpsertBatch(ctx context.Context, entries []*models.Talkgroup) error
	ListContinents(ctx context.Context) ([]string, error)
	ListCountries(ctx context.Context, continent string) ([]models.Talkgroup, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	UpdateEmailVerified(ctx context.Context, userID uint, verifiedAt time.Time) error
	UpdateEmail(ctx context.Context, userID uint, email string) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllUserSessions(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// APIKeyRepository defines operations for API keys
type APIKeyRepository interface {
	Repository[models.APIKey, models.APIKeyFilter]
	ByKey(ctx context.Context, key uuid.UUID) (*models.APIKey, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.APIKey, error)
	Revoke(ctx context.Context, id uint, userID uint) error
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
}

// VerificationTokenRepository defines operations for verification tokens
type VerificationTokenRepository interface {
	Repository[models.VerificationToken, models.VerificationTokenFilter]
	ByToken(ctx context.Context, token string) (*models.VerificationToken, error)
	MarkUsed(ctx context.Context, id uint, at time.Time) error
	DeleteExpired(ctx context.Context) (int64, error)
}
