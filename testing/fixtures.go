// Package testing provides test utilities and database setup for testing the statistics system
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a verified, active user with a random callsign
// and email. The password is always "TestPass123".
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(900000) + 100000
	now := utils.UTCNow()

	user := &models.User{
		UUID:            uuid.New(),
		Callsign:        fmt.Sprintf("EA7T%d", suffix%100),
		Name:            "Test Operator",
		Email:           fmt.Sprintf("operator.%d@example.com", suffix),
		PasswordHash:    string(hashedPassword),
		Language:        "en",
		IsEmailVerified: utils.ToPtr(true),
		IsActive:        utils.ToPtr(true),
		IsAdmin:         utils.ToPtr(false),
		EmailVerifiedAt: &now,
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateUnverifiedTestUser creates a user whose email is not yet verified.
func (tf *TestFixtures) CreateUnverifiedTestUser() (*models.User, error) {
	user, err := tf.CreateTestUser()
	if err != nil {
		return nil, err
	}
	user.IsEmailVerified = utils.ToPtr(false)
	user.EmailVerifiedAt = nil
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to mark test user unverified: %w", err)
	}
	return user, nil
}

// CreateTestSession creates an active session for the given user.
func (tf *TestFixtures) CreateTestSession(userID uint) (*models.UserSession, error) {
	refresh := fmt.Sprintf("refresh-%s", uuid.New().String())
	session := &models.UserSession{
		UserID:       userID,
		SessionToken: fmt.Sprintf("session-%s", uuid.New().String()),
		RefreshToken: &refresh,
		IsActive:     utils.ToPtr(true),
		ExpiresAt:    utils.UTCNow().Add(utils.SessionTimeout),
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}
	return session, nil
}

// CreateTestVerificationToken creates a usable token for the given purpose.
func (tf *TestFixtures) CreateTestVerificationToken(userID uint, purpose string) (*models.VerificationToken, error) {
	token := &models.VerificationToken{
		UserID:    userID,
		Token:     fmt.Sprintf("%032x%032x", rand.Uint64(), rand.Uint64()),
		Purpose:   purpose,
		ExpiresAt: utils.UTCNow().Add(utils.VerificationTokenTTL),
	}

	if err := tf.DB.DB.Create(token).Error; err != nil {
		return nil, fmt.Errorf("failed to create test verification token: %w", err)
	}
	return token, nil
}

// CreateExpiredVerificationToken creates a token that expired an hour ago.
func (tf *TestFixtures) CreateExpiredVerificationToken(userID uint, purpose string) (*models.VerificationToken, error) {
	token, err := tf.CreateTestVerificationToken(userID, purpose)
	if err != nil {
		return nil, err
	}
	token.ExpiresAt = utils.UTCNow().Add(-1 * time.Hour)
	if err := tf.DB.DB.Save(token).Error; err != nil {
		return nil, fmt.Errorf("failed to expire test verification token: %w", err)
	}
	return token, nil
}

// CreateTestAPIKey creates an active API key owned by the given user.
func (tf *TestFixtures) CreateTestAPIKey(userID uint, label string) (*models.APIKey, error) {
	key := &models.APIKey{
		UserID:   userID,
		Key:      uuid.New(),
		Label:    label,
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(key).Error; err != nil {
		return nil, fmt.Errorf("failed to create test API key: %w", err)
	}
	return key, nil
}

// CreateTestTalkgroup inserts one directory entry.
func (tf *TestFixtures) CreateTestTalkgroup(talkgroupID int64, name, countryCode, countryName, continent string) (*models.Talkgroup, error) {
	tg := &models.Talkgroup{
		TalkgroupID: talkgroupID,
		Name:        name,
		CountryCode: countryCode,
		CountryName: countryName,
	}
	if continent != "" {
		tg.Continent = &continent
	}

	if err := tf.DB.DB.Create(tg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test talkgroup: %w", err)
	}
	return tg, nil
}

// CreateTestCall inserts one completed call that started secondsAgo seconds
// in the past and lasted the given duration.
func (tf *TestFixtures) CreateTestCall(sourceCall string, destinationID int64, destinationName string, secondsAgo, duration int64) (*models.CallRecord, error) {
	now := utils.UTCNow().Unix()
	start := now - secondsAgo
	name := "Test Operator"

	call := &models.CallRecord{
		SourceID:        2070000 + rand.Int63n(1000),
		SourceCall:      sourceCall,
		SourceName:      &name,
		DestinationID:   destinationID,
		DestinationName: destinationName,
		Start:           start,
		Stop:            start + duration,
		Duration:        duration,
		CreatedAt:       now,
	}

	if err := tf.DB.DB.Create(call).Error; err != nil {
		return nil, fmt.Errorf("failed to create test call: %w", err)
	}
	return call, nil
}
