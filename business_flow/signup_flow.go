// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/services"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignupFlow handles the complete signup business logic
type SignupFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
	VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error)
	ResendVerification(ctx context.Context, email string, metadata *ClientMetadata) (*dto.SignupResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	userRepo        repository.UserRepository
	tokenRepo       repository.VerificationTokenRepository
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	tokenRepo repository.VerificationTokenRepository,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:        userRepo,
		tokenRepo:       tokenRepo,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// Signup creates the user account and mails a verification token
func (s *SignupFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	var user *models.User
	var rawToken string

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		user = &models.User{
			UUID:         uuid.New(),
			Callsign:     strings.ToUpper(strings.TrimSpace(req.Callsign)),
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(passwordHash),
			Language:     language,
			IsActive:     utils.ToPtr(true),
		}
		if err := s.userRepo.Save(txCtx, user); err != nil {
			return err
		}

		rawToken, err = s.createVerificationToken(txCtx, user.ID, models.TokenPurposeEmailVerify, nil)
		return err
	})
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	// Mail outside the transaction so a provider hiccup does not roll back the account
	go s.sendVerificationMail(user, rawToken)

	return &dto.SignupResponse{
		Message:          "Signup successful. Check your mailbox for the verification link.",
		UserID:           user.ID,
		VerificationSent: true,
		EmailTarget:      maskEmail(user.Email),
	}, nil
}

// VerifyEmail consumes a verification token and activates the account's email
func (s *SignupFlowImpl) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error) {
	token, err := s.tokenRepo.ByToken(ctx, req.Token)
	if err != nil {
		return nil, NewBusinessError("EMAIL_VERIFICATION_FAILED", "Email verification failed", err)
	}
	if token == nil || token.Purpose != models.TokenPurposeEmailVerify {
		return nil, NewBusinessError("TOKEN_NOT_FOUND", "Verification token not found", ErrVerificationTokenNotFound)
	}
	if token.UsedAt != nil {
		return nil, NewBusinessError("TOKEN_USED", "Verification token has already been used", ErrVerificationTokenUsed)
	}
	if token.IsExpired() {
		return nil, NewBusinessError("TOKEN_EXPIRED", "Verification token has expired", ErrVerificationTokenExpired)
	}

	var user *models.User
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		user, err = s.userRepo.ByID(txCtx, token.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if utils.IsTrue(user.IsEmailVerified) {
			return ErrAlreadyVerified
		}

		now := utils.UTCNow()
		if err := s.userRepo.UpdateEmailVerified(txCtx, user.ID, now); err != nil {
			return err
		}
		user.IsEmailVerified = utils.ToPtr(true)
		user.EmailVerifiedAt = &now

		return s.tokenRepo.MarkUsed(txCtx, token.ID, now)
	})
	if err != nil {
		return nil, NewBusinessError("EMAIL_VERIFICATION_FAILED", "Email verification failed", err)
	}

	return &dto.VerifyEmailResponse{
		Message: "Email verified successfully. You can now log in.",
		User:    ToUserDTO(*user),
	}, nil
}

// ResendVerification issues a fresh token for an unverified account.
// Responds identically whether or not the email exists.
func (s *SignupFlowImpl) ResendVerification(ctx context.Context, email string, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	resp := &dto.SignupResponse{
		Message:          "If the address is registered and unverified, a new link has been sent.",
		VerificationSent: true,
		EmailTarget:      maskEmail(email),
	}

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("RESEND_VERIFICATION_FAILED", "Resend verification failed", err)
	}
	if user == nil || utils.IsTrue(user.IsEmailVerified) {
		return resp, nil
	}

	rawToken, err := s.createVerificationToken(ctx, user.ID, models.TokenPurposeEmailVerify, nil)
	if err != nil {
		return nil, NewBusinessError("RESEND_VERIFICATION_FAILED", "Resend verification failed", err)
	}

	go s.sendVerificationMail(user, rawToken)

	resp.UserID = user.ID
	return resp, nil
}

func (s *SignupFlowImpl) createVerificationToken(ctx context.Context, userID uint, purpose string, newEmail *string) (string, error) {
	rawToken, err := GenerateVerificationToken()
	if err != nil {
		return "", err
	}

	token := &models.VerificationToken{
		UserID:    userID,
		Token:     rawToken,
		Purpose:   purpose,
		NewEmail:  newEmail,
		ExpiresAt: utils.UTCNow().Add(utils.VerificationTokenTTL),
	}
	if err := s.tokenRepo.Save(ctx, token); err != nil {
		return "", err
	}

	return rawToken, nil
}

func (s *SignupFlowImpl) sendVerificationMail(user *models.User, rawToken string) {
	subject := "Verify your email address"
	message := fmt.Sprintf(
		"Hello %s,\n\nUse the following token to verify your email address: %s\n\nThe token expires in %s.",
		user.Callsign, rawToken, utils.VerificationTokenTTL,
	)
	_ = s.notificationSvc.SendEmail(user.Email, subject, message)
}

// GenerateVerificationToken returns a 64-character hex token
func GenerateVerificationToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "***"
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
