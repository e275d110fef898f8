// Package businessflow contains the core business logic and use cases for account management
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/services"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
	"gorm.io/gorm"
)

// ProfileFlow handles profile and account management
type ProfileFlow interface {
	GetProfile(ctx context.Context, userID uint) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error
	RequestEmailChange(ctx context.Context, userID uint, req *dto.ChangeEmailRequest) (*dto.ChangeEmailResponse, error)
	ConfirmEmailChange(ctx context.Context, req *dto.ConfirmEmailChangeRequest) (*dto.ProfileResponse, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.UserSessionRepository
	tokenRepo       repository.VerificationTokenRepository
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	tokenRepo repository.VerificationTokenRepository,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) ProfileFlow {
	return &ProfileFlowImpl{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		tokenRepo:       tokenRepo,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// GetProfile returns the current user's profile
func (p *ProfileFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.ProfileResponse, error) {
	user, err := p.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Get profile failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	return &dto.ProfileResponse{User: ToUserDTO(*user)}, nil
}

// UpdateProfile applies the editable profile fields
func (p *ProfileFlowImpl) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := p.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Update profile failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	user.UpdatedAt = utils.UTCNow()

	if err := p.userRepo.Save(ctx, user); err != nil {
		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Update profile failed", err)
	}

	return &dto.ProfileResponse{User: ToUserDTO(*user)}, nil
}

// ChangePassword verifies the current password and replaces it
func (p *ProfileFlowImpl) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest) error {
	user, err := p.userRepo.ByID(ctx, userID)
	if err != nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", err)
	}
	if user == nil {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", err)
	}

	return repository.WithTransaction(ctx, p.db, func(txCtx context.Context) error {
		return p.userRepo.UpdatePassword(txCtx, userID, string(passwordHash))
	})
}

// RequestEmailChange mails a confirmation token to the new address
func (p *ProfileFlowImpl) RequestEmailChange(ctx context.Context, userID uint, req *dto.ChangeEmailRequest) (*dto.ChangeEmailResponse, error) {
	user, err := p.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("CHANGE_EMAIL_FAILED", "Change email failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	newEmail := strings.ToLower(strings.TrimSpace(req.NewEmail))
	existing, err := p.userRepo.ByEmail(ctx, newEmail)
	if err != nil {
		return nil, NewBusinessError("CHANGE_EMAIL_FAILED", "Change email failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	rawToken, err := GenerateVerificationToken()
	if err != nil {
		return nil, NewBusinessError("CHANGE_EMAIL_FAILED", "Change email failed", err)
	}

	token := &models.VerificationToken{
		UserID:    userID,
		Token:     rawToken,
		Purpose:   models.TokenPurposeEmailChange,
		NewEmail:  &newEmail,
		ExpiresAt: utils.UTCNow().Add(utils.VerificationTokenTTL),
	}
	if err := p.tokenRepo.Save(ctx, token); err != nil {
		return nil, NewBusinessError("CHANGE_EMAIL_FAILED", "Change email failed", err)
	}

	go func() {
		subject := "Confirm your new email address"
		message := fmt.Sprintf(
			"Hello %s,\n\nUse the following token to confirm your new email address: %s\n\nThe token expires in %s.",
			user.Callsign, rawToken, utils.VerificationTokenTTL,
		)
		_ = p.notificationSvc.SendEmail(newEmail, subject, message)
	}()

	return &dto.ChangeEmailResponse{
		Message:     "Confirmation mail sent to the new address.",
		EmailTarget: maskEmail(newEmail),
	}, nil
}

// ConfirmEmailChange consumes the token and switches the account email
func (p *ProfileFlowImpl) ConfirmEmailChange(ctx context.Context, req *dto.ConfirmEmailChangeRequest) (*dto.ProfileResponse, error) {
	token, err := p.tokenRepo.ByToken(ctx, req.Token)
	if err != nil {
		return nil, NewBusinessError("CONFIRM_EMAIL_CHANGE_FAILED", "Confirm email change failed", err)
	}
	if token == nil || token.Purpose != models.TokenPurposeEmailChange || token.NewEmail == nil {
		return nil, NewBusinessError("TOKEN_NOT_FOUND", "Verification token not found", ErrVerificationTokenNotFound)
	}
	if !token.IsUsable() {
		return nil, NewBusinessError("TOKEN_EXPIRED", "Verification token has expired", ErrVerificationTokenExpired)
	}

	var user *models.User
	err = repository.WithTransaction(ctx, p.db, func(txCtx context.Context) error {
		var err error
		user, err = p.userRepo.ByID(txCtx, token.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if err := p.userRepo.UpdateEmail(txCtx, user.ID, *token.NewEmail); err != nil {
			return err
		}
		user.Email = *token.NewEmail

		if err := p.tokenRepo.MarkUsed(txCtx, token.ID, utils.UTCNow()); err != nil {
			return err
		}
		// Open sessions were bound to the old identity
		return p.sessionRepo.ExpireAllUserSessions(txCtx, user.ID)
	})
	if err != nil {
		return nil, NewBusinessError("CONFIRM_EMAIL_CHANGE_FAILED", "Confirm email change failed", err)
	}

	return &dto.ProfileResponse{User: ToUserDTO(*user)}, nil
}
