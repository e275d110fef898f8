// Package businessflow contains the core business logic and use cases for authentication workflows
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

// LoginFlow handles the complete login business logic
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error)
	Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.UserSessionRepository
	tokenRepo       repository.VerificationTokenRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	tokenRepo repository.VerificationTokenRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		tokenRepo:       tokenRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// Login authenticates a user with email and password
func (l *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := l.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}
	if !utils.IsTrue(user.IsEmailVerified) {
		return nil, NewBusinessError("EMAIL_NOT_VERIFIED", "Email is not verified", ErrEmailNotVerified)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	var session *models.UserSession
	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		var err error
		session, err = l.createSession(txCtx, user.ID, metadata)
		if err != nil {
			return err
		}
		return l.userRepo.UpdateLastLogin(txCtx, user.ID, utils.UTCNow())
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	return &dto.LoginResponse{
		Message: "Login successful",
		User:    ToUserDTO(*user),
		Session: ToSessionDTO(*session),
	}, nil
}

// RefreshToken rotates the session's token pair
func (l *LoginFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.RefreshTokenResponse, error) {
	session, err := l.sessionRepo.ByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}
	if session == nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
	}
	if !session.IsValid() {
		return nil, NewBusinessError("SESSION_EXPIRED", "Session has expired", ErrSessionExpired)
	}

	accessToken, refreshToken, err := l.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		// Expire the old session and create a replacement so the old pair
		// cannot be replayed
		if err := l.sessionRepo.ExpireSession(txCtx, session.ID); err != nil {
			return err
		}

		now := utils.UTCNow()
		session = &models.UserSession{
			UserID:         session.UserID,
			SessionToken:   accessToken,
			RefreshToken:   &refreshToken,
			IPAddress:      clientIP(metadata),
			UserAgent:      clientUserAgent(metadata),
			IsActive:       utils.ToPtr(true),
			CreatedAt:      now,
			LastAccessedAt: now,
			ExpiresAt:      now.Add(utils.SessionTimeout),
		}
		return l.sessionRepo.Save(txCtx, session)
	})
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	return &dto.RefreshTokenResponse{
		Message: "Token refreshed successfully",
		Session: ToSessionDTO(*session),
	}, nil
}

// Logout expires the current session
func (l *LoginFlowImpl) Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	session, err := l.sessionRepo.BySessionToken(ctx, sessionToken)
	if err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if session == nil {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "Session not found", ErrSessionNotFound)
	}

	if err := l.sessionRepo.ExpireSession(ctx, session.ID); err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	_ = l.tokenService.RevokeToken(sessionToken)

	return &dto.LogoutResponse{
		Message:  "Logout successful",
		LoggedAt: utils.UTCNow(),
	}, nil
}

// ForgotPassword mails a password reset token.
// Responds identically whether or not the email exists.
func (l *LoginFlowImpl) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	resp := &dto.ForgotPasswordResponse{
		Message:     "If the address is registered, a password reset link has been sent.",
		EmailTarget: maskEmail(email),
		ExpiresIn:   int(utils.VerificationTokenTTL.Seconds()),
	}

	user, err := l.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Forgot password failed", err)
	}
	if user == nil || !utils.IsTrue(user.IsActive) {
		return resp, nil
	}

	rawToken, err := GenerateVerificationToken()
	if err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Forgot password failed", err)
	}

	token := &models.VerificationToken{
		UserID:    user.ID,
		Token:     rawToken,
		Purpose:   models.TokenPurposePasswordReset,
		ExpiresAt: utils.UTCNow().Add(utils.VerificationTokenTTL),
	}
	if err := l.tokenRepo.Save(ctx, token); err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Forgot password failed", err)
	}

	go func() {
		subject := "Password reset"
		message := fmt.Sprintf(
			"Hello %s,\n\nUse the following token to reset your password: %s\n\nThe token expires in %s. If you did not request a reset, ignore this mail.",
			user.Callsign, rawToken, utils.VerificationTokenTTL,
		)
		_ = l.notificationSvc.SendEmail(user.Email, subject, message)
	}()

	return resp, nil
}

// ResetPassword consumes a reset token, replaces the password and expires all sessions
func (l *LoginFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error) {
	token, err := l.tokenRepo.ByToken(ctx, req.Token)
	if err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}
	if token == nil || token.Purpose != models.TokenPurposePasswordReset {
		return nil, NewBusinessError("TOKEN_NOT_FOUND", "Verification token not found", ErrVerificationTokenNotFound)
	}
	if !token.IsUsable() {
		return nil, NewBusinessError("TOKEN_EXPIRED", "Verification token has expired", ErrVerificationTokenExpired)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}

	err = repository.WithTransaction(ctx, l.db, func(txCtx context.Context) error {
		if err := l.userRepo.UpdatePassword(txCtx, token.UserID, string(passwordHash)); err != nil {
			return err
		}
		if err := l.tokenRepo.MarkUsed(txCtx, token.ID, utils.UTCNow()); err != nil {
			return err
		}
		// Invalidate every open session after a reset
		return l.sessionRepo.ExpireAllUserSessions(txCtx, token.UserID)
	})
	if err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}

	return &dto.ResetPasswordResponse{
		Message: "Password reset successfully. Log in with your new password.",
	}, nil
}

func (l *LoginFlowImpl) createSession(ctx context.Context, userID uint, metadata *ClientMetadata) (*models.UserSession, error) {
	accessToken, refreshToken, err := l.tokenService.GenerateTokens(userID)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	session := &models.UserSession{
		UserID:         userID,
		SessionToken:   accessToken,
		RefreshToken:   &refreshToken,
		IPAddress:      clientIP(metadata),
		UserAgent:      clientUserAgent(metadata),
		IsActive:       utils.ToPtr(true),
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(utils.SessionTimeout),
	}
	if err := l.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func clientIP(metadata *ClientMetadata) *string {
	if metadata == nil || metadata.IPAddress == "" {
		return nil
	}
	return utils.ToPtr(metadata.IPAddress)
}

func clientUserAgent(metadata *ClientMetadata) *string {
	if metadata == nil || metadata.UserAgent == "" {
		return nil
	}
	return utils.ToPtr(metadata.UserAgent)
}
