// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SignupRequest represents the signup form data
type SignupRequest struct {
	Callsign        string `json:"callsign" validate:"required,min=3,max=16,callsign_format"`
	Name            string `json:"name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Language        string `json:"language,omitempty" validate:"omitempty,oneof=en es de fr it nl pt"`
}

// SignupResponse represents the response after successful signup initiation
type SignupResponse struct {
	Message          string `json:"message"`
	UserID           uint   `json:"user_id"`
	VerificationSent bool   `json:"verification_sent"`
	EmailTarget      string `json:"email_target"` // Email address (masked for security)
}

// VerifyEmailRequest represents the email verification request
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

// VerifyEmailResponse represents the response after successful email verification
type VerifyEmailResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"ea7klk@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message string     `json:"message"`
	User    UserDTO    `json:"user"`
	Session SessionDTO `json:"session"`
}

// UserDTO represents user data for API responses
type UserDTO struct {
	ID              uint   `json:"id"`
	UUID            string `json:"uuid"`
	Callsign        string `json:"callsign"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Language        string `json:"language"`
	IsEmailVerified *bool  `json:"is_email_verified"`
	IsActive        *bool  `json:"is_active"`
	IsAdmin         *bool  `json:"is_admin"`
	CreatedAt       string `json:"created_at"`
}

// SessionDTO represents the token pair issued on login or refresh
type SessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	CreatedAt    string `json:"created_at"`
}

// RefreshTokenRequest represents the request to rotate a session
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse represents the response with the new token pair
type RefreshTokenResponse struct {
	Message string     `json:"message"`
	Session SessionDTO `json:"session"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ForgotPasswordResponse represents the response after requesting password reset
type ForgotPasswordResponse struct {
	Message     string `json:"message"`
	EmailTarget string `json:"email_target"`
	ExpiresIn   int    `json:"expires_in"`
}

// ResetPasswordRequest represents the request to reset password with a token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,len=64,hexadecimal"`
	NewPassword     string `json:"new_password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordResponse represents the response after a successful password reset
type ResetPasswordResponse struct {
	Message string `json:"message"`
}

// ChangePasswordRequest represents the request to change the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangeEmailRequest represents the request to change the account email
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" validate:"required,email,max=255"`
}

// ChangeEmailResponse represents the response after requesting an email change
type ChangeEmailResponse struct {
	Message     string `json:"message"`
	EmailTarget string `json:"email_target"`
}

// ConfirmEmailChangeRequest represents the request to confirm an email change
type ConfirmEmailChangeRequest struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
}

// UpdateProfileRequest represents profile fields the user may edit
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Language *string `json:"language,omitempty" validate:"omitempty,oneof=en es de fr it nl pt"`
}

// ProfileResponse represents the current user's profile
type ProfileResponse struct {
	User UserDTO `json:"user"`
}

// LogoutResponse represents the response after logout
type LogoutResponse struct {
	Message  string    `json:"message"`
	LoggedAt time.Time `json:"logged_at"`
}
