// Package businessflow contains the core business logic and use cases for the statistics service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email is not verified")

	// Verification token errors
	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token has expired")
	ErrVerificationTokenUsed     = errors.New("verification token has already been used")
	ErrAlreadyVerified           = errors.New("already verified")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")

	// API key errors
	ErrAPIKeyNotFound     = errors.New("API key not found")
	ErrAPIKeyRevoked      = errors.New("API key has been revoked")
	ErrAPIKeyAccessDenied = errors.New("API key access denied")

	// Talkgroup directory errors
	ErrTalkgroupNotFound = errors.New("talkgroup not found")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsEmailNotVerified(err error) bool {
	return errors.Is(err, ErrEmailNotVerified)
}

func IsVerificationTokenNotFound(err error) bool {
	return errors.Is(err, ErrVerificationTokenNotFound)
}

func IsVerificationTokenExpired(err error) bool {
	return errors.Is(err, ErrVerificationTokenExpired)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsAPIKeyNotFound(err error) bool {
	return errors.Is(err, ErrAPIKeyNotFound)
}

func IsAPIKeyAccessDenied(err error) bool {
	return errors.Is(err, ErrAPIKeyAccessDenied)
}

func IsTalkgroupNotFound(err error) bool {
	return errors.Is(err, ErrTalkgroupNotFound)
}
