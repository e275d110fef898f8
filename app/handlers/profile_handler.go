// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/middleware"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ProfileHandlerInterface defines the contract for profile handlers
type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	ChangePassword(c fiber.Ctx) error
	RequestEmailChange(c fiber.Ctx) error
	ConfirmEmailChange(c fiber.Ctx) error
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	flow      businessflow.ProfileFlow
	validator *validator.Validate
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(flow businessflow.ProfileFlow) *ProfileHandler {
	return &ProfileHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

func (h *ProfileHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProfileHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetProfile returns the current user's profile
// @Summary Get Profile
// @Description Return the authenticated user's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile"
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	result, err := h.flow.GetProfile(h.createRequestContext(c, "/api/v1/profile"), userID)
	if err != nil {
		log.Println("Get profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get profile", "GET_PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// UpdateProfile applies editable profile fields
// @Summary Update Profile
// @Description Update the authenticated user's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Updated profile"
// @Router /api/v1/profile [put]
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.flow.UpdateProfile(h.createRequestContext(c, "/api/v1/profile"), userID, &req)
	if err != nil {
		log.Println("Update profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", "UPDATE_PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile updated successfully", result)
}

// ChangePassword replaces the password after verifying the current one
// @Summary Change Password
// @Description Change the authenticated user's password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.APIResponse "Password changed"
// @Failure 401 {object} dto.APIResponse "Incorrect current password"
// @Router /api/v1/profile/password [put]
func (h *ProfileHandler) ChangePassword(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ChangePasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	if err := h.flow.ChangePassword(h.createRequestContext(c, "/api/v1/profile/password"), userID, &req); err != nil {
		if businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect current password", "INCORRECT_PASSWORD", nil)
		}

		log.Println("Change password failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to change password", "CHANGE_PASSWORD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Password changed successfully", nil)
}

// RequestEmailChange mails a confirmation token to the new address
// @Summary Request Email Change
// @Description Start changing the account email address
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangeEmailRequest true "New email address"
// @Success 200 {object} dto.APIResponse{data=dto.ChangeEmailResponse} "Confirmation mail sent"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /api/v1/profile/email [put]
func (h *ProfileHandler) RequestEmailChange(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ChangeEmailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.flow.RequestEmailChange(h.createRequestContext(c, "/api/v1/profile/email"), userID, &req)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}

		log.Println("Request email change failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to request email change", "CHANGE_EMAIL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ConfirmEmailChange consumes the token and switches the email
// @Summary Confirm Email Change
// @Description Confirm the new email address with the mailed token
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body dto.ConfirmEmailChangeRequest true "Confirmation token"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Email changed"
// @Failure 400 {object} dto.APIResponse "Invalid or expired token"
// @Router /api/v1/profile/email/confirm [post]
func (h *ProfileHandler) ConfirmEmailChange(c fiber.Ctx) error {
	var req dto.ConfirmEmailChangeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.flow.ConfirmEmailChange(h.createRequestContext(c, "/api/v1/profile/email/confirm"), &req)
	if err != nil {
		if businessflow.IsVerificationTokenNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Verification token not found", "TOKEN_NOT_FOUND", nil)
		}
		if businessflow.IsVerificationTokenExpired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Verification token expired", "TOKEN_EXPIRED", nil)
		}

		log.Println("Confirm email change failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to confirm email change", "CONFIRM_EMAIL_CHANGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Email changed successfully", result)
}

func (h *ProfileHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
