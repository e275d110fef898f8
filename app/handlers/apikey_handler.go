// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/middleware"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// APIKeyHandlerInterface defines the contract for API key handlers
type APIKeyHandlerInterface interface {
	CreateAPIKey(c fiber.Ctx) error
	ListAPIKeys(c fiber.Ctx) error
	RevokeAPIKey(c fiber.Ctx) error
}

// APIKeyHandler handles API key management HTTP requests
type APIKeyHandler struct {
	flow      businessflow.APIKeyFlow
	validator *validator.Validate
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(flow businessflow.APIKeyFlow) *APIKeyHandler {
	return &APIKeyHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

func (h *APIKeyHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *APIKeyHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateAPIKey mints a new API key
// @Summary Create API Key
// @Description Mint a new API key for programmatic access
// @Tags API Keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAPIKeyRequest true "Key label"
// @Success 201 {object} dto.APIResponse{data=dto.CreateAPIKeyResponse} "Key created"
// @Router /api/v1/api-keys [post]
func (h *APIKeyHandler) CreateAPIKey(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateAPIKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.flow.CreateAPIKey(h.createRequestContext(c, "/api/v1/api-keys"), userID, &req)
	if err != nil {
		log.Println("Create API key failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create API key", "CREATE_API_KEY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListAPIKeys lists the user's keys in masked form
// @Summary List API Keys
// @Description List the authenticated user's API keys
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListAPIKeysResponse} "Keys"
// @Router /api/v1/api-keys [get]
func (h *APIKeyHandler) ListAPIKeys(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	result, err := h.flow.ListAPIKeys(h.createRequestContext(c, "/api/v1/api-keys"), userID)
	if err != nil {
		log.Println("List API keys failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list API keys", "LIST_API_KEYS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "API keys retrieved successfully", result)
}

// RevokeAPIKey deactivates one of the user's keys
// @Summary Revoke API Key
// @Description Revoke an API key owned by the authenticated user
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Param id path integer true "API key ID"
// @Success 200 {object} dto.APIResponse{data=dto.RevokeAPIKeyResponse} "Key revoked"
// @Failure 404 {object} dto.APIResponse "Key not found"
// @Router /api/v1/api-keys/{id} [delete]
func (h *APIKeyHandler) RevokeAPIKey(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	keyID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid API key ID", "INVALID_API_KEY_ID", nil)
	}

	result, err := h.flow.RevokeAPIKey(h.createRequestContext(c, "/api/v1/api-keys/:id"), userID, uint(keyID))
	if err != nil {
		if businessflow.IsAPIKeyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "API key not found", "API_KEY_NOT_FOUND", nil)
		}
		if businessflow.IsAPIKeyAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "API key access denied", "API_KEY_ACCESS_DENIED", nil)
		}

		log.Println("Revoke API key failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to revoke API key", "REVOKE_API_KEY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

func (h *APIKeyHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
