// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TalkgroupHandlerInterface defines the contract for talkgroup directory handlers
type TalkgroupHandlerInterface interface {
	ListTalkgroups(c fiber.Ctx) error
	GetTalkgroup(c fiber.Ctx) error
	ListContinents(c fiber.Ctx) error
	ListCountries(c fiber.Ctx) error
}

// TalkgroupHandler serves the talkgroup directory HTTP requests
type TalkgroupHandler struct {
	flow      businessflow.TalkgroupFlow
	validator *validator.Validate
}

// NewTalkgroupHandler creates a new talkgroup handler
func NewTalkgroupHandler(flow businessflow.TalkgroupFlow) *TalkgroupHandler {
	return &TalkgroupHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

func (h *TalkgroupHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TalkgroupHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListTalkgroups lists directory entries
// @Summary List Talkgroups
// @Description List talkgroup directory entries with optional filters
// @Tags Talkgroups
// @Produce json
// @Param continent query string false "Continent filter"
// @Param country query string false "ISO country code filter"
// @Param search query string false "Talkgroup ID or name fragment"
// @Success 200 {object} dto.APIResponse{data=dto.ListTalkgroupsResponse} "Directory entries"
// @Router /api/v1/talkgroups [get]
func (h *TalkgroupHandler) ListTalkgroups(c fiber.Ctx) error {
	req := &dto.ListTalkgroupsRequest{
		Continent: c.Query("continent"),
		Country:   c.Query("country"),
		Search:    c.Query("search"),
	}

	if err := h.validator.Struct(req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.flow.ListTalkgroups(h.createRequestContext(c, "/api/v1/talkgroups"), req)
	if err != nil {
		log.Println("List talkgroups failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list talkgroups", "LIST_TALKGROUPS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Talkgroups retrieved successfully", result)
}

// GetTalkgroup returns one directory entry
// @Summary Get Talkgroup
// @Description Return one talkgroup directory entry
// @Tags Talkgroups
// @Produce json
// @Param id path integer true "Talkgroup ID"
// @Success 200 {object} dto.APIResponse{data=dto.TalkgroupDTO} "Directory entry"
// @Failure 404 {object} dto.APIResponse "Talkgroup not found"
// @Router /api/v1/talkgroups/{id} [get]
func (h *TalkgroupHandler) GetTalkgroup(c fiber.Ctx) error {
	talkgroupID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || talkgroupID < 1 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid talkgroup ID", "INVALID_TALKGROUP", nil)
	}

	result, err := h.flow.GetTalkgroup(h.createRequestContext(c, "/api/v1/talkgroups/:id"), talkgroupID)
	if err != nil {
		if businessflow.IsTalkgroupNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Talkgroup not found", "TALKGROUP_NOT_FOUND", nil)
		}

		log.Println("Get talkgroup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get talkgroup", "GET_TALKGROUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Talkgroup retrieved successfully", result)
}

// ListContinents lists the continents present in the directory
// @Summary List Continents
// @Description List the continents the talkgroup directory currently covers
// @Tags Talkgroups
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]string} "Continents"
// @Router /api/v1/talkgroups/continents [get]
func (h *TalkgroupHandler) ListContinents(c fiber.Ctx) error {
	result, err := h.flow.ListContinents(h.createRequestContext(c, "/api/v1/talkgroups/continents"))
	if err != nil {
		log.Println("List continents failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list continents", "LIST_CONTINENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Continents retrieved successfully", result)
}

// ListCountries lists countries, optionally restricted to one continent
// @Summary List Countries
// @Description List the countries the talkgroup directory currently covers
// @Tags Talkgroups
// @Produce json
// @Param continent query string false "Continent filter"
// @Success 200 {object} dto.APIResponse{data=[]dto.CountryOption} "Countries"
// @Router /api/v1/talkgroups/countries [get]
func (h *TalkgroupHandler) ListCountries(c fiber.Ctx) error {
	result, err := h.flow.ListCountries(h.createRequestContext(c, "/api/v1/talkgroups/countries"), c.Query("continent"))
	if err != nil {
		log.Println("List countries failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list countries", "LIST_COUNTRIES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Countries retrieved successfully", result)
}

func (h *TalkgroupHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}
