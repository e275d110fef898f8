// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// StatsHandlerInterface defines the contract for statistics handlers
type StatsHandlerInterface interface {
	TalkgroupStats(c fiber.Ctx) error
	CallsignStats(c fiber.Ctx) error
	Filters(c fiber.Ctx) error
	Status(c fiber.Ctx) error
}

// StatsHandler handles aggregation query HTTP requests
type StatsHandler struct {
	statsFlow businessflow.StatsFlow
	validator *validator.Validate
}

// NewStatsHandler creates a new statistics handler
func NewStatsHandler(statsFlow businessflow.StatsFlow) *StatsHandler {
	return &StatsHandler{
		statsFlow: statsFlow,
		validator: newValidator(),
	}
}

func (h *StatsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// TalkgroupStats aggregates retained calls per talkgroup
// @Summary Talkgroup Statistics
// @Description Aggregate call counts and durations per destination talkgroup
// @Tags Statistics
// @Produce json
// @Param timeRange query string false "Aggregation window" Enums(5m,15m,30m,1h,2h,6h,12h,24h,2d,5d,1w,2w,1M) default(24h)
// @Param continent query string false "Continent filter, 'all' disables"
// @Param country query string false "ISO country code, requires continent"
// @Param talkgroup query integer false "Exact talkgroup ID"
// @Param callsign query string false "Callsign filter, '*' wildcards"
// @Param limit query integer false "Row limit" default(25)
// @Success 200 {array} dto.TalkgroupStatsEntry "Aggregated rows, most active first"
// @Router /api/v1/stats/talkgroups [get]
func (h *StatsHandler) TalkgroupStats(c fiber.Ctx) error {
	req, errResp := h.bindQuery(c)
	if errResp != nil {
		return errResp
	}

	entries, err := h.statsFlow.TalkgroupStats(h.queryContext(c, "/api/v1/stats/talkgroups"), req)
	if err != nil {
		// Aggregation failures degrade to an empty result so dashboards
		// keep rendering
		log.Println("Talkgroup stats query failed", err)
		return c.Status(fiber.StatusOK).JSON([]dto.TalkgroupStatsEntry{})
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}

// CallsignStats aggregates retained calls per callsign
// @Summary Callsign Statistics
// @Description Aggregate call counts and durations per source callsign
// @Tags Statistics
// @Produce json
// @Param timeRange query string false "Aggregation window" Enums(5m,15m,30m,1h,2h,6h,12h,24h,2d,5d,1w,2w,1M) default(24h)
// @Param continent query string false "Continent filter, 'all' disables"
// @Param country query string false "ISO country code, requires continent"
// @Param talkgroup query integer false "Exact talkgroup ID"
// @Param callsign query string false "Callsign filter, '*' wildcards"
// @Param limit query integer false "Row limit" default(25)
// @Success 200 {array} dto.CallsignStatsEntry "Aggregated rows, most active first"
// @Router /api/v1/stats/callsigns [get]
func (h *StatsHandler) CallsignStats(c fiber.Ctx) error {
	req, errResp := h.bindQuery(c)
	if errResp != nil {
		return errResp
	}

	entries, err := h.statsFlow.CallsignStats(h.queryContext(c, "/api/v1/stats/callsigns"), req)
	if err != nil {
		log.Println("Callsign stats query failed", err)
		return c.Status(fiber.StatusOK).JSON([]dto.CallsignStatsEntry{})
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}

// Filters lists the selectable continents and countries
// @Summary Statistics Filters
// @Description List the continents and countries known to the talkgroup directory
// @Tags Statistics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.StatsFiltersResponse} "Filter values"
// @Router /api/v1/stats/filters [get]
func (h *StatsHandler) Filters(c fiber.Ctx) error {
	result, err := h.statsFlow.Filters(h.queryContext(c, "/api/v1/stats/filters"))
	if err != nil {
		log.Println("Stats filters query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Filters query failed", "STATS_FILTERS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Filters retrieved successfully",
		Data:    result,
	})
}

// Status reports the ingestion pipeline state
// @Summary Ingest Status
// @Description Report feed connectivity and retained record counts
// @Tags Statistics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.IngestStatusResponse} "Pipeline status"
// @Router /api/v1/stats/status [get]
func (h *StatsHandler) Status(c fiber.Ctx) error {
	result, err := h.statsFlow.Status(h.queryContext(c, "/api/v1/stats/status"))
	if err != nil {
		log.Println("Stats status query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Status query failed", "STATS_STATUS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Status retrieved successfully",
		Data:    result,
	})
}

func (h *StatsHandler) bindQuery(c fiber.Ctx) (*dto.StatsQueryRequest, error) {
	req := &dto.StatsQueryRequest{
		TimeRange: c.Query("timeRange"),
		Continent: c.Query("continent"),
		Country:   c.Query("country"),
		Talkgroup: c.Query("talkgroup"),
		Callsign:  c.Query("callsign"),
		Limit:     c.Query("limit"),
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	return req, nil
}

func (h *StatsHandler) queryContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}
