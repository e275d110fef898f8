// Package dto contains Data Transfer Objects for API request and response structures
package dto

// APIResponse is the envelope every non-array endpoint responds with.
// Aggregation endpoints return bare JSON arrays instead, since their
// consumers are auto-refreshing dashboards.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail carries the machine-readable error code alongside optional
// field-level details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}
