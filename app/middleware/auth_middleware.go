// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/services"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/gofiber/fiber/v3"
)

// APIKeyHeader carries the key material for programmatic access
const APIKeyHeader = "X-API-Key"

// AuthMiddleware handles JWT and API key validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	apiKeyFlow   businessflow.APIKeyFlow
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, apiKeyFlow businessflow.APIKeyFlow) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		apiKeyFlow:   apiKeyFlow,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, errResp := extractBearerToken(c)
		if errResp != nil {
			return errResp
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return tokenErrorResponse(c, err)
		}

		// Store user information in context for downstream handlers
		c.Locals("user_id", claims.UserID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// AuthenticateKeyOrToken accepts either an API key or a JWT bearer token.
// Programmatic clients send X-API-Key; the web app sends Authorization.
func (m *AuthMiddleware) AuthenticateKeyOrToken() fiber.Handler {
	return func(c fiber.Ctx) error {
		if rawKey := c.Get(APIKeyHeader); rawKey != "" {
			key, err := m.apiKeyFlow.Authenticate(context.Background(), rawKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
					Success: false,
					Message: "Invalid API key",
					Error: dto.ErrorDetail{
						Code: "INVALID_API_KEY",
					},
				})
			}

			c.Locals("user_id", key.UserID)
			c.Locals("api_key_id", key.ID)
			return c.Next()
		}

		return m.Authenticate()(c)
	}
}

// OptionalAuth resolves the user when credentials are present but never
// rejects and never writes to the response
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := parseBearerToken(c.Get("Authorization"))
		if !ok {
			return c.Next()
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			return c.Next()
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		return c.Next()
	}
}

// GetUserIDFromContext retrieves the authenticated user ID from the request context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetTokenClaimsFromContext retrieves the token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}

func extractBearerToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Authorization header is required",
			Error: dto.ErrorDetail{
				Code: "MISSING_AUTHORIZATION_HEADER",
			},
		})
	}

	token, ok := parseBearerToken(authHeader)
	if !ok {
		return "", c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid authorization header format. Expected 'Bearer <token>'",
			Error: dto.ErrorDetail{
				Code: "INVALID_AUTHORIZATION_FORMAT",
			},
		})
	}

	return token, nil
}

// parseBearerToken extracts the token from an Authorization header value
// without touching the response.
func parseBearerToken(authHeader string) (string, bool) {
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return "", false
	}
	return authHeader[len(prefix):], true
}

func tokenErrorResponse(c fiber.Ctx, err error) error {
	var errorCode string
	var message string

	if errors.Is(err, services.ErrTokenExpired) {
		errorCode = "TOKEN_EXPIRED"
		message = "Access token has expired"
	} else if errors.Is(err, services.ErrTokenInvalid) {
		errorCode = "TOKEN_INVALID"
		message = "Invalid access token"
	} else if errors.Is(err, services.ErrTokenRevoked) {
		errorCode = "TOKEN_REVOKED"
		message = "Access token has been revoked"
	} else {
		errorCode = "TOKEN_VALIDATION_FAILED"
		message = "Token validation failed"
	}

	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
		},
	})
}
