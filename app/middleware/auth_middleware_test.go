package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ea7klk/bm-stats/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthMiddleware(t *testing.T) (*AuthMiddleware, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	return NewAuthMiddleware(tokenService, nil), tokenService
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc123", "", false},
		{"Bearer abc123", "abc123", true},
	}

	for _, tt := range tests {
		token, ok := parseBearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, "header=%q", tt.header)
		assert.Equal(t, tt.token, token, "header=%q", tt.header)
	}
}

func TestOptionalAuthNeverWritesResponse(t *testing.T) {
	mw, _ := newTestAuthMiddleware(t)

	app := fiber.New()
	app.Get("/public", mw.OptionalAuth(), func(c fiber.Ctx) error {
		_, authed := GetUserIDFromContext(c)
		if authed {
			return c.SendString("authenticated")
		}
		return c.SendString("anonymous")
	})

	// No credentials, malformed header, garbage token: the handler must
	// always run and its body must be the full response.
	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest("GET", "/public", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		resp, err := app.Test(req)
		require.NoError(t, err, "header=%q", header)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "header=%q", header)
		assert.Equal(t, "anonymous", string(body), "header=%q", header)
	}
}

func TestOptionalAuthResolvesValidToken(t *testing.T) {
	mw, tokenService := newTestAuthMiddleware(t)

	accessToken, _, err := tokenService.GenerateTokens(42)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/whoami", mw.OptionalAuth(), func(c fiber.Ctx) error {
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"user_id":42}`, string(body))
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	mw, _ := newTestAuthMiddleware(t)

	app := fiber.New()
	app.Get("/protected", mw.Authenticate(), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
