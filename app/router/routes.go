// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/handlers"
	"github.com/ea7klk/bm-stats/app/middleware"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	authHandler      handlers.AuthHandlerInterface
	profileHandler   handlers.ProfileHandlerInterface
	statsHandler     handlers.StatsHandlerInterface
	apiKeyHandler    handlers.APIKeyHandlerInterface
	talkgroupHandler handlers.TalkgroupHandlerInterface
	authMiddleware   *middleware.AuthMiddleware
	allowOrigins     []string
	metricsEnabled   bool
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	authHandler handlers.AuthHandlerInterface,
	profileHandler handlers.ProfileHandlerInterface,
	statsHandler handlers.StatsHandlerInterface,
	apiKeyHandler handlers.APIKeyHandlerInterface,
	talkgroupHandler handlers.TalkgroupHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	allowOrigins []string,
	metricsEnabled bool,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "BM Stats API",
		ServerHeader: "bm-stats",
		ErrorHandler: errorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB, the API carries no large payloads
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		authHandler:      authHandler,
		profileHandler:   profileHandler,
		statsHandler:     statsHandler,
		apiKeyHandler:    apiKeyHandler,
		talkgroupHandler: talkgroupHandler,
		authMiddleware:   authMiddleware,
		allowOrigins:     allowOrigins,
		metricsEnabled:   metricsEnabled,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.metricsEnabled {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Public aggregation endpoints
	stats := api.Group("/stats", r.authMiddleware.OptionalAuth())
	stats.Get("/talkgroups", r.statsHandler.TalkgroupStats)
	stats.Get("/callsigns", r.statsHandler.CallsignStats)
	stats.Get("/filters", r.statsHandler.Filters)
	stats.Get("/status", r.statsHandler.Status)

	// Authenticated aggregation endpoints accept an API key as well, so
	// external tooling can query without a browser session
	advanced := api.Group("/advanced/stats", r.authMiddleware.AuthenticateKeyOrToken())
	advanced.Get("/talkgroups", r.statsHandler.TalkgroupStats)
	advanced.Get("/callsigns", r.statsHandler.CallsignStats)

	// Talkgroup directory
	talkgroups := api.Group("/talkgroups")
	talkgroups.Get("/", r.talkgroupHandler.ListTalkgroups)
	talkgroups.Get("/continents", r.talkgroupHandler.ListContinents)
	talkgroups.Get("/countries", r.talkgroupHandler.ListCountries)
	talkgroups.Get("/:id", r.talkgroupHandler.GetTalkgroup)

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/signup", r.authHandler.Signup)
	auth.Post("/verify", r.authHandler.VerifyEmail)
	auth.Post("/resend-verification", r.authHandler.ResendVerification)
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.RefreshToken)
	auth.Post("/logout", r.authHandler.Logout)
	auth.Post("/forgot-password", r.authHandler.ForgotPassword)
	auth.Post("/reset-password", r.authHandler.ResetPassword)

	// Profile routes require a session
	profile := api.Group("/profile", r.authMiddleware.Authenticate())
	profile.Get("/", r.profileHandler.GetProfile)
	profile.Put("/", r.profileHandler.UpdateProfile)
	profile.Put("/password", r.profileHandler.ChangePassword)
	profile.Put("/email", r.profileHandler.RequestEmailChange)
	api.Post("/profile/email/confirm", r.profileHandler.ConfirmEmailChange)

	// API key management requires a session, not a key
	apiKeys := api.Group("/api-keys", r.authMiddleware.Authenticate())
	apiKeys.Post("/", r.apiKeyHandler.CreateAPIKey)
	apiKeys.Get("/", r.apiKeyHandler.ListAPIKeys)
	apiKeys.Delete("/:id", r.apiKeyHandler.RevokeAPIKey)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self' https:; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware; the dashboard is served from a separate origin
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.allowOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"X-API-Key",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus HTTP metrics
	if r.metricsEnabled {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "bm-stats-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
