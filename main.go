// Package main provides the main entry point for the BM Stats service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ea7klk/bm-stats/app/handlers"
	"github.com/ea7klk/bm-stats/app/ingest"
	"github.com/ea7klk/bm-stats/app/middleware"
	"github.com/ea7klk/bm-stats/app/router"
	"github.com/ea7klk/bm-stats/app/scheduler"
	"github.com/ea7klk/bm-stats/app/services"
	businessflow "github.com/ea7klk/bm-stats/business_flow"
	"github.com/ea7klk/bm-stats/config"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting BM Stats application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initializeLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers (feed, scheduler, cache monitor)
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to the configured sink.
// File output rotates via lumberjack.
func initializeLogging(cfg config.LoggingConfig) {
	var writer io.Writer

	switch cfg.Output {
	case "file":
		writer = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	case "both":
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	default:
		writer = os.Stdout
	}

	log.SetOutput(writer)
	log.SetFlags(log.LstdFlags | log.LUTC)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// migrateSchema creates or updates the tables the service owns.
func migrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.VerificationToken{},
		&models.APIKey{},
		&models.Talkgroup{},
		&models.CallRecord{},
	)
}

// initializeCache initializes the Redis client and verifies connectivity.
// Returns nil when caching is disabled; the stats flow treats a nil client
// as cache-off.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisAddr, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg config.EmailConfig) services.NotificationService {
	var emailProvider services.EmailProvider
	if cfg.Host != "" {
		emailProvider = services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail)
	} else {
		emailProvider = services.NewMockEmailProvider()
	}
	return services.NewNotificationService(emailProvider)
}

// ingestStatus exposes the live state of the ingest pipeline to the
// stats flow.
type ingestStatus struct {
	feed *ingest.FeedClient
	norm *ingest.Normalizer
}

func (s *ingestStatus) IsConnected() bool {
	if s.feed == nil {
		return false
	}
	return s.feed.IsConnected()
}

func (s *ingestStatus) Inserted() uint64 {
	if s.norm == nil {
		return 0
	}
	return s.norm.Inserted()
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := migrateSchema(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	tokenRepo := repository.NewVerificationTokenRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	talkgroupRepo := repository.NewTalkgroupRepository(db)
	callRepo := repository.NewCallRecordRepository(db)

	// Initialize services
	notificationService := initializeNotificationService(cfg.Email)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Ingest pipeline: websocket feed -> normalizer -> call records
	normalizer := ingest.NewNormalizer(callRepo, log.Default())
	var feedClient *ingest.FeedClient
	if cfg.Feed.Enabled {
		feedClient = ingest.NewFeedClient(
			cfg.Feed.URL,
			cfg.Feed.HandshakeTimeout,
			cfg.Feed.ReconnectDelay,
			normalizer.Handle,
			log.Default(),
		)
		stopFeed := feedClient.Start(context.Background())
		stopFuncs = append(stopFuncs, stopFeed)
		stopFuncs = append(stopFuncs, normalizer.Flush)
	}

	// Initialize flows
	signupFlow := businessflow.NewSignupFlow(userRepo, tokenRepo, notificationService, db)
	loginFlow := businessflow.NewLoginFlow(userRepo, sessionRepo, tokenRepo, tokenService, notificationService, db)
	profileFlow := businessflow.NewProfileFlow(userRepo, sessionRepo, tokenRepo, notificationService, db)
	apiKeyFlow := businessflow.NewAPIKeyFlow(apiKeyRepo, userRepo)
	talkgroupFlow := businessflow.NewTalkgroupFlow(talkgroupRepo)
	statsFlow := businessflow.NewStatsFlow(
		callRepo,
		talkgroupRepo,
		&ingestStatus{feed: feedClient, norm: normalizer},
		rc,
		cfg.Cache.DefaultTTL,
		log.Default(),
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(signupFlow, loginFlow)
	profileHandler := handlers.NewProfileHandler(profileFlow)
	statsHandler := handlers.NewStatsHandler(statsFlow)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyFlow)
	talkgroupHandler := handlers.NewTalkgroupHandler(talkgroupFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, apiKeyFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		profileHandler,
		statsHandler,
		apiKeyHandler,
		talkgroupHandler,
		authMiddleware,
		cfg.Security.AllowedOrigins,
		cfg.Metrics.Enabled,
	)

	// Maintenance scheduler: retention pruning and the daily talkgroup refresh
	csvClient := scheduler.NewTalkgroupCSVClient(
		cfg.TalkgroupSource.PrimaryURL,
		cfg.TalkgroupSource.FallbackURL,
		cfg.TalkgroupSource.Timeout,
		log.Default(),
	)
	sched := scheduler.NewMaintenanceScheduler(
		callRepo,
		sessionRepo,
		tokenRepo,
		talkgroupRepo,
		csvClient,
		log.Default(),
		cfg.Retention.Age,
		cfg.Retention.Interval,
		cfg.TalkgroupSource.RefreshHour,
	)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
