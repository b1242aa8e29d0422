package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kasapp/kas-backend/internal/config"
	"github.com/kasapp/kas-backend/internal/events"
	"github.com/kasapp/kas-backend/internal/handler"
	"github.com/kasapp/kas-backend/internal/middleware"
	"github.com/kasapp/kas-backend/internal/repository/postgres"
	"github.com/kasapp/kas-backend/internal/repository/storage"
	"github.com/kasapp/kas-backend/internal/service"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	// Apply schema migrations
	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Migrations applied")

	// Initialize repositories
	uow := postgres.NewUnitOfWork(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	tagRepo := postgres.NewTagRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	profileRepo := postgres.NewImportProfileRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)

	// Receipt storage is optional; without a bucket the endpoints report
	// service unavailable.
	var receiptStorage storage.ReceiptRepository
	if cfg.ReceiptsEnabled() {
		s3Repo, err := storage.NewS3ReceiptRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptStorage = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt storage enabled")
	} else {
		log.Warn().Msg("Receipt storage disabled (no S3 bucket configured)")
	}

	// WebSocket hub for change events
	hub := events.NewHub()

	// Initialize services
	recalcService := service.NewRecalcService(accountRepo, budgetRepo, transactionRepo)
	transactionService := service.NewTransactionService(uow, transactionRepo, accountRepo, categoryRepo, tagRepo, recalcService, hub)
	transferService := service.NewTransferService(uow, transactionRepo, accountRepo, categoryRepo, recalcService, hub)
	accountService := service.NewAccountService(uow, accountRepo, profileRepo, transactionService, hub)
	categoryService := service.NewCategoryService(uow, categoryRepo, profileRepo, transactionService, hub)
	budgetService := service.NewBudgetService(uow, budgetRepo, categoryRepo, recalcService, hub)
	tagService := service.NewTagService(tagRepo)
	importService := service.NewImportService(profileRepo, categoryRepo, accountRepo, transactionService, transferService, hub)
	dashboardService := service.NewDashboardService(accountRepo, transactionRepo)
	onboardingService := service.NewOnboardingService(accountService, categoryService, transferService, settingsRepo)
	receiptService := service.NewReceiptService(receiptStorage, transactionRepo)

	// Initialize auth middleware and rate limiter
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Initialize handlers
	handlers := handler.Handlers{
		Account:     handler.NewAccountHandler(accountService),
		Category:    handler.NewCategoryHandler(categoryService),
		Budget:      handler.NewBudgetHandler(budgetService),
		Tag:         handler.NewTagHandler(tagService),
		Transaction: handler.NewTransactionHandler(transactionService, transferService),
		Transfer:    handler.NewTransferHandler(transferService),
		Import:      handler.NewImportHandler(importService),
		Receipt:     handler.NewReceiptHandler(receiptService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
		Onboarding:  handler.NewOnboardingHandler(onboardingService),
		WebSocket:   handler.NewWebSocketHandler(hub, authMiddleware, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
