package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/offers-api/docs"
	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/database"
	"github.com/straye-as/offers-api/internal/http/handler"
	"github.com/straye-as/offers-api/internal/http/middleware"
	"github.com/straye-as/offers-api/internal/http/router"
	"github.com/straye-as/offers-api/internal/jobs"
	"github.com/straye-as/offers-api/internal/logger"
	"github.com/straye-as/offers-api/internal/notify"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"github.com/straye-as/offers-api/internal/storage"
	"go.uber.org/zap"
)

// @title Offers API
// @version 1.0
// @description Offer lifecycle, numbering, invoicing and client portal API

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service-to-service calls

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if cfg.App.Environment == "development" || cfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.App.Port)
	}

	db, err := database.NewDatabase(&cfg.Database, log, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Postgres schemas are owned by cmd/migrate; SQLite is migrated in place
	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated", zap.String("driver", cfg.Database.Driver))
	}

	docStore, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	tokens, err := auth.NewTokenIssuer(&cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	credentials := auth.NewCredentials(&cfg.Auth)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	offerItemRepo := repository.NewOfferItemRepository(db)
	clientRepo := repository.NewClientRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Rendering and delivery
	htmlRenderer := render.NewHTMLRenderer()
	var pdfRenderer *render.PDFRenderer
	var pdf render.Renderer
	if cfg.PDF.Enabled {
		pdfRenderer = render.NewPDFRenderer(&cfg.PDF, htmlRenderer, log)
		pdf = pdfRenderer
	} else {
		log.Info("PDF rendering disabled, documents fall back to HTML")
	}
	renderers := render.NewSet(htmlRenderer, render.NewCSVRenderer(), pdf)
	notifier := notify.New(&cfg.SMTP, log)

	// Services
	settings := service.NewStaticSettingsProvider(&cfg.Company)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)
	tenantService := service.NewTenantService(tenantRepo, log)
	sequenceService := service.NewNumberSequenceService(sequenceRepo, log)
	offerService := service.NewOfferService(offerRepo, offerItemRepo, clientRepo, sequenceService, auditLogService, settings, cfg.Portal.BaseURL, log, db)
	portalService := service.NewPortalService(offerRepo, offerItemRepo, auditLogService, notifier, settings, cfg.Portal.BaseURL, log)
	deliveryService := service.NewDeliveryService(offerService, renderers, htmlRenderer, docStore, notifier, settings, auditLogService, cfg.Portal.BaseURL, log)
	clientService := service.NewClientService(clientRepo, auditLogService, log)
	authService := service.NewAuthService(credentials, tokens, tenantService, auditLogService, log)

	if credentials.Empty() {
		log.Warn("No login credentials configured; only API key access is possible")
	}

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, tokens, tenantService, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, router.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Offer:    handler.NewOfferHandler(offerService, deliveryService, log),
		Portal:   handler.NewPortalHandler(portalService, htmlRenderer, log),
		Client:   handler.NewClientHandler(clientService, log),
		Audit:    handler.NewAuditHandler(auditLogService, log),
		Sequence: handler.NewSequenceHandler(sequenceService, log),
	})

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterAuditRetentionJob(
		scheduler,
		auditLogService,
		cfg.Audit.RetentionDays,
		cfg.Audit.PurgeSchedule,
		log,
	); err != nil {
		log.Error("Failed to register audit retention job", zap.Error(err))
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), `{"type":"internal_error","title":"Request timeout","status":503}`),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		<-scheduler.Stop().Done()
		log.Info("Scheduler stopped")

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if pdfRenderer != nil {
			if err := pdfRenderer.Close(); err != nil {
				log.Warn("Error closing PDF renderer", zap.Error(err))
			}
		}

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
