package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/database"
	"github.com/straye-as/offers-api/internal/http/handler"
	"github.com/straye-as/offers-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/offers-api/docs" // Import swagger docs
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Auth     *handler.AuthHandler
	Offer    *handler.OfferHandler
	Portal   *handler.PortalHandler
	Client   *handler.ClientHandler
	Audit    *handler.AuditHandler
	Sequence *handler.SequenceHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.AuditContext(rt.cfg.Server.TrustProxy))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", rt.dbHealth)
	r.Get("/health/ready", rt.dbHealth)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Client portal and email tracking. The token is the credential.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PortalSecurityHeaders(&rt.cfg.Security, rt.cfg.Portal.BaseURL))
		r.Use(rt.rateLimiter.LimitPortal)

		r.Get("/p/{token}", rt.handlers.Portal.View)
		r.Post("/p/{token}/accept", rt.handlers.Portal.Accept)
		r.Get("/t/open/{token}", rt.handlers.Portal.TrackOpen)
		r.Get("/t/click/{token}", rt.handlers.Portal.TrackClick)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.Portal.BaseURL, rt.cfg.App.Environment, rt.logger))

		// Public routes (no auth required)
		r.With(rt.rateLimiter.LimitByIP).Post("/auth/login", rt.handlers.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.TrackTenant)
			r.Use(rt.rateLimiter.Limit)

			r.Get("/auth/me", rt.handlers.Auth.Me)
			r.Get("/audit", rt.handlers.Audit.List)
			r.Get("/sequences", rt.handlers.Sequence.List)
			r.Get("/invoices", rt.handlers.Offer.ListInvoices)

			// Address book
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", rt.handlers.Client.List)
				r.Put("/", rt.handlers.Client.Upsert)
				r.Get("/{id}", rt.handlers.Client.GetByID)
				r.Delete("/{id}", rt.handlers.Client.Delete)
			})

			// Offers
			r.Route("/offers", func(r chi.Router) {
				r.Get("/", rt.handlers.Offer.List)
				r.Post("/", rt.handlers.Offer.Create)
				r.Get("/{id}", rt.handlers.Offer.GetByID)
				r.Delete("/{id}", rt.handlers.Offer.Delete)

				// Content (locked once accepted or archived)
				r.Put("/{id}/client", rt.handlers.Offer.UpdateClient)
				r.Put("/{id}/terms", rt.handlers.Offer.UpdateTerms)
				r.Post("/{id}/items", rt.handlers.Offer.AddItem)
				r.Delete("/{id}/items", rt.handlers.Offer.ClearItems)
				r.Delete("/{id}/items/{itemId}", rt.handlers.Offer.DeleteItem)

				// Lifecycle
				r.Post("/{id}/mark-sent", rt.handlers.Offer.MarkSent)
				r.Post("/{id}/accept", rt.handlers.Offer.Accept)
				r.Post("/{id}/unlock", rt.handlers.Offer.Unlock)
				r.Post("/{id}/archive", rt.handlers.Offer.Archive)
				r.Post("/{id}/unarchive", rt.handlers.Offer.Unarchive)
				r.Post("/{id}/duplicate", rt.handlers.Offer.Duplicate)

				// Invoicing
				r.Post("/{id}/invoice", rt.handlers.Offer.CreateInvoice)
				r.Put("/{id}/paid", rt.handlers.Offer.SetPaid)

				// Delivery
				r.Post("/{id}/portal-link", rt.handlers.Offer.PortalLinks)
				r.Get("/{id}/document", rt.handlers.Offer.Document)
				r.Post("/{id}/send", rt.handlers.Offer.Send)
				r.Get("/{id}/history", rt.handlers.Offer.History)
			})
		})
	})

	return r
}

func (rt *Router) dbHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	stats, err := database.Stats(rt.db)
	if err != nil {
		rt.logger.Warn("failed to read pool stats", zap.Error(err))
	}

	w.WriteHeader(http.StatusOK)
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "database",
	}
	if stats != nil {
		body["stats"] = map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration_ms": stats.WaitDuration / time.Millisecond,
		}
	}
	_ = json.NewEncoder(w).Encode(body)
}
