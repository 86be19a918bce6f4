package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/cors"
	"github.com/straye-as/offers-api/internal/config"
	"go.uber.org/zap"
)

// CORS returns the CORS middleware for the JSON API. The origin of the
// public portal is always allowed next to the configured origins, so an
// admin UI served from the portal host works without extra config.
//
// Portal pages and tracking links are plain navigations and image loads,
// so they are mounted outside this middleware.
func CORS(cfg *config.CORSConfig, portalBaseURL, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	origins := AllowedOrigins(cfg.AllowedOrigins, portalBaseURL)
	devMode := environment == "" || environment == "development" || environment == "local"

	switch {
	case slices.Contains(cfg.AllowedOrigins, "*"):
		if !devMode {
			logger.Warn("CORS allows every origin outside development",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) == 0 && devMode:
		logger.Info("CORS allows every origin in development")
		options.AllowOriginFunc = anyOrigin
	case len(origins) == 0:
		// an empty AllowedOrigins list means "*" to go-chi/cors
		logger.Warn("CORS has no allowed origins, cross-origin API calls are denied",
			zap.String("environment", environment))
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
	default:
		options.AllowedOrigins = origins
		logger.Info("CORS configured", zap.Strings("origins", origins))
	}

	return cors.Handler(options)
}

// AllowedOrigins merges the configured origins with the portal origin,
// dropping duplicates and the "*" wildcard
func AllowedOrigins(configured []string, portalBaseURL string) []string {
	out := make([]string, 0, len(configured)+1)
	add := func(origin string) {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || origin == "*" || slices.Contains(out, origin) {
			return
		}
		out = append(out, origin)
	}
	for _, origin := range configured {
		add(origin)
	}
	add(OriginOf(portalBaseURL))
	return out
}

// OriginOf returns scheme://host of an absolute URL, or "" when raw is not one
func OriginOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func anyOrigin(_ *http.Request, origin string) bool {
	return origin != ""
}
