package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/offers-api/internal/config"
)

// portalCSP is used when security.portalContentSecurityPolicy is empty. The
// page has inline styles and one form posting back to the portal; it loads
// no scripts.
const portalCSP = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; " +
	"form-action 'self'%s; base-uri 'none'; frame-ancestors 'none'"

// SecurityHeaders sets the headers for API, health and docs responses
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			setCommonHeaders(h, cfg)
			setIfNotEmpty(h, "X-Frame-Options", cfg.FrameOptions)
			setIfNotEmpty(h, "Content-Security-Policy", cfg.ContentSecurityPolicy)
			setIfNotEmpty(h, "Referrer-Policy", cfg.ReferrerPolicy)
			next.ServeHTTP(w, r)
		})
	}
}

// PortalSecurityHeaders sets the headers for the public portal page and the
// tracking links. The offer token is part of the URL, so referrers are
// never sent and search engines are told not to index the page.
func PortalSecurityHeaders(cfg *config.SecurityConfig, portalBaseURL string) func(http.Handler) http.Handler {
	csp := cfg.PortalContentSecurityPolicy
	if csp == "" {
		extra := ""
		if origin := OriginOf(portalBaseURL); origin != "" {
			extra = " " + origin
		}
		csp = fmt.Sprintf(portalCSP, extra)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			setCommonHeaders(h, cfg)
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Robots-Tag", "noindex, nofollow")
			next.ServeHTTP(w, r)
		})
	}
}

func setCommonHeaders(h http.Header, cfg *config.SecurityConfig) {
	if cfg.ContentTypeNosniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	setIfNotEmpty(h, "Permissions-Policy", cfg.PermissionsPolicy)
	if cfg.EnableHSTS {
		h.Set("Strict-Transport-Security", hstsValue(cfg))
	}
	h.Del("X-Powered-By")
	h.Del("Server")
}

func hstsValue(cfg *config.SecurityConfig) string {
	parts := []string{fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)}
	if cfg.HSTSIncludeSubdomains {
		parts = append(parts, "includeSubDomains")
	}
	if cfg.HSTSPreload {
		parts = append(parts, "preload")
	}
	return strings.Join(parts, "; ")
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
