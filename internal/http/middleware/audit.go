package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/logger"
)

type holderKey struct{}

func contextWithTenantHolder(ctx context.Context, h *tenantHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// AuditContext stores the request metadata that audit entries record:
// client IP, user agent and request id. It must run after Logging.
func AuditContext(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := auth.RequestInfo{
				IPAddress: ClientIP(r, trustProxy),
				UserAgent: truncate(r.UserAgent(), 500),
				RequestID: logger.RequestIDFromContext(r.Context()),
			}
			next.ServeHTTP(w, r.WithContext(auth.WithRequestInfo(r.Context(), info)))
		})
	}
}

// TrackTenant hands the authenticated tenant back to the logging
// middleware. It must run after authentication.
func TrackTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := r.Context().Value(holderKey{}).(*tenantHolder); ok {
			if tenant, ok := auth.FromContext(r.Context()); ok {
				h.tenant = tenant
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller address. Forwarding headers are honoured only
// behind a trusted proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
