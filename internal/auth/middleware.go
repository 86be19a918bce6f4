package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/domain"
	"go.uber.org/zap"
)

// TenantResolver returns the tenant of a login name, creating it if needed
type TenantResolver interface {
	EnsureTenant(ctx context.Context, username string) (*domain.Tenant, error)
}

// Middleware authenticates API requests with a Bearer token or an API key
type Middleware struct {
	tokens     *TokenIssuer
	apiKey     string
	apiKeyUser string
	tenants    TenantResolver
	logger     *zap.Logger

	mu           sync.Mutex
	apiKeyTenant *TenantContext
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, tokens *TokenIssuer, tenants TenantResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:     tokens,
		apiKey:     cfg.APIKey,
		apiKeyUser: cfg.APIKeyUsername,
		tenants:    tenants,
		logger:     logger,
	}
}

// Authenticate rejects requests without valid credentials and stores the
// tenant in the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" {
			if !m.validateAPIKey(key) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeUnauthorized(w, "invalid API key")
				return
			}
			tenant, err := m.resolveAPIKeyTenant(r.Context())
			if err != nil {
				m.logger.Error("failed to resolve API key tenant", zap.Error(err))
				writeUnauthorized(w, "API key tenant unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenantContext(r.Context(), tenant)))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeUnauthorized(w, "invalid authorization header format")
			return
		}

		tenant, err := m.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			m.logger.Debug("token validation failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeUnauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithTenantContext(r.Context(), tenant)))
	})
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func (m *Middleware) resolveAPIKeyTenant(ctx context.Context) (*TenantContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.apiKeyTenant != nil {
		return m.apiKeyTenant, nil
	}

	tenant, err := m.tenants.EnsureTenant(ctx, m.apiKeyUser)
	if err != nil {
		return nil, err
	}
	m.apiKeyTenant = &TenantContext{
		TenantID: tenant.ID,
		Username: tenant.Username,
		AuthType: AuthTypeAPIKey,
	}
	return m.apiKeyTenant, nil
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="offers-api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
	})
}
