package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
)

// AuthType describes how a request was authenticated
type AuthType string

const (
	AuthTypeJWT    AuthType = "jwt"
	AuthTypeAPIKey AuthType = "api_key"
)

// TenantContext holds the authenticated tenant of a request
type TenantContext struct {
	TenantID uuid.UUID
	Username string
	AuthType AuthType
}

// Owner returns the ownership key used by offer lookups
func (t *TenantContext) Owner() domain.Owner {
	return domain.Owner{TenantID: t.TenantID, Username: t.Username}
}

// RequestInfo carries request metadata recorded in the audit log
type RequestInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type contextKey string

const (
	tenantContextKey contextKey = "tenantContext"
	requestInfoKey   contextKey = "requestInfo"
)

// WithTenantContext adds the tenant to the context
func WithTenantContext(ctx context.Context, tenant *TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenant)
}

// FromContext extracts the tenant from the context
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tenant, ok := ctx.Value(tenantContextKey).(*TenantContext)
	return tenant, ok && tenant != nil
}

// MustFromContext extracts the tenant or panics
func MustFromContext(ctx context.Context) *TenantContext {
	tenant, ok := FromContext(ctx)
	if !ok {
		panic("tenant context not found in context")
	}
	return tenant
}

// WithRequestInfo adds request metadata to the context
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// RequestInfoFromContext returns request metadata, or the zero value
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}
