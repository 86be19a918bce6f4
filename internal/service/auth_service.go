package service

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/domain"
	"go.uber.org/zap"
)

// AuthService exchanges configured credentials for access tokens
type AuthService struct {
	credentials *auth.Credentials
	tokens      *auth.TokenIssuer
	tenants     *TenantService
	audit       *AuditLogService
	logger      *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(credentials *auth.Credentials, tokens *auth.TokenIssuer, tenants *TenantService, audit *AuditLogService, logger *zap.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		tenants:     tenants,
		audit:       audit,
		logger:      logger,
	}
}

// Login verifies a username and password, makes sure the tenant exists and
// issues a token for it
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return nil, ErrUsernameRequired
	}

	if !s.credentials.Verify(name, password) {
		s.logger.Warn("login rejected", zap.String("username", name))
		s.audit.Record(ctx, AuditEntry{
			Actor:  name,
			Action: domain.AuditActionLoginFailed,
		})
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.tenants.EnsureTenant(ctx, name)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	tenantID := tenant.ID
	s.audit.Record(ctx, AuditEntry{
		TenantID: &tenantID,
		Actor:    tenant.Username,
		Action:   domain.AuditActionLogin,
	})
	s.logger.Info("user logged in",
		zap.String("username", tenant.Username),
		zap.String("tenant_id", tenant.ID.String()),
	)

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
		TenantID:    tenant.ID,
		Username:    tenant.Username,
	}, nil
}
