package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantService maps login identities to stable tenant ids
type TenantService struct {
	repo   *repository.TenantRepository
	logger *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(repo *repository.TenantRepository, logger *zap.Logger) *TenantService {
	return &TenantService{repo: repo, logger: logger}
}

// NormalizeUsername trims and lowercases a login name
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// EnsureTenant returns the tenant for username, creating it on first use
func (s *TenantService) EnsureTenant(ctx context.Context, username string) (*domain.Tenant, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return nil, ErrUsernameRequired
	}

	tenant, err := s.repo.GetOrCreate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure tenant: %w", err)
	}
	return tenant, nil
}

// GetByID returns an existing tenant
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}
