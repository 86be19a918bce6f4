package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/domain"
)

// SettingsProvider supplies the company profile of a tenant
type SettingsProvider interface {
	CompanySettings(ctx context.Context, tenantID uuid.UUID) domain.CompanySettings
}

// StaticSettingsProvider serves one profile from configuration to every tenant
type StaticSettingsProvider struct {
	settings domain.CompanySettings
}

// NewStaticSettingsProvider creates a provider from the company config
func NewStaticSettingsProvider(cfg *config.CompanyConfig) *StaticSettingsProvider {
	s := domain.CompanySettings{
		Name:           cfg.Name,
		Email:          cfg.Email,
		Address:        cfg.Address,
		TaxID:          cfg.TaxID,
		IBAN:           cfg.IBAN,
		Phone:          cfg.Phone,
		LogoURL:        cfg.LogoURL,
		DefaultVATRate: cfg.DefaultVATRate,
		ValidityDays:   cfg.ValidityDays,
	}
	if s.ValidityDays <= 0 {
		s.ValidityDays = 14
	}
	if s.DefaultVATRate < 0 {
		s.DefaultVATRate = 0
	}
	return &StaticSettingsProvider{settings: s}
}

// CompanySettings implements SettingsProvider
func (p *StaticSettingsProvider) CompanySettings(_ context.Context, _ uuid.UUID) domain.CompanySettings {
	return p.settings
}
