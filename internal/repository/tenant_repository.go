package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantRepository handles tenant rows
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetOrCreate returns the tenant for an already normalized username,
// inserting it first if needed. Concurrent callers converge on one row:
// the insert is a no-op on conflict and the row is read back afterwards.
func (r *TenantRepository) GetOrCreate(ctx context.Context, username string) (*domain.Tenant, error) {
	db := r.db.WithContext(ctx)

	candidate := domain.Tenant{Username: username}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, err
	}

	return r.GetByUsername(ctx, username)
}

// GetByUsername retrieves a tenant by normalized username
func (r *TenantRepository) GetByUsername(ctx context.Context, username string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByID retrieves a tenant by id
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
