package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClientRepository handles the per-tenant client address book
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ClientRepository) WithTx(tx *gorm.DB) *ClientRepository {
	return &ClientRepository{db: tx}
}

// Upsert inserts a client or refreshes the contact fields of the existing
// entry with the same name. updateNote controls whether the note is
// overwritten on conflict.
func (r *ClientRepository) Upsert(ctx context.Context, client *domain.Client, updateNote bool) (*domain.Client, error) {
	columns := []string{"email", "address", "tax_id", "updated_at"}
	if updateNote {
		columns = append(columns, "note")
	}

	client.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(client).Error
	if err != nil {
		return nil, err
	}

	return r.GetByName(ctx, client.TenantID, client.Name)
}

// GetByName returns the client with an exact name
func (r *ClientRepository) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// GetByID returns a client of the tenant
func (r *ClientRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns the tenant's clients ordered by name, optionally filtered by a name substring
func (r *ClientRepository) List(ctx context.Context, tenantID uuid.UUID, search string) ([]domain.Client, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if s := strings.TrimSpace(search); s != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(s))+"%")
	}

	var clients []domain.Client
	err := query.Order("name ASC").Limit(MaxPageSize).Find(&clients).Error
	return clients, err
}

// Delete removes a client; offers keep their snapshot
func (r *ClientRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.Client{})
	return result.RowsAffected, result.Error
}
