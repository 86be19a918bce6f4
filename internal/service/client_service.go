package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/mapper"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientService manages the per-tenant client address book
type ClientService struct {
	clientRepo *repository.ClientRepository
	audit      *AuditLogService
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo *repository.ClientRepository, audit *AuditLogService, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		audit:      audit,
		logger:     logger,
	}
}

// List returns the tenant's clients, optionally filtered by a name search
func (s *ClientService) List(ctx context.Context, owner domain.Owner, search string) ([]domain.ClientDTO, error) {
	clients, err := s.clientRepo.List(ctx, owner.TenantID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	dtos := make([]domain.ClientDTO, len(clients))
	for i := range clients {
		dtos[i] = mapper.ToClientDTO(&clients[i])
	}
	return dtos, nil
}

// GetByID returns one client of the tenant
func (s *ClientService) GetByID(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.ClientDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, owner.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Upsert creates a client or updates the one with the same name
func (s *ClientService) Upsert(ctx context.Context, owner domain.Owner, req *domain.UpsertClientRequest) (*domain.ClientDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrClientNameRequired
	}

	client, err := s.clientRepo.Upsert(ctx, &domain.Client{
		TenantID: owner.TenantID,
		Name:     name,
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		TaxID:    strings.TrimSpace(req.TaxID),
		Note:     strings.TrimSpace(req.Note),
	}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	tenantID := owner.TenantID
	s.audit.Record(ctx, AuditEntry{
		TenantID: &tenantID,
		Actor:    owner.Username,
		Action:   domain.AuditActionClientSaved,
		Metadata: map[string]interface{}{"client_id": client.ID.String(), "name": client.Name},
	})

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Delete removes a client from the address book. Offers keep their snapshot.
func (s *ClientService) Delete(ctx context.Context, owner domain.Owner, id uuid.UUID) error {
	deleted, err := s.clientRepo.Delete(ctx, owner.TenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if deleted == 0 {
		return ErrClientNotFound
	}

	tenantID := owner.TenantID
	s.audit.Record(ctx, AuditEntry{
		TenantID: &tenantID,
		Actor:    owner.Username,
		Action:   domain.AuditActionClientDeleted,
		Metadata: map[string]interface{}{"client_id": id.String()},
	})
	return nil
}
