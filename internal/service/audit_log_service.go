package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/logger"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
)

// AuditEntry is the input for one audit record. Empty request fields are
// filled from the request metadata in the context.
type AuditEntry struct {
	TenantID  *uuid.UUID
	Actor     string
	Action    domain.AuditAction
	OfferID   *uuid.UUID
	IPAddress string
	Metadata  map[string]interface{}
}

// AuditLogService records and queries the audit trail
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends an entry. It never fails the caller: persistence errors
// and panics are logged and dropped. Do not call it from inside a
// transaction callback.
func (s *AuditLogService) Record(ctx context.Context, entry AuditEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Warn("audit record panicked",
				zap.String("action", string(entry.Action)),
				zap.Any("panic", rec),
			)
		}
	}()

	info := auth.RequestInfoFromContext(ctx)
	entryLog := &domain.AuditLog{
		TenantID:    entry.TenantID,
		UserName:    entry.Actor,
		Action:      entry.Action,
		OfferID:     entry.OfferID,
		IPAddress:   entry.IPAddress,
		UserAgent:   info.UserAgent,
		RequestID:   info.RequestID,
		Metadata:    "null",
		PerformedAt: time.Now().UTC(),
	}
	if entryLog.IPAddress == "" {
		entryLog.IPAddress = info.IPAddress
	}
	if entryLog.RequestID == "" {
		entryLog.RequestID = logger.RequestIDFromContext(ctx)
	}
	if tenant, ok := auth.FromContext(ctx); ok {
		if entryLog.TenantID == nil {
			id := tenant.TenantID
			entryLog.TenantID = &id
		}
		if entryLog.UserName == "" {
			entryLog.UserName = tenant.Username
		}
	}
	if entry.Metadata != nil {
		if metaJSON, err := json.Marshal(entry.Metadata); err == nil {
			entryLog.Metadata = string(metaJSON)
		}
	}

	// the entry should survive the client hanging up mid-request
	if err := s.auditRepo.Create(context.WithoutCancel(ctx), entryLog); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// RecordOffer records an action taken by owner on an offer
func (s *AuditLogService) RecordOffer(ctx context.Context, owner domain.Owner, action domain.AuditAction, offerID uuid.UUID, metadata map[string]interface{}) {
	tenantID := owner.TenantID
	s.Record(ctx, AuditEntry{
		TenantID: &tenantID,
		Actor:    owner.Username,
		Action:   action,
		OfferID:  &offerID,
		Metadata: metadata,
	})
}

// List returns a page of the tenant's audit entries
func (s *AuditLogService) List(ctx context.Context, tenantID uuid.UUID, filter repository.AuditLogFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)
	filter.TenantID = &tenantID

	logs, total, err := s.auditRepo.List(ctx, &filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = toAuditLogDTO(&logs[i])
	}

	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// ListByOffer returns the latest entries of one offer; the caller checks ownership
func (s *AuditLogService) ListByOffer(ctx context.Context, offerID uuid.UUID, limit int) ([]domain.AuditLogDTO, error) {
	logs, err := s.auditRepo.ListByOffer(ctx, offerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list offer history: %w", err)
	}
	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = toAuditLogDTO(&logs[i])
	}
	return dtos, nil
}

// PurgeOlderThan deletes entries older than retention
func (s *AuditLogService) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit logs: %w", err)
	}
	s.logger.Info("purged audit logs",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
	return deleted, nil
}

func toAuditLogDTO(l *domain.AuditLog) domain.AuditLogDTO {
	dto := domain.AuditLogDTO{
		ID:          l.ID,
		UserName:    l.UserName,
		Action:      l.Action,
		OfferID:     l.OfferID,
		IPAddress:   l.IPAddress,
		UserAgent:   l.UserAgent,
		RequestID:   l.RequestID,
		PerformedAt: l.PerformedAt.UTC().Format(time.RFC3339),
	}
	if l.Metadata != "" && l.Metadata != "null" {
		var meta interface{}
		if err := json.Unmarshal([]byte(l.Metadata), &meta); err == nil {
			dto.Metadata = meta
		}
	}
	return dto
}
