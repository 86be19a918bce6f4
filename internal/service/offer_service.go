package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/mapper"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OfferService implements offer editing, the lifecycle state machine and
// invoice derivation. Every method takes the caller's Owner; offers that do
// not belong to it behave exactly like missing ones.
type OfferService struct {
	offerRepo     *repository.OfferRepository
	itemRepo      *repository.OfferItemRepository
	clientRepo    *repository.ClientRepository
	sequences     *NumberSequenceService
	audit         *AuditLogService
	settings      SettingsProvider
	portalBaseURL string
	logger        *zap.Logger
	db            *gorm.DB
	now           func() time.Time
}

// NewOfferService creates a new OfferService
func NewOfferService(
	offerRepo *repository.OfferRepository,
	itemRepo *repository.OfferItemRepository,
	clientRepo *repository.ClientRepository,
	sequences *NumberSequenceService,
	audit *AuditLogService,
	settings SettingsProvider,
	portalBaseURL string,
	logger *zap.Logger,
	db *gorm.DB,
) *OfferService {
	return &OfferService{
		offerRepo:     offerRepo,
		itemRepo:      itemRepo,
		clientRepo:    clientRepo,
		sequences:     sequences,
		audit:         audit,
		settings:      settings,
		portalBaseURL: portalBaseURL,
		logger:        logger,
		db:            db,
		now:           time.Now,
	}
}

// WithClock replaces the time source; numbering years follow it
func (s *OfferService) WithClock(now func() time.Time) *OfferService {
	s.now = now
	return s
}

// ============================================================================
// Lookup helpers
// ============================================================================

func (s *OfferService) getOwned(ctx context.Context, repo *repository.OfferRepository, owner domain.Owner, id uuid.UUID, lock bool) (*domain.Offer, error) {
	var (
		offer *domain.Offer
		err   error
	)
	if lock {
		offer, err = repo.GetByIDForUpdate(ctx, owner, id)
	} else {
		offer, err = repo.GetByID(ctx, owner, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

// GetOwnedOffer returns the raw offer and its items
func (s *OfferService) GetOwnedOffer(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.Offer, []domain.OfferItem, error) {
	offer, err := s.getOwned(ctx, s.offerRepo, owner, id, false)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.itemRepo.ListByOffer(ctx, offer.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list offer items: %w", err)
	}
	return offer, items, nil
}

func (s *OfferService) toDTO(ctx context.Context, offer *domain.Offer) (*domain.OfferDTO, error) {
	items, err := s.itemRepo.ListByOffer(ctx, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offer items: %w", err)
	}
	dto := mapper.ToOfferDTO(offer, items, s.portalBaseURL)
	return &dto, nil
}

// editOffer runs fn in a transaction holding the offer row lock, after the
// ownership and edit-lock checks have passed
func (s *OfferService) editOffer(ctx context.Context, owner domain.Owner, id uuid.UUID, fn func(tx *gorm.DB, offer *domain.Offer) error) (*domain.Offer, error) {
	var offer *domain.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.getOwned(ctx, s.offerRepo.WithTx(tx), owner, id, true)
		if err != nil {
			return err
		}
		if o.IsLocked() {
			return ErrOfferLocked
		}
		if err := fn(tx, o); err != nil {
			return err
		}
		offer = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// Offer CRUD
// ============================================================================

// CreateOffer creates a draft with the next offer number of the current
// year, the default VAT rate and the default validity window
func (s *OfferService) CreateOffer(ctx context.Context, owner domain.Owner, clientName string) (*domain.OfferDTO, error) {
	now := s.now().UTC()
	settings := s.settings.CompanySettings(ctx, owner.TenantID)

	var offer *domain.Offer
	err := runNumbered(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		n, err := s.sequences.Allocate(ctx, tx, owner, domain.SequenceKindOffer, now)
		if err != nil {
			return err
		}

		tenantID := owner.TenantID
		username := strings.ToLower(owner.Username)
		validUntil := dateOnly(now.AddDate(0, 0, settings.ValidityDays))
		o := &domain.Offer{
			TenantID:      &tenantID,
			OwnerUsername: &username,
			ClientName:    strings.TrimSpace(clientName),
			OfferYear:     n.Year,
			OfferSeq:      n.Seq,
			OfferNo:       n.Number,
			Status:        domain.OfferStatusDraft,
			VATRate:       settings.DefaultVATRate,
			ValidUntil:    &validUntil,
		}
		o.CreatedAt = now
		o.UpdatedAt = now

		if err := s.offerRepo.WithTx(tx).Create(ctx, o); err != nil {
			return fmt.Errorf("failed to create offer: %w", err)
		}
		offer = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("offer_no", offer.OfferNo),
		zap.String("tenant_id", owner.TenantID.String()),
	)
	s.audit.RecordOffer(ctx, owner, domain.AuditActionOfferCreated, offer.ID, map[string]interface{}{
		"offer_no": offer.OfferNo,
	})

	dto := mapper.ToOfferDTO(offer, nil, s.portalBaseURL)
	return &dto, nil
}

// GetOffer returns an offer with items and totals
func (s *OfferService) GetOffer(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, err := s.getOwned(ctx, s.offerRepo, owner, id, false)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, offer)
}

// ListOffers returns a page of the owner's offers. The default view hides
// archived offers.
func (s *OfferService) ListOffers(ctx context.Context, owner domain.Owner, filters repository.OfferFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	rows, total, err := s.offerRepo.List(ctx, owner, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	dtos := make([]domain.OfferSummaryDTO, len(rows))
	for i, row := range rows {
		dtos[i] = mapper.ToOfferSummaryDTO(row)
	}

	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// UpdateClient replaces the client snapshot of an offer and saves the
// client to the address book
func (s *OfferService) UpdateClient(ctx context.Context, owner domain.Owner, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.OfferDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrClientNameRequired
	}

	offer, err := s.editOffer(ctx, owner, id, func(tx *gorm.DB, o *domain.Offer) error {
		o.ClientName = name
		o.ClientEmail = strings.TrimSpace(req.Email)
		o.ClientAddress = strings.TrimSpace(req.Address)
		o.ClientTaxID = strings.TrimSpace(req.TaxID)
		o.UpdatedAt = s.now().UTC()
		if err := s.offerRepo.WithTx(tx).Save(ctx, o); err != nil {
			return fmt.Errorf("failed to update offer client: %w", err)
		}

		if _, err := s.clientRepo.WithTx(tx).Upsert(ctx, &domain.Client{
			TenantID: owner.TenantID,
			Name:     o.ClientName,
			Email:    o.ClientEmail,
			Address:  o.ClientAddress,
			TaxID:    o.ClientTaxID,
		}, false); err != nil {
			return fmt.Errorf("failed to save client: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionClientUpdated, offer.ID, map[string]interface{}{
		"client_name": offer.ClientName,
	})
	return s.toDTO(ctx, offer)
}

// UpdateTerms replaces the commercial terms of an offer. A nil VAT rate
// keeps the current one; an empty validity date clears it.
func (s *OfferService) UpdateTerms(ctx context.Context, owner domain.Owner, id uuid.UUID, req *domain.UpdateTermsRequest) (*domain.OfferDTO, error) {
	var validUntil *time.Time
	clearValidity := false
	if req.ValidUntil != nil {
		if v := strings.TrimSpace(*req.ValidUntil); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				return nil, ErrInvalidDate
			}
			validUntil = &parsed
		} else {
			clearValidity = true
		}
	}

	offer, err := s.editOffer(ctx, owner, id, func(tx *gorm.DB, o *domain.Offer) error {
		o.DeliveryTerms = strings.TrimSpace(req.DeliveryTerms)
		o.PaymentTerms = strings.TrimSpace(req.PaymentTerms)
		o.Note = strings.TrimSpace(req.Note)
		o.Place = strings.TrimSpace(req.Place)
		o.Signatory = strings.TrimSpace(req.Signatory)
		if req.VATRate != nil {
			o.VATRate = *req.VATRate
		}
		if validUntil != nil {
			o.ValidUntil = validUntil
		} else if clearValidity {
			o.ValidUntil = nil
		}
		o.UpdatedAt = s.now().UTC()
		if err := s.offerRepo.WithTx(tx).Save(ctx, o); err != nil {
			return fmt.Errorf("failed to update offer terms: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionTermsUpdated, offer.ID, nil)
	return s.toDTO(ctx, offer)
}

// ============================================================================
// Items
// ============================================================================

// AddItem appends a line item. Quantity and price are parsed leniently and
// default to 1 and 0 when empty or unparseable. Amounts that do not fit the
// item columns are rejected.
func (s *OfferService) AddItem(ctx context.Context, owner domain.Owner, id uuid.UUID, name, qty, price string) (*domain.OfferDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrItemNameRequired
	}
	q := domain.ParseAmount(qty, 1)
	p := domain.ParseAmount(price, 0)
	if err := domain.CheckItemAmounts(q, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var item domain.OfferItem
	offer, err := s.editOffer(ctx, owner, id, func(tx *gorm.DB, o *domain.Offer) error {
		item = domain.OfferItem{
			OfferID:   o.ID,
			Name:      name,
			Qty:       q,
			Price:     p,
			LineTotal: domain.LineTotal(q, p),
		}
		if err := s.itemRepo.WithTx(tx).Add(ctx, &item); err != nil {
			return fmt.Errorf("failed to add offer item: %w", err)
		}
		return s.touch(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionItemAdded, offer.ID, map[string]interface{}{
		"item_id":    item.ID.String(),
		"name":       item.Name,
		"line_total": item.LineTotal,
	})
	return s.toDTO(ctx, offer)
}

// DeleteItem removes one item; the remaining items keep their positions
func (s *OfferService) DeleteItem(ctx context.Context, owner domain.Owner, id, itemID uuid.UUID) (*domain.OfferDTO, error) {
	offer, err := s.editOffer(ctx, owner, id, func(tx *gorm.DB, o *domain.Offer) error {
		deleted, err := s.itemRepo.WithTx(tx).Delete(ctx, o.ID, itemID)
		if err != nil {
			return fmt.Errorf("failed to delete offer item: %w", err)
		}
		if deleted == 0 {
			return ErrOfferItemNotFound
		}
		return s.touch(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionItemDeleted, offer.ID, map[string]interface{}{
		"item_id": itemID.String(),
	})
	return s.toDTO(ctx, offer)
}

// ClearItems removes every item of an offer
func (s *OfferService) ClearItems(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	var cleared int64
	offer, err := s.editOffer(ctx, owner, id, func(tx *gorm.DB, o *domain.Offer) error {
		n, err := s.itemRepo.WithTx(tx).Clear(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("failed to clear offer items: %w", err)
		}
		cleared = n
		return s.touch(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionItemsCleared, offer.ID, map[string]interface{}{
		"removed": cleared,
	})
	return s.toDTO(ctx, offer)
}

func (s *OfferService) touch(ctx context.Context, tx *gorm.DB, o *domain.Offer) error {
	now := s.now().UTC()
	if err := s.offerRepo.WithTx(tx).UpdateFields(ctx, o.ID, map[string]interface{}{}); err != nil {
		return fmt.Errorf("failed to touch offer: %w", err)
	}
	o.UpdatedAt = now
	return nil
}

// ============================================================================
// Duplicate
// ============================================================================

// DuplicateOffer creates a new draft with a fresh number, copying the client
// snapshot, the terms and every item. The source is not modified and may be
// in any state.
func (s *OfferService) DuplicateOffer(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	source, err := s.getOwned(ctx, s.offerRepo, owner, id, false)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var copied *domain.Offer
	var itemCount int
	err = runNumbered(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		n, err := s.sequences.Allocate(ctx, tx, owner, domain.SequenceKindOffer, now)
		if err != nil {
			return err
		}

		tenantID := owner.TenantID
		username := strings.ToLower(owner.Username)
		o := &domain.Offer{
			TenantID:      &tenantID,
			OwnerUsername: &username,
			ClientName:    source.ClientName,
			ClientEmail:   source.ClientEmail,
			ClientAddress: source.ClientAddress,
			ClientTaxID:   source.ClientTaxID,
			OfferYear:     n.Year,
			OfferSeq:      n.Seq,
			OfferNo:       n.Number,
			Status:        domain.OfferStatusDraft,
			DeliveryTerms: source.DeliveryTerms,
			PaymentTerms:  source.PaymentTerms,
			Note:          source.Note,
			Place:         source.Place,
			Signatory:     source.Signatory,
			VATRate:       source.VATRate,
			ValidUntil:    source.ValidUntil,
		}
		o.CreatedAt = now
		o.UpdatedAt = now
		if err := s.offerRepo.WithTx(tx).Create(ctx, o); err != nil {
			return fmt.Errorf("failed to create duplicate offer: %w", err)
		}

		count, err := s.itemRepo.WithTx(tx).CopyItems(ctx, source.ID, o.ID)
		if err != nil {
			return fmt.Errorf("failed to copy offer items: %w", err)
		}
		copied = o
		itemCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer duplicated",
		zap.String("source_offer_id", source.ID.String()),
		zap.String("offer_id", copied.ID.String()),
		zap.String("offer_no", copied.OfferNo),
		zap.Int("items", itemCount),
	)
	s.audit.RecordOffer(ctx, owner, domain.AuditActionDuplicated, copied.ID, map[string]interface{}{
		"source_offer_id": source.ID.String(),
		"source_offer_no": source.OfferNo,
	})
	return s.toDTO(ctx, copied)
}

// History returns the latest audit entries of an owned offer
func (s *OfferService) History(ctx context.Context, owner domain.Owner, id uuid.UUID, limit int) ([]domain.AuditLogDTO, error) {
	offer, err := s.getOwned(ctx, s.offerRepo, owner, id, false)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = 50
	}
	return s.audit.ListByOffer(ctx, offer.ID, limit)
}
