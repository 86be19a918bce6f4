package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateInvoice derives an invoice from an accepted offer. The first call
// allocates the next invoice number of the current year; later calls return
// the offer unchanged without consuming a number.
func (s *OfferService) CreateInvoice(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	var (
		offer   *domain.Offer
		created bool
	)
	err := runNumbered(ctx, s.db, s.logger, func(tx *gorm.DB) error {
		created = false
		repo := s.offerRepo.WithTx(tx)
		o, err := s.getOwned(ctx, repo, owner, id, true)
		if err != nil {
			return err
		}
		if o.Status != domain.OfferStatusAccepted {
			return ErrOfferNotAccepted
		}
		if o.HasInvoice() {
			offer = o
			return nil
		}
		if o.Archived {
			return ErrOfferArchived
		}

		now := s.now().UTC()
		n, err := s.sequences.Allocate(ctx, tx, owner, domain.SequenceKindInvoice, now)
		if err != nil {
			return err
		}

		invoiceDate := dateOnly(now)
		o.IsInvoice = true
		o.InvoiceYear = &n.Year
		o.InvoiceSeq = &n.Seq
		o.InvoiceNo = &n.Number
		o.InvoiceDate = &invoiceDate
		o.UpdatedAt = now
		if err := repo.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		offer = o
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("invoice created",
			zap.String("offer_id", offer.ID.String()),
			zap.String("offer_no", offer.OfferNo),
			zap.String("invoice_no", *offer.InvoiceNo),
		)
		s.audit.RecordOffer(ctx, owner, domain.AuditActionInvoiceCreated, offer.ID, map[string]interface{}{
			"invoice_no": *offer.InvoiceNo,
		})
	}
	return s.toDTO(ctx, offer)
}

// SetInvoicePaid marks an invoice as paid or unpaid
func (s *OfferService) SetInvoicePaid(ctx context.Context, owner domain.Owner, id uuid.UUID, paid bool) (*domain.OfferDTO, error) {
	offer, changed, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if !o.HasInvoice() {
			return ErrOfferNotInvoiced
		}
		if o.Paid == paid {
			return errNoChange
		}
		o.Paid = paid
		if paid {
			now := s.now().UTC()
			o.PaidAt = &now
		} else {
			o.PaidAt = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		action := domain.AuditActionInvoicePaid
		if !paid {
			action = domain.AuditActionInvoiceUnpaid
		}
		s.audit.RecordOffer(ctx, owner, action, offer.ID, map[string]interface{}{
			"invoice_no": *offer.InvoiceNo,
		})
	}
	return s.toDTO(ctx, offer)
}

// ListInvoices returns the owner's invoices, archived ones included,
// newest invoice number first
func (s *OfferService) ListInvoices(ctx context.Context, owner domain.Owner, paid *bool, page, pageSize int) (*domain.PaginatedResponse, error) {
	isInvoice := true
	filters := repository.OfferFilters{
		View:      repository.ArchiveViewAll,
		IsInvoice: &isInvoice,
		Paid:      paid,
	}
	sort := repository.SortConfig{Field: "invoiceNo", Order: repository.SortOrderDesc}
	return s.ListOffers(ctx, owner, filters, sort, page, pageSize)
}
