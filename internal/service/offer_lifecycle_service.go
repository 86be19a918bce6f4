package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errNoChange aborts a transition transaction without reporting an error
// to the caller
var errNoChange = errors.New("no change")

// transition locks the offer, lets fn mutate it and saves the result.
// fn returns errNoChange for idempotent no-ops.
func (s *OfferService) transition(ctx context.Context, owner domain.Owner, id uuid.UUID, fn func(o *domain.Offer) error) (*domain.Offer, bool, error) {
	var offer *domain.Offer
	changed := true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.getOwned(ctx, s.offerRepo.WithTx(tx), owner, id, true)
		if err != nil {
			return err
		}
		offer = o
		if err := fn(o); err != nil {
			return err
		}
		o.UpdatedAt = s.now().UTC()
		if err := s.offerRepo.WithTx(tx).Save(ctx, o); err != nil {
			return fmt.Errorf("failed to update offer: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, false, err
	}
	return offer, changed, nil
}

// ============================================================================
// Status transitions
// ============================================================================

// MarkSent moves a draft offer to sent
func (s *OfferService) MarkSent(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, _, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if o.Archived {
			return ErrOfferArchived
		}
		if !o.CanMarkSent() {
			return ErrOfferNotDraft
		}
		o.Status = domain.OfferStatusSent
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordOffer(ctx, owner, domain.AuditActionMarkedSent, offer.ID, nil)
	return s.toDTO(ctx, offer)
}

// Accept records an acceptance on behalf of the client. The offer becomes
// edit-locked.
func (s *OfferService) Accept(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, _, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if o.Archived {
			return ErrOfferArchived
		}
		if o.Status == domain.OfferStatusAccepted {
			return ErrOfferAlreadyAccepted
		}
		now := s.now().UTC()
		via := domain.AcceptedViaAdmin
		o.Status = domain.OfferStatusAccepted
		o.AcceptedAt = &now
		o.AcceptedVia = &via
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer accepted",
		zap.String("offer_id", offer.ID.String()),
		zap.String("offer_no", offer.OfferNo),
		zap.String("via", string(domain.AcceptedViaAdmin)),
	)
	s.audit.RecordOffer(ctx, owner, domain.AuditActionAccepted, offer.ID, map[string]interface{}{
		"via": domain.AcceptedViaAdmin,
	})
	return s.toDTO(ctx, offer)
}

// Unlock returns an accepted offer to draft so it can be edited again. An
// issued invoice number is kept.
func (s *OfferService) Unlock(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	var previous *domain.AcceptanceChannel
	offer, _, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if o.Archived {
			return ErrOfferArchived
		}
		if !o.CanUnlock() {
			return ErrOfferNotAccepted
		}
		previous = o.AcceptedVia
		o.Status = domain.OfferStatusDraft
		o.AcceptedAt = nil
		o.AcceptedVia = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	via := ""
	if previous != nil {
		via = string(*previous)
	}
	s.logger.Warn("accepted offer unlocked",
		zap.String("offer_id", offer.ID.String()),
		zap.String("offer_no", offer.OfferNo),
		zap.String("accepted_via", via),
		zap.String("user", owner.Username),
	)
	s.audit.RecordOffer(ctx, owner, domain.AuditActionUnlocked, offer.ID, map[string]interface{}{
		"accepted_via": via,
	})
	return s.toDTO(ctx, offer)
}

// ============================================================================
// Archive
// ============================================================================

// Archive hides an offer from the default list and locks it. Archiving an
// archived offer is a no-op.
func (s *OfferService) Archive(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, changed, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if o.Archived {
			return errNoChange
		}
		now := s.now().UTC()
		o.Archived = true
		o.ArchivedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.audit.RecordOffer(ctx, owner, domain.AuditActionArchived, offer.ID, nil)
	}
	return s.toDTO(ctx, offer)
}

// Unarchive restores an archived offer. Its status is unchanged.
func (s *OfferService) Unarchive(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, changed, err := s.transition(ctx, owner, id, func(o *domain.Offer) error {
		if !o.Archived {
			return errNoChange
		}
		o.Archived = false
		o.ArchivedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.audit.RecordOffer(ctx, owner, domain.AuditActionUnarchived, offer.ID, nil)
	}
	return s.toDTO(ctx, offer)
}

// DeleteOffer permanently removes an archived offer and its items. Its
// number is not reused.
func (s *OfferService) DeleteOffer(ctx context.Context, owner domain.Owner, id uuid.UUID) error {
	var offerNo string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.offerRepo.WithTx(tx)
		o, err := s.getOwned(ctx, repo, owner, id, true)
		if err != nil {
			return err
		}
		if !o.CanDelete() {
			return ErrOfferNotArchived
		}
		offerNo = o.OfferNo
		if err := repo.Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("failed to delete offer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("offer deleted",
		zap.String("offer_id", id.String()),
		zap.String("offer_no", offerNo),
	)
	s.audit.RecordOffer(ctx, owner, domain.AuditActionDeleted, id, map[string]interface{}{
		"offer_no": offerNo,
	})
	return nil
}
