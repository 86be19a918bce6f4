package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"gorm.io/gorm"
)

// OfferItemRepository handles offer line items. Callers resolve and
// authorize the parent offer first; these methods trust the offer id.
type OfferItemRepository struct {
	db *gorm.DB
}

// NewOfferItemRepository creates a new OfferItemRepository
func NewOfferItemRepository(db *gorm.DB) *OfferItemRepository {
	return &OfferItemRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *OfferItemRepository) WithTx(tx *gorm.DB) *OfferItemRepository {
	return &OfferItemRepository{db: tx}
}

// Add appends item after every position the offer has ever used, deleted
// items included. It must run in the transaction that locked the offer row.
func (r *OfferItemRepository) Add(ctx context.Context, item *domain.OfferItem) error {
	pos, err := r.nextPosition(ctx, item.OfferID)
	if err != nil {
		return err
	}
	item.Position = pos
	return r.db.WithContext(ctx).Create(item).Error
}

// nextPosition bumps the offer's position mark. Rows written before the mark
// existed start from their highest stored position.
func (r *OfferItemRepository) nextPosition(ctx context.Context, offerID uuid.UUID) (int, error) {
	db := r.db.WithContext(ctx)

	var mark int
	if err := db.Model(&domain.Offer{}).
		Select("last_item_position").
		Where("id = ?", offerID).
		Scan(&mark).Error; err != nil {
		return 0, fmt.Errorf("failed to read item position mark: %w", err)
	}

	var stored int
	if err := db.Model(&domain.OfferItem{}).
		Select("COALESCE(MAX(position), 0)").
		Where("offer_id = ?", offerID).
		Scan(&stored).Error; err != nil {
		return 0, fmt.Errorf("failed to read highest item position: %w", err)
	}

	next := max(mark, stored) + 1
	if err := r.setPositionMark(ctx, offerID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *OfferItemRepository) setPositionMark(ctx context.Context, offerID uuid.UUID, pos int) error {
	if err := r.db.WithContext(ctx).Model(&domain.Offer{}).
		Where("id = ?", offerID).
		UpdateColumn("last_item_position", pos).Error; err != nil {
		return fmt.Errorf("failed to update item position mark: %w", err)
	}
	return nil
}

// ListByOffer returns the items of an offer in position order
func (r *OfferItemRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]domain.OfferItem, error) {
	var items []domain.OfferItem
	err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// Delete removes one item of an offer. Remaining positions are left as they are.
func (r *OfferItemRepository) Delete(ctx context.Context, offerID, itemID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("offer_id = ? AND id = ?", offerID, itemID).
		Delete(&domain.OfferItem{})
	return result.RowsAffected, result.Error
}

// Clear removes every item of an offer. The position mark is kept, so
// items added afterwards continue the numbering.
func (r *OfferItemRepository) Clear(ctx context.Context, offerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Delete(&domain.OfferItem{})
	return result.RowsAffected, result.Error
}

// CopyItems copies all items of one offer onto another, keeping order and amounts
func (r *OfferItemRepository) CopyItems(ctx context.Context, fromOfferID, toOfferID uuid.UUID) (int, error) {
	items, err := r.ListByOffer(ctx, fromOfferID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	copies := make([]domain.OfferItem, len(items))
	last := 0
	for i, item := range items {
		last = max(last, item.Position)
		copies[i] = domain.OfferItem{
			OfferID:   toOfferID,
			Position:  item.Position,
			Name:      item.Name,
			Qty:       item.Qty,
			Price:     item.Price,
			LineTotal: item.LineTotal,
		}
	}
	if err := r.db.WithContext(ctx).Create(&copies).Error; err != nil {
		return 0, err
	}
	if err := r.setPositionMark(ctx, toOfferID, last); err != nil {
		return 0, err
	}
	return len(copies), nil
}
