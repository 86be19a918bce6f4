package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository handles the per tenant, year and kind counter rows.
// Offer and invoice numbers are independent streams.
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *NumberSequenceRepository) WithTx(tx *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: tx}
}

// Next claims the next sequence for (tenant, year, kind). It must run on a
// repository bound to the caller's transaction with WithTx: the counter row
// is locked with SELECT FOR UPDATE until that transaction ends.
//
// The claimed value is never below the highest number already stored on an
// offer the owner can see, archived ones and legacy rows owned only by
// username included, so rows inserted without going through the counter
// cannot cause a number to be handed out twice.
//
// A missing counter row is created. When two transactions race to create
// it, the loser fails with a duplicate key error and should retry.
func (r *NumberSequenceRepository) Next(ctx context.Context, owner domain.Owner, year int, kind domain.SequenceKind) (int, error) {
	if !kind.IsValid() {
		return 0, fmt.Errorf("unknown sequence kind %q", kind)
	}

	db := r.db.WithContext(ctx)
	tenantID := owner.TenantID
	now := time.Now().UTC()

	var seq domain.NumberSequence
	result := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND year = ? AND kind = ?", tenantID, year, kind).
		First(&seq)

	stored, err := r.maxAllocated(ctx, owner, year, kind)
	if err != nil {
		return 0, err
	}

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		seq = domain.NumberSequence{
			TenantID:     tenantID,
			Year:         year,
			Kind:         kind,
			LastSequence: stored + 1,
			UpdatedAt:    now,
		}
		if err := db.Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("failed to create number sequence: %w", err)
		}
		return seq.LastSequence, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	next := max(seq.LastSequence, stored) + 1
	if err := db.Model(&domain.NumberSequence{}).
		Where("tenant_id = ? AND year = ? AND kind = ?", tenantID, year, kind).
		Updates(map[string]interface{}{
			"last_sequence": next,
			"updated_at":    now,
		}).Error; err != nil {
		return 0, fmt.Errorf("failed to update number sequence: %w", err)
	}

	return next, nil
}

// maxAllocated returns the highest sequence already stored on the owner's offers
func (r *NumberSequenceRepository) maxAllocated(ctx context.Context, owner domain.Owner, year int, kind domain.SequenceKind) (int, error) {
	var maxSeq int
	query := ApplyOwnerFilter(r.db.WithContext(ctx).Model(&domain.Offer{}), owner)

	switch kind {
	case domain.SequenceKindInvoice:
		query = query.Select("COALESCE(MAX(invoice_seq), 0)").Where("invoice_year = ?", year)
	default:
		query = query.Select("COALESCE(MAX(offer_seq), 0)").Where("offer_year = ?", year)
	}

	if err := query.Scan(&maxSeq).Error; err != nil {
		return 0, fmt.Errorf("failed to read highest %s sequence: %w", kind, err)
	}
	return maxSeq, nil
}

// Current returns the last claimed sequence, or 0 when none was claimed
func (r *NumberSequenceRepository) Current(ctx context.Context, tenantID uuid.UUID, year int, kind domain.SequenceKind) (int, error) {
	var seq domain.NumberSequence
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND year = ? AND kind = ?", tenantID, year, kind).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", err)
	}
	return seq.LastSequence, nil
}

// ListByTenant returns every counter row of a tenant, newest year first
func (r *NumberSequenceRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.NumberSequence, error) {
	var sequences []domain.NumberSequence
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("year DESC, kind ASC").
		Find(&sequences).Error
	return sequences, err
}
