package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxAllocationAttempts bounds how often a numbered write is retried after
// losing a race on a unique index
const maxAllocationAttempts = 3

// AllocatedNumber is a claimed document number
type AllocatedNumber struct {
	Year   int
	Seq    int
	Number string
}

// NumberSequenceService allocates per-tenant, per-year document numbers.
// Offers and invoices use independent streams with the same YEAR-NNNN format.
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(repo *repository.NumberSequenceRepository, logger *zap.Logger) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// Allocate claims the next number of kind for the owner's tenant and the year of at.
// tx must be the transaction that also writes the numbered row, so the
// counter lock is held until the row is committed.
func (s *NumberSequenceService) Allocate(ctx context.Context, tx *gorm.DB, owner domain.Owner, kind domain.SequenceKind, at time.Time) (AllocatedNumber, error) {
	year := at.Year()

	seq, err := s.repo.WithTx(tx).Next(ctx, owner, year, kind)
	if err != nil {
		return AllocatedNumber{}, fmt.Errorf("failed to allocate %s number: %w", kind, err)
	}

	n := AllocatedNumber{Year: year, Seq: seq, Number: domain.FormatNumber(year, seq)}
	s.logger.Debug("allocated document number",
		zap.String("tenant_id", owner.TenantID.String()),
		zap.String("kind", string(kind)),
		zap.String("number", n.Number),
	)
	return n, nil
}

// List returns the tenant's counters with the last issued number
func (s *NumberSequenceService) List(ctx context.Context, tenantID uuid.UUID) ([]domain.SequenceDTO, error) {
	rows, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}

	out := make([]domain.SequenceDTO, len(rows))
	for i, row := range rows {
		out[i] = domain.SequenceDTO{
			Year:         row.Year,
			Kind:         row.Kind,
			LastSequence: row.LastSequence,
			LastNumber:   domain.FormatNumber(row.Year, row.LastSequence),
		}
	}
	return out, nil
}

// runNumbered runs fn in a transaction and retries it when a unique index
// rejects the write, so a caller that lost an allocation race gets a
// freshly computed number instead of an error.
func runNumbered(ctx context.Context, db *gorm.DB, logger *zap.Logger, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !repository.IsDuplicateKey(err) {
			return err
		}
		logger.Warn("document number collision, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: %v", ErrSequenceContention, err)
}
