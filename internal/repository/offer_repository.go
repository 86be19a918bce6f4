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

// ArchiveView selects which offers a list returns
type ArchiveView string

const (
	ArchiveViewActive   ArchiveView = "active"
	ArchiveViewArchived ArchiveView = "archived"
	ArchiveViewAll      ArchiveView = "all"
)

// ParseArchiveView maps a query value onto an ArchiveView, defaulting to active
func ParseArchiveView(s string) ArchiveView {
	switch ArchiveView(strings.ToLower(s)) {
	case ArchiveViewArchived:
		return ArchiveViewArchived
	case ArchiveViewAll:
		return ArchiveViewAll
	default:
		return ArchiveViewActive
	}
}

// OfferFilters holds the optional list filters
type OfferFilters struct {
	Status *domain.OfferStatus
	View   ArchiveView
	// Client matches the client name exactly, ignoring case
	Client string
	// Query matches offer number or client name as a substring
	Query     string
	IsInvoice *bool
	Paid      *bool
}

// OfferRow is an offer list entry with its aggregated item subtotal
type OfferRow struct {
	Offer    domain.Offer
	Subtotal float64
}

var offerSortFields = map[string]string{
	"createdAt":  "offers.created_at",
	"offerNo":    "offers.offer_year, offers.offer_seq",
	"clientName": "offers.client_name",
	"status":     "offers.status",
	"invoiceNo":  "offers.invoice_year, offers.invoice_seq",
}

// OfferRepository handles offer persistence. Every lookup that takes an
// Owner applies the ownership predicate from ApplyOwnerFilter.
type OfferRepository struct {
	db *gorm.DB
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *OfferRepository) WithTx(tx *gorm.DB) *OfferRepository {
	return &OfferRepository{db: tx}
}

// Create inserts an offer without touching associations
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(offer).Error
}

// GetByID returns the offer when it exists and belongs to owner
func (r *OfferRepository) GetByID(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.Offer, error) {
	var offer domain.Offer
	query := ApplyOwnerFilter(r.db.WithContext(ctx), owner)
	if err := query.Where("offers.id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// GetByIDForUpdate is GetByID with a row lock; use inside a transaction
func (r *OfferRepository) GetByIDForUpdate(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.Offer, error) {
	var offer domain.Offer
	query := ApplyOwnerFilter(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), owner)
	if err := query.Where("offers.id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// GetByPortalToken looks an offer up by its portal token alone
func (r *OfferRepository) GetByPortalToken(ctx context.Context, token string) (*domain.Offer, error) {
	var offer domain.Offer
	if err := r.db.WithContext(ctx).Where("portal_token = ?", token).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// Save writes every column of offer
func (r *OfferRepository) Save(ctx context.Context, offer *domain.Offer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(offer).Error
}

// UpdateFields updates selected columns of one offer
func (r *OfferRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Offer{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes an offer and its items
func (r *OfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("offer_id = ?", id).Delete(&domain.OfferItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&domain.Offer{}).Error
}

// List returns a page of offers with item subtotals
func (r *OfferRepository) List(ctx context.Context, owner domain.Owner, filters OfferFilters, sort SortConfig, page, pageSize int) ([]OfferRow, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	query := ApplyOwnerFilter(r.db.WithContext(ctx).Model(&domain.Offer{}), owner)
	query = applyOfferFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var offers []domain.Offer
	err := query.
		Order(BuildOrderClause(sort, offerSortFields, "offers.offer_year, offers.offer_seq")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&offers).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, len(offers))
	for i := range offers {
		ids[i] = offers[i].ID
	}
	subtotals, err := r.subtotals(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]OfferRow, len(offers))
	for i, o := range offers {
		rows[i] = OfferRow{Offer: o, Subtotal: subtotals[o.ID]}
	}
	return rows, total, nil
}

func (r *OfferRepository) subtotals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var sums []struct {
		OfferID  uuid.UUID
		Subtotal float64
	}
	err := r.db.WithContext(ctx).Model(&domain.OfferItem{}).
		Select("offer_id, COALESCE(SUM(line_total), 0) AS subtotal").
		Where("offer_id IN ?", ids).
		Group("offer_id").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	for _, s := range sums {
		out[s.OfferID] = s.Subtotal
	}
	return out, nil
}

func applyOfferFilters(query *gorm.DB, f OfferFilters) *gorm.DB {
	switch f.View {
	case ArchiveViewArchived:
		query = query.Where("offers.archived = ?", true)
	case ArchiveViewAll:
	default:
		query = query.Where("offers.archived = ?", false)
	}

	if f.Status != nil {
		query = query.Where("offers.status = ?", *f.Status)
	}
	if c := strings.TrimSpace(f.Client); c != "" {
		query = query.Where("LOWER(offers.client_name) = ?", strings.ToLower(c))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where(`(LOWER(offers.offer_no) LIKE ? ESCAPE '\' OR LOWER(offers.client_name) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.IsInvoice != nil {
		query = query.Where("offers.is_invoice = ?", *f.IsInvoice)
	}
	if f.Paid != nil {
		query = query.Where("offers.paid = ?", *f.Paid)
	}
	return query
}

// SetPortalTokenIfEmpty stores token unless the offer already has one.
// It returns false when another token was already present.
func (r *OfferRepository) SetPortalTokenIfEmpty(ctx context.Context, id uuid.UUID, token string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Offer{}).
		Where("id = ? AND portal_token IS NULL", id).
		Updates(map[string]interface{}{
			"portal_token": token,
			"updated_at":   time.Now().UTC(),
		})
	return result.RowsAffected == 1, result.Error
}

// RecordView increments the view counter of the offer with token.
// It returns the number of rows touched (0 for an unknown token).
func (r *OfferRepository) RecordView(ctx context.Context, token, ip string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Offer{}).
		Where("portal_token = ?", token).
		UpdateColumns(map[string]interface{}{
			"view_count":      gorm.Expr("view_count + 1"),
			"first_viewed_at": gorm.Expr("COALESCE(first_viewed_at, ?)", at),
			"last_viewed_at":  at,
			"last_view_ip":    ip,
		})
	return result.RowsAffected, result.Error
}

// RecordClick increments the click counter of the offer with token
func (r *OfferRepository) RecordClick(ctx context.Context, token, ip string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Offer{}).
		Where("portal_token = ?", token).
		UpdateColumns(map[string]interface{}{
			"click_count":     gorm.Expr("click_count + 1"),
			"last_clicked_at": at,
			"last_click_ip":   ip,
		})
	return result.RowsAffected, result.Error
}

// AcceptByToken moves the offer to accepted when it is neither accepted
// nor archived. The guard is part of the UPDATE so concurrent accepts
// cannot both succeed; a zero result means nothing changed.
func (r *OfferRepository) AcceptByToken(ctx context.Context, token string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Offer{}).
		Where("portal_token = ? AND status <> ? AND archived = ?", token, domain.OfferStatusAccepted, false).
		UpdateColumns(map[string]interface{}{
			"status":       domain.OfferStatusAccepted,
			"accepted_at":  at,
			"accepted_via": domain.AcceptedViaPortal,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}
