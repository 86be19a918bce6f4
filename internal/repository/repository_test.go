package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{
		"createdAt": "offers.created_at",
		"offerNo":   "offers.offer_year, offers.offer_seq",
	}

	tests := []struct {
		name   string
		config repository.SortConfig
		want   string
	}{
		{name: "single column desc", config: repository.SortConfig{Field: "createdAt", Order: repository.SortOrderDesc}, want: "offers.created_at DESC"},
		{name: "multi column asc", config: repository.SortConfig{Field: "offerNo", Order: repository.SortOrderAsc}, want: "offers.offer_year ASC, offers.offer_seq ASC"},
		{name: "unknown field uses default", config: repository.SortConfig{Field: "1; DROP TABLE offers", Order: repository.SortOrderAsc}, want: "offers.created_at ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.BuildOrderClause(tt.config, fields, "offers.created_at"))
		})
	}
}

func TestParseSortOrderAndView(t *testing.T) {
	assert.Equal(t, repository.SortOrderAsc, repository.ParseSortOrder("ASC"))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder(""))
	assert.Equal(t, repository.SortOrderDesc, repository.ParseSortOrder("sideways"))

	assert.Equal(t, repository.ArchiveViewArchived, repository.ParseArchiveView("Archived"))
	assert.Equal(t, repository.ArchiveViewAll, repository.ParseArchiveView("all"))
	assert.Equal(t, repository.ArchiveViewActive, repository.ParseArchiveView(""))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{page: 0, size: 0, wantPage: 1, wantSize: repository.DefaultPageSize},
		{page: 3, size: 10, wantPage: 3, wantSize: 10},
		{page: -2, size: 1000, wantPage: 1, wantSize: repository.MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.page, tt.size), func(t *testing.T) {
			page, size := repository.NormalizePage(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm sentinel", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "idx_offers_tenant_number" (SQLSTATE 23505)`), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: offers.tenant_id, offers.offer_year"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.IsDuplicateKey(tt.err))
		})
	}
}

func TestApplyOwnerFilter_MatchesLegacyRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	testutil.CreateLegacyOffer(t, db, "ACME", 2024, 7)
	testutil.CreateLegacyOffer(t, db, "globex", 2024, 8)

	var offers []domain.Offer
	err := repository.ApplyOwnerFilter(db.Model(&domain.Offer{}), testutil.Owner(tenant)).Find(&offers).Error
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "2024-0007", offers[0].OfferNo)
}

func TestNumberSequenceRepository_Next(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKindOffer)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	invoice, err := repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKindInvoice)
	require.NoError(t, err)
	assert.Equal(t, 1, invoice, "invoice stream is independent")

	nextYear, err := repo.Next(ctx, testutil.Owner(tenant), 2026, domain.SequenceKindOffer)
	require.NoError(t, err)
	assert.Equal(t, 1, nextYear)

	current, err := repo.Current(ctx, tenant.ID, 2025, domain.SequenceKindOffer)
	require.NoError(t, err)
	assert.Equal(t, 3, current)

	rows, err := repo.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 2026, rows[0].Year)

	_, err = repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKind("receipt"))
	assert.Error(t, err)
}

func TestNumberSequenceRepository_NextSkipsStoredNumbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	// a row written without the counter, e.g. imported data
	tenantID := tenant.ID
	offer := &domain.Offer{
		TenantID:   &tenantID,
		ClientName: "Imported",
		OfferYear:  2025,
		OfferSeq:   41,
		OfferNo:    domain.FormatNumber(2025, 41),
		Status:     domain.OfferStatusDraft,
		Archived:   true,
	}
	require.NoError(t, db.Omit("Items").Create(offer).Error)

	got, err := repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKindOffer)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestNumberSequenceRepository_NextCountsLegacyRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	legacy := testutil.CreateLegacyOffer(t, db, "ACME", 2025, 3)
	invoiceYear, invoiceSeq := 2025, 5
	require.NoError(t, db.Model(legacy).Updates(map[string]interface{}{
		"is_invoice":   true,
		"invoice_year": invoiceYear,
		"invoice_seq":  invoiceSeq,
		"invoice_no":   domain.FormatNumber(invoiceYear, invoiceSeq),
	}).Error)
	testutil.CreateLegacyOffer(t, db, "globex", 2025, 9)

	offerSeq, err := repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKindOffer)
	require.NoError(t, err)
	assert.Equal(t, 4, offerSeq, "legacy offer of the same user is counted")

	invoice, err := repo.Next(ctx, testutil.Owner(tenant), 2025, domain.SequenceKindInvoice)
	require.NoError(t, err)
	assert.Equal(t, 6, invoice, "legacy invoice of the same user is counted")
}

func TestTenantRepository_GetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTenantRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "acme")
	require.NoError(t, err)
	second, err := repo.GetOrCreate(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	byID, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", byID.Username)

	_, err = repo.GetByUsername(ctx, "globex")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestClientRepository_UpsertAndSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	repo := repository.NewClientRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, &domain.Client{TenantID: tenant.ID, Name: "Globex", Note: "keep"}, true)
	require.NoError(t, err)

	updated, err := repo.Upsert(ctx, &domain.Client{TenantID: tenant.ID, Name: "Globex", Email: "a@globex.example.com", Note: "drop"}, false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "a@globex.example.com", updated.Email)
	assert.Equal(t, "keep", updated.Note)

	_, err = repo.Upsert(ctx, &domain.Client{TenantID: tenant.ID, Name: "100% Steel"}, true)
	require.NoError(t, err)

	tests := []struct {
		search string
		want   int
	}{
		{search: "", want: 2},
		{search: "glob", want: 1},
		{search: "100%", want: 1},
		{search: "%", want: 1},
		{search: "_", want: 0},
	}
	for _, tt := range tests {
		t.Run("search "+tt.search, func(t *testing.T) {
			clients, err := repo.List(ctx, tenant.ID, tt.search)
			require.NoError(t, err)
			assert.Len(t, clients, tt.want)
		})
	}

	deleted, err := repo.Delete(ctx, uuid.New(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted, "other tenant cannot delete")
}

func TestOfferRepository_PortalTracking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tenant := testutil.CreateTestTenant(t, db, "acme")
	repo := repository.NewOfferRepository(db)
	ctx := context.Background()

	tenantID := tenant.ID
	offer := &domain.Offer{
		TenantID:   &tenantID,
		ClientName: "Globex",
		OfferYear:  2025,
		OfferSeq:   1,
		OfferNo:    "2025-0001",
		Status:     domain.OfferStatusSent,
	}
	require.NoError(t, repo.Create(ctx, offer))

	set, err := repo.SetPortalTokenIfEmpty(ctx, offer.ID, "tok-1")
	require.NoError(t, err)
	assert.True(t, set)
	set, err = repo.SetPortalTokenIfEmpty(ctx, offer.ID, "tok-2")
	require.NoError(t, err)
	assert.False(t, set)

	at := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	n, err := repo.RecordView(ctx, "tok-1", "203.0.113.1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.RecordView(ctx, "missing", "203.0.113.1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.AcceptByToken(ctx, "tok-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.AcceptByToken(ctx, "tok-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "second accept changes nothing")

	stored, err := repo.GetByPortalToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusAccepted, stored.Status)
	assert.Equal(t, 1, stored.ViewCount)
	require.NotNil(t, stored.AcceptedVia)
	assert.Equal(t, domain.AcceptedViaPortal, *stored.AcceptedVia)
}
