package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferService_CreateOffer_Numbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createOffer(t, "Client A")
	second := f.createOffer(t, "Client B")
	third := f.createOffer(t, "Client C")

	assert.Equal(t, "2025-0001", first.OfferNo)
	assert.Equal(t, "2025-0002", second.OfferNo)
	assert.Equal(t, "2025-0003", third.OfferNo)

	_, err := f.offers.Archive(ctx, f.owner, second.ID)
	require.NoError(t, err)

	fourth := f.createOffer(t, "Client D")
	assert.Equal(t, "2025-0004", fourth.OfferNo)
	assert.Equal(t, 2025, fourth.OfferYear)
	assert.Equal(t, 4, fourth.OfferSeq)

	// deleting the highest number must not free it
	_, err = f.offers.Archive(ctx, f.owner, fourth.ID)
	require.NoError(t, err)
	require.NoError(t, f.offers.DeleteOffer(ctx, f.owner, fourth.ID))

	fifth := f.createOffer(t, "Client E")
	assert.Equal(t, "2025-0005", fifth.OfferNo)
}

func TestOfferService_CreateOffer_Defaults(t *testing.T) {
	f := newFixture(t)

	offer := f.createOffer(t, "  Client A  ")

	assert.Equal(t, domain.OfferStatusDraft, offer.Status)
	assert.False(t, offer.Locked)
	assert.False(t, offer.Archived)
	assert.Equal(t, "Client A", offer.Client.Name)
	assert.Equal(t, 25.0, offer.Terms.VATRate)
	require.NotNil(t, offer.Terms.ValidUntil)
	assert.Equal(t, "2025-03-24", *offer.Terms.ValidUntil)
}

func TestOfferService_CreateOffer_YearRollover(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "2025-0001", f.createOffer(t, "Client A").OfferNo)
	assert.Equal(t, "2025-0002", f.createOffer(t, "Client B").OfferNo)

	f.offers.WithClock(testutil.FixedClock(testNow.AddDate(1, 0, 0)))
	next := f.createOffer(t, "Client C")

	assert.Equal(t, "2026-0001", next.OfferNo)
}

func TestOfferService_CreateOffer_TenantsNumberIndependently(t *testing.T) {
	f := newFixture(t)
	other := f.otherOwner(t, "globex")

	f.createOffer(t, "Client A")
	f.createOffer(t, "Client B")

	offer, err := f.offers.CreateOffer(context.Background(), other, "Client C")
	require.NoError(t, err)
	assert.Equal(t, "2025-0001", offer.OfferNo)
}

func TestOfferService_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	other := f.otherOwner(t, "globex")

	_, err := f.offers.GetOffer(ctx, other, offer.ID)
	assert.ErrorIs(t, err, service.ErrOfferNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.offers.AddItem(ctx, other, offer.ID, "Work", "1", "10")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.offers.Accept(ctx, other, offer.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	found, err := f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, found.ID)
}

func TestOfferService_LegacyOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	legacy := testutil.CreateLegacyOffer(t, f.db, "ACME", 2024, 7)

	offer, err := f.offers.GetOffer(ctx, f.owner, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-0007", offer.OfferNo)

	updated, err := f.offers.AddItem(ctx, f.owner, legacy.ID, "Work", "2", "50")
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.Subtotal)

	_, err = f.offers.GetOffer(ctx, f.otherOwner(t, "globex"), legacy.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	list, err := f.offers.ListOffers(ctx, f.owner, repository.OfferFilters{}, repository.SortConfig{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestOfferService_CreateOffer_AfterLegacyOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateLegacyOffer(t, f.db, "acme", 2025, 1)

	offer := f.createOffer(t, "Client A")
	assert.Equal(t, "2025-0002", offer.OfferNo)

	list, err := f.offers.ListOffers(ctx, f.owner, repository.OfferFilters{}, repository.SortConfig{}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), list.Total)
	rows, ok := list.Data.([]domain.OfferSummaryDTO)
	require.True(t, ok)
	seen := map[string]bool{}
	for _, row := range rows {
		assert.False(t, seen[row.OfferNo], "duplicate offer number %s", row.OfferNo)
		seen[row.OfferNo] = true
	}
}

func TestOfferService_Totals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Labour", "2", "10")
	require.NoError(t, err)
	updated, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Material", "1", "5")
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.Equal(t, 1, updated.Items[0].Position)
	assert.Equal(t, 2, updated.Items[1].Position)
	assert.Equal(t, 20.0, updated.Items[0].LineTotal)
	assert.Equal(t, 25.0, updated.Subtotal)
	assert.Equal(t, 6.25, updated.VAT)
	assert.Equal(t, 31.25, updated.Total)
}

func TestOfferService_AddItem_LenientAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	tests := []struct {
		name      string
		qty       string
		price     string
		wantQty   float64
		wantPrice float64
	}{
		{name: "comma decimal separator", qty: "1,5", price: "10", wantQty: 1.5, wantPrice: 10},
		{name: "empty values use defaults", qty: "", price: "", wantQty: 1, wantPrice: 0},
		{name: "garbage uses defaults", qty: "abc", price: "x", wantQty: 1, wantPrice: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := f.offers.AddItem(ctx, f.owner, offer.ID, tt.name, tt.qty, tt.price)
			require.NoError(t, err)
			item := updated.Items[len(updated.Items)-1]
			assert.Equal(t, tt.wantQty, item.Qty)
			assert.Equal(t, tt.wantPrice, item.Price)
		})
	}

	_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "   ", "1", "1")
	assert.ErrorIs(t, err, service.ErrItemNameRequired)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestOfferService_AddItem_OutOfRangeAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	tests := []struct {
		name    string
		qty     string
		price   string
		wantErr error
	}{
		{name: "price beyond column", qty: "1", price: "1e300", wantErr: domain.ErrPriceOutOfRange},
		{name: "qty beyond column", qty: "1e10", price: "1", wantErr: domain.ErrQtyOutOfRange},
		{name: "product overflows float", qty: "10", price: "1e308", wantErr: domain.ErrPriceOutOfRange},
		{name: "line total beyond column", qty: "100000", price: "1000000000", wantErr: domain.ErrLineTotalOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Work", tt.qty, tt.price)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// overflowing input falls back to the defaults instead of failing
	updated, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Work", "1e400", "1")
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 1.0, updated.Items[0].Qty)
	assert.Equal(t, 1.0, updated.Subtotal)

	reread, err := f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Len(t, reread.Items, 1)
}

func TestOfferService_DeleteAndClearItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "A", "1", "10")
	require.NoError(t, err)
	withItems, err := f.offers.AddItem(ctx, f.owner, offer.ID, "B", "1", "20")
	require.NoError(t, err)

	updated, err := f.offers.DeleteItem(ctx, f.owner, offer.ID, withItems.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "B", updated.Items[0].Name)

	_, err = f.offers.DeleteItem(ctx, f.owner, offer.ID, withItems.Items[0].ID)
	assert.ErrorIs(t, err, service.ErrOfferItemNotFound)

	cleared, err := f.offers.ClearItems(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.Zero(t, cleared.Total)
}

func TestOfferService_ItemPositionsAreNotReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	var last *domain.OfferDTO
	for _, name := range []string{"A", "B", "C"} {
		var err error
		last, err = f.offers.AddItem(ctx, f.owner, offer.ID, name, "1", "10")
		require.NoError(t, err)
	}
	require.Len(t, last.Items, 3)

	_, err := f.offers.DeleteItem(ctx, f.owner, offer.ID, last.Items[2].ID)
	require.NoError(t, err)
	updated, err := f.offers.AddItem(ctx, f.owner, offer.ID, "D", "1", "10")
	require.NoError(t, err)
	require.Len(t, updated.Items, 3)
	assert.Equal(t, 4, updated.Items[2].Position, "deleted tail position is not reused")

	_, err = f.offers.ClearItems(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	updated, err = f.offers.AddItem(ctx, f.owner, offer.ID, "E", "1", "10")
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 5, updated.Items[0].Position)

	duplicate, err := f.offers.DuplicateOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	extended, err := f.offers.AddItem(ctx, f.owner, duplicate.ID, "F", "1", "10")
	require.NoError(t, err)
	require.Len(t, extended.Items, 2)
	assert.Equal(t, 5, extended.Items[0].Position)
	assert.Equal(t, 6, extended.Items[1].Position)
}

func TestOfferService_UpdateTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	vat := 12.5
	validUntil := "2025-06-30"

	updated, err := f.offers.UpdateTerms(ctx, f.owner, offer.ID, &domain.UpdateTermsRequest{
		PaymentTerms: " 30 days ",
		Place:        "Oslo",
		VATRate:      &vat,
		ValidUntil:   &validUntil,
	})
	require.NoError(t, err)
	assert.Equal(t, "30 days", updated.Terms.PaymentTerms)
	assert.Equal(t, "Oslo", updated.Terms.Place)
	assert.Equal(t, 12.5, updated.Terms.VATRate)
	require.NotNil(t, updated.Terms.ValidUntil)
	assert.Equal(t, "2025-06-30", *updated.Terms.ValidUntil)

	empty := ""
	cleared, err := f.offers.UpdateTerms(ctx, f.owner, offer.ID, &domain.UpdateTermsRequest{ValidUntil: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Terms.ValidUntil)
	assert.Equal(t, 12.5, cleared.Terms.VATRate)

	bad := "30.06.2025"
	_, err = f.offers.UpdateTerms(ctx, f.owner, offer.ID, &domain.UpdateTermsRequest{ValidUntil: &bad})
	assert.ErrorIs(t, err, service.ErrInvalidDate)
}

func TestOfferService_UpdateClient_SavesAddressBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "")

	updated, err := f.offers.UpdateClient(ctx, f.owner, offer.ID, &domain.UpdateClientRequest{
		Name:    "Globex",
		Email:   "buyer@globex.example.com",
		Address: "Main street 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", updated.Client.Name)
	assert.Equal(t, "buyer@globex.example.com", updated.Client.Email)

	clients, err := f.clients.List(ctx, f.owner, "glob")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Main street 1", clients[0].Address)

	_, err = f.offers.UpdateClient(ctx, f.owner, offer.ID, &domain.UpdateClientRequest{Name: " "})
	assert.ErrorIs(t, err, service.ErrClientNameRequired)
}

func TestOfferService_EditLock(t *testing.T) {
	ctx := context.Background()

	edits := []struct {
		name string
		edit func(f *fixture, id *domain.OfferDTO) error
	}{
		{name: "add item", edit: func(f *fixture, o *domain.OfferDTO) error {
			_, err := f.offers.AddItem(ctx, f.owner, o.ID, "Extra", "1", "1")
			return err
		}},
		{name: "update terms", edit: func(f *fixture, o *domain.OfferDTO) error {
			_, err := f.offers.UpdateTerms(ctx, f.owner, o.ID, &domain.UpdateTermsRequest{Note: "changed"})
			return err
		}},
		{name: "update client", edit: func(f *fixture, o *domain.OfferDTO) error {
			_, err := f.offers.UpdateClient(ctx, f.owner, o.ID, &domain.UpdateClientRequest{Name: "Other"})
			return err
		}},
		{name: "clear items", edit: func(f *fixture, o *domain.OfferDTO) error {
			_, err := f.offers.ClearItems(ctx, f.owner, o.ID)
			return err
		}},
	}

	for _, tt := range edits {
		t.Run(tt.name+" on accepted offer", func(t *testing.T) {
			f := newFixture(t)
			offer := f.acceptedOffer(t, "Client A")
			assert.True(t, offer.Locked)

			err := tt.edit(f, offer)
			assert.ErrorIs(t, err, service.ErrOfferLocked)
			assert.ErrorIs(t, err, service.ErrLocked)
		})

		t.Run(tt.name+" on archived offer", func(t *testing.T) {
			f := newFixture(t)
			offer := f.createOffer(t, "Client A")
			archived, err := f.offers.Archive(ctx, f.owner, offer.ID)
			require.NoError(t, err)
			assert.True(t, archived.Locked)

			assert.ErrorIs(t, tt.edit(f, offer), service.ErrLocked)
		})

		t.Run(tt.name+" on sent offer", func(t *testing.T) {
			f := newFixture(t)
			offer := f.createOffer(t, "Client A")
			_, err := f.offers.MarkSent(ctx, f.owner, offer.ID)
			require.NoError(t, err)

			assert.NoError(t, tt.edit(f, offer))
		})
	}
}

func TestOfferService_DuplicateOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	source := f.createOffer(t, "Client A")
	_, err := f.offers.AddItem(ctx, f.owner, source.ID, "Labour", "2", "10")
	require.NoError(t, err)
	_, err = f.offers.UpdateTerms(ctx, f.owner, source.ID, &domain.UpdateTermsRequest{PaymentTerms: "10 days"})
	require.NoError(t, err)
	_, err = f.offers.Accept(ctx, f.owner, source.ID)
	require.NoError(t, err)

	copied, err := f.offers.DuplicateOffer(ctx, f.owner, source.ID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, "2025-0002", copied.OfferNo)
	assert.Equal(t, domain.OfferStatusDraft, copied.Status)
	assert.False(t, copied.Locked)
	assert.Equal(t, "Client A", copied.Client.Name)
	assert.Equal(t, "10 days", copied.Terms.PaymentTerms)
	require.Len(t, copied.Items, 1)
	assert.Equal(t, 20.0, copied.Items[0].LineTotal)
	assert.Nil(t, copied.Invoice.InvoiceNo)

	original, err := f.offers.GetOffer(ctx, f.owner, source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusAccepted, original.Status)
	assert.Len(t, original.Items, 1)
}

func TestOfferService_ListOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createOffer(t, "Alpha")
	f.createOffer(t, "Beta")
	c := f.createOffer(t, "Gamma")
	_, err := f.offers.Archive(ctx, f.owner, a.ID)
	require.NoError(t, err)
	_, err = f.offers.MarkSent(ctx, f.owner, c.ID)
	require.NoError(t, err)

	sent := domain.OfferStatusSent
	tests := []struct {
		name    string
		filters repository.OfferFilters
		want    int64
	}{
		{name: "default hides archived", filters: repository.OfferFilters{}, want: 2},
		{name: "archived only", filters: repository.OfferFilters{View: repository.ArchiveViewArchived}, want: 1},
		{name: "all", filters: repository.OfferFilters{View: repository.ArchiveViewAll}, want: 3},
		{name: "by status", filters: repository.OfferFilters{Status: &sent}, want: 1},
		{name: "by client ignoring case", filters: repository.OfferFilters{Client: "beta"}, want: 1},
		{name: "search by number", filters: repository.OfferFilters{View: repository.ArchiveViewAll, Query: "2025-000"}, want: 3},
		{name: "search matches nothing", filters: repository.OfferFilters{Query: "zzz"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.offers.ListOffers(ctx, f.owner, tt.filters, repository.SortConfig{}, 1, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Total)
			rows, ok := result.Data.([]domain.OfferSummaryDTO)
			require.True(t, ok)
			assert.Len(t, rows, int(tt.want))
		})
	}
}

func TestOfferService_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Labour", "1", "10")
	require.NoError(t, err)
	_, err = f.offers.Accept(ctx, f.owner, offer.ID)
	require.NoError(t, err)

	history, err := f.offers.History(ctx, f.owner, offer.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	actions := make([]domain.AuditAction, len(history))
	for i, h := range history {
		actions[i] = h.Action
		assert.Equal(t, "acme", h.UserName)
	}
	assert.ElementsMatch(t, []domain.AuditAction{
		domain.AuditActionOfferCreated,
		domain.AuditActionItemAdded,
		domain.AuditActionAccepted,
	}, actions)

	_, err = f.offers.History(ctx, f.otherOwner(t, "globex"), offer.ID, 10)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
