package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2025-0001", FormatNumber(2025, 1))
	assert.Equal(t, "2025-0042", FormatNumber(2025, 42))
	assert.Equal(t, "2025-9999", FormatNumber(2025, 9999))
	assert.Equal(t, "2025-10000", FormatNumber(2025, 10000))
}

func TestComputeTotals(t *testing.T) {
	items := []OfferItem{
		{LineTotal: LineTotal(2, 12.5)},
		{LineTotal: LineTotal(1, 0)},
	}

	totals := ComputeTotals(items, 25)

	assert.Equal(t, 25.0, totals.Subtotal)
	assert.Equal(t, 6.25, totals.VAT)
	assert.Equal(t, 31.25, totals.Total)
}

func TestLineTotal_RoundsToCents(t *testing.T) {
	assert.Equal(t, 0.3, LineTotal(3, 0.1))
	assert.Equal(t, 3.33, LineTotal(1, 3.333))
	assert.Equal(t, 0.0, LineTotal(0, 99))
}

func TestCheckItemAmounts(t *testing.T) {
	tests := []struct {
		name    string
		qty     float64
		price   float64
		wantErr error
	}{
		{name: "ordinary", qty: 2, price: 12.5},
		{name: "column maximum", qty: 1, price: 9999999999999.99},
		{name: "negative price", qty: 1, price: -40},
		{name: "qty too large", qty: 1e9, price: 1, wantErr: ErrQtyOutOfRange},
		{name: "qty infinite", qty: math.Inf(1), price: 1, wantErr: ErrQtyOutOfRange},
		{name: "price NaN", qty: 1, price: math.NaN(), wantErr: ErrPriceOutOfRange},
		{name: "price too large", qty: 1, price: 1e13, wantErr: ErrPriceOutOfRange},
		{name: "line total too large", qty: 1000, price: 1e11, wantErr: ErrLineTotalOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckItemAmounts(tt.qty, tt.price)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTotals_NonFiniteStoredValuesDoNotPanic(t *testing.T) {
	items := []OfferItem{{LineTotal: math.Inf(1)}, {LineTotal: 10}}

	assert.NotPanics(t, func() {
		totals := ComputeTotals(items, 25)
		assert.Equal(t, 10.0, totals.Subtotal)
	})
	assert.NotPanics(t, func() { LineTotal(math.NaN(), 2) })
}

func TestTotalsFromSubtotal_ZeroVAT(t *testing.T) {
	totals := TotalsFromSubtotal(100, 0)
	assert.Equal(t, Totals{Subtotal: 100, VAT: 0, Total: 100}, totals)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback float64
		want     float64
	}{
		{name: "dot decimal", raw: "12.50", fallback: 0, want: 12.5},
		{name: "comma decimal", raw: "12,50", fallback: 0, want: 12.5},
		{name: "spaces", raw: " 1 000 ", fallback: 0, want: 1000},
		{name: "empty uses fallback", raw: "", fallback: 1, want: 1},
		{name: "garbage uses fallback", raw: "abc", fallback: 1, want: 1},
		{name: "negative", raw: "-5", fallback: 0, want: -5},
		{name: "overflow uses fallback", raw: "1e400", fallback: 1, want: 1},
		{name: "negative overflow uses fallback", raw: "-1e400", fallback: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.raw, tt.fallback))
		})
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var req AddItemRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Tiles","qty":2,"price":"12,50"}`), &req))
	assert.Equal(t, Amount("2"), req.Qty)
	assert.Equal(t, Amount("12,50"), req.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"Tiles","qty":null}`), &req))
	assert.Equal(t, Amount(""), req.Qty)
}

func TestOffer_Lifecycle(t *testing.T) {
	tests := []struct {
		name      string
		status    OfferStatus
		archived  bool
		locked    bool
		canSend   bool
		canAccept bool
		canUnlock bool
		canDelete bool
	}{
		{name: "draft", status: OfferStatusDraft, canSend: true, canAccept: true},
		{name: "sent", status: OfferStatusSent, canAccept: true},
		{name: "accepted", status: OfferStatusAccepted, locked: true, canUnlock: true},
		{name: "archived draft", status: OfferStatusDraft, archived: true, locked: true, canDelete: true},
		{name: "archived accepted", status: OfferStatusAccepted, archived: true, locked: true, canDelete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Offer{Status: tt.status, Archived: tt.archived}
			assert.Equal(t, tt.locked, o.IsLocked())
			assert.Equal(t, tt.canSend, o.CanMarkSent())
			assert.Equal(t, tt.canAccept, o.CanAccept())
			assert.Equal(t, tt.canUnlock, o.CanUnlock())
			assert.Equal(t, tt.canDelete, o.CanDelete())
		})
	}
}

func TestOffer_OwnedBy(t *testing.T) {
	tenantID := uuid.New()
	owner := Owner{TenantID: tenantID, Username: "acme"}
	legacyName := "  ACME "
	otherName := "globex"
	otherTenant := uuid.New()

	tests := []struct {
		name  string
		offer Offer
		want  bool
	}{
		{name: "tenant match", offer: Offer{TenantID: &tenantID}, want: true},
		{name: "tenant mismatch", offer: Offer{TenantID: &otherTenant}, want: false},
		{name: "tenant wins over username", offer: Offer{TenantID: &otherTenant, OwnerUsername: &legacyName}, want: false},
		{name: "legacy username case-insensitive", offer: Offer{OwnerUsername: &legacyName}, want: true},
		{name: "legacy other user", offer: Offer{OwnerUsername: &otherName}, want: false},
		{name: "no owner", offer: Offer{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.offer.OwnedBy(owner))
		})
	}
}

func TestOfferStatus_IsValid(t *testing.T) {
	assert.True(t, OfferStatusDraft.IsValid())
	assert.True(t, OfferStatusSent.IsValid())
	assert.True(t, OfferStatusAccepted.IsValid())
	assert.False(t, OfferStatus("PAID").IsValid())
	assert.True(t, SequenceKindOffer.IsValid())
	assert.False(t, SequenceKind("receipt").IsValid())
}
