package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPortalLinksDTO(t *testing.T) {
	links := ToPortalLinksDTO("https://offers.example.com/", "tok")

	assert.Equal(t, "tok", links.Token)
	assert.Equal(t, "https://offers.example.com/p/tok", links.PortalURL)
	assert.Equal(t, "https://offers.example.com/p/tok/accept", links.AcceptURL)
	assert.Equal(t, "https://offers.example.com/t/open/tok", links.OpenURL)
	assert.Equal(t, "https://offers.example.com/t/click/tok", links.ClickURL)
}

func TestToOfferDTO(t *testing.T) {
	created := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	validUntil := time.Date(2025, time.March, 24, 0, 0, 0, 0, time.UTC)
	token := "tok"
	offer := &domain.Offer{
		BaseModel:   domain.BaseModel{ID: uuid.New(), CreatedAt: created, UpdatedAt: created},
		OfferYear:   2025,
		OfferSeq:    1,
		OfferNo:     "2025-0001",
		Status:      domain.OfferStatusAccepted,
		ClientName:  "Globex",
		VATRate:     25,
		ValidUntil:  &validUntil,
		PortalToken: &token,
	}
	items := []domain.OfferItem{
		{Name: "Tiles", Qty: 2, Price: 12.5, LineTotal: 25},
	}

	dto := ToOfferDTO(offer, items, "https://offers.example.com")

	assert.True(t, dto.Locked)
	assert.Equal(t, 25.0, dto.Subtotal)
	assert.Equal(t, 6.25, dto.VAT)
	assert.Equal(t, 31.25, dto.Total)
	require.NotNil(t, dto.Terms.ValidUntil)
	assert.Equal(t, "2025-03-24", *dto.Terms.ValidUntil)
	assert.Equal(t, "2025-03-10T09:30:00Z", dto.CreatedAt)
	assert.Equal(t, "https://offers.example.com/p/tok", dto.PortalURL)

	assert.Empty(t, ToOfferDTO(offer, items, "").PortalURL)
}

func TestToOfferSummaryDTO(t *testing.T) {
	row := repository.OfferRow{
		Offer:    domain.Offer{OfferNo: "2025-0002", ClientName: "Globex", VATRate: 25},
		Subtotal: 100,
	}

	dto := ToOfferSummaryDTO(row)

	assert.Equal(t, 100.0, dto.Subtotal)
	assert.Equal(t, 125.0, dto.Total)
}

func TestToPortalOfferDTO_HidesInternals(t *testing.T) {
	offer := &domain.Offer{
		OfferNo:    "2025-0003",
		ClientName: "Globex",
		Status:     domain.OfferStatusSent,
		VATRate:    25,
		Archived:   true,
		ViewCount:  9,
	}

	dto := ToPortalOfferDTO(offer, nil, "Acme Builders")

	assert.Equal(t, "Acme Builders", dto.CompanyName)
	assert.False(t, dto.Accepted)
	assert.True(t, dto.Archived)
	assert.Empty(t, dto.Items)
	assert.Equal(t, 0.0, dto.Total)
}
