package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/service"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) storedOffer(t *testing.T, id uuid.UUID) domain.Offer {
	t.Helper()
	var offer domain.Offer
	require.NoError(t, f.db.First(&offer, "id = ?", id).Error)
	return offer
}

func (f *fixture) portalToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	links, err := f.offers.EnsurePortalToken(context.Background(), f.owner, id)
	require.NoError(t, err)
	return links.Token
}

func TestOfferService_EnsurePortalToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")

	links, err := f.offers.EnsurePortalToken(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Len(t, links.Token, 32)
	assert.Equal(t, testPortalBaseURL+"/p/"+links.Token, links.PortalURL)
	assert.Equal(t, testPortalBaseURL+"/p/"+links.Token+"/accept", links.AcceptURL)
	assert.Equal(t, testPortalBaseURL+"/t/open/"+links.Token, links.OpenURL)
	assert.Equal(t, testPortalBaseURL+"/t/click/"+links.Token, links.ClickURL)

	again, err := f.offers.EnsurePortalToken(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, links.Token, again.Token)

	other := f.createOffer(t, "Client B")
	assert.NotEqual(t, links.Token, f.portalToken(t, other.ID))

	dto, err := f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, links.PortalURL, dto.PortalURL)

	_, err = f.offers.EnsurePortalToken(ctx, f.otherOwner(t, "globex"), offer.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPortalService_ViewTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	_, err := f.offers.AddItem(ctx, f.owner, offer.ID, "Labour", "2", "10")
	require.NoError(t, err)
	_, err = f.offers.AddItem(ctx, f.owner, offer.ID, "Material", "1", "5")
	require.NoError(t, err)
	token := f.portalToken(t, offer.ID)

	view, err := f.portal.View(ctx, token, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "2025-0001", view.OfferNo)
	assert.Equal(t, "Acme Builders", view.CompanyName)
	assert.Equal(t, 31.25, view.Total)
	assert.False(t, view.Accepted)

	_, err = f.portal.View(ctx, token, "203.0.113.8")
	require.NoError(t, err)
	require.NoError(t, f.portal.TrackOpen(ctx, token, "203.0.113.9"))
	require.NoError(t, f.portal.Click(ctx, token, "198.51.100.1"))

	dto, err := f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, dto.Tracking.ViewCount)
	assert.Equal(t, "203.0.113.9", dto.Tracking.LastViewIP)
	assert.NotNil(t, dto.Tracking.FirstViewedAt)
	assert.Equal(t, 1, dto.Tracking.ClickCount)
	assert.Equal(t, "198.51.100.1", dto.Tracking.LastClickIP)

	// Get does not count a view
	_, err = f.portal.Get(ctx, token)
	require.NoError(t, err)
	dto, err = f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, dto.Tracking.ViewCount)
}

func TestPortalService_UnknownToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.portal.View(ctx, "missing", "203.0.113.7")
	assert.ErrorIs(t, err, service.ErrPortalTokenNotFound)

	assert.ErrorIs(t, f.portal.TrackOpen(ctx, "missing", ""), service.ErrNotFound)
	assert.ErrorIs(t, f.portal.Click(ctx, "missing", ""), service.ErrNotFound)

	_, err = f.portal.AcceptByToken(ctx, "missing", "")
	assert.ErrorIs(t, err, service.ErrPortalTokenNotFound)
}

func TestPortalService_AcceptByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	_, err := f.offers.UpdateClient(ctx, f.owner, offer.ID, &domain.UpdateClientRequest{
		Name:  "Client A",
		Email: "buyer@client.example.com",
	})
	require.NoError(t, err)
	_, err = f.offers.MarkSent(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	token := f.portalToken(t, offer.ID)

	result, err := f.portal.AcceptByToken(ctx, token, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.Offer.Accepted)
	assert.Equal(t, domain.OfferStatusAccepted, result.Offer.Status)
	first := f.storedOffer(t, offer.ID)

	// a later second accept must not rewrite anything
	f.portal.WithClock(testutil.FixedClock(testNow.Add(time.Hour)))
	again, err := f.portal.AcceptByToken(ctx, token, "198.51.100.9")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.True(t, again.Offer.Accepted)

	second := f.storedOffer(t, offer.ID)
	require.NotNil(t, second.AcceptedAt)
	assert.True(t, first.AcceptedAt.Equal(*second.AcceptedAt))
	assert.Equal(t, first.AcceptedVia, second.AcceptedVia)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))
	assert.Equal(t, first, second)

	dto, err := f.offers.GetOffer(ctx, f.owner, offer.ID)
	require.NoError(t, err)
	assert.True(t, dto.Locked)
	require.NotNil(t, dto.AcceptedVia)
	assert.Equal(t, domain.AcceptedViaPortal, *dto.AcceptedVia)

	// one notice to the company and one confirmation to the client, only for the first accept
	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	recipients := []string{sent[0].To, sent[1].To}
	assert.ElementsMatch(t, []string{"office@acme.example.com", "buyer@client.example.com"}, recipients)
	for _, msg := range sent {
		assert.True(t, strings.Contains(msg.Subject, "2025-0001"))
	}

	history, err := f.offers.History(ctx, f.owner, offer.ID, 50)
	require.NoError(t, err)
	var portalEntries int
	for _, h := range history {
		if h.Action == domain.AuditActionPortalAccepted {
			portalEntries++
			assert.Equal(t, "portal", h.UserName)
			assert.Equal(t, "203.0.113.7", h.IPAddress)
		}
	}
	assert.Equal(t, 1, portalEntries)
}

func TestPortalService_AcceptByToken_Archived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.createOffer(t, "Client A")
	token := f.portalToken(t, offer.ID)
	_, err := f.offers.Archive(ctx, f.owner, offer.ID)
	require.NoError(t, err)

	_, err = f.portal.AcceptByToken(ctx, token, "")
	assert.ErrorIs(t, err, service.ErrOfferArchived)
	assert.ErrorIs(t, err, service.ErrLocked)

	// archived offers stay viewable
	view, err := f.portal.View(ctx, token, "")
	require.NoError(t, err)
	assert.True(t, view.Archived)
	assert.False(t, view.Accepted)

	assert.Empty(t, f.notifier.sent())
}

func TestPortalService_AcceptURL(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, testPortalBaseURL+"/p/abc/accept", f.portal.AcceptURL("abc"))
}
