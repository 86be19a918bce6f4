package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/notify"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPortalBaseURL = "https://offers.example.com"

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

// recordingNotifier keeps every message instead of sending it
type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

type fixture struct {
	db        *gorm.DB
	tenant    *domain.Tenant
	owner     domain.Owner
	notifier  *recordingNotifier
	audit     *service.AuditLogService
	sequences *service.NumberSequenceService
	offers    *service.OfferService
	portal    *service.PortalService
	delivery  *service.DeliveryService
	clients   *service.ClientService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, testutil.SetupTestDB(t))
}

func newFixtureWithDB(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	logger := zap.NewNop()
	tenant := testutil.CreateTestTenant(t, db, "acme")

	offerRepo := repository.NewOfferRepository(db)
	itemRepo := repository.NewOfferItemRepository(db)
	clientRepo := repository.NewClientRepository(db)

	settings := service.NewStaticSettingsProvider(&config.CompanyConfig{
		Name:           "Acme Builders",
		Email:          "office@acme.example.com",
		DefaultVATRate: 25,
		ValidityDays:   14,
	})
	notifier := &recordingNotifier{}
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), logger)
	sequences := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)

	offers := service.NewOfferService(offerRepo, itemRepo, clientRepo, sequences, audit, settings, testPortalBaseURL, logger, db).
		WithClock(testutil.FixedClock(testNow))
	portal := service.NewPortalService(offerRepo, itemRepo, audit, notifier, settings, testPortalBaseURL, logger).
		WithClock(testutil.FixedClock(testNow))

	html := render.NewHTMLRenderer()
	delivery := service.NewDeliveryService(offers, render.NewSet(html, render.NewCSVRenderer(), nil), html, nil,
		notifier, settings, audit, testPortalBaseURL, logger)

	return &fixture{
		db:        db,
		tenant:    tenant,
		owner:     testutil.Owner(tenant),
		notifier:  notifier,
		audit:     audit,
		sequences: sequences,
		offers:    offers,
		portal:    portal,
		delivery:  delivery,
		clients:   service.NewClientService(clientRepo, audit, logger),
	}
}

func (f *fixture) createOffer(t *testing.T, client string) *domain.OfferDTO {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), f.owner, client)
	require.NoError(t, err)
	return offer
}

func (f *fixture) acceptedOffer(t *testing.T, client string) *domain.OfferDTO {
	t.Helper()
	offer := f.createOffer(t, client)
	accepted, err := f.offers.Accept(context.Background(), f.owner, offer.ID)
	require.NoError(t, err)
	return accepted
}

func (f *fixture) otherOwner(t *testing.T, username string) domain.Owner {
	t.Helper()
	return testutil.Owner(testutil.CreateTestTenant(t, f.db, username))
}

var errRelayDown = errors.New("smtp relay unavailable")
