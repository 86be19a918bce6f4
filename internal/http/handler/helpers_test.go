package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/config"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/http/handler"
	"github.com/straye-as/offers-api/internal/notify"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type handlerFixture struct {
	db       *gorm.DB
	tenant   *domain.Tenant
	offers   *service.OfferService
	offer    *handler.OfferHandler
	portal   *handler.PortalHandler
	client   *handler.ClientHandler
	audit    *handler.AuditHandler
	sequence *handler.SequenceHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	tenant := testutil.CreateTestTenant(t, db, "acme")

	offerRepo := repository.NewOfferRepository(db)
	itemRepo := repository.NewOfferItemRepository(db)
	clientRepo := repository.NewClientRepository(db)
	settings := service.NewStaticSettingsProvider(&config.CompanyConfig{Name: "Acme Builders", DefaultVATRate: 25})
	notifier := notify.NewLogNotifier(logger)

	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), logger)
	sequences := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)
	offers := service.NewOfferService(offerRepo, itemRepo, clientRepo, sequences, audit, settings, "https://offers.example.com", logger, db).
		WithClock(testutil.FixedClock(time.Date(2025, time.May, 2, 12, 0, 0, 0, time.UTC)))
	portal := service.NewPortalService(offerRepo, itemRepo, audit, notifier, settings, "https://offers.example.com", logger)

	html := render.NewHTMLRenderer()
	delivery := service.NewDeliveryService(offers, render.NewSet(html, render.NewCSVRenderer(), nil), html, nil,
		notifier, settings, audit, "https://offers.example.com", logger)

	return &handlerFixture{
		db:       db,
		tenant:   tenant,
		offers:   offers,
		offer:    handler.NewOfferHandler(offers, delivery, logger),
		portal:   handler.NewPortalHandler(portal, html, logger),
		client:   handler.NewClientHandler(service.NewClientService(clientRepo, audit, logger), logger),
		audit:    handler.NewAuditHandler(audit, logger),
		sequence: handler.NewSequenceHandler(sequences, logger),
	}
}

func (f *handlerFixture) tenantContext() *auth.TenantContext {
	return &auth.TenantContext{TenantID: f.tenant.ID, Username: f.tenant.Username, AuthType: auth.AuthTypeJWT}
}

func (f *handlerFixture) createOffer(t *testing.T) *domain.OfferDTO {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), testutil.Owner(f.tenant), "Client A")
	require.NoError(t, err)
	return offer
}

// withChiContext adds Chi route context with the given URL parameters
func withChiContext(ctx context.Context, params map[string]string) context.Context {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

// newRequest builds a request with an optional JSON body, route params and tenant
func newRequest(t *testing.T, method, target string, body interface{}, params map[string]string, tenant *auth.TenantContext) *http.Request {
	t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := withChiContext(req.Context(), params)
	if tenant != nil {
		ctx = auth.WithTenantContext(ctx, tenant)
	}
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst))
}
