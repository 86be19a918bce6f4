package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferHandler_Create(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("creates draft with next number", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/api/v1/offers", domain.CreateOfferRequest{ClientName: "Globex"}, nil, f.tenantContext())
		rr := httptest.NewRecorder()

		f.offer.Create(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var offer domain.OfferDTO
		decodeBody(t, rr, &offer)
		assert.Equal(t, "2025-0001", offer.OfferNo)
		assert.Equal(t, domain.OfferStatusDraft, offer.Status)
		assert.Equal(t, "Globex", offer.Client.Name)
		assert.Equal(t, "/api/v1/offers/"+offer.ID.String(), rr.Header().Get("Location"))
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/api/v1/offers", nil, nil, f.tenantContext())
		rr := httptest.NewRecorder()

		f.offer.Create(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var offer domain.OfferDTO
		decodeBody(t, rr, &offer)
		assert.Equal(t, "2025-0002", offer.OfferNo)
	})

	t.Run("requires authentication", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/api/v1/offers", nil, nil, nil)
		rr := httptest.NewRecorder()

		f.offer.Create(rr, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeUnauthorized, apiErr.Type)
	})
}

func TestOfferHandler_GetByID(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	other := testutil.CreateTestTenant(t, f.db, "globex")

	tests := []struct {
		name       string
		id         string
		tenant     *domain.Tenant
		wantStatus int
	}{
		{name: "owner", id: offer.ID.String(), tenant: f.tenant, wantStatus: http.StatusOK},
		{name: "invalid id", id: "not-a-uuid", tenant: f.tenant, wantStatus: http.StatusBadRequest},
		{name: "unknown id", id: uuid.NewString(), tenant: f.tenant, wantStatus: http.StatusNotFound},
		{name: "other tenant", id: offer.ID.String(), tenant: other, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := f.tenantContext()
			tc.TenantID = tt.tenant.ID
			tc.Username = tt.tenant.Username

			req := newRequest(t, http.MethodGet, "/api/v1/offers/"+tt.id, nil, map[string]string{"id": tt.id}, tc)
			rr := httptest.NewRecorder()

			f.offer.GetByID(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestOfferHandler_AddItem(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}

	t.Run("accepts numbers and comma decimals", func(t *testing.T) {
		body := map[string]interface{}{"name": "Tiles", "qty": 2, "price": "12,50"}
		req := newRequest(t, http.MethodPost, "/api/v1/offers/x/items", body, params, f.tenantContext())
		rr := httptest.NewRecorder()

		f.offer.AddItem(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var dto domain.OfferDTO
		decodeBody(t, rr, &dto)
		require.Len(t, dto.Items, 1)
		assert.Equal(t, 25.0, dto.Subtotal)
		assert.Equal(t, 6.25, dto.VAT)
		assert.Equal(t, 31.25, dto.Total)
	})

	t.Run("missing name is a validation error", func(t *testing.T) {
		body := map[string]interface{}{"qty": 1}
		req := newRequest(t, http.MethodPost, "/api/v1/offers/x/items", body, params, f.tenantContext())
		rr := httptest.NewRecorder()

		f.offer.AddItem(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "name")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/api/v1/offers/x/items", "not an object", params, f.tenantContext())
		rr := httptest.NewRecorder()

		f.offer.AddItem(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestOfferHandler_LifecycleStatuses(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}
	tc := f.tenantContext()

	rr := httptest.NewRecorder()
	f.offer.Accept(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var accepted domain.OfferDTO
	decodeBody(t, rr, &accepted)
	assert.True(t, accepted.Locked)
	assert.Equal(t, domain.OfferStatusAccepted, accepted.Status)

	t.Run("edits on accepted offer are locked", func(t *testing.T) {
		body := map[string]interface{}{"name": "Extra"}
		rr := httptest.NewRecorder()
		f.offer.AddItem(rr, newRequest(t, http.MethodPost, "/", body, params, tc))

		require.Equal(t, http.StatusLocked, rr.Code)
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeLocked, apiErr.Type)
	})

	t.Run("accepting twice conflicts", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.offer.Accept(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))

		require.Equal(t, http.StatusConflict, rr.Code)
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeConflict, apiErr.Type)
	})

	t.Run("delete requires archive", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.offer.Delete(rr, newRequest(t, http.MethodDelete, "/", nil, params, tc))
		assert.Equal(t, http.StatusConflict, rr.Code)

		rr = httptest.NewRecorder()
		f.offer.Archive(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		f.offer.Delete(rr, newRequest(t, http.MethodDelete, "/", nil, params, tc))
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = httptest.NewRecorder()
		f.offer.GetByID(rr, newRequest(t, http.MethodGet, "/", nil, params, tc))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestOfferHandler_Unlock(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}
	tc := f.tenantContext()

	rr := httptest.NewRecorder()
	f.offer.Unlock(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
	assert.Equal(t, http.StatusConflict, rr.Code)

	_, err := f.offers.Accept(context.Background(), testutil.Owner(f.tenant), offer.ID)
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	f.offer.Unlock(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var dto domain.OfferDTO
	decodeBody(t, rr, &dto)
	assert.Equal(t, domain.OfferStatusDraft, dto.Status)
	assert.False(t, dto.Locked)
}

func TestOfferHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	first := f.createOffer(t)
	f.createOffer(t)
	_, err := f.offers.Archive(context.Background(), testutil.Owner(f.tenant), first.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTotal  int64
	}{
		{name: "active by default", query: "", wantStatus: http.StatusOK, wantTotal: 1},
		{name: "archived view", query: "?view=archived", wantStatus: http.StatusOK, wantTotal: 1},
		{name: "all", query: "?view=all", wantStatus: http.StatusOK, wantTotal: 2},
		{name: "draft status", query: "?view=all&status=draft", wantStatus: http.StatusOK, wantTotal: 2},
		{name: "invalid status", query: "?status=PAID", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.offer.List(rr, newRequest(t, http.MethodGet, "/api/v1/offers"+tt.query, nil, nil, f.tenantContext()))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var page domain.PaginatedResponse
			decodeBody(t, rr, &page)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func TestOfferHandler_Document(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}

	tests := []struct {
		name            string
		format          string
		wantStatus      int
		wantType        string
		wantDisposition string
	}{
		{name: "html inline", format: "html", wantStatus: http.StatusOK, wantType: "text/html; charset=utf-8", wantDisposition: `inline; filename="2025-0001.html"`},
		{name: "csv attachment", format: "csv", wantStatus: http.StatusOK, wantType: "text/csv; charset=utf-8", wantDisposition: `attachment; filename="2025-0001.csv"`},
		{name: "unknown format", format: "docx", wantStatus: http.StatusBadRequest},
		{name: "pdf without renderer", format: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.offer.Document(rr, newRequest(t, http.MethodGet, "/document?format="+tt.format, nil, params, f.tenantContext()))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantType, rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantDisposition, rr.Header().Get("Content-Disposition"))
			assert.Contains(t, rr.Body.String(), "2025-0001")
		})
	}
}

func TestOfferHandler_Send(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}

	t.Run("invalid recipient", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := domain.SendOfferRequest{To: "not-an-email"}
		f.offer.Send(rr, newRequest(t, http.MethodPost, "/", body, params, f.tenantContext()))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Contains(t, apiErr.Errors, "to")
	})

	t.Run("delivers and marks sent", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := domain.SendOfferRequest{To: "client@example.com"}
		f.offer.Send(rr, newRequest(t, http.MethodPost, "/", body, params, f.tenantContext()))

		require.Equal(t, http.StatusOK, rr.Code)
		var result domain.SendResultDTO
		decodeBody(t, rr, &result)
		assert.True(t, result.Delivered)
		assert.Equal(t, domain.OfferStatusSent, result.Offer.Status)
		assert.NotEmpty(t, result.Offer.PortalURL)
	})
}

func TestOfferHandler_Invoice(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	params := map[string]string{"id": offer.ID.String()}
	tc := f.tenantContext()

	rr := httptest.NewRecorder()
	f.offer.CreateInvoice(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
	assert.Equal(t, http.StatusConflict, rr.Code)

	_, err := f.offers.Accept(context.Background(), testutil.Owner(f.tenant), offer.ID)
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	f.offer.CreateInvoice(rr, newRequest(t, http.MethodPost, "/", nil, params, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var invoiced domain.OfferDTO
	decodeBody(t, rr, &invoiced)
	require.NotNil(t, invoiced.Invoice)
	require.NotNil(t, invoiced.Invoice.InvoiceNo)
	assert.Equal(t, "2025-0001", *invoiced.Invoice.InvoiceNo)

	rr = httptest.NewRecorder()
	f.offer.SetPaid(rr, newRequest(t, http.MethodPut, "/", domain.SetPaidRequest{Paid: true}, params, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var paid domain.OfferDTO
	decodeBody(t, rr, &paid)
	assert.True(t, paid.Invoice.Paid)

	rr = httptest.NewRecorder()
	f.offer.ListInvoices(rr, newRequest(t, http.MethodGet, "/api/v1/invoices?paid=true", nil, nil, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var page domain.PaginatedResponse
	decodeBody(t, rr, &page)
	assert.Equal(t, int64(1), page.Total)
}
