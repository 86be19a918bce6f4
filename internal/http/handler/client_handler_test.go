package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHandler_UpsertAndList(t *testing.T) {
	f := newHandlerFixture(t)
	tc := f.tenantContext()

	rr := httptest.NewRecorder()
	f.client.Upsert(rr, newRequest(t, http.MethodPut, "/api/v1/clients",
		domain.UpsertClientRequest{Name: "Globex", Email: "buyer@globex.example.com"}, nil, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var created domain.ClientDTO
	decodeBody(t, rr, &created)

	rr = httptest.NewRecorder()
	f.client.Upsert(rr, newRequest(t, http.MethodPut, "/api/v1/clients",
		domain.UpsertClientRequest{Name: "Globex", Address: "Main St 1"}, nil, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var updated domain.ClientDTO
	decodeBody(t, rr, &updated)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Main St 1", updated.Address)

	rr = httptest.NewRecorder()
	f.client.List(rr, newRequest(t, http.MethodGet, "/api/v1/clients?q=glob", nil, nil, tc))
	require.Equal(t, http.StatusOK, rr.Code)
	var clients []domain.ClientDTO
	decodeBody(t, rr, &clients)
	assert.Len(t, clients, 1)

	params := map[string]string{"id": created.ID.String()}
	rr = httptest.NewRecorder()
	f.client.GetByID(rr, newRequest(t, http.MethodGet, "/", nil, params, tc))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	f.client.Delete(rr, newRequest(t, http.MethodDelete, "/", nil, params, tc))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	f.client.Delete(rr, newRequest(t, http.MethodDelete, "/", nil, params, tc))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClientHandler_Validation(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name      string
		body      domain.UpsertClientRequest
		wantField string
	}{
		{name: "missing name", body: domain.UpsertClientRequest{Email: "a@example.com"}, wantField: "name"},
		{name: "bad email", body: domain.UpsertClientRequest{Name: "Globex", Email: "nope"}, wantField: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.client.Upsert(rr, newRequest(t, http.MethodPut, "/api/v1/clients", tt.body, nil, f.tenantContext()))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			var apiErr domain.APIError
			decodeBody(t, rr, &apiErr)
			assert.Contains(t, apiErr.Errors, tt.wantField)
		})
	}
}

func TestClientHandler_GetUnknown(t *testing.T) {
	f := newHandlerFixture(t)
	id := uuid.NewString()

	rr := httptest.NewRecorder()
	f.client.GetByID(rr, newRequest(t, http.MethodGet, "/", nil, map[string]string{"id": id}, f.tenantContext()))

	require.Equal(t, http.StatusNotFound, rr.Code)
	var apiErr domain.APIError
	decodeBody(t, rr, &apiErr)
	assert.Equal(t, domain.ErrorTypeNotFound, apiErr.Type)
}

func TestSequenceHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	f.createOffer(t)
	f.createOffer(t)

	rr := httptest.NewRecorder()
	f.sequence.List(rr, newRequest(t, http.MethodGet, "/api/v1/sequences", nil, nil, f.tenantContext()))

	require.Equal(t, http.StatusOK, rr.Code)
	var sequences []domain.SequenceDTO
	decodeBody(t, rr, &sequences)
	require.Len(t, sequences, 1)
	assert.Equal(t, 2025, sequences[0].Year)
	assert.Equal(t, domain.SequenceKindOffer, sequences[0].Kind)
	assert.Equal(t, "2025-0002", sequences[0].LastNumber)
}

func TestAuditHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	offer := f.createOffer(t)
	f.createOffer(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTotal  int64
	}{
		{name: "all entries", query: "", wantStatus: http.StatusOK, wantTotal: 2},
		{name: "by offer", query: "?offerId=" + offer.ID.String(), wantStatus: http.StatusOK, wantTotal: 1},
		{name: "by action", query: "?action=offer.accepted", wantStatus: http.StatusOK, wantTotal: 0},
		{name: "invalid offer id", query: "?offerId=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.audit.List(rr, newRequest(t, http.MethodGet, "/api/v1/audit"+tt.query, nil, nil, f.tenantContext()))

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
