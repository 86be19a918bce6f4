package handler

import (
	"fmt"
	"net/http"

	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"go.uber.org/zap"
)

type OfferHandler struct {
	offerService    *service.OfferService
	deliveryService *service.DeliveryService
	logger          *zap.Logger
}

func NewOfferHandler(offerService *service.OfferService, deliveryService *service.DeliveryService, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{
		offerService:    offerService,
		deliveryService: deliveryService,
		logger:          logger,
	}
}

// @Summary List offers
// @Tags Offers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(50)
// @Param view query string false "Archive view" Enums(active, archived, all) default(active)
// @Param status query string false "Filter by status" Enums(draft, sent, accepted)
// @Param client query string false "Exact client name, case-insensitive"
// @Param q query string false "Substring of offer number or client name"
// @Param isInvoice query bool false "Only offers with or without an invoice"
// @Param paid query bool false "Filter invoices by payment"
// @Param sortBy query string false "Sort field" Enums(createdAt, offerNo, clientName, status, invoiceNo)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers [get]
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := repository.OfferFilters{
		View:      repository.ParseArchiveView(q.Get("view")),
		Client:    q.Get("client"),
		Query:     q.Get("q"),
		IsInvoice: parseBoolQuery(r, "isInvoice"),
		Paid:      parseBoolQuery(r, "paid"),
	}
	if s := q.Get("status"); s != "" {
		status := domain.OfferStatus(s)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filters.Status = &status
	}

	sort := repository.SortConfig{
		Field: q.Get("sortBy"),
		Order: repository.ParseSortOrder(q.Get("sortOrder")),
	}

	result, err := h.offerService.ListOffers(r.Context(), owner, filters, sort,
		parseIntQuery(r, "page", 1), parseIntQuery(r, "pageSize", repository.DefaultPageSize))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create offer
// @Description Creates a draft offer with the next number of the current year
// @Tags Offers
// @Accept json
// @Produce json
// @Param request body domain.CreateOfferRequest false "Optional client name"
// @Success 201 {object} domain.OfferDTO
// @Failure 400 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Number allocation contention"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers [post]
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.CreateOfferRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	offer, err := h.offerService.CreateOffer(r.Context(), owner, req.ClientName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/offers/%s", offer.ID))
	respondJSON(w, http.StatusCreated, offer)
}

// @Summary Get offer
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id} [get]
func (h *OfferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	offer, err := h.offerService.GetOffer(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// @Summary Update client details
// @Description Replaces the client snapshot on the offer and saves the client to the address book
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body domain.UpdateClientRequest true "Client details"
// @Success 200 {object} domain.OfferDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/client [put]
func (h *OfferHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	var req domain.UpdateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	offer, err := h.offerService.UpdateClient(r.Context(), owner, id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// @Summary Update offer terms
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body domain.UpdateTermsRequest true "Terms"
// @Success 200 {object} domain.OfferDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/terms [put]
func (h *OfferHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	var req domain.UpdateTermsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	offer, err := h.offerService.UpdateTerms(r.Context(), owner, id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// @Summary Add item
// @Description Appends a line item. Quantity defaults to 1 and price to 0; both accept a decimal comma.
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body domain.AddItemRequest true "Item"
// @Success 201 {object} domain.OfferDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/items [post]
func (h *OfferHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	var req domain.AddItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	offer, err := h.offerService.AddItem(r.Context(), owner, id, req.Name, string(req.Qty), string(req.Price))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, offer)
}

// @Summary Delete item
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/items/{itemId} [delete]
func (h *OfferHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(w, r, "itemId", "item")
	if !ok {
		return
	}

	offer, err := h.offerService.DeleteItem(r.Context(), owner, id, itemID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// @Summary Clear items
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/items [delete]
func (h *OfferHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	offer, err := h.offerService.ClearItems(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// @Summary Duplicate offer
// @Description Copies client, terms and items into a new draft with a fresh number
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 201 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/duplicate [post]
func (h *OfferHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	offer, err := h.offerService.DuplicateOffer(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/offers/%s", offer.ID))
	respondJSON(w, http.StatusCreated, offer)
}

// @Summary Offer history
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} domain.AuditLogDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/history [get]
func (h *OfferHandler) History(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	entries, err := h.offerService.History(r.Context(), owner, id, parseIntQuery(r, "limit", 50))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// @Summary Portal links
// @Description Returns the client portal and tracking links, creating the token on first use
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.PortalLinksDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/portal-link [post]
func (h *OfferHandler) PortalLinks(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	links, err := h.offerService.EnsurePortalToken(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, links)
}

// @Summary Render offer document
// @Tags Offers
// @Produce application/pdf
// @Produce text/html
// @Produce text/csv
// @Param id path string true "Offer ID"
// @Param format query string false "Document format" Enums(pdf, html, csv) default(pdf)
// @Success 200 {file} file
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/document [get]
func (h *OfferHandler) Document(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.deliveryService.RenderDocument(r.Context(), owner, id, format)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	disposition := "attachment"
	if format == render.FormatHTML {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.Warn("failed to write document", zap.Error(err))
	}
}

// @Summary Send offer by email
// @Description Emails the offer with a document attached. Delivery failures are reported in the body, not as an error status.
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body domain.SendOfferRequest true "Recipient and message"
// @Success 200 {object} domain.SendResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/send [post]
func (h *OfferHandler) Send(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	var req domain.SendOfferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.deliveryService.SendOffer(r.Context(), owner, id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
