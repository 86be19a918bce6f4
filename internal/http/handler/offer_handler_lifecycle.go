package handler

// This file contains lifecycle and invoice handlers for the OfferHandler.
// Includes:
// - Status transitions (MarkSent, Accept, Unlock)
// - Archive, unarchive and delete
// - Invoice creation and payment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
)

type offerAction func(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error)

// runAction resolves the owner and offer id, runs action and writes the offer
func (h *OfferHandler) runAction(w http.ResponseWriter, r *http.Request, name string, action offerAction) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	offer, err := action(r.Context(), owner, id)
	if err != nil {
		h.logger.Debug("offer action rejected",
			zap.String("action", name),
			zap.String("offer_id", id.String()),
			zap.Error(err),
		)
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, offer)
}

// MarkSent godoc
// @Summary Mark offer as sent
// @Description Moves a draft offer to sent without emailing it
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer is not a draft"
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/mark-sent [post]
func (h *OfferHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "mark_sent", h.offerService.MarkSent)
}

// Accept godoc
// @Summary Accept offer
// @Description Records acceptance on behalf of the client. Accepted offers are locked for editing.
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer is already accepted"
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/accept [post]
func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "accept", h.offerService.Accept)
}

// Unlock godoc
// @Summary Unlock accepted offer
// @Description Clears the acceptance and returns the offer to draft so it can be edited again
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer is not accepted"
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/unlock [post]
func (h *OfferHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "unlock", h.offerService.Unlock)
}

// Archive godoc
// @Summary Archive offer
// @Description Hides the offer from the default list. Archiving twice is a no-op.
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/archive [post]
func (h *OfferHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "archive", h.offerService.Archive)
}

// Unarchive godoc
// @Summary Unarchive offer
// @Tags Offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/unarchive [post]
func (h *OfferHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "unarchive", h.offerService.Unarchive)
}

// Delete godoc
// @Summary Delete offer
// @Description Permanently deletes an archived offer and its items. Its number is not reused.
// @Tags Offers
// @Param id path string true "Offer ID"
// @Success 204 "No Content"
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer is not archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id} [delete]
func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "offer")
	if !ok {
		return
	}

	if err := h.offerService.DeleteOffer(r.Context(), owner, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateInvoice godoc
// @Summary Create invoice
// @Description Assigns an invoice number to an accepted offer. Returns the existing invoice when one was already issued.
// @Tags Invoices
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer is not accepted"
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/invoice [post]
func (h *OfferHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "create_invoice", h.offerService.CreateInvoice)
}

// SetPaid godoc
// @Summary Set invoice payment
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Offer ID"
// @Param request body domain.SetPaidRequest true "Payment flag"
// @Success 200 {object} domain.OfferDTO
// @Failure 404 {object} domain.APIError "Offer not found"
// @Failure 409 {object} domain.APIError "Offer has no invoice"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /offers/{id}/paid [put]
func (h *OfferHandler) SetPaid(w http.ResponseWriter, r *http.Request) {
	var req domain.SetPaidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.runAction(w, r, "set_paid", func(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.OfferDTO, error) {
		return h.offerService.SetInvoicePaid(ctx, owner, id, req.Paid)
	})
}

// ListInvoices godoc
// @Summary List invoices
// @Description Lists offers with an invoice number, newest invoice first, including archived ones
// @Tags Invoices
// @Produce json
// @Param paid query bool false "Filter by payment"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(50)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *OfferHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.offerService.ListInvoices(r.Context(), owner, parseBoolQuery(r, "paid"),
		parseIntQuery(r, "page", 1), parseIntQuery(r, "pageSize", repository.DefaultPageSize))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
