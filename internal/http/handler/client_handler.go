package handler

import (
	"net/http"

	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/service"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// @Summary List clients
// @Description Lists the address book, optionally filtered by a name substring
// @Tags Clients
// @Produce json
// @Param q query string false "Name substring"
// @Success 200 {array} domain.ClientDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	clients, err := h.clientService.List(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, clients)
}

// @Summary Get client
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} domain.ClientDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(r.Context(), owner, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, client)
}

// @Summary Save client
// @Description Creates the client or updates the entry with the same name
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.UpsertClientRequest true "Client"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [put]
func (h *ClientHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.UpsertClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Upsert(r.Context(), owner, &req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, client)
}

// @Summary Delete client
// @Description Removes the address book entry. Offers keep their client snapshot.
// @Tags Clients
// @Param id path string true "Client ID"
// @Success 204 "No Content"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id", "client")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), owner, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
