package handler

import (
	"net/http"

	"github.com/straye-as/offers-api/internal/service"
	"go.uber.org/zap"
)

type SequenceHandler struct {
	sequenceService *service.NumberSequenceService
	logger          *zap.Logger
}

func NewSequenceHandler(sequenceService *service.NumberSequenceService, logger *zap.Logger) *SequenceHandler {
	return &SequenceHandler{
		sequenceService: sequenceService,
		logger:          logger,
	}
}

// @Summary List number sequences
// @Description Returns the tenant's offer and invoice counters per year
// @Tags Sequences
// @Produce json
// @Success 200 {array} domain.SequenceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /sequences [get]
func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	sequences, err := h.sequenceService.List(r.Context(), owner.TenantID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, sequences)
}
