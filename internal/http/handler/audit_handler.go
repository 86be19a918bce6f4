package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
	"github.com/straye-as/offers-api/internal/service"
	"go.uber.org/zap"
)

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of the tenant's audit entries, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 50, max: 200)"
// @Param action query string false "Filter by action"
// @Param offerId query string false "Filter by offer ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} domain.PaginatedResponse
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter repository.AuditLogFilter

	if actionStr := q.Get("action"); actionStr != "" {
		action := domain.AuditAction(actionStr)
		filter.Action = &action
	}

	if offerIDStr := q.Get("offerId"); offerIDStr != "" {
		offerID, err := uuid.Parse(offerIDStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid offer ID")
			return
		}
		filter.OfferID = &offerID
	}

	if startStr := q.Get("startTime"); startStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startStr); err == nil {
			filter.StartTime = &startTime
		}
	}

	if endStr := q.Get("endTime"); endStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endStr); err == nil {
			filter.EndTime = &endTime
		}
	}

	result, err := h.auditService.List(r.Context(), owner.TenantID, filter,
		parseIntQuery(r, "page", 1), parseIntQuery(r, "pageSize", repository.DefaultPageSize))
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to retrieve audit logs")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
