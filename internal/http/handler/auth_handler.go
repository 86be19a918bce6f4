package handler

import (
	"context"
	"net/http"

	"github.com/straye-as/offers-api/internal/auth"
	"github.com/straye-as/offers-api/internal/domain"
	"go.uber.org/zap"
)

// LoginService interface for dependency injection
type LoginService interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResponse, error)
}

type AuthHandler struct {
	authService LoginService
	logger      *zap.Logger
}

func NewAuthHandler(authService LoginService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary Log in
// @Description Verifies credentials and returns a bearer token. The tenant is created on first login.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Me godoc
// @Summary Get current tenant
// @Description Returns the tenant the request is authenticated as
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.MeResponse
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, domain.MeResponse{
		TenantID: tenant.TenantID,
		Username: tenant.Username,
		AuthType: string(tenant.AuthType),
	})
}
