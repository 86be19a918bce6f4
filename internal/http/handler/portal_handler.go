package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/service"
	"go.uber.org/zap"
)

// transparentGIF is a 1x1 transparent GIF served by the open beacon
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// PortalHandler serves the public, token-addressed client pages. Nothing
// here requires authentication; the token is the credential.
type PortalHandler struct {
	portalService *service.PortalService
	html          *render.HTMLRenderer
	logger        *zap.Logger
}

func NewPortalHandler(portalService *service.PortalService, html *render.HTMLRenderer, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{
		portalService: portalService,
		html:          html,
		logger:        logger,
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// respondPortalError answers JSON clients with problem details and browsers
// with a plain status page that does not reveal whether the token exists
func (h *PortalHandler) respondPortalError(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		handleServiceError(w, h.logger, err)
		return
	}
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("portal request failed", zap.Error(err))
	}
	message := http.StatusText(status)
	if errors.Is(err, service.ErrOfferArchived) {
		message = "This offer is no longer available."
	}
	http.Error(w, message, status)
}

func (h *PortalHandler) renderPage(w http.ResponseWriter, status int, offer domain.PortalOfferDTO, token, notice string) {
	page, err := h.html.RenderPortal(render.PortalPage{
		Offer:     offer,
		AcceptURL: h.portalService.AcceptURL(token),
		Notice:    notice,
	})
	if err != nil {
		h.logger.Error("failed to render portal page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

// View godoc
// @Summary Client portal page
// @Description Shows the offer to its client and counts a view. Returns JSON when the Accept header asks for it.
// @Tags Portal
// @Produce html
// @Produce json
// @Param token path string true "Portal token"
// @Success 200 {object} domain.PortalOfferDTO
// @Failure 404 {object} domain.APIError
// @Router /p/{token} [get]
func (h *PortalHandler) View(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	offer, err := h.portalService.View(r.Context(), token, clientIP(r))
	if err != nil {
		h.respondPortalError(w, r, err)
		return
	}

	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, offer)
		return
	}
	h.renderPage(w, http.StatusOK, *offer, token, "")
}

// Accept godoc
// @Summary Accept offer from the client portal
// @Description Accepts the offer. Repeating the request succeeds with changed=false.
// @Tags Portal
// @Produce html
// @Produce json
// @Param token path string true "Portal token"
// @Success 200 {object} domain.AcceptResultDTO
// @Failure 404 {object} domain.APIError
// @Failure 423 {object} domain.APIError "Offer is archived"
// @Router /p/{token}/accept [post]
func (h *PortalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result, err := h.portalService.AcceptByToken(r.Context(), token, clientIP(r))
	if err != nil {
		h.respondPortalError(w, r, err)
		return
	}

	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, result)
		return
	}

	notice := "Thank you, the offer has been accepted."
	if !result.Changed {
		notice = "This offer was already accepted."
	}
	h.renderPage(w, http.StatusOK, result.Offer, token, notice)
}

// TrackOpen godoc
// @Summary Email open beacon
// @Description Counts an email open and returns a 1x1 GIF. Always succeeds.
// @Tags Portal
// @Produce image/gif
// @Param token path string true "Portal token"
// @Success 200 {file} file
// @Router /t/open/{token} [get]
func (h *PortalHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.portalService.TrackOpen(r.Context(), token, clientIP(r)); err != nil {
		h.logger.Debug("open beacon not counted", zap.Error(err))
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

// TrackClick godoc
// @Summary Tracked email link
// @Description Counts a click and redirects to the portal page
// @Tags Portal
// @Param token path string true "Portal token"
// @Success 302 "Redirect to the portal page"
// @Router /t/click/{token} [get]
func (h *PortalHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.portalService.Click(r.Context(), token, clientIP(r)); err != nil {
		h.logger.Debug("click not counted", zap.Error(err))
	}

	http.Redirect(w, r, "/p/"+url.PathEscape(token), http.StatusFound)
}
