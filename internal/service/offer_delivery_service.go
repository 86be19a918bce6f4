package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/mapper"
	"github.com/straye-as/offers-api/internal/notify"
	"github.com/straye-as/offers-api/internal/render"
	"github.com/straye-as/offers-api/internal/storage"
	"go.uber.org/zap"
)

// RenderedDocument is a rendered offer ready for download
type RenderedDocument struct {
	Data        []byte
	ContentType string
	Filename    string
}

// DeliveryService renders offers and emails them to clients
type DeliveryService struct {
	offers        *OfferService
	renderers     *render.Set
	html          *render.HTMLRenderer
	store         storage.Storage
	notifier      notify.Notifier
	settings      SettingsProvider
	audit         *AuditLogService
	portalBaseURL string
	logger        *zap.Logger
	now           func() time.Time
}

// NewDeliveryService creates a new DeliveryService. store may be nil, in
// which case sent documents are not archived.
func NewDeliveryService(
	offers *OfferService,
	renderers *render.Set,
	html *render.HTMLRenderer,
	store storage.Storage,
	notifier notify.Notifier,
	settings SettingsProvider,
	audit *AuditLogService,
	portalBaseURL string,
	logger *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		offers:        offers,
		renderers:     renderers,
		html:          html,
		store:         store,
		notifier:      notifier,
		settings:      settings,
		audit:         audit,
		portalBaseURL: portalBaseURL,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *DeliveryService) document(ctx context.Context, owner domain.Owner, offer *domain.Offer, items []domain.OfferItem) *render.Document {
	portalURL := ""
	if offer.PortalToken != nil {
		portalURL = mapper.PortalURL(s.portalBaseURL, *offer.PortalToken)
	}
	return render.NewDocument(offer, items, s.settings.CompanySettings(ctx, owner.TenantID), portalURL)
}

// RenderDocument renders an owned offer in format
func (s *DeliveryService) RenderDocument(ctx context.Context, owner domain.Owner, id uuid.UUID, format render.Format) (*RenderedDocument, error) {
	renderer, err := s.renderers.Get(format)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	offer, items, err := s.offers.GetOwnedOffer(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	doc := s.document(ctx, owner, offer, items)
	data, err := renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}
	return &RenderedDocument{
		Data:        data,
		ContentType: renderer.ContentType(),
		Filename:    doc.Filename(format),
	}, nil
}

// SendOffer emails an offer with the rendered document attached and a
// tracked link to the portal. Delivery bookkeeping is stored whether or not
// the relay accepted the message; only a delivered draft becomes sent.
func (s *DeliveryService) SendOffer(ctx context.Context, owner domain.Owner, id uuid.UUID, req *domain.SendOfferRequest) (*domain.SendResultDTO, error) {
	offer, items, err := s.offers.GetOwnedOffer(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if offer.Archived {
		return nil, ErrOfferArchived
	}

	token, err := s.offers.ensurePortalToken(ctx, owner, offer)
	if err != nil {
		return nil, err
	}
	links := mapper.ToPortalLinksDTO(s.portalBaseURL, token)

	doc := s.document(ctx, owner, offer, items)
	format := s.renderers.Attachment()
	renderer, err := s.renderers.Get(format)
	if err != nil {
		return nil, err
	}
	data, err := renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}

	now := s.now().UTC()
	s.archive(ctx, doc, format, renderer.ContentType(), data, now)

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Offer %s from %s", offer.OfferNo, doc.Company.Name)
	}
	text, html, err := s.html.RenderEmail(render.Email{
		CompanyName: doc.Company.Name,
		ClientName:  offer.ClientName,
		OfferNo:     offer.OfferNo,
		Message:     req.Message,
		Total:       doc.Totals.Total,
		PortalURL:   links.PortalURL,
		ClickURL:    links.ClickURL,
		OpenURL:     links.OpenURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render email: %w", err)
	}

	sendErr := s.notifier.Send(ctx, notify.Message{
		To:      req.To,
		Subject: subject,
		Text:    text,
		HTML:    html,
		Attachment: &notify.Attachment{
			Filename:    doc.Filename(format),
			ContentType: renderer.ContentType(),
			Data:        data,
		},
	})

	markedSent := false
	updated, _, err := s.offers.transition(ctx, owner, id, func(o *domain.Offer) error {
		o.LastEmailTo = req.To
		o.LastEmailAt = &now
		o.EmailAttempts++
		if sendErr != nil {
			o.LastEmailError = sendErr.Error()
			return nil
		}
		o.LastEmailError = ""
		if o.CanMarkSent() {
			o.Status = domain.OfferStatusSent
			markedSent = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &domain.SendResultDTO{Delivered: sendErr == nil}
	if sendErr != nil {
		result.Error = sendErr.Error()
		s.logger.Warn("offer email failed",
			zap.String("offer_id", offer.ID.String()),
			zap.String("to", req.To),
			zap.Error(sendErr),
		)
		s.audit.RecordOffer(ctx, owner, domain.AuditActionEmailFailed, offer.ID, map[string]interface{}{
			"to":    req.To,
			"error": sendErr.Error(),
		})
	} else {
		s.audit.RecordOffer(ctx, owner, domain.AuditActionEmailSent, offer.ID, map[string]interface{}{
			"to":     req.To,
			"format": format,
		})
		if markedSent {
			s.audit.RecordOffer(ctx, owner, domain.AuditActionMarkedSent, offer.ID, map[string]interface{}{
				"via": "email",
			})
		}
	}

	dto, err := s.offers.toDTO(ctx, updated)
	if err != nil {
		return nil, err
	}
	result.Offer = *dto
	return result, nil
}

// archive stores a copy of a sent document. Failures are logged only.
func (s *DeliveryService) archive(ctx context.Context, doc *render.Document, format render.Format, contentType string, data []byte, at time.Time) {
	if s.store == nil {
		return
	}
	key := storage.DocumentKey(doc.Number(), string(format), at)
	if _, err := s.store.Put(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		s.logger.Warn("failed to archive sent document",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("archived sent document", zap.String("key", key))
}
