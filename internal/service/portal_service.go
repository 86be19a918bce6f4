package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/mapper"
	"github.com/straye-as/offers-api/internal/notify"
	"github.com/straye-as/offers-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	portalTokenBytes    = 24
	portalTokenAttempts = 3
	portalActor         = "portal"
)

// newPortalToken returns 24 random bytes as unpadded base64url (32 chars)
func newPortalToken() (string, error) {
	b := make([]byte, portalTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate portal token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EnsurePortalToken returns the public links of an offer, creating its
// portal token on first use. The token never changes afterwards.
func (s *OfferService) EnsurePortalToken(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.PortalLinksDTO, error) {
	offer, err := s.getOwned(ctx, s.offerRepo, owner, id, false)
	if err != nil {
		return nil, err
	}
	token, err := s.ensurePortalToken(ctx, owner, offer)
	if err != nil {
		return nil, err
	}
	links := mapper.ToPortalLinksDTO(s.portalBaseURL, token)
	return &links, nil
}

func (s *OfferService) ensurePortalToken(ctx context.Context, owner domain.Owner, offer *domain.Offer) (string, error) {
	if offer.PortalToken != nil && *offer.PortalToken != "" {
		return *offer.PortalToken, nil
	}

	for attempt := 1; attempt <= portalTokenAttempts; attempt++ {
		token, err := newPortalToken()
		if err != nil {
			return "", err
		}

		stored, err := s.offerRepo.SetPortalTokenIfEmpty(ctx, offer.ID, token)
		if err != nil {
			if repository.IsDuplicateKey(err) {
				s.logger.Warn("portal token collision, retrying", zap.Int("attempt", attempt))
				continue
			}
			return "", fmt.Errorf("failed to store portal token: %w", err)
		}

		if !stored {
			// another request created it first
			current, err := s.getOwned(ctx, s.offerRepo, owner, offer.ID, false)
			if err != nil {
				return "", err
			}
			if current.PortalToken == nil {
				return "", fmt.Errorf("failed to store portal token: offer %s not updated", offer.ID)
			}
			offer.PortalToken = current.PortalToken
			return *current.PortalToken, nil
		}

		offer.PortalToken = &token
		s.audit.RecordOffer(ctx, owner, domain.AuditActionPortalToken, offer.ID, nil)
		return token, nil
	}
	return "", fmt.Errorf("failed to store portal token after %d attempts", portalTokenAttempts)
}

// PortalService serves the public, token addressed side of offers. It
// never sees an owner: the token is the only credential.
type PortalService struct {
	offerRepo     *repository.OfferRepository
	itemRepo      *repository.OfferItemRepository
	audit         *AuditLogService
	notifier      notify.Notifier
	settings      SettingsProvider
	portalBaseURL string
	logger        *zap.Logger
	now           func() time.Time
}

// NewPortalService creates a new PortalService
func NewPortalService(
	offerRepo *repository.OfferRepository,
	itemRepo *repository.OfferItemRepository,
	audit *AuditLogService,
	notifier notify.Notifier,
	settings SettingsProvider,
	portalBaseURL string,
	logger *zap.Logger,
) *PortalService {
	return &PortalService{
		offerRepo:     offerRepo,
		itemRepo:      itemRepo,
		audit:         audit,
		notifier:      notifier,
		settings:      settings,
		portalBaseURL: portalBaseURL,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock replaces the time source
func (s *PortalService) WithClock(now func() time.Time) *PortalService {
	s.now = now
	return s
}

func (s *PortalService) companySettings(ctx context.Context, offer *domain.Offer) domain.CompanySettings {
	tenantID := uuid.Nil
	if offer.TenantID != nil {
		tenantID = *offer.TenantID
	}
	return s.settings.CompanySettings(ctx, tenantID)
}

func (s *PortalService) load(ctx context.Context, token string) (*domain.Offer, []domain.OfferItem, error) {
	offer, err := s.offerRepo.GetByPortalToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPortalTokenNotFound
		}
		return nil, nil, fmt.Errorf("failed to get offer by token: %w", err)
	}
	items, err := s.itemRepo.ListByOffer(ctx, offer.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list offer items: %w", err)
	}
	return offer, items, nil
}

func (s *PortalService) toDTO(ctx context.Context, offer *domain.Offer, items []domain.OfferItem) domain.PortalOfferDTO {
	return mapper.ToPortalOfferDTO(offer, items, s.companySettings(ctx, offer).Name)
}

// AcceptURL is the public accept endpoint of token
func (s *PortalService) AcceptURL(token string) string {
	return mapper.ToPortalLinksDTO(s.portalBaseURL, token).AcceptURL
}

// View counts a view and returns the public offer. Counting is skipped,
// not failed, when the tracking update errors.
func (s *PortalService) View(ctx context.Context, token, ip string) (*domain.PortalOfferDTO, error) {
	offer, items, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.offerRepo.RecordView(ctx, token, ip, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record portal view",
			zap.String("offer_id", offer.ID.String()),
			zap.Error(err),
		)
	}
	dto := s.toDTO(ctx, offer, items)
	return &dto, nil
}

// Get returns the public offer without counting a view
func (s *PortalService) Get(ctx context.Context, token string) (*domain.PortalOfferDTO, error) {
	offer, items, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(ctx, offer, items)
	return &dto, nil
}

// TrackOpen counts a view from the email beacon
func (s *PortalService) TrackOpen(ctx context.Context, token, ip string) error {
	n, err := s.offerRepo.RecordView(ctx, token, ip, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record open: %w", err)
	}
	if n == 0 {
		return ErrPortalTokenNotFound
	}
	return nil
}

// Click counts a click on the tracked email link
func (s *PortalService) Click(ctx context.Context, token, ip string) error {
	n, err := s.offerRepo.RecordClick(ctx, token, ip, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	if n == 0 {
		return ErrPortalTokenNotFound
	}
	return nil
}

// AcceptByToken accepts the offer on behalf of its client. Accepting an
// accepted offer succeeds with Changed false; archived offers are locked.
func (s *PortalService) AcceptByToken(ctx context.Context, token, ip string) (*domain.AcceptResultDTO, error) {
	now := s.now().UTC()
	rows, err := s.offerRepo.AcceptByToken(ctx, token, now)
	if err != nil {
		return nil, fmt.Errorf("failed to accept offer: %w", err)
	}

	offer, items, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		if offer.Archived {
			return nil, ErrOfferArchived
		}
		dto := s.toDTO(ctx, offer, items)
		return &domain.AcceptResultDTO{Changed: false, Offer: dto}, nil
	}

	s.logger.Info("offer accepted",
		zap.String("offer_id", offer.ID.String()),
		zap.String("offer_no", offer.OfferNo),
		zap.String("via", string(domain.AcceptedViaPortal)),
	)
	offerID := offer.ID
	s.audit.Record(ctx, AuditEntry{
		TenantID:  offer.TenantID,
		Actor:     portalActor,
		Action:    domain.AuditActionPortalAccepted,
		OfferID:   &offerID,
		IPAddress: ip,
		Metadata:  map[string]interface{}{"offer_no": offer.OfferNo},
	})
	s.notifyAccepted(ctx, offer, items)

	dto := s.toDTO(ctx, offer, items)
	return &domain.AcceptResultDTO{Changed: true, Offer: dto}, nil
}

// notifyAccepted tells the issuing company and the client about an
// acceptance. Failures are logged only.
func (s *PortalService) notifyAccepted(ctx context.Context, offer *domain.Offer, items []domain.OfferItem) {
	company := s.companySettings(ctx, offer)
	totals := domain.ComputeTotals(items, offer.VATRate)
	ctx = context.WithoutCancel(ctx)

	var messages []notify.Message
	if company.Email != "" {
		messages = append(messages, notify.Message{
			To:      company.Email,
			Subject: fmt.Sprintf("Offer %s accepted by %s", offer.OfferNo, offer.ClientName),
			Text: fmt.Sprintf("Offer %s for %s was accepted through the portal.\nTotal: %.2f\n",
				offer.OfferNo, offer.ClientName, totals.Total),
		})
	}
	if offer.ClientEmail != "" {
		messages = append(messages, notify.Message{
			To:      offer.ClientEmail,
			Subject: fmt.Sprintf("Confirmation: offer %s accepted", offer.OfferNo),
			Text: fmt.Sprintf("Thank you for accepting offer %s.\nTotal: %.2f\n\nBest regards,\n%s\n",
				offer.OfferNo, totals.Total, company.Name),
		})
	}

	for _, msg := range messages {
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("failed to send acceptance notification",
				zap.String("offer_id", offer.ID.String()),
				zap.String("to", msg.To),
				zap.Error(err),
			)
		}
	}
}
