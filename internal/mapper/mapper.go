package mapper

import (
	"strings"
	"time"

	"github.com/straye-as/offers-api/internal/domain"
	"github.com/straye-as/offers-api/internal/repository"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// PortalURL builds the public view link for a token
func PortalURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/p/" + token
}

// ToPortalLinksDTO builds every public link of a token
func ToPortalLinksDTO(baseURL, token string) domain.PortalLinksDTO {
	base := strings.TrimRight(baseURL, "/")
	return domain.PortalLinksDTO{
		Token:     token,
		PortalURL: base + "/p/" + token,
		AcceptURL: base + "/p/" + token + "/accept",
		OpenURL:   base + "/t/open/" + token,
		ClickURL:  base + "/t/click/" + token,
	}
}

// ToOfferItemDTOs converts items in order
func ToOfferItemDTOs(items []domain.OfferItem) []domain.OfferItemDTO {
	dtos := make([]domain.OfferItemDTO, len(items))
	for i, item := range items {
		dtos[i] = domain.OfferItemDTO{
			ID:        item.ID,
			Position:  item.Position,
			Name:      item.Name,
			Qty:       item.Qty,
			Price:     item.Price,
			LineTotal: item.LineTotal,
		}
	}
	return dtos
}

// ToOfferDTO converts an offer and its items; portalBaseURL is used only
// when the offer already has a portal token
func ToOfferDTO(offer *domain.Offer, items []domain.OfferItem, portalBaseURL string) domain.OfferDTO {
	totals := domain.ComputeTotals(items, offer.VATRate)

	dto := domain.OfferDTO{
		ID:          offer.ID,
		OfferNo:     offer.OfferNo,
		OfferYear:   offer.OfferYear,
		OfferSeq:    offer.OfferSeq,
		Status:      offer.Status,
		Locked:      offer.IsLocked(),
		AcceptedAt:  formatTime(offer.AcceptedAt),
		AcceptedVia: offer.AcceptedVia,
		Archived:    offer.Archived,
		ArchivedAt:  formatTime(offer.ArchivedAt),
		Client: domain.ClientSnapshotDTO{
			Name:    offer.ClientName,
			Email:   offer.ClientEmail,
			Address: offer.ClientAddress,
			TaxID:   offer.ClientTaxID,
		},
		Terms: domain.OfferTermsDTO{
			DeliveryTerms: offer.DeliveryTerms,
			PaymentTerms:  offer.PaymentTerms,
			Note:          offer.Note,
			Place:         offer.Place,
			Signatory:     offer.Signatory,
			VATRate:       offer.VATRate,
			ValidUntil:    formatDate(offer.ValidUntil),
		},
		Items:    ToOfferItemDTOs(items),
		Subtotal: totals.Subtotal,
		VAT:      totals.VAT,
		Total:    totals.Total,
		Tracking: domain.TrackingDTO{
			ViewCount:     offer.ViewCount,
			FirstViewedAt: formatTime(offer.FirstViewedAt),
			LastViewedAt:  formatTime(offer.LastViewedAt),
			LastViewIP:    offer.LastViewIP,
			ClickCount:    offer.ClickCount,
			LastClickedAt: formatTime(offer.LastClickedAt),
			LastClickIP:   offer.LastClickIP,
		},
		Email: domain.EmailDeliveryDTO{
			LastTo:    offer.LastEmailTo,
			LastAt:    formatTime(offer.LastEmailAt),
			LastError: offer.LastEmailError,
			Attempts:  offer.EmailAttempts,
		},
		Invoice: domain.InvoiceDTO{
			IsInvoice:   offer.IsInvoice,
			InvoiceNo:   offer.InvoiceNo,
			InvoiceDate: formatDate(offer.InvoiceDate),
			Paid:        offer.Paid,
			PaidAt:      formatTime(offer.PaidAt),
		},
		CreatedAt: offer.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: offer.UpdatedAt.UTC().Format(timestampLayout),
	}
	if offer.PortalToken != nil && portalBaseURL != "" {
		dto.PortalURL = PortalURL(portalBaseURL, *offer.PortalToken)
	}
	return dto
}

// ToOfferSummaryDTO converts a list row
func ToOfferSummaryDTO(row repository.OfferRow) domain.OfferSummaryDTO {
	totals := domain.TotalsFromSubtotal(row.Subtotal, row.Offer.VATRate)
	return domain.OfferSummaryDTO{
		ID:         row.Offer.ID,
		OfferNo:    row.Offer.OfferNo,
		ClientName: row.Offer.ClientName,
		Status:     row.Offer.Status,
		Archived:   row.Offer.Archived,
		Subtotal:   totals.Subtotal,
		Total:      totals.Total,
		ViewCount:  row.Offer.ViewCount,
		InvoiceNo:  row.Offer.InvoiceNo,
		Paid:       row.Offer.Paid,
		CreatedAt:  row.Offer.CreatedAt.UTC().Format(timestampLayout),
	}
}

// ToPortalOfferDTO converts an offer into its public view
func ToPortalOfferDTO(offer *domain.Offer, items []domain.OfferItem, companyName string) domain.PortalOfferDTO {
	totals := domain.ComputeTotals(items, offer.VATRate)
	return domain.PortalOfferDTO{
		OfferNo:      offer.OfferNo,
		CompanyName:  companyName,
		ClientName:   offer.ClientName,
		Status:       offer.Status,
		Accepted:     offer.Status == domain.OfferStatusAccepted,
		AcceptedAt:   formatTime(offer.AcceptedAt),
		Archived:     offer.Archived,
		ValidUntil:   formatDate(offer.ValidUntil),
		Items:        ToOfferItemDTOs(items),
		Subtotal:     totals.Subtotal,
		VATRate:      offer.VATRate,
		VAT:          totals.VAT,
		Total:        totals.Total,
		PaymentTerms: offer.PaymentTerms,
		Note:         offer.Note,
	}
}

// ToClientDTO converts an address book entry
func ToClientDTO(c *domain.Client) domain.ClientDTO {
	return domain.ClientDTO{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Address:   c.Address,
		TaxID:     c.TaxID,
		Note:      c.Note,
		CreatedAt: c.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: c.UpdatedAt.UTC().Format(timestampLayout),
	}
}
