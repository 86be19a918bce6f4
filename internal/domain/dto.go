package domain

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// DTOs for API responses. Timestamps are ISO 8601 strings, dates are YYYY-MM-DD.

type OfferItemDTO struct {
	ID        uuid.UUID `json:"id"`
	Position  int       `json:"position"`
	Name      string    `json:"name"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	LineTotal float64   `json:"lineTotal"`
}

type ClientSnapshotDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

type OfferTermsDTO struct {
	DeliveryTerms string  `json:"deliveryTerms,omitempty"`
	PaymentTerms  string  `json:"paymentTerms,omitempty"`
	Note          string  `json:"note,omitempty"`
	Place         string  `json:"place,omitempty"`
	Signatory     string  `json:"signatory,omitempty"`
	VATRate       float64 `json:"vatRate"`
	ValidUntil    *string `json:"validUntil,omitempty"`
}

type TrackingDTO struct {
	ViewCount     int     `json:"viewCount"`
	FirstViewedAt *string `json:"firstViewedAt,omitempty"`
	LastViewedAt  *string `json:"lastViewedAt,omitempty"`
	LastViewIP    string  `json:"lastViewIp,omitempty"`
	ClickCount    int     `json:"clickCount"`
	LastClickedAt *string `json:"lastClickedAt,omitempty"`
	LastClickIP   string  `json:"lastClickIp,omitempty"`
}

type EmailDeliveryDTO struct {
	LastTo    string  `json:"lastTo,omitempty"`
	LastAt    *string `json:"lastAt,omitempty"`
	LastError string  `json:"lastError,omitempty"`
	Attempts  int     `json:"attempts"`
}

type InvoiceDTO struct {
	IsInvoice   bool    `json:"isInvoice"`
	InvoiceNo   *string `json:"invoiceNo,omitempty"`
	InvoiceDate *string `json:"invoiceDate,omitempty"`
	Paid        bool    `json:"paid"`
	PaidAt      *string `json:"paidAt,omitempty"`
}

type OfferDTO struct {
	ID          uuid.UUID          `json:"id"`
	OfferNo     string             `json:"offerNo"`
	OfferYear   int                `json:"offerYear"`
	OfferSeq    int                `json:"offerSeq"`
	Status      OfferStatus        `json:"status"`
	Locked      bool               `json:"locked"`
	AcceptedAt  *string            `json:"acceptedAt,omitempty"`
	AcceptedVia *AcceptanceChannel `json:"acceptedVia,omitempty"`
	Archived    bool               `json:"archived"`
	ArchivedAt  *string            `json:"archivedAt,omitempty"`
	Client      ClientSnapshotDTO  `json:"client"`
	Terms       OfferTermsDTO      `json:"terms"`
	Items       []OfferItemDTO     `json:"items"`
	Subtotal    float64            `json:"subtotal"`
	VAT         float64            `json:"vat"`
	Total       float64            `json:"total"`
	PortalURL   string             `json:"portalUrl,omitempty"`
	Tracking    TrackingDTO        `json:"tracking"`
	Email       EmailDeliveryDTO   `json:"email"`
	Invoice     InvoiceDTO         `json:"invoice"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
}

// OfferSummaryDTO is a list row; Subtotal is aggregated from line items
type OfferSummaryDTO struct {
	ID         uuid.UUID   `json:"id"`
	OfferNo    string      `json:"offerNo"`
	ClientName string      `json:"clientName"`
	Status     OfferStatus `json:"status"`
	Archived   bool        `json:"archived"`
	Subtotal   float64     `json:"subtotal"`
	Total      float64     `json:"total"`
	ViewCount  int         `json:"viewCount"`
	InvoiceNo  *string     `json:"invoiceNo,omitempty"`
	Paid       bool        `json:"paid"`
	CreatedAt  string      `json:"createdAt"`
}

// PortalOfferDTO is the client-facing view of an offer; it exposes no
// internal ids or tracking data
type PortalOfferDTO struct {
	OfferNo      string         `json:"offerNo"`
	CompanyName  string         `json:"companyName"`
	ClientName   string         `json:"clientName"`
	Status       OfferStatus    `json:"status"`
	Accepted     bool           `json:"accepted"`
	AcceptedAt   *string        `json:"acceptedAt,omitempty"`
	Archived     bool           `json:"archived"`
	ValidUntil   *string        `json:"validUntil,omitempty"`
	Items        []OfferItemDTO `json:"items"`
	Subtotal     float64        `json:"subtotal"`
	VATRate      float64        `json:"vatRate"`
	VAT          float64        `json:"vat"`
	Total        float64        `json:"total"`
	PaymentTerms string         `json:"paymentTerms,omitempty"`
	Note         string         `json:"note,omitempty"`
}

type AcceptResultDTO struct {
	Changed bool           `json:"changed"`
	Offer   PortalOfferDTO `json:"offer"`
}

type PortalLinksDTO struct {
	Token     string `json:"token"`
	PortalURL string `json:"portalUrl"`
	AcceptURL string `json:"acceptUrl"`
	OpenURL   string `json:"openUrl"`
	ClickURL  string `json:"clickUrl"`
}

type SendResultDTO struct {
	Delivered bool     `json:"delivered"`
	Error     string   `json:"error,omitempty"`
	Offer     OfferDTO `json:"offer"`
}

type ClientDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"taxId,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

type SequenceDTO struct {
	Year         int          `json:"year"`
	Kind         SequenceKind `json:"kind"`
	LastSequence int          `json:"lastSequence"`
	LastNumber   string       `json:"lastNumber"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	OfferID     *uuid.UUID  `json:"offerId,omitempty"`
	IPAddress   string      `json:"ipAddress,omitempty"`
	UserAgent   string      `json:"userAgent,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	Metadata    interface{} `json:"metadata,omitempty"`
	PerformedAt string      `json:"performedAt"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=200"`
}

type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int       `json:"expiresIn"`
	TenantID    uuid.UUID `json:"tenantId"`
	Username    string    `json:"username"`
}

type MeResponse struct {
	TenantID uuid.UUID `json:"tenantId"`
	Username string    `json:"username"`
	AuthType string    `json:"authType"`
}

type CreateOfferRequest struct {
	ClientName string `json:"clientName,omitempty" validate:"max=200"`
}

type UpdateClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Address string `json:"address,omitempty" validate:"max=1000"`
	TaxID   string `json:"taxId,omitempty" validate:"max=50"`
}

type UpdateTermsRequest struct {
	DeliveryTerms string   `json:"deliveryTerms,omitempty" validate:"max=2000"`
	PaymentTerms  string   `json:"paymentTerms,omitempty" validate:"max=2000"`
	Note          string   `json:"note,omitempty" validate:"max=5000"`
	Place         string   `json:"place,omitempty" validate:"max=200"`
	Signatory     string   `json:"signatory,omitempty" validate:"max=200"`
	VATRate       *float64 `json:"vatRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	// ValidUntil is a YYYY-MM-DD date; empty clears it
	ValidUntil *string `json:"validUntil,omitempty"`
}

// Amount holds a number that clients may send either as a JSON number or
// as a string such as "12,50"
type Amount string

// UnmarshalJSON accepts numbers, strings and null
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*a = Amount(str)
		return nil
	}
	*a = Amount(s)
	return nil
}

type AddItemRequest struct {
	Name  string `json:"name" validate:"required,max=500"`
	Qty   Amount `json:"qty,omitempty" swaggertype:"string"`
	Price Amount `json:"price,omitempty" swaggertype:"string"`
}

type SendOfferRequest struct {
	To      string `json:"to" validate:"required,email,max=255"`
	Subject string `json:"subject,omitempty" validate:"max=200"`
	Message string `json:"message,omitempty" validate:"max=5000"`
}

type SetPaidRequest struct {
	Paid bool `json:"paid"`
}

type UpsertClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Address string `json:"address,omitempty" validate:"max=1000"`
	TaxID   string `json:"taxId,omitempty" validate:"max=50"`
	Note    string `json:"note,omitempty" validate:"max=2000"`
}
