package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an id so rows can be created on databases without gen_random_uuid()
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Tenant is the ownership boundary for offers, clients and sequences.
// Tenants are created on first login and never deleted.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"type:varchar(150);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns the tenant id
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// OfferStatus represents the lifecycle state of an offer
type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "draft"
	OfferStatusSent     OfferStatus = "sent"
	OfferStatusAccepted OfferStatus = "accepted"
)

// IsValid checks if the offer status is a known value
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusDraft, OfferStatusSent, OfferStatusAccepted:
		return true
	}
	return false
}

// AcceptanceChannel records who accepted an offer
type AcceptanceChannel string

const (
	AcceptedViaAdmin  AcceptanceChannel = "admin"
	AcceptedViaPortal AcceptanceChannel = "portal"
)

// Offer is a quote addressed to a client. Client details are a snapshot
// taken when the offer was edited, not a live reference to the address book.
//
// Legacy rows written before tenants existed carry only OwnerUsername.
type Offer struct {
	BaseModel
	TenantID      *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_offers_tenant_number,priority:1;uniqueIndex:idx_offers_tenant_invoice,priority:1"`
	OwnerUsername *string    `gorm:"type:varchar(150);column:owner_username;index"`

	ClientName    string `gorm:"type:varchar(200)"`
	ClientEmail   string `gorm:"type:varchar(255)"`
	ClientAddress string `gorm:"type:text"`
	ClientTaxID   string `gorm:"type:varchar(50);column:client_tax_id"`

	OfferYear int    `gorm:"not null;uniqueIndex:idx_offers_tenant_number,priority:2"`
	OfferSeq  int    `gorm:"not null;uniqueIndex:idx_offers_tenant_number,priority:3"`
	OfferNo   string `gorm:"type:varchar(20);not null;index"`

	Status      OfferStatus        `gorm:"type:varchar(20);not null;index"`
	AcceptedAt  *time.Time         `gorm:"column:accepted_at"`
	AcceptedVia *AcceptanceChannel `gorm:"type:varchar(20);column:accepted_via"`
	Archived    bool               `gorm:"not null;default:false;index"`
	ArchivedAt  *time.Time

	PortalToken   *string    `gorm:"type:varchar(64);uniqueIndex"`
	ViewCount     int        `gorm:"not null;default:0"`
	FirstViewedAt *time.Time `gorm:"column:first_viewed_at"`
	LastViewedAt  *time.Time `gorm:"column:last_viewed_at"`
	LastViewIP    string     `gorm:"type:varchar(64);column:last_view_ip"`
	ClickCount    int        `gorm:"not null;default:0"`
	LastClickedAt *time.Time `gorm:"column:last_clicked_at"`
	LastClickIP   string     `gorm:"type:varchar(64);column:last_click_ip"`

	DeliveryTerms string     `gorm:"type:text"`
	PaymentTerms  string     `gorm:"type:text"`
	Note          string     `gorm:"type:text"`
	Place         string     `gorm:"type:varchar(200)"`
	Signatory     string     `gorm:"type:varchar(200)"`
	VATRate       float64    `gorm:"type:decimal(5,2);column:vat_rate;not null"`
	ValidUntil    *time.Time `gorm:"column:valid_until"`

	LastEmailTo    string     `gorm:"type:varchar(255);column:last_email_to"`
	LastEmailAt    *time.Time `gorm:"column:last_email_at"`
	LastEmailError string     `gorm:"type:text;column:last_email_error"`
	EmailAttempts  int        `gorm:"not null;default:0;column:email_attempts"`

	IsInvoice   bool       `gorm:"not null;default:false"`
	InvoiceYear *int       `gorm:"uniqueIndex:idx_offers_tenant_invoice,priority:2"`
	InvoiceSeq  *int       `gorm:"uniqueIndex:idx_offers_tenant_invoice,priority:3"`
	InvoiceNo   *string    `gorm:"type:varchar(20);index"`
	InvoiceDate *time.Time `gorm:"column:invoice_date"`
	Paid        bool       `gorm:"not null;default:false"`
	PaidAt      *time.Time

	// LastItemPosition is the highest position ever given to an item of
	// this offer. Positions of deleted items are not reused.
	LastItemPosition int `gorm:"not null;default:0;column:last_item_position"`

	Items []OfferItem `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
}

// OfferItem is a line on an offer. LineTotal is derived from Qty and Price
// when the item is written and is never edited on its own.
type OfferItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OfferID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Position  int       `gorm:"not null"`
	Name      string    `gorm:"type:varchar(500);not null"`
	Qty       float64   `gorm:"type:decimal(12,3);not null"`
	Price     float64   `gorm:"type:decimal(15,2);not null"`
	LineTotal float64   `gorm:"type:decimal(15,2);not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns the item id
func (i *OfferItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Client is an address book entry, unique by name within a tenant
type Client struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_clients_tenant_name,priority:1"`
	Name     string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_clients_tenant_name,priority:2"`
	Email    string    `gorm:"type:varchar(255)"`
	Address  string    `gorm:"type:text"`
	TaxID    string    `gorm:"type:varchar(50);column:tax_id"`
	Note     string    `gorm:"type:text"`
}

// SequenceKind identifies an independent numbering stream
type SequenceKind string

const (
	SequenceKindOffer   SequenceKind = "offer"
	SequenceKindInvoice SequenceKind = "invoice"
)

// IsValid checks if the sequence kind is a known value
func (k SequenceKind) IsValid() bool {
	return k == SequenceKindOffer || k == SequenceKindInvoice
}

// NumberSequence is the per tenant, year and kind counter row that
// serializes number allocation
type NumberSequence struct {
	TenantID     uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Year         int          `gorm:"primaryKey;autoIncrement:false"`
	Kind         SequenceKind `gorm:"type:varchar(20);primaryKey"`
	LastSequence int          `gorm:"not null;default:0"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// AuditAction labels an audit log entry
type AuditAction string

const (
	AuditActionLogin          AuditAction = "auth.login"
	AuditActionLoginFailed    AuditAction = "auth.login_failed"
	AuditActionOfferCreated   AuditAction = "offer.created"
	AuditActionClientUpdated  AuditAction = "offer.client_updated"
	AuditActionTermsUpdated   AuditAction = "offer.terms_updated"
	AuditActionItemAdded      AuditAction = "offer.item_added"
	AuditActionItemDeleted    AuditAction = "offer.item_deleted"
	AuditActionItemsCleared   AuditAction = "offer.items_cleared"
	AuditActionDuplicated     AuditAction = "offer.duplicated"
	AuditActionMarkedSent     AuditAction = "offer.sent"
	AuditActionAccepted       AuditAction = "offer.accepted"
	AuditActionPortalAccepted AuditAction = "offer.accepted_portal"
	AuditActionUnlocked       AuditAction = "offer.unlocked"
	AuditActionArchived       AuditAction = "offer.archived"
	AuditActionUnarchived     AuditAction = "offer.unarchived"
	AuditActionDeleted        AuditAction = "offer.deleted"
	AuditActionPortalToken    AuditAction = "offer.portal_token"
	AuditActionEmailSent      AuditAction = "offer.email_sent"
	AuditActionEmailFailed    AuditAction = "offer.email_failed"
	AuditActionInvoiceCreated AuditAction = "invoice.created"
	AuditActionInvoicePaid    AuditAction = "invoice.paid"
	AuditActionInvoiceUnpaid  AuditAction = "invoice.unpaid"
	AuditActionClientSaved    AuditAction = "client.saved"
	AuditActionClientDeleted  AuditAction = "client.deleted"
)

// AuditLog is an append-only diagnostic record
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	TenantID    *uuid.UUID  `gorm:"type:uuid;index"`
	UserName    string      `gorm:"type:varchar(150);column:user_name"`
	Action      AuditAction `gorm:"type:varchar(60);not null;index"`
	OfferID     *uuid.UUID  `gorm:"type:uuid;index"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address"`
	UserAgent   string      `gorm:"type:text;column:user_agent"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	Metadata    string      `gorm:"type:jsonb"`
	PerformedAt time.Time   `gorm:"not null;index;column:performed_at"`
}

// BeforeCreate assigns the entry id
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Owner identifies the caller an offer must belong to. Username is used
// to match legacy rows that have no tenant id.
type Owner struct {
	TenantID uuid.UUID
	Username string
}
