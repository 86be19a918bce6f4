package domain

import "fmt"

// FormatNumber renders a document number as YEAR-NNNN. Sequences past
// 9999 widen instead of wrapping.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}

// IsLocked reports whether content edits are rejected. Sent offers stay
// editable; only acceptance and archiving freeze the content.
func (o *Offer) IsLocked() bool {
	return o.Archived || o.Status == OfferStatusAccepted
}

// HasInvoice reports whether an invoice number has been issued
func (o *Offer) HasInvoice() bool {
	return o.InvoiceNo != nil && *o.InvoiceNo != ""
}

// CanMarkSent reports whether the offer may move from draft to sent
func (o *Offer) CanMarkSent() bool {
	return !o.Archived && o.Status == OfferStatusDraft
}

// CanAccept reports whether the offer may be accepted
func (o *Offer) CanAccept() bool {
	return !o.Archived && (o.Status == OfferStatusDraft || o.Status == OfferStatusSent)
}

// CanUnlock reports whether an accepted offer may return to draft
func (o *Offer) CanUnlock() bool {
	return !o.Archived && o.Status == OfferStatusAccepted
}

// CanDelete reports whether the offer may be permanently removed
func (o *Offer) CanDelete() bool {
	return o.Archived
}

// OwnedBy reports whether the offer belongs to owner, either through the
// tenant id or, for legacy rows without one, the stored username
func (o *Offer) OwnedBy(owner Owner) bool {
	if o.TenantID != nil {
		return *o.TenantID == owner.TenantID
	}
	return o.OwnerUsername != nil && equalFoldTrim(*o.OwnerUsername, owner.Username)
}
