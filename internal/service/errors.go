package service

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors below wrap one of these so handlers
// can map them with errors.Is.
var (
	// ErrNotFound is returned when a resource is absent or not owned by the caller
	ErrNotFound = errors.New("resource not found")

	// ErrLocked is returned when content is edited on an accepted or archived offer
	ErrLocked = errors.New("offer is locked")

	// ErrInvalidState is returned when an action is not allowed in the current state
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when credentials are rejected
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	// ErrOfferNotFound is returned when an offer does not exist or belongs to someone else
	ErrOfferNotFound = fmt.Errorf("%w: offer", ErrNotFound)

	// ErrOfferItemNotFound is returned when an item is not part of the offer
	ErrOfferItemNotFound = fmt.Errorf("%w: offer item", ErrNotFound)

	// ErrTenantNotFound is returned when a tenant does not exist
	ErrTenantNotFound = fmt.Errorf("%w: tenant", ErrNotFound)

	// ErrClientNotFound is returned when an address book entry does not exist
	ErrClientNotFound = fmt.Errorf("%w: client", ErrNotFound)

	// ErrPortalTokenNotFound is returned for unknown portal tokens
	ErrPortalTokenNotFound = fmt.Errorf("%w: portal token", ErrNotFound)

	// ErrOfferLocked is returned for content edits on accepted or archived offers
	ErrOfferLocked = fmt.Errorf("%w: accepted or archived offers cannot be edited", ErrLocked)

	// ErrOfferArchived is returned for state changes on archived offers
	ErrOfferArchived = fmt.Errorf("%w: offer is archived", ErrLocked)

	// ErrOfferNotDraft is returned when marking a non-draft offer as sent
	ErrOfferNotDraft = fmt.Errorf("%w: only draft offers can be marked as sent", ErrInvalidState)

	// ErrOfferAlreadyAccepted is returned when accepting an accepted offer through the admin API
	ErrOfferAlreadyAccepted = fmt.Errorf("%w: offer is already accepted", ErrInvalidState)

	// ErrOfferNotAccepted is returned when unlocking or invoicing an offer that is not accepted
	ErrOfferNotAccepted = fmt.Errorf("%w: offer is not accepted", ErrInvalidState)

	// ErrOfferNotArchived is returned when deleting an offer that is not archived
	ErrOfferNotArchived = fmt.Errorf("%w: only archived offers can be deleted", ErrInvalidState)

	// ErrOfferNotInvoiced is returned when toggling payment on an offer without an invoice
	ErrOfferNotInvoiced = fmt.Errorf("%w: offer has no invoice", ErrInvalidState)

	// ErrUsernameRequired is returned for empty usernames
	ErrUsernameRequired = fmt.Errorf("%w: username is required", ErrInvalidInput)

	// ErrItemNameRequired is returned when adding an item without a name
	ErrItemNameRequired = fmt.Errorf("%w: item name is required", ErrInvalidInput)

	// ErrClientNameRequired is returned when saving a client without a name
	ErrClientNameRequired = fmt.Errorf("%w: client name is required", ErrInvalidInput)

	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form
	ErrInvalidDate = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)

	// ErrInvalidFormat is returned for unsupported document formats
	ErrInvalidFormat = fmt.Errorf("%w: unsupported document format", ErrInvalidInput)

	// ErrInvalidCredentials is returned when a login is rejected
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)

	// ErrSequenceContention is returned when number allocation keeps colliding
	ErrSequenceContention = errors.New("could not allocate a document number, please retry")
)
