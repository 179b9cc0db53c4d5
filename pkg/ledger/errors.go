package ledger

import "errors"

var (
	// ErrInvalidQuantity is returned when a listing or fill quantity is zero.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice is returned when a unit price is zero.
	ErrInvalidPrice = errors.New("unit price must be positive")

	// ErrPaymentMismatch is returned when the supplied payment does not equal
	// unit price times quantity exactly. No over- or underpayment is tolerated.
	ErrPaymentMismatch = errors.New("supplied payment does not match trade value")

	// ErrValueOverflow is returned when quantity times unit price overflows.
	ErrValueOverflow = errors.New("trade value overflows")

	// ErrListingNotFound is returned when no listing exists under the given key.
	ErrListingNotFound = errors.New("listing not found")

	// ErrListingClosed is returned when operating on an exhausted or cancelled listing.
	ErrListingClosed = errors.New("listing is closed")

	// ErrInsufficientRemaining is returned when a fill requests more than the
	// listing's remaining quantity.
	ErrInsufficientRemaining = errors.New("fill exceeds remaining quantity")

	// ErrNotOwner is returned when a caller other than the listing's owner
	// attempts to cancel it.
	ErrNotOwner = errors.New("caller does not own listing")

	// ErrAssetTransferFailed is returned when the asset-transfer service reports
	// failure. The triggering operation leaves no state change behind.
	ErrAssetTransferFailed = errors.New("asset transfer failed")

	// ErrPaymentFailed is returned when the payment channel reports failure.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrReentrantCall is returned when a guarded operation is invoked while
	// another guarded operation is still in progress.
	ErrReentrantCall = errors.New("reentrant call rejected")
)
