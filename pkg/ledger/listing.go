package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Kind distinguishes the two sides of the book
type Kind int8

const (
	KindOffer Kind = iota // Sell-side: owner delivers the asset, counterparty pays per fill
	KindOrder             // Buy-side: owner escrows full payment up front, counterparty delivers
)

func (k Kind) String() string {
	switch k {
	case KindOffer:
		return "offer"
	case KindOrder:
		return "order"
	default:
		return "unknown"
	}
}

// Listing is a standing sell-side Offer or buy-side Order awaiting fills.
//
// Keys are assigned sequentially at creation (1-based), never reused and never
// reset. Closed listings are kept in the registry as historical records.
type Listing struct {
	ID   uint64 // Key within its kind's registry
	Kind Kind

	Owner common.Address // Creator; only identity allowed to cancel
	Asset common.Address // Identifier of the traded asset

	// Quantities (units of the asset)
	Original  uint64
	Remaining uint64

	// UnitPrice is payment units per unit of asset. For Orders, UnitPrice ×
	// Original equals the payment escrowed at creation.
	UnitPrice uint64

	// Available flips to false when Remaining hits zero or on cancellation,
	// and never flips back.
	Available bool

	// Timestamps (Unix milliseconds)
	CreatedAt int64
	ClosedAt  int64
}

// Filled returns the quantity consumed so far.
func (l *Listing) Filled() uint64 {
	return l.Original - l.Remaining
}

// EscrowRemaining returns the payment still held for the unconsumed quantity.
// Zero for Offers, which escrow nothing at creation.
func (l *Listing) EscrowRemaining() uint64 {
	if l.Kind != KindOrder {
		return 0
	}
	// Cannot overflow: UnitPrice × Original was checked at creation and
	// Remaining <= Original.
	return l.UnitPrice * l.Remaining
}

// Validate checks listing invariants
func (l *Listing) Validate() error {
	if l.ID == 0 {
		return fmt.Errorf("listing key must be positive")
	}
	if l.Original == 0 {
		return fmt.Errorf("%w: original is zero", ErrInvalidQuantity)
	}
	if l.UnitPrice == 0 {
		return ErrInvalidPrice
	}
	if l.Remaining > l.Original {
		return fmt.Errorf("remaining (%d) exceeds original (%d)", l.Remaining, l.Original)
	}
	if l.Remaining == 0 && l.Available {
		return fmt.Errorf("exhausted listing %d still available", l.ID)
	}
	if _, overflow := math.SafeMul(l.UnitPrice, l.Original); overflow {
		return fmt.Errorf("%w: %d × %d", ErrValueOverflow, l.UnitPrice, l.Original)
	}
	return nil
}

// consume decrements remaining by amount and closes the listing when it
// reaches zero. Caller must have checked amount <= Remaining.
func (l *Listing) consume(amount uint64, now int64) {
	l.Remaining -= amount
	if l.Remaining == 0 {
		l.Available = false
		l.ClosedAt = now
	}
}

// close marks the listing terminally unavailable. Remaining is left as-is for
// historical inspection.
func (l *Listing) close(now int64) {
	l.Available = false
	l.ClosedAt = now
}

// snapshot captures the mutable fields so a failed settlement can restore them.
type listingSnapshot struct {
	remaining uint64
	available bool
	closedAt  int64
}

func (l *Listing) snapshot() listingSnapshot {
	return listingSnapshot{remaining: l.Remaining, available: l.Available, closedAt: l.ClosedAt}
}

func (l *Listing) restore(s listingSnapshot) {
	l.Remaining = s.remaining
	l.Available = s.available
	l.ClosedAt = s.closedAt
}

// tradeValue returns amount × unit price, failing on overflow. Every
// quantity/price multiplication in the ledger goes through this check.
func tradeValue(unitPrice, amount uint64) (uint64, error) {
	v, overflow := math.SafeMul(unitPrice, amount)
	if overflow {
		return 0, fmt.Errorf("%w: %d × %d", ErrValueOverflow, unitPrice, amount)
	}
	return v, nil
}
