package ledger

import "github.com/ethereum/go-ethereum/common"

// EventType tags the kind of ledger fact an Event carries
type EventType string

const (
	EventOfferCreated   EventType = "offer_created"
	EventOrderCreated   EventType = "order_created"
	EventTradeExecuted  EventType = "trade_executed"
	EventOfferCancelled EventType = "offer_cancelled"
	EventOrderCancelled EventType = "order_cancelled"
)

// ListingRef is an optional reference to a listing key. A trade always settles
// against exactly one side of the book, so the other side's ref is absent.
// An explicit Valid flag avoids overloading key 0 as "not applicable".
type ListingRef struct {
	ID    uint64 `json:"id"`
	Valid bool   `json:"valid"`
}

// RefTo returns a present reference to the given key.
func RefTo(id uint64) ListingRef {
	return ListingRef{ID: id, Valid: true}
}

// NoRef is the absent reference.
var NoRef = ListingRef{}

// Event is an immutable, ordered fact emitted by the ledger for external
// consumption (indexing, UIs, auditing). Seq is assigned at emission and is
// strictly increasing across all event types.
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds

	// Creation and cancellation events
	ListingID uint64         `json:"listingId,omitempty"`
	Owner     common.Address `json:"owner"`
	Asset     common.Address `json:"asset"`
	Quantity  uint64         `json:"quantity,omitempty"`
	UnitPrice uint64         `json:"unitPrice,omitempty"`

	// Trade events
	Offer        ListingRef     `json:"offer"`
	Order        ListingRef     `json:"order"`
	Counterparty common.Address `json:"counterparty"`
	Amount       uint64         `json:"amount,omitempty"`
	Value        uint64         `json:"value,omitempty"`
}
