package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/404-LAB/otcledger/pkg/util"
)

// AssetTransferrer moves custody of the traded asset. It is external code and
// may be controlled by a party other than the ledger, so every result must be
// checked, never assumed. A false return aborts the enclosing operation.
type AssetTransferrer interface {
	// TransferFrom moves amount of asset from owner to recipient under the
	// ledger's standing approval.
	TransferFrom(asset, owner, recipient common.Address, amount uint64) bool

	// Transfer moves amount of asset out of the service's own custody.
	Transfer(asset, recipient common.Address, amount uint64) bool
}

// PaymentChannel moves native value atomically. Collect is the Go analog of
// value attached to a call: it takes custody from the payer before the
// operation touches any state, so a later Pay out of that custody cannot fail
// for lack of funds. Any error aborts the enclosing operation.
type PaymentChannel interface {
	Collect(payer common.Address, amount uint64) error
	Pay(recipient common.Address, amount uint64) error
}

// Journal persists committed ledger facts. Persistence is best-effort audit:
// a journal error is logged, never surfaced to the caller.
type Journal interface {
	AppendEvent(e Event) error
	SaveListing(l Listing) error
}

// Ledger is the in-memory registry of Offers and Orders plus the settlement
// state machine over them. One process holds all state; operations are
// synchronous and atomic relative to each other.
//
// Concurrency model: guard is the re-entrancy latch, acquired (TryLock) at
// entry to every operation that settles value and released on every exit path.
// A nested guarded call while the latch is held fails with ErrReentrantCall
// and touches nothing. mu protects the registries so the read-only query
// surface stays usable at all times, including while an external call is in
// flight. External calls are made holding guard but never mu.
type Ledger struct {
	assets   AssetTransferrer
	payments PaymentChannel

	guard sync.Mutex

	mu          sync.RWMutex
	offers      map[uint64]*Listing
	orders      map[uint64]*Listing
	nextOfferID uint64
	nextOrderID uint64
	eventSeq    uint64

	// Wiring points, set before first use
	Logger  *zap.SugaredLogger
	Journal Journal
	Clock   util.Clock
	OnEvent func(Event)
}

// New creates an empty ledger over the given external services.
func New(assets AssetTransferrer, payments PaymentChannel) *Ledger {
	return &Ledger{
		assets:      assets,
		payments:    payments,
		offers:      make(map[uint64]*Listing),
		orders:      make(map[uint64]*Listing),
		nextOfferID: 1,
		nextOrderID: 1,
		Clock:       util.RealClock{},
	}
}

// CreateOffer registers a sell-side listing owned by caller. Pure bookkeeping:
// no asset or payment moves here. The seller is expected to have approved the
// ledger to move the asset on their behalf at fill time.
func (l *Ledger) CreateOffer(caller, asset common.Address, quantity, unitPrice uint64) (uint64, error) {
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if unitPrice == 0 {
		return 0, ErrInvalidPrice
	}
	if _, err := tradeValue(unitPrice, quantity); err != nil {
		return 0, err
	}

	l.mu.Lock()
	id := l.nextOfferID
	l.nextOfferID++
	off := &Listing{
		ID:        id,
		Kind:      KindOffer,
		Owner:     caller,
		Asset:     asset,
		Original:  quantity,
		Remaining: quantity,
		UnitPrice: unitPrice,
		Available: true,
		CreatedAt: l.now(),
	}
	l.offers[id] = off
	l.mu.Unlock()

	l.commit(off, Event{
		Type:      EventOfferCreated,
		ListingID: id,
		Owner:     caller,
		Asset:     asset,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return id, nil
}

// CreateOrder registers a buy-side listing and takes the full order value into
// escrow up front. suppliedPayment must equal unitPrice × quantity exactly:
// the escrow is a settlement guarantee for sellers filling the order, not a
// promise.
func (l *Ledger) CreateOrder(caller, asset common.Address, quantity, unitPrice, suppliedPayment uint64) (uint64, error) {
	if !l.guard.TryLock() {
		return 0, ErrReentrantCall
	}
	defer l.guard.Unlock()

	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if unitPrice == 0 {
		return 0, ErrInvalidPrice
	}
	total, err := tradeValue(unitPrice, quantity)
	if err != nil {
		return 0, err
	}
	if suppliedPayment != total {
		return 0, fmt.Errorf("%w: supplied %d, order value %d", ErrPaymentMismatch, suppliedPayment, total)
	}

	// Escrow before any registry mutation. Failure means nothing happened.
	if err := l.payments.Collect(caller, total); err != nil {
		return 0, fmt.Errorf("%w: escrow: %v", ErrPaymentFailed, err)
	}

	l.mu.Lock()
	id := l.nextOrderID
	l.nextOrderID++
	ord := &Listing{
		ID:        id,
		Kind:      KindOrder,
		Owner:     caller,
		Asset:     asset,
		Original:  quantity,
		Remaining: quantity,
		UnitPrice: unitPrice,
		Available: true,
		CreatedAt: l.now(),
	}
	l.orders[id] = ord
	l.mu.Unlock()

	l.commit(ord, Event{
		Type:      EventOrderCreated,
		ListingID: id,
		Owner:     caller,
		Asset:     asset,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return id, nil
}

// FillOffer settles a purchase of amount units from an offer. The caller
// supplies payment equal to unitPrice × amount exactly.
//
// Sequencing is load-bearing and must not be reordered: the asset moves from
// the offer owner to the caller first, the remaining quantity is decremented
// second, the payment is forwarded to the offer owner third. A failed asset
// transfer aborts before any state change; a failed payment restores the
// listing and unwinds best-effort.
func (l *Ledger) FillOffer(caller common.Address, offerID, amount, suppliedPayment uint64) error {
	if !l.guard.TryLock() {
		return ErrReentrantCall
	}
	defer l.guard.Unlock()

	if amount == 0 {
		return ErrInvalidQuantity
	}

	l.mu.RLock()
	off, ok := l.offers[offerID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: offer %d", ErrListingNotFound, offerID)
	}
	if !off.Available {
		return fmt.Errorf("%w: offer %d", ErrListingClosed, offerID)
	}
	if amount > off.Remaining {
		return fmt.Errorf("%w: offer %d has %d, requested %d", ErrInsufficientRemaining, offerID, off.Remaining, amount)
	}
	value, err := tradeValue(off.UnitPrice, amount)
	if err != nil {
		return err
	}
	if suppliedPayment != value {
		return fmt.Errorf("%w: supplied %d, trade value %d", ErrPaymentMismatch, suppliedPayment, value)
	}

	// Take the caller's payment into custody so forwarding it cannot bounce
	// for lack of funds. Nothing else has happened yet.
	if err := l.payments.Collect(caller, value); err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	// (1) Asset moves seller → buyer. Must report success before anything mutates.
	if !l.assets.TransferFrom(off.Asset, off.Owner, caller, amount) {
		if err := l.payments.Pay(caller, value); err != nil {
			l.fault("fill_offer_refund_failed", "offer", offerID, "err", err)
		}
		return fmt.Errorf("%w: offer %d", ErrAssetTransferFailed, offerID)
	}

	// (2) Bookkeeping.
	prev := off.snapshot()
	l.mu.Lock()
	off.consume(amount, l.now())
	l.mu.Unlock()

	// (3) Payment moves buyer → seller. Cannot fail for insufficiency: the
	// value was collected into custody above. An adversarial channel can still
	// refuse, in which case the reverse transfer needs the caller's own
	// standing approval; without one it fails and only the fault log records
	// the imbalance.
	if err := l.payments.Pay(off.Owner, value); err != nil {
		l.mu.Lock()
		off.restore(prev)
		l.mu.Unlock()
		if !l.assets.TransferFrom(off.Asset, caller, off.Owner, amount) {
			l.fault("fill_offer_asset_unwind_failed", "offer", offerID, "amount", amount)
		}
		if err := l.payments.Pay(caller, value); err != nil {
			l.fault("fill_offer_refund_failed", "offer", offerID, "err", err)
		}
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	// (4) Notify.
	l.commit(off, Event{
		Type:         EventTradeExecuted,
		Offer:        RefTo(offerID),
		Order:        NoRef,
		Counterparty: caller,
		Amount:       amount,
		Value:        value,
	})
	return nil
}

// FillOrder settles a sale of amount units into a standing order. The trade
// value comes out of the order's escrow; the caller supplies no payment.
//
// Sequencing mirrors FillOffer: asset caller → order owner, then bookkeeping,
// then escrow pays the caller.
func (l *Ledger) FillOrder(caller common.Address, orderID, amount uint64) error {
	if !l.guard.TryLock() {
		return ErrReentrantCall
	}
	defer l.guard.Unlock()

	if amount == 0 {
		return ErrInvalidQuantity
	}

	l.mu.RLock()
	ord, ok := l.orders[orderID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: order %d", ErrListingNotFound, orderID)
	}
	if !ord.Available {
		return fmt.Errorf("%w: order %d", ErrListingClosed, orderID)
	}
	if amount > ord.Remaining {
		return fmt.Errorf("%w: order %d has %d, requested %d", ErrInsufficientRemaining, orderID, ord.Remaining, amount)
	}
	// Exact by construction: unit price was validated at escrow time and
	// amount <= remaining, so no rounding can occur.
	value, err := tradeValue(ord.UnitPrice, amount)
	if err != nil {
		return err
	}

	// (1) Asset moves seller (caller) → buyer (order owner).
	if !l.assets.TransferFrom(ord.Asset, caller, ord.Owner, amount) {
		return fmt.Errorf("%w: order %d", ErrAssetTransferFailed, orderID)
	}

	// (2) Bookkeeping.
	prev := ord.snapshot()
	l.mu.Lock()
	ord.consume(amount, l.now())
	l.mu.Unlock()

	// (3) Escrow pays the filling seller. Same unwind precondition as
	// FillOffer: the reverse transfer needs the order owner's standing
	// approval to succeed.
	if err := l.payments.Pay(caller, value); err != nil {
		l.mu.Lock()
		ord.restore(prev)
		l.mu.Unlock()
		if !l.assets.TransferFrom(ord.Asset, ord.Owner, caller, amount) {
			l.fault("fill_order_asset_unwind_failed", "order", orderID, "amount", amount)
		}
		return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	// (4) Notify.
	l.commit(ord, Event{
		Type:         EventTradeExecuted,
		Offer:        NoRef,
		Order:        RefTo(orderID),
		Counterparty: ord.Owner,
		Amount:       amount,
		Value:        value,
	})
	return nil
}

// CancelOffer terminally closes an offer. Owner-only. Nothing was escrowed, so
// nothing is refunded; the remaining quantity stays recorded but unfillable.
func (l *Ledger) CancelOffer(caller common.Address, offerID uint64) error {
	if !l.guard.TryLock() {
		return ErrReentrantCall
	}
	defer l.guard.Unlock()

	l.mu.RLock()
	off, ok := l.offers[offerID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: offer %d", ErrListingNotFound, offerID)
	}
	if off.Owner != caller {
		return fmt.Errorf("%w: offer %d", ErrNotOwner, offerID)
	}
	if !off.Available {
		return fmt.Errorf("%w: offer %d", ErrListingClosed, offerID)
	}

	l.mu.Lock()
	off.close(l.now())
	l.mu.Unlock()

	l.commit(off, Event{
		Type:      EventOfferCancelled,
		ListingID: offerID,
		Owner:     caller,
	})
	return nil
}

// CancelOrder terminally closes an order and refunds the escrow held for the
// unconsumed quantity. Owner-only. The availability check makes a second
// cancel fail before the refund path, so escrow can never be returned twice.
func (l *Ledger) CancelOrder(caller common.Address, orderID uint64) error {
	if !l.guard.TryLock() {
		return ErrReentrantCall
	}
	defer l.guard.Unlock()

	l.mu.RLock()
	ord, ok := l.orders[orderID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: order %d", ErrListingNotFound, orderID)
	}
	if ord.Owner != caller {
		return fmt.Errorf("%w: order %d", ErrNotOwner, orderID)
	}
	if !ord.Available {
		return fmt.Errorf("%w: order %d", ErrListingClosed, orderID)
	}

	refund := ord.EscrowRemaining()
	if refund > 0 {
		if err := l.payments.Pay(caller, refund); err != nil {
			return fmt.Errorf("%w: refund: %v", ErrPaymentFailed, err)
		}
	}

	l.mu.Lock()
	ord.close(l.now())
	l.mu.Unlock()

	l.commit(ord, Event{
		Type:      EventOrderCancelled,
		ListingID: orderID,
		Owner:     caller,
	})
	return nil
}

// Offer returns a copy of the offer under the given key. Safe at any time, no
// side effects.
func (l *Ledger) Offer(id uint64) (Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	off, ok := l.offers[id]
	if !ok {
		return Listing{}, fmt.Errorf("%w: offer %d", ErrListingNotFound, id)
	}
	return *off, nil
}

// Order returns a copy of the order under the given key.
func (l *Ledger) Order(id uint64) (Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ord, ok := l.orders[id]
	if !ok {
		return Listing{}, fmt.Errorf("%w: order %d", ErrListingNotFound, id)
	}
	return *ord, nil
}

// OfferCount returns the total number of offers ever created.
func (l *Ledger) OfferCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextOfferID - 1
}

// OrderCount returns the total number of orders ever created.
func (l *Ledger) OrderCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextOrderID - 1
}

func (l *Ledger) now() int64 {
	return l.Clock.Now().UnixMilli()
}

// commit assigns the event sequence, journals the fact and the listing it
// touched, and notifies the subscriber. Runs before the operation returns, so
// no caller observes a mutated listing before its event exists.
func (l *Ledger) commit(touched *Listing, e Event) {
	l.mu.Lock()
	l.eventSeq++
	e.Seq = l.eventSeq
	e.Timestamp = l.now()
	snapshot := *touched
	l.mu.Unlock()

	if l.Journal != nil {
		if err := l.Journal.AppendEvent(e); err != nil {
			l.fault("journal_append_failed", "seq", e.Seq, "err", err)
		}
		if err := l.Journal.SaveListing(snapshot); err != nil {
			l.fault("journal_save_listing_failed", "kind", snapshot.Kind.String(), "id", snapshot.ID, "err", err)
		}
	}
	if l.OnEvent != nil {
		l.OnEvent(e)
	}
}

func (l *Ledger) fault(msg string, kv ...interface{}) {
	if l.Logger != nil {
		l.Logger.Errorw(msg, kv...)
	}
}
