// file: tests/settlement_e2e_test.go
package tests

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/404-LAB/otcledger/pkg/ledger"
	"github.com/404-LAB/otcledger/pkg/storage"
	"github.com/404-LAB/otcledger/pkg/token"
)

var (
	operator = common.HexToAddress("0x4200000000000000000000000000000000000001")
	asset    = common.HexToAddress("0x42000000000000000000000000000000000000A5")
	seller   = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	buyer    = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

// newVenue stands up the full settlement stack: asset vault, payment bank,
// ledger, and durable journal. Seller holds 1000 units of the asset with an
// open operator allowance; buyer holds 1000 in the bank.
func newVenue(t *testing.T) (*ledger.Ledger, *token.Vault, *token.Bank, *storage.Journal) {
	t.Helper()

	vault := token.NewVault(operator)
	bank := token.NewBank()
	if err := vault.Mint(asset, seller, 1000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vault.Approve(asset, seller, operator, 1000)
	if err := bank.Deposit(buyer, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	j, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	l := ledger.New(vault, bank)
	l.Journal = j
	return l, vault, bank, j
}

func TestOfferLifecycleEndToEnd(t *testing.T) {
	l, vault, bank, j := newVenue(t)

	// Seller lists 100 units at price 2.
	offerID, err := l.CreateOffer(seller, asset, 100, 2)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	// Buyer takes it in three partial fills.
	for _, amount := range []uint64{30, 40, 30} {
		if err := l.FillOffer(buyer, offerID, amount, amount*2); err != nil {
			t.Fatalf("fill %d: %v", amount, err)
		}
	}

	// Custody moved both ways.
	if got := vault.BalanceOf(asset, buyer); got != 100 {
		t.Errorf("buyer asset balance = %d, want 100", got)
	}
	if got := vault.BalanceOf(asset, seller); got != 900 {
		t.Errorf("seller asset balance = %d, want 900", got)
	}
	if got := bank.BalanceOf(seller); got != 200 {
		t.Errorf("seller payment balance = %d, want 200", got)
	}
	if got := bank.BalanceOf(buyer); got != 800 {
		t.Errorf("buyer payment balance = %d, want 800", got)
	}
	if got := bank.Held(); got != 0 {
		t.Errorf("bank escrow = %d, want 0", got)
	}

	// Exhausted offer is closed and cannot be filled again.
	off, err := l.Offer(offerID)
	if err != nil {
		t.Fatalf("query offer: %v", err)
	}
	if off.Remaining != 0 || off.Available {
		t.Errorf("offer after exhaustion: remaining=%d available=%v", off.Remaining, off.Available)
	}
	if err := l.FillOffer(buyer, offerID, 1, 2); err == nil {
		t.Error("fill of exhausted offer succeeded")
	}

	// Journal replay: creation plus three trades.
	events, err := j.Events(0, 0)
	if err != nil {
		t.Fatalf("replay events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("replayed %d events, want 4", len(events))
	}
	if events[0].Type != ledger.EventOfferCreated {
		t.Errorf("first event = %s, want %s", events[0].Type, ledger.EventOfferCreated)
	}
	var traded uint64
	for _, e := range events[1:] {
		if e.Type != ledger.EventTradeExecuted {
			t.Fatalf("event %d type = %s, want %s", e.Seq, e.Type, ledger.EventTradeExecuted)
		}
		if !e.Offer.Valid || e.Offer.ID != offerID {
			t.Errorf("trade event offer ref = %+v, want valid ref to %d", e.Offer, offerID)
		}
		if e.Order.Valid {
			t.Errorf("trade event carries order ref %+v for an offer fill", e.Order)
		}
		traded += e.Amount
	}
	if traded != 100 {
		t.Errorf("traded total across events = %d, want 100", traded)
	}

	// The journal also carries the final listing snapshot.
	saved, err := j.LoadListing(ledger.KindOffer, offerID)
	if err != nil {
		t.Fatalf("load listing: %v", err)
	}
	if saved == nil || saved.Remaining != 0 || saved.Available {
		t.Errorf("journaled listing = %+v, want closed with 0 remaining", saved)
	}
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	l, vault, bank, _ := newVenue(t)

	// Buyer escrows 10 * 3 = 30 up front.
	orderID, err := l.CreateOrder(buyer, asset, 10, 3, 30)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := bank.Held(); got != 30 {
		t.Fatalf("escrow after creation = %d, want 30", got)
	}
	if got := bank.BalanceOf(buyer); got != 970 {
		t.Fatalf("buyer balance after escrow = %d, want 970", got)
	}

	// Seller delivers 4 units against the order.
	if err := l.FillOrder(seller, orderID, 4); err != nil {
		t.Fatalf("fill order: %v", err)
	}
	if got := vault.BalanceOf(asset, buyer); got != 4 {
		t.Errorf("buyer asset balance = %d, want 4", got)
	}
	if got := bank.BalanceOf(seller); got != 12 {
		t.Errorf("seller payment balance = %d, want 12", got)
	}
	if got := bank.Held(); got != 18 {
		t.Errorf("remaining escrow = %d, want 18", got)
	}

	// Buyer cancels and recovers exactly the unspent escrow.
	if err := l.CancelOrder(buyer, orderID); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if got := bank.BalanceOf(buyer); got != 988 {
		t.Errorf("buyer balance after refund = %d, want 988", got)
	}
	if got := bank.Held(); got != 0 {
		t.Errorf("escrow after refund = %d, want 0", got)
	}

	// Closed order rejects both fills and a second cancellation.
	if err := l.FillOrder(seller, orderID, 1); err == nil {
		t.Error("fill of cancelled order succeeded")
	}
	if err := l.CancelOrder(buyer, orderID); err == nil {
		t.Error("double cancel succeeded")
	}
}

func TestJournalReplayAcrossReopen(t *testing.T) {
	vault := token.NewVault(operator)
	bank := token.NewBank()
	if err := vault.Mint(asset, seller, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	vault.Approve(asset, seller, operator, 100)
	if err := bank.Deposit(buyer, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	dir := t.TempDir()
	j, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}

	l := ledger.New(vault, bank)
	l.Journal = j
	offerID, err := l.CreateOffer(seller, asset, 10, 5)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := l.FillOffer(buyer, offerID, 10, 50); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	// Reopen and confirm durable state survived the restart.
	j2, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	defer j2.Close()

	seq, err := j2.LastSeq()
	if err != nil {
		t.Fatalf("last seq: %v", err)
	}
	if seq != 2 {
		t.Errorf("last seq after reopen = %d, want 2", seq)
	}
	offers, err := j2.Listings(ledger.KindOffer)
	if err != nil {
		t.Fatalf("scan listings: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != offerID || offers[0].Remaining != 0 {
		t.Errorf("replayed offers = %+v, want single exhausted offer %d", offers, offerID)
	}
}
