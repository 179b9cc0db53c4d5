package ledger

import "testing"

func TestListingValidate(t *testing.T) {
	good := Listing{ID: 1, Kind: KindOffer, Original: 10, Remaining: 5, UnitPrice: 3, Available: true}
	if err := good.Validate(); err != nil {
		t.Errorf("valid listing failed validation: %v", err)
	}

	cases := []struct {
		name string
		l    Listing
	}{
		{"zero key", Listing{ID: 0, Original: 10, Remaining: 5, UnitPrice: 3}},
		{"zero original", Listing{ID: 1, Original: 0, Remaining: 0, UnitPrice: 3}},
		{"zero price", Listing{ID: 1, Original: 10, Remaining: 5, UnitPrice: 0}},
		{"remaining exceeds original", Listing{ID: 1, Original: 10, Remaining: 11, UnitPrice: 3}},
		{"exhausted but available", Listing{ID: 1, Original: 10, Remaining: 0, UnitPrice: 3, Available: true}},
		{"value overflows", Listing{ID: 1, Original: 1 << 40, Remaining: 1, UnitPrice: 1 << 40}},
	}
	for _, tc := range cases {
		if err := tc.l.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestListingEscrowRemaining(t *testing.T) {
	ord := Listing{ID: 1, Kind: KindOrder, Original: 10, Remaining: 6, UnitPrice: 3, Available: true}
	if got := ord.EscrowRemaining(); got != 18 {
		t.Errorf("escrow remaining = %d, want 18", got)
	}

	off := Listing{ID: 1, Kind: KindOffer, Original: 10, Remaining: 6, UnitPrice: 3, Available: true}
	if got := off.EscrowRemaining(); got != 0 {
		t.Errorf("offers escrow nothing, got %d", got)
	}
}

func TestListingFilled(t *testing.T) {
	l := Listing{ID: 1, Original: 100, Remaining: 30, UnitPrice: 1}
	if got := l.Filled(); got != 70 {
		t.Errorf("filled = %d, want 70", got)
	}
}

func TestTradeValueOverflow(t *testing.T) {
	if _, err := tradeValue(1<<40, 1<<40); err == nil {
		t.Error("expected overflow error")
	}
	v, err := tradeValue(10, 5)
	if err != nil || v != 50 {
		t.Errorf("tradeValue(10, 5) = (%d, %v), want (50, nil)", v, err)
	}
}
