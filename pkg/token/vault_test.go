package token

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	operator = common.HexToAddress("0x4200000000000000000000000000000000000001")
	asset    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob      = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func TestVaultMintAndBalance(t *testing.T) {
	v := NewVault(operator)

	if err := v.Mint(asset, alice, 1000); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if got := v.BalanceOf(asset, alice); got != 1000 {
		t.Errorf("balance = %d, want 1000", got)
	}
	if got := v.BalanceOf(asset, bob); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}

	if err := v.Mint(asset, alice, math.MaxUint64); err == nil {
		t.Error("expected overflow error")
	}
	if got := v.BalanceOf(asset, alice); got != 1000 {
		t.Errorf("failed mint changed balance to %d", got)
	}
}

func TestVaultTransferFromZeroAmountWithoutApproval(t *testing.T) {
	v := NewVault(operator)
	if err := v.Mint(asset, alice, 100); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	// No Approve call ever made for (asset, alice).
	if !v.TransferFrom(asset, alice, bob, 0) {
		t.Fatal("zero-amount transfer rejected")
	}
	if got := v.BalanceOf(asset, alice); got != 100 {
		t.Errorf("owner balance = %d, want 100", got)
	}
	if got := v.BalanceOf(asset, bob); got != 0 {
		t.Errorf("recipient balance = %d, want 0", got)
	}
	if got := v.Allowance(asset, alice, operator); got != 0 {
		t.Errorf("allowance = %d, want 0", got)
	}
}

func TestVaultTransferFromConsumesAllowance(t *testing.T) {
	v := NewVault(operator)
	v.Mint(asset, alice, 100)

	// No allowance yet
	if v.TransferFrom(asset, alice, bob, 10) {
		t.Error("transfer without allowance must fail")
	}

	v.Approve(asset, alice, operator, 60)
	if got := v.Allowance(asset, alice, operator); got != 60 {
		t.Errorf("allowance = %d, want 60", got)
	}

	if !v.TransferFrom(asset, alice, bob, 40) {
		t.Fatal("approved transfer failed")
	}
	if got := v.BalanceOf(asset, alice); got != 60 {
		t.Errorf("alice balance = %d, want 60", got)
	}
	if got := v.BalanceOf(asset, bob); got != 40 {
		t.Errorf("bob balance = %d, want 40", got)
	}
	if got := v.Allowance(asset, alice, operator); got != 20 {
		t.Errorf("allowance after spend = %d, want 20", got)
	}

	// Remaining allowance too small
	if v.TransferFrom(asset, alice, bob, 30) {
		t.Error("transfer beyond allowance must fail")
	}
	// Allowance sufficient but balance short
	v.Approve(asset, alice, operator, 1000)
	if v.TransferFrom(asset, alice, bob, 61) {
		t.Error("transfer beyond balance must fail")
	}
	if got := v.Allowance(asset, alice, operator); got != 1000 {
		t.Errorf("failed transfer must not burn allowance, got %d", got)
	}
}

func TestVaultTransferMovesOperatorFunds(t *testing.T) {
	v := NewVault(operator)
	v.Mint(asset, operator, 50)

	if !v.Transfer(asset, alice, 30) {
		t.Fatal("operator transfer failed")
	}
	if got := v.BalanceOf(asset, alice); got != 30 {
		t.Errorf("alice balance = %d, want 30", got)
	}
	if v.Transfer(asset, alice, 21) {
		t.Error("transfer beyond operator balance must fail")
	}
}

func TestBankCollectAndPay(t *testing.T) {
	b := NewBank()
	b.Deposit(alice, 100)

	if err := b.Collect(alice, 40); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if got := b.BalanceOf(alice); got != 60 {
		t.Errorf("alice balance = %d, want 60", got)
	}
	if got := b.Held(); got != 40 {
		t.Errorf("held = %d, want 40", got)
	}

	if err := b.Collect(alice, 61); err == nil {
		t.Error("expected insufficient funds error")
	}

	if err := b.Pay(bob, 25); err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if got := b.BalanceOf(bob); got != 25 {
		t.Errorf("bob balance = %d, want 25", got)
	}
	if got := b.Held(); got != 15 {
		t.Errorf("held = %d, want 15", got)
	}

	if err := b.Pay(bob, 16); err == nil {
		t.Error("expected custody underfunded error")
	}
}
