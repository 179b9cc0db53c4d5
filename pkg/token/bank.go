package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Bank is the native-value payment channel. Collect moves value from a payer
// into the bank's custody bucket for the ledger; Pay releases custody to a
// recipient. Satisfies the ledger's PaymentChannel interface.
type Bank struct {
	mu       sync.RWMutex
	balances map[common.Address]uint64
	held     uint64 // value in ledger custody (escrow + in-flight payments)
}

// NewBank creates a bank with no balances.
func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]uint64)}
}

// Deposit credits native value to an account. Genesis and test funding.
func (b *Bank) Deposit(addr common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sum, overflow := math.SafeAdd(b.balances[addr], amount)
	if overflow {
		return fmt.Errorf("deposit overflows balance of %s", addr.Hex())
	}
	b.balances[addr] = sum
	return nil
}

// BalanceOf returns an account's spendable native value.
func (b *Bank) BalanceOf(addr common.Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[addr]
}

// Held returns the value currently in ledger custody.
func (b *Bank) Held() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.held
}

// Collect takes amount from payer into custody.
func (b *Bank) Collect(payer common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balances[payer]
	if bal < amount {
		return fmt.Errorf("insufficient funds: %s has %d, needs %d", payer.Hex(), bal, amount)
	}
	sum, overflow := math.SafeAdd(b.held, amount)
	if overflow {
		return fmt.Errorf("custody overflow")
	}
	b.balances[payer] = bal - amount
	b.held = sum
	return nil
}

// Pay releases amount from custody to recipient.
func (b *Bank) Pay(recipient common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.held < amount {
		return fmt.Errorf("custody underfunded: holds %d, paying %d", b.held, amount)
	}
	sum, overflow := math.SafeAdd(b.balances[recipient], amount)
	if overflow {
		return fmt.Errorf("payment overflows balance of %s", recipient.Hex())
	}
	b.held -= amount
	b.balances[recipient] = sum
	return nil
}
