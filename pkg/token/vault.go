// Package token provides in-process implementations of the external services
// the ledger settles against: an ERC20-style asset vault and a native-value
// bank. The ledger treats both as untrusted external code and checks every
// result.
package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Vault holds balances and allowances for any number of assets, keyed by the
// asset's address. It satisfies the ledger's AssetTransferrer interface: the
// operator address given at construction is the spender whose allowance
// TransferFrom consumes, mirroring a token approval granted to an exchange.
type Vault struct {
	mu       sync.RWMutex
	operator common.Address

	// asset → holder → balance
	balances map[common.Address]map[common.Address]uint64
	// asset → owner → spender → allowance
	allowances map[common.Address]map[common.Address]map[common.Address]uint64
}

// NewVault creates an empty vault operated by the given spender identity.
func NewVault(operator common.Address) *Vault {
	return &Vault{
		operator:   operator,
		balances:   make(map[common.Address]map[common.Address]uint64),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]uint64),
	}
}

// Mint credits freshly issued units of an asset to a holder. Genesis only.
func (v *Vault) Mint(asset, holder common.Address, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balanceLocked(asset, holder)
	sum, overflow := math.SafeAdd(bal, amount)
	if overflow {
		return fmt.Errorf("mint overflows balance of %s", holder.Hex())
	}
	v.setBalanceLocked(asset, holder, sum)
	return nil
}

// BalanceOf returns a holder's balance of an asset.
func (v *Vault) BalanceOf(asset, holder common.Address) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balanceLocked(asset, holder)
}

// Approve sets the allowance a spender may move out of owner's balance.
// Overwrites any previous allowance, ERC20-style.
func (v *Vault) Approve(asset, owner, spender common.Address, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setAllowanceLocked(asset, owner, spender, amount)
}

// Allowance returns what spender may still move out of owner's balance.
func (v *Vault) Allowance(asset, owner, spender common.Address) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allowances[asset][owner][spender]
}

// TransferFrom moves amount from owner to recipient, consuming the operator's
// allowance. Reports success; a false return means nothing moved.
func (v *Vault) TransferFrom(asset, owner, recipient common.Address, amount uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	allowed := v.allowances[asset][owner][v.operator]
	if allowed < amount {
		return false
	}
	if !v.moveLocked(asset, owner, recipient, amount) {
		return false
	}
	// The inner maps may not exist yet when nothing was ever approved for this
	// (asset, owner) pair, which a zero-amount transfer reaches.
	v.setAllowanceLocked(asset, owner, v.operator, allowed-amount)
	return true
}

// Transfer moves amount out of the operator's own balance.
func (v *Vault) Transfer(asset, recipient common.Address, amount uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.moveLocked(asset, v.operator, recipient, amount)
}

// setAllowanceLocked writes an allowance, materializing the nested maps.
// Assumes v.mu held.
func (v *Vault) setAllowanceLocked(asset, owner, spender common.Address, amount uint64) {
	byOwner, ok := v.allowances[asset]
	if !ok {
		byOwner = make(map[common.Address]map[common.Address]uint64)
		v.allowances[asset] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[common.Address]uint64)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = amount
}

func (v *Vault) balanceLocked(asset, holder common.Address) uint64 {
	return v.balances[asset][holder]
}

func (v *Vault) setBalanceLocked(asset, holder common.Address, amount uint64) {
	byHolder, ok := v.balances[asset]
	if !ok {
		byHolder = make(map[common.Address]uint64)
		v.balances[asset] = byHolder
	}
	byHolder[holder] = amount
}

// moveLocked transfers balance between holders of one asset. Assumes v.mu held.
func (v *Vault) moveLocked(asset, from, to common.Address, amount uint64) bool {
	fromBal := v.balanceLocked(asset, from)
	if fromBal < amount {
		return false
	}
	toBal := v.balanceLocked(asset, to)
	sum, overflow := math.SafeAdd(toBal, amount)
	if overflow {
		return false
	}
	v.setBalanceLocked(asset, from, fromBal-amount)
	v.setBalanceLocked(asset, to, sum)
	return true
}
