// adapters.go - Reference in-memory collaborators: a per-asset escrow vault,
// a mint/burn adapter for the platform's base unit, and an allowlist
// authorizer. Each call is all-or-nothing. These model the platform's token
// module for the daemon and tests; real deployments substitute their own.

package shield

import (
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// AssetAdapter escrows and releases value for one asset.
type AssetAdapter interface {
	Escrow(holder *big.Int, amount *big.Int) error
	Release(recipient *big.Int, amount *big.Int) error
}

// AssetAuthorizer gates which assets the pool accepts.
type AssetAuthorizer interface {
	IsAuthorized(assetID fr.Element) bool
}

// VaultAdapter is an in-memory balance-map adapter for a fungible asset.
// Escrowed value moves from the holder's balance into the vault total.
type VaultAdapter struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	escrowed *big.Int
}

// NewVaultAdapter creates an empty vault.
func NewVaultAdapter() *VaultAdapter {
	return &VaultAdapter{
		balances: make(map[string]*big.Int),
		escrowed: new(big.Int),
	}
}

// Credit funds a holder. Test and bootstrap hook, not part of the protocol.
func (v *VaultAdapter) Credit(holder *big.Int, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := holder.String()
	if b, ok := v.balances[key]; ok {
		b.Add(b, amount)
		return
	}
	v.balances[key] = new(big.Int).Set(amount)
}

// Escrow moves amount from the holder into the vault, all or nothing.
func (v *VaultAdapter) Escrow(holder *big.Int, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.balances[holder.String()]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	v.escrowed.Add(v.escrowed, amount)
	return nil
}

// Release moves amount from the vault to the recipient, all or nothing.
func (v *VaultAdapter) Release(recipient *big.Int, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.escrowed.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	v.escrowed.Sub(v.escrowed, amount)
	key := recipient.String()
	if b, ok := v.balances[key]; ok {
		b.Add(b, amount)
	} else {
		v.balances[key] = new(big.Int).Set(amount)
	}
	return nil
}

// BalanceOf returns the holder's spendable balance.
func (v *VaultAdapter) BalanceOf(holder *big.Int) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b, ok := v.balances[holder.String()]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Escrowed returns the vault's total escrowed value.
func (v *VaultAdapter) Escrowed() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.escrowed)
}

// NativeVaultAdapter is the symmetric escrow/release pair for the
// platform's base unit: escrow burns from the holder, release mints to the
// recipient.
type NativeVaultAdapter struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	burned   *big.Int
}

// NewNativeVaultAdapter creates the native-unit adapter.
func NewNativeVaultAdapter() *NativeVaultAdapter {
	return &NativeVaultAdapter{
		balances: make(map[string]*big.Int),
		burned:   new(big.Int),
	}
}

// Credit funds a holder with base units.
func (v *NativeVaultAdapter) Credit(holder *big.Int, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := holder.String()
	if b, ok := v.balances[key]; ok {
		b.Add(b, amount)
		return
	}
	v.balances[key] = new(big.Int).Set(amount)
}

// Escrow burns amount from the holder.
func (v *NativeVaultAdapter) Escrow(holder *big.Int, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.balances[holder.String()]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.Sub(b, amount)
	v.burned.Add(v.burned, amount)
	return nil
}

// Release mints amount to the recipient.
func (v *NativeVaultAdapter) Release(recipient *big.Int, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.burned.Sub(v.burned, amount)
	key := recipient.String()
	if b, ok := v.balances[key]; ok {
		b.Add(b, amount)
	} else {
		v.balances[key] = new(big.Int).Set(amount)
	}
	return nil
}

// BalanceOf returns the holder's base-unit balance.
func (v *NativeVaultAdapter) BalanceOf(holder *big.Int) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b, ok := v.balances[holder.String()]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// AllowlistAuthorizer is an allowlist keyed by derived asset identifier,
// maintained by a single configured admin principal.
type AllowlistAuthorizer struct {
	mu      sync.Mutex
	admin   fr.Element
	allowed map[fr.Element]struct{}
}

// NewAllowlistAuthorizer creates an empty allowlist owned by admin.
func NewAllowlistAuthorizer(admin *big.Int) *AllowlistAuthorizer {
	var a fr.Element
	if admin != nil {
		a.SetBigInt(admin)
	}
	return &AllowlistAuthorizer{
		admin:   a,
		allowed: make(map[fr.Element]struct{}),
	}
}

// Authorize adds an asset address to the allowlist.
func (l *AllowlistAuthorizer) Authorize(caller *big.Int, assetAddress *big.Int) error {
	c, err := elementOf(caller)
	if err != nil || !c.Equal(&l.admin) {
		return ErrNotAdmin
	}
	l.mu.Lock()
	l.allowed[AssetID(assetAddress)] = struct{}{}
	l.mu.Unlock()
	return nil
}

// Revoke removes an asset address from the allowlist.
func (l *AllowlistAuthorizer) Revoke(caller *big.Int, assetAddress *big.Int) error {
	c, err := elementOf(caller)
	if err != nil || !c.Equal(&l.admin) {
		return ErrNotAdmin
	}
	l.mu.Lock()
	delete(l.allowed, AssetID(assetAddress))
	l.mu.Unlock()
	return nil
}

// IsAuthorized reports whether the derived asset identifier is allowed.
func (l *AllowlistAuthorizer) IsAuthorized(assetID fr.Element) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.allowed[assetID]
	return ok
}
