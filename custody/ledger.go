package custody

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is an in-memory Vault for a single asset. Transfers are exact: the
// received amount always equals the requested one.
type Ledger struct {
	mu       sync.Mutex
	asset    common.Address
	balances map[common.Address]*big.Int
	reserve  *big.Int
}

// NewLedger creates an empty custody ledger for the given asset.
func NewLedger(asset common.Address) *Ledger {
	return &Ledger{
		asset:    asset,
		balances: make(map[common.Address]*big.Int),
		reserve:  big.NewInt(0),
	}
}

// Asset returns the asset identifier this ledger custodies.
func (l *Ledger) Asset() common.Address { return l.asset }

// Mint credits a holder's external balance. Used to fund accounts when the
// ledger is the asset's origin, e.g. in tests and local deployments.
func (l *Ledger) Mint(holder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[holder] = new(big.Int).Add(l.balance(holder), amount)
}

// MoveIn transfers from a holder's external balance into the vault reserve
// and reports the received amount.
func (l *Ledger) MoveIn(from common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.reserve = new(big.Int).Add(l.reserve, amount)
	return new(big.Int).Set(amount), nil
}

// MoveOut transfers from the vault reserve back to a holder.
func (l *Ledger) MoveOut(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserve.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.reserve = new(big.Int).Sub(l.reserve, amount)
	l.balances[to] = new(big.Int).Add(l.balance(to), amount)
	return nil
}

// BalanceOf returns a holder's external balance.
func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(holder))
}

// Reserve returns the amount held in the vault's custody.
func (l *Ledger) Reserve() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.reserve)
}

// SetReserve overwrites the custodied amount. Only the persistence keeper
// uses it when restoring a snapshot.
func (l *Ledger) SetReserve(amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil {
		l.reserve = big.NewInt(0)
		return
	}
	l.reserve = new(big.Int).Set(amount)
}

// SetBalance overwrites a holder's external balance during snapshot restore.
func (l *Ledger) SetBalance(holder common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.Sign() == 0 {
		delete(l.balances, holder)
		return
	}
	l.balances[holder] = new(big.Int).Set(amount)
}

// Balances returns a copy of all external balances.
func (l *Ledger) Balances() map[common.Address]*big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[common.Address]*big.Int, len(l.balances))
	for holder, balance := range l.balances {
		out[holder] = new(big.Int).Set(balance)
	}
	return out
}

func (l *Ledger) balance(holder common.Address) *big.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return big.NewInt(0)
}

// Directory is a static Provider backed by a map of per-asset ledgers.
type Directory struct {
	mu     sync.Mutex
	vaults map[common.Address]Vault
}

// NewDirectory creates an empty vault directory.
func NewDirectory() *Directory {
	return &Directory{vaults: make(map[common.Address]Vault)}
}

// Register adds a vault for an asset, replacing any previous entry.
func (d *Directory) Register(asset common.Address, vault Vault) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vaults[asset] = vault
}

// VaultFor implements Provider.
func (d *Directory) VaultFor(asset common.Address) (Vault, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vault, ok := d.vaults[asset]
	if !ok {
		return nil, errors.New("custody: no vault registered for asset")
	}
	return vault, nil
}
