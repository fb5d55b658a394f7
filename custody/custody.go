// Package custody abstracts the component that actually holds and moves the
// staked and reward asset balances. The reward engines never touch balances
// directly; they request movements through a Vault and verify the reported
// outcome.
package custody

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAmount       = errors.New("custody: amount must be positive")
	ErrInsufficientBalance = errors.New("custody: insufficient balance")
)

// Vault moves one fungible asset between external holders and the engine's
// own custody. MoveIn returns the amount actually received, which the engine
// compares against the request; assets whose transferred amount deviates from
// the requested one (fee-on-transfer, rebasing) surface as a mismatch there.
type Vault interface {
	MoveIn(from common.Address, amount *big.Int) (*big.Int, error)
	MoveOut(to common.Address, amount *big.Int) error
	BalanceOf(holder common.Address) *big.Int
	// Reserve returns the amount currently held in the vault's own custody.
	Reserve() *big.Int
}

// Provider resolves the vault for a reward asset. The multi-asset engine uses
// it to look up custody when an asset is registered.
type Provider interface {
	VaultFor(asset common.Address) (Vault, error)
}
