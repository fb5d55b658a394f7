package rewards

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakeLedger tracks the total staked amount and each participant's balance.
// The sum of all balances equals the total at every observable boundary.
type StakeLedger struct {
	total    *big.Int
	balances map[common.Address]*big.Int
}

func newStakeLedger() *StakeLedger {
	return &StakeLedger{
		total:    big.NewInt(0),
		balances: make(map[common.Address]*big.Int),
	}
}

// Total returns the aggregate staked amount.
func (l *StakeLedger) Total() *big.Int {
	return copyBigInt(l.total)
}

// BalanceOf returns the staked balance recorded for a participant.
func (l *StakeLedger) BalanceOf(participant common.Address) *big.Int {
	return copyBigInt(l.balances[participant])
}

func (l *StakeLedger) credit(participant common.Address, amount *big.Int) {
	l.balances[participant] = new(big.Int).Add(l.BalanceOf(participant), amount)
	l.total = new(big.Int).Add(l.total, amount)
}

// debit reduces a participant's balance. The caller has already verified the
// balance covers the amount.
func (l *StakeLedger) debit(participant common.Address, amount *big.Int) {
	remaining := new(big.Int).Sub(l.BalanceOf(participant), amount)
	if remaining.Sign() == 0 {
		delete(l.balances, participant)
	} else {
		l.balances[participant] = remaining
	}
	l.total = new(big.Int).Sub(l.total, amount)
}
