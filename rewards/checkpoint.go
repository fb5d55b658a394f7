package rewards

import "math/big"

// UserCheckpoint records, for one participant and one reward asset, the index
// value last observed and the rewards accrued but not yet claimed. Checkpoints
// are created lazily at first interaction; a missing checkpoint is equivalent
// to one with both fields zero.
type UserCheckpoint struct {
	// UserIndex is the engine index at the participant's last settlement.
	// It never exceeds the engine's committed index.
	UserIndex *big.Int
	// Pending is the settled, claimable reward amount. It only grows until a
	// claim zeroes it.
	Pending *big.Int
}

func newUserCheckpoint() *UserCheckpoint {
	return &UserCheckpoint{UserIndex: big.NewInt(0), Pending: big.NewInt(0)}
}

func (c *UserCheckpoint) clone() *UserCheckpoint {
	if c == nil {
		return newUserCheckpoint()
	}
	return &UserCheckpoint{
		UserIndex: copyBigInt(c.UserIndex),
		Pending:   copyBigInt(c.Pending),
	}
}

// settle folds the accrual since the last observed index into the pending
// amount and advances the checkpoint to the committed engine index. It must
// run after the index commit and before the participant's staked balance is
// mutated, so the delta applies to the pre-change balance.
func (c *UserCheckpoint) settle(engineIndex, balance *big.Int) {
	c.Pending = c.pendingAt(engineIndex, balance)
	c.UserIndex = copyBigInt(engineIndex)
}

// pendingAt projects the claimable amount against the supplied index without
// mutating the checkpoint.
func (c *UserCheckpoint) pendingAt(engineIndex, balance *big.Int) *big.Int {
	pending := copyBigInt(c.Pending)
	if balance == nil || balance.Sign() == 0 {
		return pending
	}
	delta := new(big.Int).Sub(engineIndex, c.userIndexValue())
	if delta.Sign() <= 0 {
		return pending
	}
	accrued := delta.Mul(delta, balance)
	accrued.Quo(accrued, scale)
	return pending.Add(pending, accrued)
}

func (c *UserCheckpoint) userIndexValue() *big.Int {
	if c == nil || c.UserIndex == nil {
		return big.NewInt(0)
	}
	return c.UserIndex
}
