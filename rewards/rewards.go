// Package rewards implements proportional, time-weighted distribution of
// reward credits across participants holding a fungible stake. Accounting is
// index based: each reward asset carries a cumulative "reward per unit staked"
// accumulator and every participant a checkpoint of the last index value they
// observed, which keeps the cost of every interaction independent of elapsed
// time and participant count.
//
// Three engines are provided: Pool distributes a single reward asset at a
// fixed rate over fixed-duration periods, MultiPool generalises that to an
// ordered registry of reward assets, and DiscretePool applies each deposit as
// an immediate one-shot index bump with no time component.
package rewards

import "math/big"

// scale is the fixed-point factor applied to reward indexes to preserve
// precision under truncating integer division.
var scale = big.NewInt(1_000_000_000_000_000_000)

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// saturatingSub returns a-b, clamped at zero. The clock supplied to the engine
// is untrusted input, so interval arithmetic never goes negative.
func saturatingSub(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
