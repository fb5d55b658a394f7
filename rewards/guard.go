package rewards

import "sync/atomic"

// callGuard marks an engine as busy for the duration of a state-mutating
// operation. A nested entry, for example triggered from a custody vault
// callback while the outer operation is between its commit and its transfer
// step, observes the flag and is rejected instead of seeing half-updated
// state. The release closure must run on every exit path.
type callGuard struct {
	inFlight atomic.Bool
}

func (g *callGuard) enter() (release func(), err error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	return func() { g.inFlight.Store(false) }, nil
}
