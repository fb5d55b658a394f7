package rewards

import "math/big"

// setDuration changes the period length for subsequent deposits. It is only
// legal while no period is active; allowing it mid-period would corrupt the
// Rate*Duration allocation of the running window.
func (s *RewardState) setDuration(now, duration uint64) error {
	if duration == 0 {
		return ErrInvalidDuration
	}
	if now <= s.PeriodFinish {
		return ErrPeriodActive
	}
	s.Duration = duration
	return nil
}

// applyDeposit folds a reward deposit into the emission schedule. When a
// period is still running the unemitted remainder of the old rate is blended
// into the new one; either way a fresh period of the configured duration
// starts at the supplied clock. The caller must have committed the index for
// this clock value first.
//
// The integer division truncates; the sub-rate remainder of the deposit is
// permanently unattributed.
func (s *RewardState) applyDeposit(now uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if s.Duration == 0 {
		return ErrInvalidDuration
	}
	duration := new(big.Int).SetUint64(s.Duration)
	rate := new(big.Int)
	if now >= s.PeriodFinish {
		rate.Quo(amount, duration)
	} else {
		remaining := new(big.Int).SetUint64(s.PeriodFinish - now)
		remaining.Mul(remaining, s.Rate)
		rate.Add(remaining, amount)
		rate.Quo(rate, duration)
	}
	if rate.Sign() == 0 {
		return ErrZeroRate
	}
	s.Rate = rate
	s.PeriodFinish = now + s.Duration
	// The marker only ever advances; a regressed clock must not re-open an
	// interval that was already emitted.
	if now > s.LastUpdated {
		s.LastUpdated = now
	}
	return nil
}
