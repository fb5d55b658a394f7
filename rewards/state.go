package rewards

import "math/big"

// RewardState tracks the emission schedule and cumulative index for a single
// reward asset. All timestamps are unix seconds taken from the clock value the
// caller supplies once per operation; the state itself never reads a clock.
type RewardState struct {
	// Duration is the length in seconds of a distribution period. A zero
	// duration doubles as the "asset not registered" sentinel in MultiPool.
	Duration uint64
	// PeriodFinish is the unix timestamp at which the active period ends.
	PeriodFinish uint64
	// LastUpdated is the timestamp of the last committed index update,
	// clamped to PeriodFinish.
	LastUpdated uint64
	// Rate is the reward amount emitted per second during the active period.
	Rate *big.Int
	// Index is the cumulative reward per unit staked, scaled by 1e18. It is
	// monotonically non-decreasing over the lifetime of the state.
	Index *big.Int
}

func newRewardState(duration uint64) *RewardState {
	return &RewardState{
		Duration: duration,
		Rate:     big.NewInt(0),
		Index:    big.NewInt(0),
	}
}

func (s *RewardState) clone() *RewardState {
	if s == nil {
		return newRewardState(0)
	}
	return &RewardState{
		Duration:     s.Duration,
		PeriodFinish: s.PeriodFinish,
		LastUpdated:  s.LastUpdated,
		Rate:         copyBigInt(s.Rate),
		Index:        copyBigInt(s.Index),
	}
}

// lastTimeApplicable clamps the supplied clock to the end of the active
// period; emission stops accruing once the period has finished.
func (s *RewardState) lastTimeApplicable(now uint64) uint64 {
	return minUint64(now, s.PeriodFinish)
}

// currentIndex projects the cumulative index at the supplied clock without
// committing it. With no stake outstanding the index is unchanged: emission
// during a stakeless interval is permanently unattributed.
func (s *RewardState) currentIndex(now uint64, totalStaked *big.Int) *big.Int {
	index := copyBigInt(s.Index)
	if totalStaked == nil || totalStaked.Sign() == 0 {
		return index
	}
	elapsed := saturatingSub(s.lastTimeApplicable(now), s.LastUpdated)
	if elapsed == 0 || s.Rate == nil || s.Rate.Sign() == 0 {
		return index
	}
	accrued := new(big.Int).Mul(s.Rate, new(big.Int).SetUint64(elapsed))
	accrued.Mul(accrued, scale)
	accrued.Quo(accrued, totalStaked)
	return index.Add(index, accrued)
}

// commit folds the elapsed emission into the stored index and advances the
// update marker. It must run before any balance in the same operation is read
// or mutated so the accrual is computed against the pre-mutation total.
func (s *RewardState) commit(now uint64, totalStaked *big.Int) {
	s.Index = s.currentIndex(now, totalStaked)
	// The clock is untrusted; never move the marker backwards or the skipped
	// interval would be emitted twice.
	if applicable := s.lastTimeApplicable(now); applicable > s.LastUpdated {
		s.LastUpdated = applicable
	}
}

// PeriodRewardActive reports whether the supplied clock falls inside the
// current emission window [PeriodFinish-Duration, PeriodFinish]. The window
// arithmetic relies on duration changes being gated to inactive periods.
func (s *RewardState) PeriodRewardActive(now uint64) bool {
	if s.PeriodFinish == 0 || now > s.PeriodFinish {
		return false
	}
	return now >= saturatingSub(s.PeriodFinish, s.Duration)
}

// PeriodRewardTotal returns the total reward allocated to the active period,
// which is Rate*Duration by construction. The truncation remainder of the
// rate computation is already excluded.
func (s *RewardState) PeriodRewardTotal() *big.Int {
	if s.Rate == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(s.Rate, new(big.Int).SetUint64(s.Duration))
}

// PeriodRewardRemaining returns the still-unemitted portion of the active
// period at the supplied clock.
func (s *RewardState) PeriodRewardRemaining(now uint64) *big.Int {
	if s.Rate == nil {
		return big.NewInt(0)
	}
	left := saturatingSub(s.PeriodFinish, s.lastTimeApplicable(now))
	return new(big.Int).Mul(s.Rate, new(big.Int).SetUint64(left))
}

// PeriodRewardEmitted returns the portion of the active period already
// emitted at the supplied clock. Emitted plus remaining always equals the
// period total.
func (s *RewardState) PeriodRewardEmitted(now uint64) *big.Int {
	return new(big.Int).Sub(s.PeriodRewardTotal(), s.PeriodRewardRemaining(now))
}
