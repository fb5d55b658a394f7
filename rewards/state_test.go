package rewards

import (
	"errors"
	"math/big"
	"testing"
)

const week uint64 = 604800

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), scale)
}

func TestCurrentIndexUnchangedWithoutStake(t *testing.T) {
	state := newRewardState(week)
	if err := state.applyDeposit(1000, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	got := state.currentIndex(1000+week, big.NewInt(0))
	if got.Sign() != 0 {
		t.Fatalf("expected unchanged index with zero stake, got %s", got)
	}
}

func TestDepositBeforeAnyStake(t *testing.T) {
	// Scenario: duration one week, 700e18 deposited before anyone staked.
	state := newRewardState(week)
	now := uint64(1_700_000_000)
	if err := state.applyDeposit(now, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}

	wantRate := new(big.Int).Quo(e18(700), new(big.Int).SetUint64(week))
	if state.Rate.Cmp(wantRate) != 0 {
		t.Fatalf("unexpected rate: got %s want %s", state.Rate, wantRate)
	}
	if !state.PeriodRewardActive(now) {
		t.Fatalf("expected period active immediately after deposit")
	}
	if state.PeriodFinish != now+week {
		t.Fatalf("unexpected period finish: %d", state.PeriodFinish)
	}

	finish := state.PeriodFinish
	if state.PeriodRewardRemaining(finish).Sign() != 0 {
		t.Fatalf("expected zero remaining at period finish, got %s", state.PeriodRewardRemaining(finish))
	}
	wantEmitted := new(big.Int).Mul(wantRate, new(big.Int).SetUint64(week))
	if state.PeriodRewardEmitted(finish).Cmp(wantEmitted) != 0 {
		t.Fatalf("unexpected emitted at finish: got %s want %s", state.PeriodRewardEmitted(finish), wantEmitted)
	}
}

func TestEmittedPlusRemainingEqualsTotal(t *testing.T) {
	state := newRewardState(week)
	now := uint64(5000)
	if err := state.applyDeposit(now, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	total := state.PeriodRewardTotal()
	for _, at := range []uint64{now, now + 1, now + 86400, now + week, now + week + 10_000} {
		sum := new(big.Int).Add(state.PeriodRewardEmitted(at), state.PeriodRewardRemaining(at))
		if sum.Cmp(total) != 0 {
			t.Fatalf("emitted+remaining != total at %d: %s vs %s", at, sum, total)
		}
	}
	wantTotal := new(big.Int).Mul(state.Rate, new(big.Int).SetUint64(week))
	if total.Cmp(wantTotal) != 0 {
		t.Fatalf("total != rate*duration: %s vs %s", total, wantTotal)
	}
}

func TestMidPeriodTopUpBlendsRate(t *testing.T) {
	state := newRewardState(week)
	start := uint64(10_000)
	if err := state.applyDeposit(start, e18(700)); err != nil {
		t.Fatalf("initial deposit: %v", err)
	}
	oldRate := copyBigInt(state.Rate)
	oldFinish := state.PeriodFinish

	topUpAt := start + 86400
	topUp := e18(140)
	if err := state.applyDeposit(topUpAt, topUp); err != nil {
		t.Fatalf("top-up deposit: %v", err)
	}

	remaining := new(big.Int).SetUint64(oldFinish - topUpAt)
	remaining.Mul(remaining, oldRate)
	wantRate := new(big.Int).Add(remaining, topUp)
	wantRate.Quo(wantRate, new(big.Int).SetUint64(week))
	if state.Rate.Cmp(wantRate) != 0 {
		t.Fatalf("unexpected blended rate: got %s want %s", state.Rate, wantRate)
	}
	if state.PeriodFinish != topUpAt+week {
		t.Fatalf("unexpected period finish after top-up: %d", state.PeriodFinish)
	}
	if state.LastUpdated != topUpAt {
		t.Fatalf("unexpected last updated after top-up: %d", state.LastUpdated)
	}
}

func TestSetDurationRejectedWhileActive(t *testing.T) {
	state := newRewardState(week)
	now := uint64(1000)
	if err := state.applyDeposit(now, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	if err := state.setDuration(now+100, 86400); !errors.Is(err, ErrPeriodActive) {
		t.Fatalf("expected ErrPeriodActive, got %v", err)
	}
	if err := state.setDuration(state.PeriodFinish+1, 86400); err != nil {
		t.Fatalf("set duration after expiry: %v", err)
	}
	if state.Duration != 86400 {
		t.Fatalf("duration not updated: %d", state.Duration)
	}
	if err := state.setDuration(state.PeriodFinish+1, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for zero, got %v", err)
	}
}

func TestDepositRejectsZeroRate(t *testing.T) {
	state := newRewardState(week)
	err := state.applyDeposit(1000, big.NewInt(1000)) // under-divides into zero per second
	if !errors.Is(err, ErrZeroRate) {
		t.Fatalf("expected ErrZeroRate, got %v", err)
	}
	if state.Rate.Sign() != 0 || state.PeriodFinish != 0 {
		t.Fatalf("schedule mutated by rejected deposit")
	}
}

func TestIndexMonotonicUnderCommits(t *testing.T) {
	state := newRewardState(week)
	total := e18(300)
	if err := state.applyDeposit(0, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	prev := copyBigInt(state.Index)
	for _, at := range []uint64{100, 86400, 86400, 200_000, week, week + 500} {
		state.commit(at, total)
		if state.Index.Cmp(prev) < 0 {
			t.Fatalf("index decreased at %d: %s < %s", at, state.Index, prev)
		}
		if state.LastUpdated > state.PeriodFinish {
			t.Fatalf("lastUpdated beyond periodFinish at %d", at)
		}
		prev = copyBigInt(state.Index)
	}
}

func TestCommitClampsClockRegression(t *testing.T) {
	state := newRewardState(week)
	if err := state.applyDeposit(1000, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	total := e18(100)
	state.commit(2000, total)
	at2000 := copyBigInt(state.Index)
	state.commit(1500, total) // untrusted clock going backwards
	if state.Index.Cmp(at2000) != 0 {
		t.Fatalf("index moved on clock regression: %s vs %s", state.Index, at2000)
	}
	if state.LastUpdated != 2000 {
		t.Fatalf("update marker regressed: %d", state.LastUpdated)
	}
}

func TestDepositClampsClockRegression(t *testing.T) {
	state := newRewardState(week)
	if err := state.applyDeposit(1000, e18(700)); err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	total := e18(100)
	state.commit(2000, total)
	at2000 := copyBigInt(state.Index)

	// A deposit on a regressed clock must not move the marker backwards,
	// otherwise the 1000..2000 interval would be emitted a second time.
	if err := state.applyDeposit(1500, e18(700)); err != nil {
		t.Fatalf("apply deposit on regressed clock: %v", err)
	}
	if state.LastUpdated != 2000 {
		t.Fatalf("update marker regressed on deposit: %d", state.LastUpdated)
	}
	state.commit(2000, total)
	if state.Index.Cmp(at2000) != 0 {
		t.Fatalf("interval re-emitted after regressed deposit: %s vs %s", state.Index, at2000)
	}
}
