package rewards

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
	"stakevault/events"
)

// PoolConfig wires a single-reward-asset pool to its collaborators.
type PoolConfig struct {
	Admin       common.Address
	StakeAsset  common.Address
	RewardAsset common.Address
	StakeVault  custody.Vault
	RewardVault custody.Vault
	// Duration is the initial distribution period length in seconds.
	Duration uint64
	Emitter  events.Emitter
}

// Pool distributes a single reward asset across stakers at a fixed rate over
// fixed-duration periods. Every state-changing call commits the reward index
// and settles the acting participant's checkpoint before touching balances or
// the schedule; that ordering is what keeps accrual proportional.
type Pool struct {
	guard callGuard
	mu    sync.RWMutex

	admin       common.Address
	stakeAsset  common.Address
	rewardAsset common.Address
	stakeVault  custody.Vault
	rewardVault custody.Vault

	ledger  *StakeLedger
	state   *RewardState
	users   map[common.Address]*UserCheckpoint
	emitter events.Emitter
}

// NewPool constructs a single-asset reward pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Duration == 0 {
		return nil, ErrInvalidDuration
	}
	if cfg.StakeVault == nil || cfg.RewardVault == nil {
		return nil, ErrNilVault
	}
	if cfg.RewardAsset == (common.Address{}) || cfg.RewardAsset == cfg.StakeAsset {
		return nil, ErrInvalidAsset
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Pool{
		admin:       cfg.Admin,
		stakeAsset:  cfg.StakeAsset,
		rewardAsset: cfg.RewardAsset,
		stakeVault:  cfg.StakeVault,
		rewardVault: cfg.RewardVault,
		ledger:      newStakeLedger(),
		state:       newRewardState(cfg.Duration),
		users:       make(map[common.Address]*UserCheckpoint),
		emitter:     emitter,
	}, nil
}

// Stake moves amount of the stake asset from the participant into custody and
// credits their staked balance.
func (p *Pool) Stake(now uint64, participant common.Address, amount *big.Int) error {
	release, err := p.guard.enter()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state.clone()
	state.commit(now, p.ledger.Total())
	checkpoint := p.users[participant].clone()
	checkpoint.settle(state.Index, p.ledger.BalanceOf(participant))

	received, err := p.stakeVault.MoveIn(participant, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	p.state = state
	p.users[participant] = checkpoint
	p.ledger.credit(participant, amount)
	p.emitter.Emit(events.Staked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Unstake debits the participant's staked balance and returns the stake asset
// to them from custody.
func (p *Pool) Unstake(now uint64, participant common.Address, amount *big.Int) error {
	release, err := p.guard.enter()
	if err != nil {
		return err
	}
	defer release()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if amount.Cmp(p.ledger.BalanceOf(participant)) > 0 {
		return ErrInsufficientStake
	}

	state := p.state.clone()
	state.commit(now, p.ledger.Total())
	checkpoint := p.users[participant].clone()
	checkpoint.settle(state.Index, p.ledger.BalanceOf(participant))

	if err := p.stakeVault.MoveOut(participant, amount); err != nil {
		return err
	}

	p.state = state
	p.users[participant] = checkpoint
	p.ledger.debit(participant, amount)
	p.emitter.Emit(events.Unstaked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Claim settles and pays out the participant's accrued rewards. It returns
// the amount paid, which is zero when nothing has accrued.
func (p *Pool) Claim(now uint64, participant common.Address) (*big.Int, error) {
	release, err := p.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state.clone()
	state.commit(now, p.ledger.Total())
	checkpoint := p.users[participant].clone()
	checkpoint.settle(state.Index, p.ledger.BalanceOf(participant))

	payout := copyBigInt(checkpoint.Pending)
	if payout.Sign() == 0 {
		p.state = state
		p.users[participant] = checkpoint
		return big.NewInt(0), nil
	}
	checkpoint.Pending = big.NewInt(0)

	if err := p.rewardVault.MoveOut(participant, payout); err != nil {
		return nil, err
	}

	p.state = state
	p.users[participant] = checkpoint
	p.emitter.Emit(events.RewardsClaimed{Participant: participant, Asset: p.rewardAsset, Amount: copyBigInt(payout)})
	return payout, nil
}

// DepositRewards moves amount of the reward asset from the caller into
// custody and folds it into the emission schedule, starting a fresh period.
// Only the administrator may deposit.
func (p *Pool) DepositRewards(now uint64, caller common.Address, amount *big.Int) error {
	release, err := p.guard.enter()
	if err != nil {
		return err
	}
	defer release()
	if caller != p.admin {
		return ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state.clone()
	state.commit(now, p.ledger.Total())
	if err := state.applyDeposit(now, amount); err != nil {
		return err
	}

	received, err := p.rewardVault.MoveIn(caller, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	p.state = state
	p.emitter.Emit(events.RewardsDeposited{Asset: p.rewardAsset, Amount: copyBigInt(amount)})
	return nil
}

// SetDuration changes the period length applied to the next deposit. Only the
// administrator may change it, and only while no period is active.
func (p *Pool) SetDuration(now uint64, caller common.Address, duration uint64) error {
	release, err := p.guard.enter()
	if err != nil {
		return err
	}
	defer release()
	if caller != p.admin {
		return ErrNotAuthorized
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.state.setDuration(now, duration); err != nil {
		return err
	}
	p.emitter.Emit(events.DurationUpdated{Asset: p.rewardAsset, Duration: duration})
	return nil
}

// Admin returns the designated administrator address.
func (p *Pool) Admin() common.Address { return p.admin }

// StakeAsset returns the staked asset identifier.
func (p *Pool) StakeAsset() common.Address { return p.stakeAsset }

// RewardAsset returns the distributed asset identifier.
func (p *Pool) RewardAsset() common.Address { return p.rewardAsset }

// TotalStaked returns the aggregate staked amount.
func (p *Pool) TotalStaked() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Total()
}

// BalanceOf returns a participant's staked balance.
func (p *Pool) BalanceOf(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.BalanceOf(participant)
}

// RewardBalance returns the reward asset amount held in custody.
func (p *Pool) RewardBalance() *big.Int {
	return p.rewardVault.Reserve()
}

// Duration returns the configured period length in seconds.
func (p *Pool) Duration() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Duration
}

// PeriodFinish returns the end timestamp of the active period.
func (p *Pool) PeriodFinish() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.PeriodFinish
}

// LastUpdated returns the timestamp of the last committed index update.
func (p *Pool) LastUpdated() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.LastUpdated
}

// Rate returns the per-second emission rate of the active period.
func (p *Pool) Rate() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyBigInt(p.state.Rate)
}

// Index returns the committed cumulative index.
func (p *Pool) Index() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyBigInt(p.state.Index)
}

// UserIndex returns the index value at the participant's last settlement.
func (p *Pool) UserIndex(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if checkpoint, ok := p.users[participant]; ok {
		return copyBigInt(checkpoint.UserIndex)
	}
	return big.NewInt(0)
}

// LastTimeRewardApplicable clamps the supplied clock to the period end.
func (p *Pool) LastTimeRewardApplicable(now uint64) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.lastTimeApplicable(now)
}

// CurrentIndex projects the cumulative index at the supplied clock.
func (p *Pool) CurrentIndex(now uint64) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.currentIndex(now, p.ledger.Total())
}

// PendingRewards projects a participant's claimable amount at the supplied
// clock without mutating any state.
func (p *Pool) PendingRewards(now uint64, participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	index := p.state.currentIndex(now, p.ledger.Total())
	return p.users[participant].clone().pendingAt(index, p.ledger.BalanceOf(participant))
}

// PeriodRewardActive reports whether the clock falls inside the emission
// window of the active period.
func (p *Pool) PeriodRewardActive(now uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.PeriodRewardActive(now)
}

// PeriodRewardTotal returns the reward allocated to the active period.
func (p *Pool) PeriodRewardTotal() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.PeriodRewardTotal()
}

// PeriodRewardEmitted returns the already-emitted share of the active period.
func (p *Pool) PeriodRewardEmitted(now uint64) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.PeriodRewardEmitted(now)
}

// PeriodRewardRemaining returns the still-unemitted share of the active period.
func (p *Pool) PeriodRewardRemaining(now uint64) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.PeriodRewardRemaining(now)
}
