package rewards

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
	"stakevault/events"
)

// MultiPoolConfig wires a multi-reward-asset pool to its collaborators.
type MultiPoolConfig struct {
	Admin      common.Address
	StakeAsset common.Address
	StakeVault custody.Vault
	// Vaults resolves custody for reward assets as they are registered.
	Vaults  custody.Provider
	Emitter events.Emitter
}

// MultiPool distributes any number of reward assets across one shared stake
// ledger. The registry is an append-only ordered list of asset identifiers
// plus a lookup map to the per-asset reward state; update passes iterate in
// registration order. Registration is admin gated, which bounds every
// claim-all and update loop.
type MultiPool struct {
	guard callGuard
	mu    sync.RWMutex

	admin      common.Address
	stakeAsset common.Address
	stakeVault custody.Vault
	provider   custody.Provider

	ledger      *StakeLedger
	order       []common.Address
	states      map[common.Address]*RewardState
	vaults      map[common.Address]custody.Vault
	checkpoints map[common.Address]map[common.Address]*UserCheckpoint
	emitter     events.Emitter
}

// NewMultiPool constructs a multi-asset reward pool with an empty registry.
func NewMultiPool(cfg MultiPoolConfig) (*MultiPool, error) {
	if cfg.StakeVault == nil || cfg.Vaults == nil {
		return nil, ErrNilVault
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &MultiPool{
		admin:       cfg.Admin,
		stakeAsset:  cfg.StakeAsset,
		stakeVault:  cfg.StakeVault,
		provider:    cfg.Vaults,
		ledger:      newStakeLedger(),
		states:      make(map[common.Address]*RewardState),
		vaults:      make(map[common.Address]custody.Vault),
		checkpoints: make(map[common.Address]map[common.Address]*UserCheckpoint),
		emitter:     emitter,
	}, nil
}

// AddReward registers a new reward asset with its initial period duration.
// Assets can never be removed once registered.
func (p *MultiPool) AddReward(caller, asset common.Address, duration uint64) error {
	release, err := p.guard.enter()
	if err != nil {
		return err
	}
	defer release()
	if caller != p.admin {
		return ErrNotAuthorized
	}
	if asset == (common.Address{}) || asset == p.stakeAsset {
		return ErrInvalidAsset
	}
	if duration == 0 {
		return ErrInvalidDuration
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.states[asset]; ok && state.Duration != 0 {
		return ErrAssetExists
	}
	vault, err := p.provider.VaultFor(asset)
	if err != nil {
		return err
	}
	p.order = append(p.order, asset)
	p.states[asset] = newRewardState(duration)
	p.vaults[asset] = vault
	p.checkpoints[asset] = make(map[common.Address]*UserCheckpoint)
	p.emitter.Emit(events.RewardAdded{Asset: asset, Duration: duration})
	return nil
}

// Stake moves amount of the stake asset from the participant into custody and
// credits their staked balance, settling every registered reward asset first.
func (p *MultiPool) Stake(now uint64, participant common.Address, amount *big.Int) error {
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

	states, checkpoints := p.settleAll(now, participant)

	received, err := p.stakeVault.MoveIn(participant, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	p.install(participant, states, checkpoints)
	p.ledger.credit(participant, amount)
	p.emitter.Emit(events.Staked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Unstake debits the participant's staked balance and returns the stake asset
// to them, settling every registered reward asset first.
func (p *MultiPool) Unstake(now uint64, participant common.Address, amount *big.Int) error {
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

	states, checkpoints := p.settleAll(now, participant)

	if err := p.stakeVault.MoveOut(participant, amount); err != nil {
		return err
	}

	p.install(participant, states, checkpoints)
	p.ledger.debit(participant, amount)
	p.emitter.Emit(events.Unstaked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Claim settles and pays out the participant's accrued rewards for one asset.
func (p *MultiPool) Claim(now uint64, participant, asset common.Address) (*big.Int, error) {
	release, err := p.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.states[asset]; !ok {
		return nil, ErrAssetUnknown
	}
	return p.claimLocked(now, participant, asset)
}

// ClaimAll settles and pays out the participant's accrued rewards for every
// registered asset in registration order. It returns the amount paid per
// asset; assets with nothing accrued are omitted.
func (p *MultiPool) ClaimAll(now uint64, participant common.Address) (map[common.Address]*big.Int, error) {
	release, err := p.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p.mu.Lock()
	defer p.mu.Unlock()

	payouts := make(map[common.Address]*big.Int)
	for _, asset := range p.order {
		paid, err := p.claimLocked(now, participant, asset)
		if err != nil {
			return payouts, err
		}
		if paid.Sign() > 0 {
			payouts[asset] = paid
		}
	}
	return payouts, nil
}

// claimLocked runs the update pass and payout for one asset. Each asset is
// committed and transferred individually, so a custody failure on a later
// asset leaves the earlier ones fully settled and paid.
func (p *MultiPool) claimLocked(now uint64, participant, asset common.Address) (*big.Int, error) {
	state := p.states[asset].clone()
	state.commit(now, p.ledger.Total())
	checkpoint := p.checkpoints[asset][participant].clone()
	checkpoint.settle(state.Index, p.ledger.BalanceOf(participant))

	payout := copyBigInt(checkpoint.Pending)
	if payout.Sign() == 0 {
		p.states[asset] = state
		p.checkpoints[asset][participant] = checkpoint
		return big.NewInt(0), nil
	}
	checkpoint.Pending = big.NewInt(0)

	if err := p.vaults[asset].MoveOut(participant, payout); err != nil {
		return big.NewInt(0), err
	}

	p.states[asset] = state
	p.checkpoints[asset][participant] = checkpoint
	p.emitter.Emit(events.RewardsClaimed{Participant: participant, Asset: asset, Amount: copyBigInt(payout)})
	return payout, nil
}

// DepositRewards moves amount of a registered reward asset from the caller
// into custody and folds it into that asset's emission schedule.
func (p *MultiPool) DepositRewards(now uint64, caller, asset common.Address, amount *big.Int) error {
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

	stored, ok := p.states[asset]
	if !ok {
		return ErrAssetUnknown
	}
	state := stored.clone()
	state.commit(now, p.ledger.Total())
	if err := state.applyDeposit(now, amount); err != nil {
		return err
	}

	received, err := p.vaults[asset].MoveIn(caller, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	p.states[asset] = state
	p.emitter.Emit(events.RewardsDeposited{Asset: asset, Amount: copyBigInt(amount)})
	return nil
}

// SetDuration changes the period length a registered asset applies to its
// next deposit. Only legal while that asset has no active period.
func (p *MultiPool) SetDuration(now uint64, caller, asset common.Address, duration uint64) error {
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

	state, ok := p.states[asset]
	if !ok {
		return ErrAssetUnknown
	}
	if err := state.setDuration(now, duration); err != nil {
		return err
	}
	p.emitter.Emit(events.DurationUpdated{Asset: asset, Duration: duration})
	return nil
}

// settleAll commits every registered asset's index and settles the acting
// participant against it, on scratch copies. The results are installed only
// after the operation's external transfer has been verified.
func (p *MultiPool) settleAll(now uint64, participant common.Address) (map[common.Address]*RewardState, map[common.Address]*UserCheckpoint) {
	states := make(map[common.Address]*RewardState, len(p.order))
	checkpoints := make(map[common.Address]*UserCheckpoint, len(p.order))
	total := p.ledger.Total()
	balance := p.ledger.BalanceOf(participant)
	for _, asset := range p.order {
		state := p.states[asset].clone()
		state.commit(now, total)
		checkpoint := p.checkpoints[asset][participant].clone()
		checkpoint.settle(state.Index, balance)
		states[asset] = state
		checkpoints[asset] = checkpoint
	}
	return states, checkpoints
}

func (p *MultiPool) install(participant common.Address, states map[common.Address]*RewardState, checkpoints map[common.Address]*UserCheckpoint) {
	for asset, state := range states {
		p.states[asset] = state
		p.checkpoints[asset][participant] = checkpoints[asset]
	}
}

// Admin returns the designated administrator address.
func (p *MultiPool) Admin() common.Address { return p.admin }

// StakeAsset returns the staked asset identifier.
func (p *MultiPool) StakeAsset() common.Address { return p.stakeAsset }

// RewardAssets returns the registered reward assets in registration order.
func (p *MultiPool) RewardAssets() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]common.Address(nil), p.order...)
}

// TotalStaked returns the aggregate staked amount.
func (p *MultiPool) TotalStaked() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Total()
}

// BalanceOf returns a participant's staked balance.
func (p *MultiPool) BalanceOf(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.BalanceOf(participant)
}

// RewardBalance returns the custodied amount of a registered reward asset.
func (p *MultiPool) RewardBalance(asset common.Address) *big.Int {
	p.mu.RLock()
	vault, ok := p.vaults[asset]
	p.mu.RUnlock()
	if !ok {
		return big.NewInt(0)
	}
	return vault.Reserve()
}

// RewardState returns a copy of the stored schedule for a registered asset
// and whether the asset is registered.
func (p *MultiPool) RewardState(asset common.Address) (RewardState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.states[asset]
	if !ok {
		return RewardState{}, false
	}
	return *state.clone(), true
}

// UserIndex returns the index value at the participant's last settlement for
// one reward asset.
func (p *MultiPool) UserIndex(participant, asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if checkpoints, ok := p.checkpoints[asset]; ok {
		if checkpoint, ok := checkpoints[participant]; ok {
			return copyBigInt(checkpoint.UserIndex)
		}
	}
	return big.NewInt(0)
}

// LastTimeRewardApplicable clamps the supplied clock to the asset's period end.
func (p *MultiPool) LastTimeRewardApplicable(now uint64, asset common.Address) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.lastTimeApplicable(now)
	}
	return 0
}

// CurrentIndex projects the asset's cumulative index at the supplied clock.
func (p *MultiPool) CurrentIndex(now uint64, asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.currentIndex(now, p.ledger.Total())
	}
	return big.NewInt(0)
}

// PendingRewards projects a participant's claimable amount for one asset at
// the supplied clock without mutating any state.
func (p *MultiPool) PendingRewards(now uint64, participant, asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.states[asset]
	if !ok {
		return big.NewInt(0)
	}
	index := state.currentIndex(now, p.ledger.Total())
	return p.checkpoints[asset][participant].clone().pendingAt(index, p.ledger.BalanceOf(participant))
}

// PeriodRewardActive reports whether the clock falls inside the asset's
// emission window.
func (p *MultiPool) PeriodRewardActive(now uint64, asset common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.PeriodRewardActive(now)
	}
	return false
}

// PeriodRewardTotal returns the reward allocated to the asset's active period.
func (p *MultiPool) PeriodRewardTotal(asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.PeriodRewardTotal()
	}
	return big.NewInt(0)
}

// PeriodRewardEmitted returns the already-emitted share of the asset's period.
func (p *MultiPool) PeriodRewardEmitted(now uint64, asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.PeriodRewardEmitted(now)
	}
	return big.NewInt(0)
}

// PeriodRewardRemaining returns the still-unemitted share of the asset's period.
func (p *MultiPool) PeriodRewardRemaining(now uint64, asset common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if state, ok := p.states[asset]; ok {
		return state.PeriodRewardRemaining(now)
	}
	return big.NewInt(0)
}
