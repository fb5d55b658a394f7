package rewards

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
	"stakevault/events"
)

// DiscretePoolConfig wires a discrete-accrual pool to its collaborators.
type DiscretePoolConfig struct {
	Admin       common.Address
	StakeAsset  common.Address
	RewardAsset common.Address
	StakeVault  custody.Vault
	RewardVault custody.Vault
	Emitter     events.Emitter
}

// DiscretePool is the time-free sibling of Pool: every reward deposit bumps
// the cumulative index immediately and in full, with no rate or period. A
// deposit while nothing is staked is rejected outright, because there is no
// time buffer to absorb it; it would be silently lost.
type DiscretePool struct {
	guard callGuard
	mu    sync.RWMutex

	admin       common.Address
	stakeAsset  common.Address
	rewardAsset common.Address
	stakeVault  custody.Vault
	rewardVault custody.Vault

	ledger  *StakeLedger
	index   *big.Int
	users   map[common.Address]*UserCheckpoint
	emitter events.Emitter
}

// NewDiscretePool constructs a discrete-accrual reward pool.
func NewDiscretePool(cfg DiscretePoolConfig) (*DiscretePool, error) {
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
	return &DiscretePool{
		admin:       cfg.Admin,
		stakeAsset:  cfg.StakeAsset,
		rewardAsset: cfg.RewardAsset,
		stakeVault:  cfg.StakeVault,
		rewardVault: cfg.RewardVault,
		ledger:      newStakeLedger(),
		index:       big.NewInt(0),
		users:       make(map[common.Address]*UserCheckpoint),
		emitter:     emitter,
	}, nil
}

// Stake moves amount of the stake asset from the participant into custody and
// credits their staked balance.
func (p *DiscretePool) Stake(participant common.Address, amount *big.Int) error {
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

	checkpoint := p.users[participant].clone()
	checkpoint.settle(p.index, p.ledger.BalanceOf(participant))

	received, err := p.stakeVault.MoveIn(participant, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	p.users[participant] = checkpoint
	p.ledger.credit(participant, amount)
	p.emitter.Emit(events.Staked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Unstake debits the participant's staked balance and returns the stake asset.
func (p *DiscretePool) Unstake(participant common.Address, amount *big.Int) error {
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

	checkpoint := p.users[participant].clone()
	checkpoint.settle(p.index, p.ledger.BalanceOf(participant))

	if err := p.stakeVault.MoveOut(participant, amount); err != nil {
		return err
	}

	p.users[participant] = checkpoint
	p.ledger.debit(participant, amount)
	p.emitter.Emit(events.Unstaked{Participant: participant, Amount: copyBigInt(amount)})
	return nil
}

// Claim settles and pays out the participant's accrued rewards.
func (p *DiscretePool) Claim(participant common.Address) (*big.Int, error) {
	release, err := p.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p.mu.Lock()
	defer p.mu.Unlock()

	checkpoint := p.users[participant].clone()
	checkpoint.settle(p.index, p.ledger.BalanceOf(participant))

	payout := copyBigInt(checkpoint.Pending)
	if payout.Sign() == 0 {
		p.users[participant] = checkpoint
		return big.NewInt(0), nil
	}
	checkpoint.Pending = big.NewInt(0)

	if err := p.rewardVault.MoveOut(participant, payout); err != nil {
		return nil, err
	}

	p.users[participant] = checkpoint
	p.emitter.Emit(events.RewardsClaimed{Participant: participant, Asset: p.rewardAsset, Amount: copyBigInt(payout)})
	return payout, nil
}

// DepositRewards moves amount of the reward asset from the caller into
// custody and applies it to the index as an immediate one-shot bump. It fails
// while nothing is staked.
func (p *DiscretePool) DepositRewards(caller common.Address, amount *big.Int) error {
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

	total := p.ledger.Total()
	if total.Sign() == 0 {
		return ErrNoStake
	}

	received, err := p.rewardVault.MoveIn(caller, amount)
	if err != nil {
		return err
	}
	if received == nil || received.Cmp(amount) != 0 {
		return ErrTransferMismatch
	}

	bump := new(big.Int).Mul(amount, scale)
	bump.Quo(bump, total)
	p.index = new(big.Int).Add(p.index, bump)
	p.emitter.Emit(events.RewardsDeposited{Asset: p.rewardAsset, Amount: copyBigInt(amount)})
	return nil
}

// Admin returns the designated administrator address.
func (p *DiscretePool) Admin() common.Address { return p.admin }

// StakeAsset returns the staked asset identifier.
func (p *DiscretePool) StakeAsset() common.Address { return p.stakeAsset }

// RewardAsset returns the distributed asset identifier.
func (p *DiscretePool) RewardAsset() common.Address { return p.rewardAsset }

// TotalStaked returns the aggregate staked amount.
func (p *DiscretePool) TotalStaked() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Total()
}

// BalanceOf returns a participant's staked balance.
func (p *DiscretePool) BalanceOf(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.BalanceOf(participant)
}

// RewardBalance returns the reward asset amount held in custody.
func (p *DiscretePool) RewardBalance() *big.Int {
	return p.rewardVault.Reserve()
}

// Index returns the cumulative index.
func (p *DiscretePool) Index() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyBigInt(p.index)
}

// UserIndex returns the index value at the participant's last settlement.
func (p *DiscretePool) UserIndex(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if checkpoint, ok := p.users[participant]; ok {
		return copyBigInt(checkpoint.UserIndex)
	}
	return big.NewInt(0)
}

// PendingRewards projects a participant's claimable amount without mutating
// any state.
func (p *DiscretePool) PendingRewards(participant common.Address) *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[participant].clone().pendingAt(p.index, p.ledger.BalanceOf(participant))
}
