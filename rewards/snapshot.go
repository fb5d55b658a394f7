package rewards

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
)

// Snapshot types mirror the engine state in a stable, JSON-friendly shape so
// the persistence keeper can save and restore pools across restarts. Slices
// are sorted (or kept in registration order) so encoded snapshots are
// deterministic.

// BalanceSnapshot records one participant's staked balance.
type BalanceSnapshot struct {
	Participant common.Address `json:"participant"`
	Amount      *big.Int       `json:"amount"`
}

// RewardStateSnapshot records one reward asset's schedule and index.
type RewardStateSnapshot struct {
	Duration     uint64   `json:"duration"`
	PeriodFinish uint64   `json:"periodFinish"`
	LastUpdated  uint64   `json:"lastUpdated"`
	Rate         *big.Int `json:"rate"`
	Index        *big.Int `json:"index"`
}

// CheckpointSnapshot records one participant's checkpoint for one asset.
type CheckpointSnapshot struct {
	Participant common.Address `json:"participant"`
	UserIndex   *big.Int       `json:"userIndex"`
	Pending     *big.Int       `json:"pending"`
}

// PoolSnapshot captures the full state of a single-asset pool.
type PoolSnapshot struct {
	Balances    []BalanceSnapshot    `json:"balances"`
	State       RewardStateSnapshot  `json:"state"`
	Checkpoints []CheckpointSnapshot `json:"checkpoints"`
}

// AssetSnapshot captures one registered asset inside a multi-asset pool.
type AssetSnapshot struct {
	Asset       common.Address       `json:"asset"`
	State       RewardStateSnapshot  `json:"state"`
	Checkpoints []CheckpointSnapshot `json:"checkpoints"`
}

// MultiPoolSnapshot captures the full state of a multi-asset pool. Assets are
// listed in registration order, which the restore preserves.
type MultiPoolSnapshot struct {
	Balances []BalanceSnapshot `json:"balances"`
	Assets   []AssetSnapshot   `json:"assets"`
}

// DiscretePoolSnapshot captures the full state of a discrete pool.
type DiscretePoolSnapshot struct {
	Balances    []BalanceSnapshot    `json:"balances"`
	Index       *big.Int             `json:"index"`
	Checkpoints []CheckpointSnapshot `json:"checkpoints"`
}

func snapshotState(s *RewardState) RewardStateSnapshot {
	return RewardStateSnapshot{
		Duration:     s.Duration,
		PeriodFinish: s.PeriodFinish,
		LastUpdated:  s.LastUpdated,
		Rate:         copyBigInt(s.Rate),
		Index:        copyBigInt(s.Index),
	}
}

func restoreState(snap RewardStateSnapshot) *RewardState {
	return &RewardState{
		Duration:     snap.Duration,
		PeriodFinish: snap.PeriodFinish,
		LastUpdated:  snap.LastUpdated,
		Rate:         copyBigInt(snap.Rate),
		Index:        copyBigInt(snap.Index),
	}
}

func snapshotBalances(l *StakeLedger) []BalanceSnapshot {
	out := make([]BalanceSnapshot, 0, len(l.balances))
	for participant, amount := range l.balances {
		out = append(out, BalanceSnapshot{Participant: participant, Amount: copyBigInt(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Participant.Hex() < out[j].Participant.Hex()
	})
	return out
}

func restoreBalances(snaps []BalanceSnapshot) *StakeLedger {
	ledger := newStakeLedger()
	for _, snap := range snaps {
		if snap.Amount == nil || snap.Amount.Sign() <= 0 {
			continue
		}
		ledger.credit(snap.Participant, snap.Amount)
	}
	return ledger
}

func snapshotCheckpoints(users map[common.Address]*UserCheckpoint) []CheckpointSnapshot {
	out := make([]CheckpointSnapshot, 0, len(users))
	for participant, checkpoint := range users {
		out = append(out, CheckpointSnapshot{
			Participant: participant,
			UserIndex:   copyBigInt(checkpoint.UserIndex),
			Pending:     copyBigInt(checkpoint.Pending),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Participant.Hex() < out[j].Participant.Hex()
	})
	return out
}

func restoreCheckpoints(snaps []CheckpointSnapshot) map[common.Address]*UserCheckpoint {
	users := make(map[common.Address]*UserCheckpoint, len(snaps))
	for _, snap := range snaps {
		users[snap.Participant] = &UserCheckpoint{
			UserIndex: copyBigInt(snap.UserIndex),
			Pending:   copyBigInt(snap.Pending),
		}
	}
	return users
}

// Snapshot captures the pool's current state.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PoolSnapshot{
		Balances:    snapshotBalances(p.ledger),
		State:       snapshotState(p.state),
		Checkpoints: snapshotCheckpoints(p.users),
	}
}

// Restore replaces the pool's state with the snapshot's.
func (p *Pool) Restore(snap PoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger = restoreBalances(snap.Balances)
	p.state = restoreState(snap.State)
	p.users = restoreCheckpoints(snap.Checkpoints)
}

// Snapshot captures the pool's current state.
func (p *MultiPool) Snapshot() MultiPoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	assets := make([]AssetSnapshot, 0, len(p.order))
	for _, asset := range p.order {
		assets = append(assets, AssetSnapshot{
			Asset:       asset,
			State:       snapshotState(p.states[asset]),
			Checkpoints: snapshotCheckpoints(p.checkpoints[asset]),
		})
	}
	return MultiPoolSnapshot{
		Balances: snapshotBalances(p.ledger),
		Assets:   assets,
	}
}

// Restore replaces the pool's state with the snapshot's, resolving custody
// for every registered asset through the configured provider.
func (p *MultiPool) Restore(snap MultiPoolSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	order := make([]common.Address, 0, len(snap.Assets))
	states := make(map[common.Address]*RewardState, len(snap.Assets))
	vaults := make(map[common.Address]custody.Vault, len(snap.Assets))
	checkpoints := make(map[common.Address]map[common.Address]*UserCheckpoint, len(snap.Assets))
	for _, asset := range snap.Assets {
		vault, err := p.provider.VaultFor(asset.Asset)
		if err != nil {
			return err
		}
		order = append(order, asset.Asset)
		states[asset.Asset] = restoreState(asset.State)
		vaults[asset.Asset] = vault
		checkpoints[asset.Asset] = restoreCheckpoints(asset.Checkpoints)
	}
	p.ledger = restoreBalances(snap.Balances)
	p.order = order
	p.states = states
	p.vaults = vaults
	p.checkpoints = checkpoints
	return nil
}

// Snapshot captures the pool's current state.
func (p *DiscretePool) Snapshot() DiscretePoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return DiscretePoolSnapshot{
		Balances:    snapshotBalances(p.ledger),
		Index:       copyBigInt(p.index),
		Checkpoints: snapshotCheckpoints(p.users),
	}
}

// Restore replaces the pool's state with the snapshot's.
func (p *DiscretePool) Restore(snap DiscretePoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger = restoreBalances(snap.Balances)
	p.index = copyBigInt(snap.Index)
	p.users = restoreCheckpoints(snap.Checkpoints)
}
