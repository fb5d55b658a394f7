package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeStaked is emitted when a participant deposits stake.
	TypeStaked = "rewards.staked"
	// TypeUnstaked is emitted when a participant withdraws stake.
	TypeUnstaked = "rewards.unstaked"
	// TypeRewardsClaimed is emitted once per asset actually paid out.
	TypeRewardsClaimed = "rewards.claimed"
	// TypeRewardsDeposited is emitted when new rewards enter the schedule.
	TypeRewardsDeposited = "rewards.deposited"
	// TypeRewardAdded is emitted when a reward asset is registered.
	TypeRewardAdded = "rewards.asset.added"
	// TypeDurationUpdated is emitted when a period duration changes.
	TypeDurationUpdated = "rewards.duration.updated"
)

// Staked captures a stake deposit.
type Staked struct {
	Participant common.Address
	Amount      *big.Int
}

// EventType implements the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Unstaked captures a stake withdrawal.
type Unstaked struct {
	Participant common.Address
	Amount      *big.Int
}

// EventType implements the Event interface.
func (Unstaked) EventType() string { return TypeUnstaked }

// RewardsClaimed captures a payout of accrued rewards for one asset. Asset is
// the zero address for the single-asset and discrete engines.
type RewardsClaimed struct {
	Participant common.Address
	Asset       common.Address
	Amount      *big.Int
}

// EventType implements the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// RewardsDeposited captures a reward top-up entering the emission schedule.
type RewardsDeposited struct {
	Asset  common.Address
	Amount *big.Int
}

// EventType implements the Event interface.
func (RewardsDeposited) EventType() string { return TypeRewardsDeposited }

// RewardAdded captures the registration of a new reward asset.
type RewardAdded struct {
	Asset    common.Address
	Duration uint64
}

// EventType implements the Event interface.
func (RewardAdded) EventType() string { return TypeRewardAdded }

// DurationUpdated captures a change to a reward asset's period duration.
type DurationUpdated struct {
	Asset    common.Address
	Duration uint64
}

// EventType implements the Event interface.
func (DurationUpdated) EventType() string { return TypeDurationUpdated }
