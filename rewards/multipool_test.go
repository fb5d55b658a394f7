package rewards

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
)

var (
	rewardAssetTwo = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestMultiPool(t *testing.T) (*MultiPool, *custody.Ledger, *custody.Directory) {
	t.Helper()
	stakeVault := custody.NewLedger(stakeAsset)
	directory := custody.NewDirectory()
	for _, asset := range []common.Address{rewardAsset, rewardAssetTwo} {
		vault := custody.NewLedger(asset)
		vault.Mint(admin, e18(10_000))
		directory.Register(asset, vault)
	}
	pool, err := NewMultiPool(MultiPoolConfig{
		Admin:      admin,
		StakeAsset: stakeAsset,
		StakeVault: stakeVault,
		Vaults:     directory,
	})
	if err != nil {
		t.Fatalf("new multi pool: %v", err)
	}
	stakeVault.Mint(alice, e18(1000))
	stakeVault.Mint(bob, e18(1000))
	return pool, stakeVault, directory
}

func TestAddRewardValidations(t *testing.T) {
	pool, _, _ := newTestMultiPool(t)

	if err := pool.AddReward(alice, rewardAsset, week); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := pool.AddReward(admin, common.Address{}, week); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected ErrInvalidAsset for zero asset, got %v", err)
	}
	if err := pool.AddReward(admin, stakeAsset, week); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected ErrInvalidAsset for stake asset, got %v", err)
	}
	if err := pool.AddReward(admin, rewardAsset, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add reward: %v", err)
	}
	if err := pool.AddReward(admin, rewardAsset, week); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestRegistrationOrderPreserved(t *testing.T) {
	pool, _, _ := newTestMultiPool(t)
	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := pool.AddReward(admin, rewardAssetTwo, 86400); err != nil {
		t.Fatalf("add second: %v", err)
	}
	assets := pool.RewardAssets()
	if len(assets) != 2 || assets[0] != rewardAsset || assets[1] != rewardAssetTwo {
		t.Fatalf("unexpected registry order: %v", assets)
	}
}

func TestIndependentSchedulesPerAsset(t *testing.T) {
	pool, _, _ := newTestMultiPool(t)
	start := uint64(1_700_000_000)
	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := pool.AddReward(admin, rewardAssetTwo, 86400); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := pool.Stake(start, alice, e18(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAsset, e18(700)); err != nil {
		t.Fatalf("deposit first: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAssetTwo, e18(240)); err != nil {
		t.Fatalf("deposit second: %v", err)
	}

	one, ok := pool.RewardState(rewardAsset)
	if !ok {
		t.Fatalf("first asset missing")
	}
	two, ok := pool.RewardState(rewardAssetTwo)
	if !ok {
		t.Fatalf("second asset missing")
	}
	if one.PeriodFinish != start+week || two.PeriodFinish != start+86400 {
		t.Fatalf("unexpected period finishes: %d %d", one.PeriodFinish, two.PeriodFinish)
	}

	wantTwoRate := new(big.Int).Quo(e18(240), big.NewInt(86400))
	if two.Rate.Cmp(wantTwoRate) != 0 {
		t.Fatalf("unexpected second asset rate: got %s want %s", two.Rate, wantTwoRate)
	}
}

func TestClaimAllPaysEachAsset(t *testing.T) {
	pool, _, directory := newTestMultiPool(t)
	start := uint64(1_700_000_000)
	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := pool.AddReward(admin, rewardAssetTwo, week); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := pool.Stake(start, alice, e18(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAsset, e18(700)); err != nil {
		t.Fatalf("deposit first: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAssetTwo, e18(350)); err != nil {
		t.Fatalf("deposit second: %v", err)
	}

	day := start + 86400
	wantOne := pool.PendingRewards(day, alice, rewardAsset)
	wantTwo := pool.PendingRewards(day, alice, rewardAssetTwo)

	payouts, err := pool.ClaimAll(day, alice)
	if err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if payouts[rewardAsset].Cmp(wantOne) != 0 {
		t.Fatalf("unexpected first payout: got %s want %s", payouts[rewardAsset], wantOne)
	}
	if payouts[rewardAssetTwo].Cmp(wantTwo) != 0 {
		t.Fatalf("unexpected second payout: got %s want %s", payouts[rewardAssetTwo], wantTwo)
	}

	for _, asset := range []common.Address{rewardAsset, rewardAssetTwo} {
		vault, err := directory.VaultFor(asset)
		if err != nil {
			t.Fatalf("vault for %s: %v", asset.Hex(), err)
		}
		if vault.BalanceOf(alice).Sign() == 0 {
			t.Fatalf("no payout delivered for %s", asset.Hex())
		}
		if pool.PendingRewards(day, alice, asset).Sign() != 0 {
			t.Fatalf("pending not zeroed for %s", asset.Hex())
		}
	}
}

func TestClaimUnknownAsset(t *testing.T) {
	pool, _, _ := newTestMultiPool(t)
	if _, err := pool.Claim(1000, alice, rewardAsset); !errors.Is(err, ErrAssetUnknown) {
		t.Fatalf("expected ErrAssetUnknown, got %v", err)
	}
	if err := pool.DepositRewards(1000, admin, rewardAsset, e18(1)); !errors.Is(err, ErrAssetUnknown) {
		t.Fatalf("expected ErrAssetUnknown for deposit, got %v", err)
	}
}

func TestStakeSettlesEveryAsset(t *testing.T) {
	pool, _, _ := newTestMultiPool(t)
	start := uint64(1_700_000_000)
	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := pool.AddReward(admin, rewardAssetTwo, week); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := pool.Stake(start, alice, e18(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAsset, e18(700)); err != nil {
		t.Fatalf("deposit first: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAssetTwo, e18(350)); err != nil {
		t.Fatalf("deposit second: %v", err)
	}

	day := start + 86400
	if err := pool.Stake(day, alice, e18(50)); err != nil {
		t.Fatalf("second stake: %v", err)
	}
	for _, asset := range []common.Address{rewardAsset, rewardAssetTwo} {
		userIndex := pool.UserIndex(alice, asset)
		if userIndex.Sign() == 0 {
			t.Fatalf("checkpoint not settled for %s", asset.Hex())
		}
		state, _ := pool.RewardState(asset)
		if userIndex.Cmp(state.Index) != 0 {
			t.Fatalf("checkpoint behind committed index for %s", asset.Hex())
		}
	}
}

// stuckVault accepts deposits but refuses every payout, modelling custody
// going offline between settlement and transfer.
type stuckVault struct {
	custody.Vault
}

func (stuckVault) MoveOut(common.Address, *big.Int) error {
	return errors.New("custody offline")
}

func TestClaimAllLaterAssetFailureLeavesEarlierPaid(t *testing.T) {
	pool, _, directory := newTestMultiPool(t)
	firstVault, err := directory.VaultFor(rewardAsset)
	if err != nil {
		t.Fatalf("first vault: %v", err)
	}
	secondInner, err := directory.VaultFor(rewardAssetTwo)
	if err != nil {
		t.Fatalf("second vault: %v", err)
	}
	directory.Register(rewardAssetTwo, stuckVault{Vault: secondInner})

	start := uint64(1_700_000_000)
	if err := pool.AddReward(admin, rewardAsset, week); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := pool.AddReward(admin, rewardAssetTwo, week); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := pool.Stake(start, alice, e18(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAsset, e18(700)); err != nil {
		t.Fatalf("deposit first: %v", err)
	}
	if err := pool.DepositRewards(start, admin, rewardAssetTwo, e18(350)); err != nil {
		t.Fatalf("deposit second: %v", err)
	}

	day := start + 86400
	pendingSecond := pool.PendingRewards(day, alice, rewardAssetTwo)
	if pendingSecond.Sign() == 0 {
		t.Fatalf("expected pending rewards on second asset")
	}

	paid, err := pool.ClaimAll(day, alice)
	if err == nil {
		t.Fatal("expected claim failure on second asset")
	}
	firstPaid, ok := paid[rewardAsset]
	if !ok || firstPaid.Sign() == 0 {
		t.Fatalf("first asset not paid: %v", paid)
	}
	if _, ok := paid[rewardAssetTwo]; ok {
		t.Fatalf("failing asset reported as paid")
	}
	if got := firstVault.BalanceOf(alice); got.Cmp(firstPaid) != 0 {
		t.Fatalf("first payout not transferred: %s vs %s", got, firstPaid)
	}
	if pending := pool.PendingRewards(day, alice, rewardAsset); pending.Sign() != 0 {
		t.Fatalf("first asset still pending after payout: %s", pending)
	}
	if pending := pool.PendingRewards(day, alice, rewardAssetTwo); pending.Cmp(pendingSecond) != 0 {
		t.Fatalf("failing asset's pending changed: %s vs %s", pending, pendingSecond)
	}
}
