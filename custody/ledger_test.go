package custody

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	asset  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	holder = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	other  = common.HexToAddress("0x0000000000000000000000000000000000000c03")
)

func TestLedgerMoveInMoveOut(t *testing.T) {
	ledger := NewLedger(asset)
	ledger.Mint(holder, big.NewInt(1000))

	received, err := ledger.MoveIn(holder, big.NewInt(400))
	if err != nil {
		t.Fatalf("move in: %v", err)
	}
	if received.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected received amount: %s", received)
	}
	if ledger.BalanceOf(holder).Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected holder balance: %s", ledger.BalanceOf(holder))
	}
	if ledger.Reserve().Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected reserve: %s", ledger.Reserve())
	}

	if err := ledger.MoveOut(other, big.NewInt(150)); err != nil {
		t.Fatalf("move out: %v", err)
	}
	if ledger.BalanceOf(other).Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected recipient balance: %s", ledger.BalanceOf(other))
	}
	if ledger.Reserve().Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected reserve after move out: %s", ledger.Reserve())
	}
}

func TestLedgerRejectsOverdraw(t *testing.T) {
	ledger := NewLedger(asset)
	ledger.Mint(holder, big.NewInt(10))

	if _, err := ledger.MoveIn(holder, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.MoveOut(holder, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on empty reserve, got %v", err)
	}
	if _, err := ledger.MoveIn(holder, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDirectoryLookup(t *testing.T) {
	directory := NewDirectory()
	if _, err := directory.VaultFor(asset); err == nil {
		t.Fatalf("expected error for unregistered asset")
	}
	ledger := NewLedger(asset)
	directory.Register(asset, ledger)
	vault, err := directory.VaultFor(asset)
	if err != nil {
		t.Fatalf("vault for: %v", err)
	}
	if vault != Vault(ledger) {
		t.Fatalf("unexpected vault returned")
	}
}
