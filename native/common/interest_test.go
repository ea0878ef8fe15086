package common

import (
	"math/big"
	"testing"
)

func TestAccrueInterestZeroElapsed(t *testing.T) {
	got := AccrueInterest(big.NewInt(1_000_000), 500, 0)
	if got.Sign() != 0 {
		t.Fatalf("expected zero interest for zero elapsed blocks, got %s", got)
	}
}

func TestAccrueInterestFullYear(t *testing.T) {
	balance := big.NewInt(1_000_000)
	got := AccrueInterest(balance, 500, BlocksPerYear)
	// balance * 500 / 10_000 over exactly one year of blocks
	want := big.NewInt(50_000)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s interest over one year, got %s", want, got)
	}
}

func TestAccrueInterestTruncates(t *testing.T) {
	// Annual interest on 3 units at 5% truncates to zero before scaling.
	got := AccrueInterest(big.NewInt(3), 500, BlocksPerYear)
	if got.Sign() != 0 {
		t.Fatalf("expected truncation to zero, got %s", got)
	}
}

func TestAccrueInterestPartialYear(t *testing.T) {
	balance := big.NewInt(1_000_000)
	got := AccrueInterest(balance, 500, BlocksPerYear/2)
	want := big.NewInt(25_000)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s for half a year, got %s", want, got)
	}
}

func TestAccrueInterestNilBalance(t *testing.T) {
	if got := AccrueInterest(nil, 500, BlocksPerYear); got.Sign() != 0 {
		t.Fatalf("expected zero for nil balance, got %s", got)
	}
}

func TestGuard(t *testing.T) {
	pauses := NewPauses()
	if err := Guard(pauses, "ledger"); err != nil {
		t.Fatalf("unexpected error on unpaused module: %v", err)
	}
	pauses.SetPaused("ledger", true)
	if err := Guard(pauses, "ledger"); err != ErrModulePaused {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	pauses.SetPaused("ledger", false)
	if err := Guard(pauses, "ledger"); err != nil {
		t.Fatalf("unexpected error after unpause: %v", err)
	}
}
