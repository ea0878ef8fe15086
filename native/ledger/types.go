package ledger

import "math/big"

// DepositAccount tracks an interest-bearing deposit position. Interest is
// lazy: the stored balance is only correct as of LastAccrualBlock and every
// read or write first folds in the interest earned since then.
type DepositAccount struct {
	Owner [20]byte
	// Balance is the principal plus all interest credited so far.
	Balance *big.Int
	// LastAccrualBlock records when interest was last folded into Balance.
	LastAccrualBlock uint64
	// LastLargeOpBlock records the most recent operation above the large-op
	// threshold, used to enforce the cooldown on the next large operation.
	LastLargeOpBlock uint64
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (a *DepositAccount) EnsureDefaults() {
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
}

// Config captures the ledger throttles applied to deposits and withdrawals.
type Config struct {
	// LargeOpThreshold marks an operation as "large" when the amount meets or
	// exceeds it. Zero disables the cooldown entirely.
	LargeOpThreshold *big.Int
	// CooldownBlocks must elapse between two consecutive large operations.
	CooldownBlocks uint64
}

// Clone returns a deep copy of the ledger configuration.
func (c Config) Clone() Config {
	clone := Config{CooldownBlocks: c.CooldownBlocks}
	if c.LargeOpThreshold != nil {
		clone.LargeOpThreshold = new(big.Int).Set(c.LargeOpThreshold)
	}
	return clone
}
