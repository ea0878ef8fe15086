package liquidation

import "math/big"

// QueueEntry snapshots a loan's valuation at queue time. Execution pays
// rewards from these snapshotted values rather than re-pricing, so the entry
// records everything the executor needs.
type QueueEntry struct {
	Position uint64
	LoanID   uint64
	Borrower [20]byte
	// CollateralValue is the oracle-priced value of the locked collateral at
	// queue time.
	CollateralValue *big.Int
	// DebtValue is the oracle-priced value of the outstanding debt at queue
	// time.
	DebtValue *big.Int
	// HealthRatio is the raw collateral*100/debt percentage at queue time.
	HealthRatio uint64
	QueuedBlock uint64
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (q *QueueEntry) EnsureDefaults() {
	if q.CollateralValue == nil {
		q.CollateralValue = big.NewInt(0)
	}
	if q.DebtValue == nil {
		q.DebtValue = big.NewInt(0)
	}
}

// QueueCursor brackets the live region of the append-only queue. Tail is the
// next position to assign; Head trails behind, skipping executed entries.
type QueueCursor struct {
	Head uint64
	Tail uint64
}

// LiquidatorStats aggregates a liquidator's lifetime activity. All counters
// are monotonically non-decreasing.
type LiquidatorStats struct {
	Liquidator           [20]byte
	TotalLiquidations    uint64
	TotalReward          *big.Int
	LastLiquidationBlock uint64
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (s *LiquidatorStats) EnsureDefaults() {
	if s.TotalReward == nil {
		s.TotalReward = big.NewInt(0)
	}
}

// Config captures the liquidation engine economics.
type Config struct {
	// BaseAsset is the oracle feed used to value collateral and debt.
	BaseAsset string
	// MinLiquidationValue filters out positions too small to liquidate
	// profitably.
	MinLiquidationValue *big.Int
	// RewardPct of the snapshotted collateral value is paid to the executor.
	RewardPct uint64
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := Config{BaseAsset: c.BaseAsset, RewardPct: c.RewardPct}
	if c.MinLiquidationValue != nil {
		clone.MinLiquidationValue = new(big.Int).Set(c.MinLiquidationValue)
	}
	return clone
}
