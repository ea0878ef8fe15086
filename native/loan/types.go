package loan

import "math/big"

// Loan captures one collateralized position. Once Repaid flips true the
// record is terminal and never mutated again.
type Loan struct {
	ID       uint64
	Borrower [20]byte
	// Principal is the amount paid out at borrow time.
	Principal *big.Int
	// Collateral is the amount locked in the vault until the loan closes.
	Collateral *big.Int
	StartBlock uint64
	// LastInterestBlock records when AccruedInterest was last extended.
	LastInterestBlock uint64
	// AccruedInterest is the interest folded in at previous touch points.
	// Interest since LastInterestBlock stays lazy until the next operation.
	AccruedInterest *big.Int
	Repaid          bool
	Liquidated      bool
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (l *Loan) EnsureDefaults() {
	if l.Principal == nil {
		l.Principal = big.NewInt(0)
	}
	if l.Collateral == nil {
		l.Collateral = big.NewInt(0)
	}
	if l.AccruedInterest == nil {
		l.AccruedInterest = big.NewInt(0)
	}
}

// ProtocolParameters is the single versioned configuration record governing
// lending. The loan book owns it; every change flows through the privileged
// setters and bumps Version.
type ProtocolParameters struct {
	InterestRateBps         uint64
	CollateralRatioPct      uint64
	LiquidationThresholdPct uint64
	LiquidationPenaltyPct   uint64
	Version                 uint64
}

// Clone returns a copy safe to hand to callers.
func (p *ProtocolParameters) Clone() *ProtocolParameters {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Governed ranges for the protocol parameters. Proposals and the privileged
// setters both validate against these bounds.
const (
	MinInterestRateBps = 100
	MaxInterestRateBps = 2_000

	MinCollateralRatioPct = 110
	MaxCollateralRatioPct = 300

	MinLiquidationThresholdPct = 105
	MaxLiquidationThresholdPct = 200
)

// MaxLoansPerBorrower bounds the per-borrower loan id list. Exceeding it is a
// typed error, never a panic.
const MaxLoansPerBorrower = 10

// LiquidationRecord is the append-only audit entry written when a loan is
// liquidated directly through the loan book.
type LiquidationRecord struct {
	LoanID     uint64
	Borrower   [20]byte
	Liquidator [20]byte
	Penalty    *big.Int
	Block      uint64
}

// Config captures the loan book limits and the parameter defaults used before
// governance writes its first update.
type Config struct {
	MinLoan       *big.Int
	MaxLoan       *big.Int
	DefaultParams ProtocolParameters
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := Config{DefaultParams: c.DefaultParams}
	if c.MinLoan != nil {
		clone.MinLoan = new(big.Int).Set(c.MinLoan)
	}
	if c.MaxLoan != nil {
		clone.MaxLoan = new(big.Int).Set(c.MaxLoan)
	}
	return clone
}

// HealthReport summarises a position's collateralization for callers.
type HealthReport struct {
	// Ratio is collateral*100/totalDebt, the raw percentage used for the
	// liquidation decision.
	Ratio uint64
	// HealthFactorPct normalizes Ratio against the liquidation threshold
	// (100 = exactly at the threshold). Display only; the liquidatable
	// decision always uses the raw ratio to avoid rounding at the boundary.
	HealthFactorPct uint64
	TotalDebt       *big.Int
	Liquidatable    bool
}
