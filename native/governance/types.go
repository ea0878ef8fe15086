package governance

import "math/big"

// Governed parameter identifiers. Proposals carry one of these as their
// target.
const (
	ParamInterestRate         = "interest-rate"
	ParamCollateralRatio      = "collateral-ratio"
	ParamLiquidationThreshold = "liquidation-threshold"
)

const (
	// timeMultiplierWindow is the block span per time-multiplier step.
	timeMultiplierWindow = 144
	// timeMultiplierCap bounds the time multiplier in tenths.
	timeMultiplierCap = 10
	// lockBonusWindow is the block span per percentage point of lock bonus.
	lockBonusWindow = 1_440
	// MaxLockBlocks bounds a requested stake lock, four years of ten-minute
	// blocks. It also keeps e.height+lockBlocks from wrapping.
	MaxLockBlocks = 4 * 52_560
)

// Stake records an owner's locked voting stake. Power holds the base voting
// power computed at the last power-changing action; reads recompute it lazily
// from LastStakeBlock.
type Stake struct {
	Owner          [20]byte
	Amount         *big.Int
	LastStakeBlock uint64
	LockEnd        uint64
	Power          *big.Int
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (s *Stake) EnsureDefaults() {
	if s.Amount == nil {
		s.Amount = big.NewInt(0)
	}
	if s.Power == nil {
		s.Power = big.NewInt(0)
	}
}

// Delegation assigns a delegator's effective power, snapshotted at delegation
// time, to a delegate. It decays a fixed block window after DelegatedBlock.
type Delegation struct {
	Delegator      [20]byte
	Delegate       [20]byte
	DelegatedBlock uint64
	Power          *big.Int
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (d *Delegation) EnsureDefaults() {
	if d.Power == nil {
		d.Power = big.NewInt(0)
	}
}

// Proposal is a governed parameter change moving through the voting
// lifecycle. It is terminal once Executed or past its Deadline.
type Proposal struct {
	ID           uint64
	Proposer     [20]byte
	Title        string
	Description  string
	ParamType    string
	NewValue     uint64
	VotesFor     *big.Int
	VotesAgainst *big.Int
	StartBlock   uint64
	EndBlock     uint64
	Deadline     uint64
	Executed     bool
	VoterCount   uint64
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (p *Proposal) EnsureDefaults() {
	if p.VotesFor == nil {
		p.VotesFor = big.NewInt(0)
	}
	if p.VotesAgainst == nil {
		p.VotesAgainst = big.NewInt(0)
	}
}

// Vote is a single immutable ballot on a proposal.
type Vote struct {
	ProposalID uint64
	Voter      [20]byte
	InFavor    bool
	Power      *big.Int
	Block      uint64
}

// ExecutionRecord captures a successfully applied proposal for audit.
type ExecutionRecord struct {
	ProposalID uint64
	ParamType  string
	NewValue   uint64
	Block      uint64
}

// Config captures the governance process parameters.
type Config struct {
	// MinProposalPower is the effective power required to open a proposal.
	MinProposalPower *big.Int
	// MinVotingPower is the effective power required to cast a vote.
	MinVotingPower *big.Int
	// VotingPeriodBlocks is the length of the voting window.
	VotingPeriodBlocks uint64
	// MaxProposalLifetime bounds how long after creation a closed proposal
	// may still be executed.
	MaxProposalLifetime uint64
	// QuorumPct of total voting power must participate for execution.
	QuorumPct uint64
	// ApprovalPct of cast votes must be in favor for execution.
	ApprovalPct uint64
	// DelegationDecayBlocks is the window after which a delegation lapses.
	DelegationDecayBlocks uint64
}

// DefaultConfig returns the standard governance process parameters.
func DefaultConfig() Config {
	return Config{
		MinProposalPower:      big.NewInt(1_000),
		MinVotingPower:        big.NewInt(1),
		VotingPeriodBlocks:    1_440,
		MaxProposalLifetime:   4_320,
		QuorumPct:             30,
		ApprovalPct:           51,
		DelegationDecayBlocks: 4_320,
	}
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := c
	if c.MinProposalPower != nil {
		clone.MinProposalPower = new(big.Int).Set(c.MinProposalPower)
	}
	if c.MinVotingPower != nil {
		clone.MinVotingPower = new(big.Int).Set(c.MinVotingPower)
	}
	return clone
}
