package governance

import (
	"errors"
	"fmt"
	"math/big"

	"lendfi/core/events"
	"lendfi/core/types"
	"lendfi/native/common"
	"lendfi/native/loan"
)

const moduleName = "governance"

var (
	// ErrNilState indicates the engine has not been wired to a state backend.
	ErrNilState = errors.New("governance engine: state not configured")
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("governance engine: invalid amount")
	// ErrNoStake indicates the owner has no stake record.
	ErrNoStake = errors.New("governance engine: no stake")
	// ErrInsufficientStake indicates the unstake amount exceeds the stake.
	ErrInsufficientStake = errors.New("governance engine: insufficient stake")
	// ErrLockActive indicates the stake lock has not expired.
	ErrLockActive = errors.New("governance engine: stake still locked")
	// ErrSelfDelegation rejects delegating to oneself.
	ErrSelfDelegation = errors.New("governance engine: cannot delegate to self")
	// ErrAlreadyDelegated indicates an active outbound delegation exists.
	ErrAlreadyDelegated = errors.New("governance engine: already delegated")
	// ErrNoDelegation indicates there is no delegation to revoke.
	ErrNoDelegation = errors.New("governance engine: no active delegation")
	// ErrInsufficientPower indicates the caller's effective power is below
	// the operation's minimum.
	ErrInsufficientPower = errors.New("governance engine: insufficient voting power")
	// ErrInvalidParamType rejects proposals targeting an unknown parameter.
	ErrInvalidParamType = errors.New("governance engine: invalid parameter type")
	// ErrValueOutOfRange rejects proposal values or lock durations outside
	// the permitted range.
	ErrValueOutOfRange = errors.New("governance engine: value out of range")
	// ErrEmptyTitle rejects proposals without a title.
	ErrEmptyTitle = errors.New("governance engine: empty title")
	// ErrProposalNotFound indicates the proposal id is unknown.
	ErrProposalNotFound = errors.New("governance engine: proposal not found")
	// ErrVotingClosed indicates the voting window has ended.
	ErrVotingClosed = errors.New("governance engine: voting window closed")
	// ErrVotingOpen indicates the voting window has not ended yet.
	ErrVotingOpen = errors.New("governance engine: voting window still open")
	// ErrAlreadyVoted indicates the voter already cast a ballot.
	ErrAlreadyVoted = errors.New("governance engine: already voted")
	// ErrAlreadyExecuted indicates the proposal is terminal.
	ErrAlreadyExecuted = errors.New("governance engine: proposal already executed")
	// ErrProposalExpired indicates the execution deadline has passed.
	ErrProposalExpired = errors.New("governance engine: proposal expired")
	// ErrQuorumNotMet indicates participation fell short of quorum.
	ErrQuorumNotMet = errors.New("governance engine: quorum not met")
	// ErrApprovalNotMet indicates the in-favor share fell short.
	ErrApprovalNotMet = errors.New("governance engine: approval threshold not met")
)

type engineState interface {
	GovGetStake(addr [20]byte) (*Stake, error)
	GovPutStake(stake *Stake) error
	GovDeleteStake(addr [20]byte) error
	GovGetDelegation(delegator [20]byte) (*Delegation, error)
	GovPutDelegation(d *Delegation) error
	GovDeleteDelegation(delegator [20]byte) error
	GovDelegators(delegate [20]byte) ([][20]byte, error)
	GovSetDelegators(delegate [20]byte, delegators [][20]byte) error
	GovInboundPower(delegate [20]byte) (*big.Int, error)
	GovSetInboundPower(delegate [20]byte, power *big.Int) error
	GovTotalPower() (*big.Int, error)
	GovSetTotalPower(total *big.Int) error
	GovGetProposal(id uint64) (*Proposal, error)
	GovPutProposal(p *Proposal) error
	GovNextProposalID() (uint64, error)
	GovGetVote(proposalID uint64, voter [20]byte) (*Vote, error)
	GovPutVote(v *Vote) error
	GovAppendExecution(rec *ExecutionRecord) error
	GovExecutionCount() (uint64, error)
	GovExecutionAt(index uint64) (*ExecutionRecord, error)
}

// LoanParams is the privileged parameter surface of the loan engine. The
// governance engine is wired to it explicitly at configuration time.
type LoanParams interface {
	UpdateInterestRate(caller [20]byte, rateBps uint64) error
	UpdateCollateralRatio(caller [20]byte, ratioPct uint64) error
	UpdateLiquidationThreshold(caller [20]byte, thresholdPct uint64) error
}

// Engine runs the staking, delegation, and proposal lifecycle.
type Engine struct {
	state    engineState
	loans    LoanParams
	transfer common.TransferService
	vault    [20]byte
	identity [20]byte
	emitter  events.Emitter
	pauses   common.PauseView
	height   uint64
	cfg      Config
}

// NewEngine constructs a governance engine with the supplied configuration.
// Zero-valued config fields fall back to the defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinProposalPower == nil {
		cfg.MinProposalPower = def.MinProposalPower
	}
	if cfg.MinVotingPower == nil {
		cfg.MinVotingPower = def.MinVotingPower
	}
	if cfg.VotingPeriodBlocks == 0 {
		cfg.VotingPeriodBlocks = def.VotingPeriodBlocks
	}
	if cfg.MaxProposalLifetime == 0 {
		cfg.MaxProposalLifetime = def.MaxProposalLifetime
	}
	if cfg.QuorumPct == 0 {
		cfg.QuorumPct = def.QuorumPct
	}
	if cfg.ApprovalPct == 0 {
		cfg.ApprovalPct = def.ApprovalPct
	}
	if cfg.DelegationDecayBlocks == 0 {
		cfg.DelegationDecayBlocks = def.DelegationDecayBlocks
	}
	return &Engine{cfg: cfg.Clone(), emitter: events.NoopEmitter{}}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLoanBook wires the loan engine whose parameters proposals mutate.
func (e *Engine) SetLoanBook(loans LoanParams) { e.loans = loans }

// SetTransfer wires balance movement for stake custody.
func (e *Engine) SetTransfer(transfer common.TransferService, vault [20]byte) {
	e.transfer = transfer
	e.vault = vault
}

// SetIdentity records the caller identity this engine presents to the loan
// engine's privileged setters.
func (e *Engine) SetIdentity(addr [20]byte) { e.identity = addr }

// SetEmitter wires the event emitter. Passing nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause switchboard.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetBlockHeight records the logical clock used for lock, window, and decay
// computations.
func (e *Engine) SetBlockHeight(height uint64) { e.height = height }

// Stake locks value for voting power. Repeated stakes merge into one record:
// the lock end extends to the later of the existing and requested locks, and
// the time multiplier restarts from the current block.
func (e *Engine) Stake(owner [20]byte, amount *big.Int, lockBlocks uint64) (*Stake, error) {
	if e.state == nil || e.transfer == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if lockBlocks > MaxLockBlocks {
		return nil, ErrValueOutOfRange
	}
	stake, err := e.state.GovGetStake(owner)
	if err != nil {
		return nil, err
	}
	if stake == nil {
		stake = &Stake{Owner: owner}
	}
	stake.EnsureDefaults()
	if err := e.transfer.Transfer(owner, e.vault, amount); err != nil {
		return nil, fmt.Errorf("governance engine: stake transfer: %w", err)
	}
	stake.Amount = new(big.Int).Add(stake.Amount, amount)
	stake.LastStakeBlock = e.height
	if lockEnd := e.height + lockBlocks; lockEnd > stake.LockEnd {
		stake.LockEnd = lockEnd
	}
	oldPower := stake.Power
	stake.Power = e.basePower(stake)
	if err := e.applyPowerDelta(oldPower, stake.Power); err != nil {
		return nil, err
	}
	if err := e.state.GovPutStake(stake); err != nil {
		return nil, err
	}
	if err := e.refreshInbound(owner); err != nil {
		return nil, err
	}
	e.emitter.Emit(stakeEvent("governance.staked", owner, amount, stake))
	return stake, nil
}

// Unstake releases value after the lock expires. A partial unstake restarts
// the time multiplier, so the remaining stake earns power as if freshly
// staked.
func (e *Engine) Unstake(owner [20]byte, amount *big.Int) (*Stake, error) {
	if e.state == nil || e.transfer == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	stake, err := e.state.GovGetStake(owner)
	if err != nil {
		return nil, err
	}
	if stake == nil {
		return nil, ErrNoStake
	}
	stake.EnsureDefaults()
	if amount.Cmp(stake.Amount) > 0 {
		return nil, ErrInsufficientStake
	}
	if e.height < stake.LockEnd {
		return nil, ErrLockActive
	}
	if err := e.transfer.Transfer(e.vault, owner, amount); err != nil {
		return nil, fmt.Errorf("governance engine: unstake transfer: %w", err)
	}
	oldPower := stake.Power
	stake.Amount = new(big.Int).Sub(stake.Amount, amount)
	if stake.Amount.Sign() == 0 {
		if err := e.applyPowerDelta(oldPower, big.NewInt(0)); err != nil {
			return nil, err
		}
		if err := e.state.GovDeleteStake(owner); err != nil {
			return nil, err
		}
		if err := e.refreshInbound(owner); err != nil {
			return nil, err
		}
		e.emitter.Emit(stakeEvent("governance.unstaked", owner, amount, stake))
		return nil, nil
	}
	stake.LastStakeBlock = e.height
	stake.Power = e.basePower(stake)
	if err := e.applyPowerDelta(oldPower, stake.Power); err != nil {
		return nil, err
	}
	if err := e.state.GovPutStake(stake); err != nil {
		return nil, err
	}
	if err := e.refreshInbound(owner); err != nil {
		return nil, err
	}
	e.emitter.Emit(stakeEvent("governance.unstaked", owner, amount, stake))
	return stake, nil
}

// Delegate assigns the owner's current effective power to another address.
// The moved power is snapshotted at delegation time and lapses after the
// decay window.
func (e *Engine) Delegate(owner, delegate [20]byte) (*Delegation, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if owner == delegate {
		return nil, ErrSelfDelegation
	}
	existing, err := e.state.GovGetDelegation(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !e.decayed(existing) {
			return nil, ErrAlreadyDelegated
		}
		if err := e.removeDelegation(existing); err != nil {
			return nil, err
		}
	}
	power, err := e.EffectivePower(owner)
	if err != nil {
		return nil, err
	}
	if power.Sign() <= 0 {
		return nil, ErrInsufficientPower
	}
	d := &Delegation{
		Delegator:      owner,
		Delegate:       delegate,
		DelegatedBlock: e.height,
		Power:          power,
	}
	if err := e.state.GovPutDelegation(d); err != nil {
		return nil, err
	}
	delegators, err := e.state.GovDelegators(delegate)
	if err != nil {
		return nil, err
	}
	found := false
	for _, addr := range delegators {
		if addr == owner {
			found = true
			break
		}
	}
	if !found {
		delegators = append(delegators, owner)
		if err := e.state.GovSetDelegators(delegate, delegators); err != nil {
			return nil, err
		}
	}
	if err := e.refreshInbound(delegate); err != nil {
		return nil, err
	}
	e.emitter.Emit(delegationEvent("governance.delegated", d))
	return d, nil
}

// RevokeDelegation removes the owner's outbound delegation and restores the
// delegated power to the owner's own tally.
func (e *Engine) RevokeDelegation(owner [20]byte) error {
	if e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	d, err := e.state.GovGetDelegation(owner)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrNoDelegation
	}
	if err := e.removeDelegation(d); err != nil {
		return err
	}
	if err := e.refreshInbound(d.Delegate); err != nil {
		return err
	}
	e.emitter.Emit(delegationEvent("governance.revoked", d))
	return nil
}

// EffectivePower returns the voting power an address wields right now: its
// own lazily recomputed base power plus the inbound delegated tally. While an
// outbound delegation is live the address wields nothing, inbound tally
// included, since the full effective power was snapshotted into the delegate
// at delegation time. The inbound tally is refreshed only by power-changing
// actions, so it can lag after a delegation decays.
func (e *Engine) EffectivePower(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	outbound, err := e.state.GovGetDelegation(addr)
	if err != nil {
		return nil, err
	}
	if outbound != nil && !e.decayed(outbound) {
		return big.NewInt(0), nil
	}
	power := big.NewInt(0)
	stake, err := e.state.GovGetStake(addr)
	if err != nil {
		return nil, err
	}
	if stake != nil {
		stake.EnsureDefaults()
		power = e.basePower(stake)
	}
	inbound, err := e.state.GovInboundPower(addr)
	if err != nil {
		return nil, err
	}
	if inbound != nil {
		power = new(big.Int).Add(power, inbound)
	}
	return power, nil
}

// TotalVotingPower returns the tracked sum of all base stake powers.
func (e *Engine) TotalVotingPower() (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	total, err := e.state.GovTotalPower()
	if err != nil {
		return nil, err
	}
	if total == nil {
		total = big.NewInt(0)
	}
	return total, nil
}

// CreateProposal opens a governed parameter change for voting.
func (e *Engine) CreateProposal(proposer [20]byte, title, description, paramType string, newValue uint64) (*Proposal, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateParam(paramType, newValue); err != nil {
		return nil, err
	}
	power, err := e.EffectivePower(proposer)
	if err != nil {
		return nil, err
	}
	if power.Cmp(e.cfg.MinProposalPower) < 0 {
		return nil, ErrInsufficientPower
	}
	id, err := e.state.GovNextProposalID()
	if err != nil {
		return nil, err
	}
	p := &Proposal{
		ID:           id,
		Proposer:     proposer,
		Title:        title,
		Description:  description,
		ParamType:    paramType,
		NewValue:     newValue,
		VotesFor:     big.NewInt(0),
		VotesAgainst: big.NewInt(0),
		StartBlock:   e.height,
		EndBlock:     e.height + e.cfg.VotingPeriodBlocks,
		Deadline:     e.height + e.cfg.MaxProposalLifetime,
	}
	if err := e.state.GovPutProposal(p); err != nil {
		return nil, err
	}
	e.emitter.Emit(proposalEvent("governance.proposed", p))
	return p, nil
}

// VoteOnProposal casts an immutable ballot weighted by the voter's current
// effective power.
func (e *Engine) VoteOnProposal(voter [20]byte, proposalID uint64, inFavor bool) (*Vote, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	p, err := e.state.GovGetProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProposalNotFound
	}
	p.EnsureDefaults()
	if e.height > p.EndBlock {
		return nil, ErrVotingClosed
	}
	existing, err := e.state.GovGetVote(proposalID, voter)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyVoted
	}
	power, err := e.EffectivePower(voter)
	if err != nil {
		return nil, err
	}
	if power.Cmp(e.cfg.MinVotingPower) < 0 {
		return nil, ErrInsufficientPower
	}
	v := &Vote{
		ProposalID: proposalID,
		Voter:      voter,
		InFavor:    inFavor,
		Power:      power,
		Block:      e.height,
	}
	if err := e.state.GovPutVote(v); err != nil {
		return nil, err
	}
	if inFavor {
		p.VotesFor = new(big.Int).Add(p.VotesFor, power)
	} else {
		p.VotesAgainst = new(big.Int).Add(p.VotesAgainst, power)
	}
	p.VoterCount++
	if err := e.state.GovPutProposal(p); err != nil {
		return nil, err
	}
	e.emitter.Emit(voteEvent(v))
	return v, nil
}

// ExecuteProposal applies a closed, quorum-meeting proposal to the loan
// engine's parameters. Anyone may trigger execution.
func (e *Engine) ExecuteProposal(proposalID uint64) error {
	if e.state == nil {
		return ErrNilState
	}
	if e.loans == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	p, err := e.state.GovGetProposal(proposalID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProposalNotFound
	}
	p.EnsureDefaults()
	if p.Executed {
		return ErrAlreadyExecuted
	}
	if e.height <= p.EndBlock {
		return ErrVotingOpen
	}
	if e.height > p.Deadline {
		return ErrProposalExpired
	}
	totalVotes := new(big.Int).Add(p.VotesFor, p.VotesAgainst)
	total, err := e.TotalVotingPower()
	if err != nil {
		return err
	}
	if totalVotes.Sign() == 0 {
		return ErrQuorumNotMet
	}
	// totalVotes*100 >= total*quorumPct
	lhs := new(big.Int).Mul(totalVotes, big.NewInt(100))
	rhs := new(big.Int).Mul(total, new(big.Int).SetUint64(e.cfg.QuorumPct))
	if lhs.Cmp(rhs) < 0 {
		return ErrQuorumNotMet
	}
	lhs = new(big.Int).Mul(p.VotesFor, big.NewInt(100))
	rhs = new(big.Int).Mul(totalVotes, new(big.Int).SetUint64(e.cfg.ApprovalPct))
	if lhs.Cmp(rhs) < 0 {
		return ErrApprovalNotMet
	}
	switch p.ParamType {
	case ParamInterestRate:
		err = e.loans.UpdateInterestRate(e.identity, p.NewValue)
	case ParamCollateralRatio:
		err = e.loans.UpdateCollateralRatio(e.identity, p.NewValue)
	case ParamLiquidationThreshold:
		err = e.loans.UpdateLiquidationThreshold(e.identity, p.NewValue)
	default:
		err = ErrInvalidParamType
	}
	if err != nil {
		return err
	}
	p.Executed = true
	if err := e.state.GovPutProposal(p); err != nil {
		return err
	}
	rec := &ExecutionRecord{
		ProposalID: p.ID,
		ParamType:  p.ParamType,
		NewValue:   p.NewValue,
		Block:      e.height,
	}
	if err := e.state.GovAppendExecution(rec); err != nil {
		return err
	}
	e.emitter.Emit(proposalEvent("governance.executed", p))
	return nil
}

// Proposal returns a proposal by id, or nil when absent.
func (e *Engine) Proposal(id uint64) (*Proposal, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	p, err := e.state.GovGetProposal(id)
	if err != nil {
		return nil, err
	}
	if p != nil {
		p.EnsureDefaults()
	}
	return p, nil
}

// StakeOf returns the owner's stake record, or nil when absent.
func (e *Engine) StakeOf(owner [20]byte) (*Stake, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stake, err := e.state.GovGetStake(owner)
	if err != nil {
		return nil, err
	}
	if stake != nil {
		stake.EnsureDefaults()
	}
	return stake, nil
}

// DelegationOf returns the owner's outbound delegation, or nil when absent.
func (e *Engine) DelegationOf(owner [20]byte) (*Delegation, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	d, err := e.state.GovGetDelegation(owner)
	if err != nil {
		return nil, err
	}
	if d != nil {
		d.EnsureDefaults()
	}
	return d, nil
}

// ExecutionHistory returns all recorded executions in order.
func (e *Engine) ExecutionHistory() ([]*ExecutionRecord, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	count, err := e.state.GovExecutionCount()
	if err != nil {
		return nil, err
	}
	records := make([]*ExecutionRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		rec, err := e.state.GovExecutionAt(i)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// basePower computes a stake's voting power at the current block:
// amount boosted by a capped time multiplier, then by a lock bonus derived
// from the remaining lock.
func (e *Engine) basePower(stake *Stake) *big.Int {
	if stake.Amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	var blocksStaked uint64
	if e.height > stake.LastStakeBlock {
		blocksStaked = e.height - stake.LastStakeBlock
	}
	mult := blocksStaked / timeMultiplierWindow
	if mult > timeMultiplierCap {
		mult = timeMultiplierCap
	}
	var lockRemaining uint64
	if stake.LockEnd > e.height {
		lockRemaining = stake.LockEnd - e.height
	}
	lockBonus := lockRemaining / lockBonusWindow

	boost := new(big.Int).Mul(stake.Amount, new(big.Int).SetUint64(mult))
	boost.Quo(boost, big.NewInt(10))
	power := new(big.Int).Add(stake.Amount, boost)
	power.Mul(power, new(big.Int).SetUint64(100+lockBonus))
	return power.Quo(power, big.NewInt(100))
}

func (e *Engine) decayed(d *Delegation) bool {
	return e.height >= d.DelegatedBlock+e.cfg.DelegationDecayBlocks
}

func (e *Engine) applyPowerDelta(oldPower, newPower *big.Int) error {
	total, err := e.TotalVotingPower()
	if err != nil {
		return err
	}
	total = new(big.Int).Add(total, newPower)
	total.Sub(total, oldPower)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	return e.state.GovSetTotalPower(total)
}

// removeDelegation deletes a delegation record and drops the delegator from
// the delegate's inbound index.
func (e *Engine) removeDelegation(d *Delegation) error {
	if err := e.state.GovDeleteDelegation(d.Delegator); err != nil {
		return err
	}
	delegators, err := e.state.GovDelegators(d.Delegate)
	if err != nil {
		return err
	}
	kept := delegators[:0]
	for _, addr := range delegators {
		if addr != d.Delegator {
			kept = append(kept, addr)
		}
	}
	return e.state.GovSetDelegators(d.Delegate, kept)
}

// refreshInbound recomputes an address's inbound delegated tally from its
// delegator index, pruning delegations that have decayed. This is the only
// point decayed records are cleaned up.
func (e *Engine) refreshInbound(delegate [20]byte) error {
	delegators, err := e.state.GovDelegators(delegate)
	if err != nil {
		return err
	}
	inbound := big.NewInt(0)
	kept := make([][20]byte, 0, len(delegators))
	for _, addr := range delegators {
		d, err := e.state.GovGetDelegation(addr)
		if err != nil {
			return err
		}
		if d == nil || d.Delegate != delegate {
			continue
		}
		if e.decayed(d) {
			if err := e.state.GovDeleteDelegation(addr); err != nil {
				return err
			}
			continue
		}
		d.EnsureDefaults()
		inbound.Add(inbound, d.Power)
		kept = append(kept, addr)
	}
	if err := e.state.GovSetDelegators(delegate, kept); err != nil {
		return err
	}
	return e.state.GovSetInboundPower(delegate, inbound)
}

func validateParam(paramType string, value uint64) error {
	switch paramType {
	case ParamInterestRate:
		if value < loan.MinInterestRateBps || value > loan.MaxInterestRateBps {
			return ErrValueOutOfRange
		}
	case ParamCollateralRatio:
		if value < loan.MinCollateralRatioPct || value > loan.MaxCollateralRatioPct {
			return ErrValueOutOfRange
		}
	case ParamLiquidationThreshold:
		if value < loan.MinLiquidationThresholdPct || value > loan.MaxLiquidationThresholdPct {
			return ErrValueOutOfRange
		}
	default:
		return ErrInvalidParamType
	}
	return nil
}

func stakeEvent(kind string, owner [20]byte, amount *big.Int, stake *Stake) events.Event {
	attrs := map[string]string{
		"owner":  common.AddrHex(owner),
		"amount": amount.String(),
	}
	if stake != nil && stake.Amount != nil {
		attrs["staked"] = stake.Amount.String()
	}
	return events.Wrapped{Evt: &types.Event{Type: kind, Attributes: attrs}}
}

func delegationEvent(kind string, d *Delegation) events.Event {
	return events.Wrapped{Evt: &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"delegator": common.AddrHex(d.Delegator),
			"delegate":  common.AddrHex(d.Delegate),
			"power":     d.Power.String(),
		},
	}}
}

func proposalEvent(kind string, p *Proposal) events.Event {
	return events.Wrapped{Evt: &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"proposalId": fmt.Sprintf("%d", p.ID),
			"paramType":  p.ParamType,
			"newValue":   fmt.Sprintf("%d", p.NewValue),
		},
	}}
}

func voteEvent(v *Vote) events.Event {
	return events.Wrapped{Evt: &types.Event{
		Type: "governance.voted",
		Attributes: map[string]string{
			"proposalId": fmt.Sprintf("%d", v.ProposalID),
			"voter":      common.AddrHex(v.Voter),
			"inFavor":    fmt.Sprintf("%t", v.InFavor),
			"power":      v.Power.String(),
		},
	}}
}
