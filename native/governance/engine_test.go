package governance

import (
	"errors"
	"math/big"
	"testing"

	"lendfi/native/common"
)

type stubState struct {
	stakes      map[[20]byte]*Stake
	delegations map[[20]byte]*Delegation
	delegators  map[[20]byte][][20]byte
	inbound     map[[20]byte]*big.Int
	total       *big.Int
	proposals   map[uint64]*Proposal
	seq         uint64
	votes       map[uint64]map[[20]byte]*Vote
	executions  []*ExecutionRecord
}

func newStubState() *stubState {
	return &stubState{
		stakes:      make(map[[20]byte]*Stake),
		delegations: make(map[[20]byte]*Delegation),
		delegators:  make(map[[20]byte][][20]byte),
		inbound:     make(map[[20]byte]*big.Int),
		total:       big.NewInt(0),
		proposals:   make(map[uint64]*Proposal),
		votes:       make(map[uint64]map[[20]byte]*Vote),
	}
}

func (s *stubState) GovGetStake(addr [20]byte) (*Stake, error) {
	stake, ok := s.stakes[addr]
	if !ok {
		return nil, nil
	}
	clone := *stake
	clone.Amount = new(big.Int).Set(stake.Amount)
	clone.Power = new(big.Int).Set(stake.Power)
	return &clone, nil
}

func (s *stubState) GovPutStake(stake *Stake) error {
	clone := *stake
	clone.Amount = new(big.Int).Set(stake.Amount)
	clone.Power = new(big.Int).Set(stake.Power)
	s.stakes[stake.Owner] = &clone
	return nil
}

func (s *stubState) GovDeleteStake(addr [20]byte) error {
	delete(s.stakes, addr)
	return nil
}

func (s *stubState) GovGetDelegation(delegator [20]byte) (*Delegation, error) {
	d, ok := s.delegations[delegator]
	if !ok {
		return nil, nil
	}
	clone := *d
	clone.Power = new(big.Int).Set(d.Power)
	return &clone, nil
}

func (s *stubState) GovPutDelegation(d *Delegation) error {
	clone := *d
	clone.Power = new(big.Int).Set(d.Power)
	s.delegations[d.Delegator] = &clone
	return nil
}

func (s *stubState) GovDeleteDelegation(delegator [20]byte) error {
	delete(s.delegations, delegator)
	return nil
}

func (s *stubState) GovDelegators(delegate [20]byte) ([][20]byte, error) {
	return append([][20]byte(nil), s.delegators[delegate]...), nil
}

func (s *stubState) GovSetDelegators(delegate [20]byte, delegators [][20]byte) error {
	if len(delegators) == 0 {
		delete(s.delegators, delegate)
		return nil
	}
	s.delegators[delegate] = append([][20]byte(nil), delegators...)
	return nil
}

func (s *stubState) GovInboundPower(delegate [20]byte) (*big.Int, error) {
	power, ok := s.inbound[delegate]
	if !ok {
		return nil, nil
	}
	return new(big.Int).Set(power), nil
}

func (s *stubState) GovSetInboundPower(delegate [20]byte, power *big.Int) error {
	if power == nil || power.Sign() == 0 {
		delete(s.inbound, delegate)
		return nil
	}
	s.inbound[delegate] = new(big.Int).Set(power)
	return nil
}

func (s *stubState) GovTotalPower() (*big.Int, error) {
	return new(big.Int).Set(s.total), nil
}

func (s *stubState) GovSetTotalPower(total *big.Int) error {
	s.total = new(big.Int).Set(total)
	return nil
}

func (s *stubState) GovGetProposal(id uint64) (*Proposal, error) {
	p, ok := s.proposals[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	clone.VotesFor = new(big.Int).Set(p.VotesFor)
	clone.VotesAgainst = new(big.Int).Set(p.VotesAgainst)
	return &clone, nil
}

func (s *stubState) GovPutProposal(p *Proposal) error {
	clone := *p
	clone.VotesFor = new(big.Int).Set(p.VotesFor)
	clone.VotesAgainst = new(big.Int).Set(p.VotesAgainst)
	s.proposals[p.ID] = &clone
	return nil
}

func (s *stubState) GovNextProposalID() (uint64, error) {
	s.seq++
	return s.seq, nil
}

func (s *stubState) GovGetVote(proposalID uint64, voter [20]byte) (*Vote, error) {
	ballots, ok := s.votes[proposalID]
	if !ok {
		return nil, nil
	}
	v, ok := ballots[voter]
	if !ok {
		return nil, nil
	}
	clone := *v
	clone.Power = new(big.Int).Set(v.Power)
	return &clone, nil
}

func (s *stubState) GovPutVote(v *Vote) error {
	ballots, ok := s.votes[v.ProposalID]
	if !ok {
		ballots = make(map[[20]byte]*Vote)
		s.votes[v.ProposalID] = ballots
	}
	clone := *v
	clone.Power = new(big.Int).Set(v.Power)
	ballots[v.Voter] = &clone
	return nil
}

func (s *stubState) GovAppendExecution(rec *ExecutionRecord) error {
	clone := *rec
	s.executions = append(s.executions, &clone)
	return nil
}

func (s *stubState) GovExecutionCount() (uint64, error) {
	return uint64(len(s.executions)), nil
}

func (s *stubState) GovExecutionAt(index uint64) (*ExecutionRecord, error) {
	if index >= uint64(len(s.executions)) {
		return nil, nil
	}
	clone := *s.executions[index]
	return &clone, nil
}

type stubTransfer struct {
	balances map[[20]byte]*big.Int
}

func (s *stubTransfer) credit(addr [20]byte, amount int64) {
	s.balances[addr] = big.NewInt(amount)
}

func (s *stubTransfer) Transfer(from, to [20]byte, amount *big.Int) error {
	balance := s.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return common.ErrInsufficientFunds
	}
	s.balances[from] = new(big.Int).Sub(balance, amount)
	current := s.balances[to]
	if current == nil {
		current = big.NewInt(0)
	}
	s.balances[to] = new(big.Int).Add(current, amount)
	return nil
}

func (s *stubTransfer) BalanceOf(addr [20]byte) (*big.Int, error) {
	balance := s.balances[addr]
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

type paramRecorder struct {
	rateBps      uint64
	ratioPct     uint64
	thresholdPct uint64
	callers      [][20]byte
}

func (r *paramRecorder) UpdateInterestRate(caller [20]byte, rateBps uint64) error {
	r.callers = append(r.callers, caller)
	r.rateBps = rateBps
	return nil
}

func (r *paramRecorder) UpdateCollateralRatio(caller [20]byte, ratioPct uint64) error {
	r.callers = append(r.callers, caller)
	r.ratioPct = ratioPct
	return nil
}

func (r *paramRecorder) UpdateLiquidationThreshold(caller [20]byte, thresholdPct uint64) error {
	r.callers = append(r.callers, caller)
	r.thresholdPct = thresholdPct
	return nil
}

var (
	vault   = [20]byte{0xAA}
	govAddr = [20]byte{0xBB}
	alice   = [20]byte{0x01}
	bob     = [20]byte{0x02}
	carol   = [20]byte{0x03}
)

type fixture struct {
	engine   *Engine
	state    *stubState
	transfer *stubTransfer
	params   *paramRecorder
}

func newFixture() *fixture {
	f := &fixture{
		state:    newStubState(),
		transfer: &stubTransfer{balances: make(map[[20]byte]*big.Int)},
		params:   &paramRecorder{},
	}
	f.transfer.credit(alice, 1_000_000)
	f.transfer.credit(bob, 1_000_000)
	f.transfer.credit(carol, 1_000_000)
	f.engine = NewEngine(Config{
		VotingPeriodBlocks:    100,
		MaxProposalLifetime:   300,
		DelegationDecayBlocks: 200,
	})
	f.engine.SetState(f.state)
	f.engine.SetTransfer(f.transfer, vault)
	f.engine.SetLoanBook(f.params)
	f.engine.SetIdentity(govAddr)
	return f
}

func (f *fixture) power(t *testing.T, addr [20]byte) *big.Int {
	t.Helper()
	power, err := f.engine.EffectivePower(addr)
	if err != nil {
		t.Fatalf("effective power: %v", err)
	}
	return power
}

func TestStakePowerGrowsWithTimeAndLock(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	stake, err := f.engine.Stake(alice, big.NewInt(1_000), 2_880)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	// Fresh stake: no time multiplier, lock bonus 2% for two full windows.
	if stake.Power.Cmp(big.NewInt(1_020)) != 0 {
		t.Fatalf("expected initial power 1020, got %s", stake.Power)
	}

	// Ten multiplier windows later the amount is doubled; one lock window
	// remains for a 1% bonus.
	f.engine.SetBlockHeight(1_440)
	if got := f.power(t, alice); got.Cmp(big.NewInt(2_020)) != 0 {
		t.Fatalf("expected power 2020 at height 1440, got %s", got)
	}

	// The time multiplier caps at 2x and the expired lock adds nothing.
	f.engine.SetBlockHeight(10_000)
	if got := f.power(t, alice); got.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected capped power 2000, got %s", got)
	}
}

func TestPartialUnstakeResetsTimeMultiplier(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.engine.SetBlockHeight(1_440)
	if got := f.power(t, alice); got.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected matured power 2000, got %s", got)
	}

	// Withdrawing any amount restarts the multiplier for the remainder.
	stake, err := f.engine.Unstake(alice, big.NewInt(500))
	if err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if stake.LastStakeBlock != 1_440 {
		t.Fatalf("expected multiplier restart at 1440, got %d", stake.LastStakeBlock)
	}
	if got := f.power(t, alice); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected reset power 500, got %s", got)
	}

	// Removing the rest deletes the record entirely.
	if _, err := f.engine.Unstake(alice, big.NewInt(500)); err != nil {
		t.Fatalf("final unstake: %v", err)
	}
	if got := f.power(t, alice); got.Sign() != 0 {
		t.Fatalf("expected zero power after full unstake, got %s", got)
	}
	total, err := f.engine.TotalVotingPower()
	if err != nil {
		t.Fatalf("total power: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("expected zero total power, got %s", total)
	}
}

func TestUnstakeGuards(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Unstake(alice, big.NewInt(100)); !errors.Is(err, ErrNoStake) {
		t.Fatalf("expected ErrNoStake, got %v", err)
	}
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), 500); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := f.engine.Unstake(alice, big.NewInt(100)); !errors.Is(err, ErrLockActive) {
		t.Fatalf("expected ErrLockActive, got %v", err)
	}
	f.engine.SetBlockHeight(500)
	if _, err := f.engine.Unstake(alice, big.NewInt(2_000)); !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
	if _, err := f.engine.Stake(alice, big.NewInt(0), 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDelegationMovesPower(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}

	if _, err := f.engine.Delegate(alice, alice); !errors.Is(err, ErrSelfDelegation) {
		t.Fatalf("expected ErrSelfDelegation, got %v", err)
	}
	d, err := f.engine.Delegate(alice, bob)
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if d.Power.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected snapshotted power 1000, got %s", d.Power)
	}
	if got := f.power(t, alice); got.Sign() != 0 {
		t.Fatalf("expected delegator power zeroed, got %s", got)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("expected delegate power 3000, got %s", got)
	}
	if _, err := f.engine.Delegate(alice, carol); !errors.Is(err, ErrAlreadyDelegated) {
		t.Fatalf("expected ErrAlreadyDelegated, got %v", err)
	}

	if err := f.engine.RevokeDelegation(alice); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := f.power(t, alice); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected power restored to 1000, got %s", got)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected delegate power back to 2000, got %s", got)
	}
	if err := f.engine.RevokeDelegation(alice); !errors.Is(err, ErrNoDelegation) {
		t.Fatalf("expected ErrNoDelegation, got %v", err)
	}
}

func TestDelegatedPowerSurvivesDelegateUnstake(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	if _, err := f.engine.Delegate(alice, bob); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	// Bob withdrawing his own stake must not disturb the inbound tally.
	if _, err := f.engine.Unstake(bob, big.NewInt(2_000)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected inbound 1000 to survive, got %s", got)
	}
}

func TestChainedDelegationDoesNotDoubleCount(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	for _, owner := range [][20]byte{alice, bob, carol} {
		if _, err := f.engine.Stake(owner, big.NewInt(1_000), 0); err != nil {
			t.Fatalf("stake: %v", err)
		}
	}

	if _, err := f.engine.Delegate(carol, alice); err != nil {
		t.Fatalf("delegate carol: %v", err)
	}
	if got := f.power(t, alice); got.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected alice to wield 2000, got %s", got)
	}

	// Alice passing her power on moves the inbound tally along with her own
	// base, so she must wield nothing while the delegation is live.
	d, err := f.engine.Delegate(alice, bob)
	if err != nil {
		t.Fatalf("delegate alice: %v", err)
	}
	if d.Power.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected snapshot 2000, got %s", d.Power)
	}
	if got := f.power(t, alice); got.Sign() != 0 {
		t.Fatalf("expected alice zeroed while delegated, got %s", got)
	}
	if got := f.power(t, carol); got.Sign() != 0 {
		t.Fatalf("expected carol zeroed while delegated, got %s", got)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("expected bob to wield 3000, got %s", got)
	}

	// Revoking the middle link hands alice back her base plus carol's still
	// live delegation and strips bob down to his own stake.
	if err := f.engine.RevokeDelegation(alice); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := f.power(t, alice); got.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("expected alice restored to 2000, got %s", got)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected bob back to 1000, got %s", got)
	}
}

func TestStakeRejectsAbsurdLockDuration(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), MaxLockBlocks+1); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), ^uint64(0)); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange for max uint lock, got %v", err)
	}
	stake, err := f.engine.Stake(alice, big.NewInt(1_000), MaxLockBlocks)
	if err != nil {
		t.Fatalf("stake at limit: %v", err)
	}
	if stake.LockEnd != MaxLockBlocks {
		t.Fatalf("expected lock end %d, got %d", uint64(MaxLockBlocks), stake.LockEnd)
	}
}

func TestDelegationDecaysLazily(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(1_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	if _, err := f.engine.Delegate(alice, bob); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	// Past the decay window the delegator wields their own power again, but
	// the delegate's inbound tally lags until a power-changing action.
	f.engine.SetBlockHeight(250)
	aliceExpected := f.power(t, alice)
	if aliceExpected.Sign() == 0 {
		t.Fatal("expected delegator power restored after decay")
	}
	bobBefore := f.power(t, bob)
	if bobBefore.Cmp(new(big.Int).Add(big.NewInt(2_000), big.NewInt(1_000))) <= 0 {
		t.Fatalf("expected stale inbound still counted, got %s", bobBefore)
	}

	// Staking refreshes the delegate's inbound tally and prunes the decayed
	// delegation.
	if _, err := f.engine.Stake(bob, big.NewInt(1_000), 0); err != nil {
		t.Fatalf("refresh stake: %v", err)
	}
	if got := f.power(t, bob); got.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("expected pruned power 3000, got %s", got)
	}
	d, err := f.engine.DelegationOf(alice)
	if err != nil {
		t.Fatalf("delegation of: %v", err)
	}
	if d != nil {
		t.Fatal("expected decayed delegation pruned")
	}
}

func TestProposalLifecycle(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}

	f.engine.SetBlockHeight(10)
	p, err := f.engine.CreateProposal(alice, "Raise rate", "move to 10%", ParamInterestRate, 1_000)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if p.ID != 1 || p.EndBlock != 110 || p.Deadline != 310 {
		t.Fatalf("unexpected proposal windows %+v", p)
	}

	if _, err := f.engine.VoteOnProposal(alice, p.ID, true); err != nil {
		t.Fatalf("vote alice: %v", err)
	}
	if _, err := f.engine.VoteOnProposal(bob, p.ID, false); err != nil {
		t.Fatalf("vote bob: %v", err)
	}
	if _, err := f.engine.VoteOnProposal(alice, p.ID, false); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	stored, err := f.engine.Proposal(p.ID)
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if stored.VotesFor.Cmp(big.NewInt(10_000)) != 0 || stored.VotesAgainst.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("double vote must not move tallies, got %s / %s", stored.VotesFor, stored.VotesAgainst)
	}
	if stored.VoterCount != 2 {
		t.Fatalf("expected voter count 2, got %d", stored.VoterCount)
	}

	if err := f.engine.ExecuteProposal(p.ID); !errors.Is(err, ErrVotingOpen) {
		t.Fatalf("expected ErrVotingOpen before window closes, got %v", err)
	}
	f.engine.SetBlockHeight(111)
	if err := f.engine.ExecuteProposal(p.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.params.rateBps != 1_000 {
		t.Fatalf("expected rate applied, got %d", f.params.rateBps)
	}
	if len(f.params.callers) != 1 || f.params.callers[0] != govAddr {
		t.Fatalf("expected update via governance identity, got %v", f.params.callers)
	}
	if err := f.engine.ExecuteProposal(p.ID); !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}

	history, err := f.engine.ExecutionHistory()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ProposalID != p.ID || history[0].NewValue != 1_000 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestProposalValidation(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if _, err := f.engine.CreateProposal(alice, "", "desc", ParamInterestRate, 1_000); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := f.engine.CreateProposal(alice, "t", "d", "oracle-count", 5); !errors.Is(err, ErrInvalidParamType) {
		t.Fatalf("expected ErrInvalidParamType, got %v", err)
	}
	if _, err := f.engine.CreateProposal(alice, "t", "d", ParamInterestRate, 5_000); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}
	// Carol has no stake, so no proposal power.
	if _, err := f.engine.CreateProposal(carol, "t", "d", ParamInterestRate, 1_000); !errors.Is(err, ErrInsufficientPower) {
		t.Fatalf("expected ErrInsufficientPower, got %v", err)
	}
}

func TestExecuteRequiresQuorum(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	p, err := f.engine.CreateProposal(alice, "t", "d", ParamCollateralRatio, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Only bob votes: 2000 of 12000 total power is under the 30% quorum.
	if _, err := f.engine.VoteOnProposal(bob, p.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	f.engine.SetBlockHeight(101)
	if err := f.engine.ExecuteProposal(p.ID); !errors.Is(err, ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet, got %v", err)
	}
	if f.params.ratioPct != 0 {
		t.Fatalf("failed execution must not touch params, got %d", f.params.ratioPct)
	}
}

func TestExecuteRequiresApproval(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if _, err := f.engine.Stake(bob, big.NewInt(2_000), 0); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	p, err := f.engine.CreateProposal(alice, "t", "d", ParamLiquidationThreshold, 130)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.VoteOnProposal(alice, p.ID, false); err != nil {
		t.Fatalf("vote alice: %v", err)
	}
	if _, err := f.engine.VoteOnProposal(bob, p.ID, true); err != nil {
		t.Fatalf("vote bob: %v", err)
	}
	f.engine.SetBlockHeight(101)
	if err := f.engine.ExecuteProposal(p.ID); !errors.Is(err, ErrApprovalNotMet) {
		t.Fatalf("expected ErrApprovalNotMet, got %v", err)
	}
}

func TestExecuteAfterDeadlineExpires(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	p, err := f.engine.CreateProposal(alice, "t", "d", ParamInterestRate, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.VoteOnProposal(alice, p.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	f.engine.SetBlockHeight(301)
	if err := f.engine.ExecuteProposal(p.ID); !errors.Is(err, ErrProposalExpired) {
		t.Fatalf("expected ErrProposalExpired, got %v", err)
	}
}

func TestVoteWindowCloses(t *testing.T) {
	f := newFixture()
	f.engine.SetBlockHeight(0)
	if _, err := f.engine.Stake(alice, big.NewInt(10_000), 0); err != nil {
		t.Fatalf("stake: %v", err)
	}
	p, err := f.engine.CreateProposal(alice, "t", "d", ParamInterestRate, 1_000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.engine.SetBlockHeight(101)
	if _, err := f.engine.VoteOnProposal(alice, p.ID, true); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed, got %v", err)
	}
	if _, err := f.engine.VoteOnProposal(alice, 42, true); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}
