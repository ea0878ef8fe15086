package state

import (
	"fmt"
	"math/big"

	"lendfi/native/governance"
)

var (
	govStakePrefix      = []byte("gov/stake/")
	govDelegationPrefix = []byte("gov/delegation/")
	govDelegatorsPrefix = []byte("gov/delegators/")
	govInboundPrefix    = []byte("gov/inbound/")
	govProposalPrefix   = []byte("gov/proposal/")
	govVotePrefix       = []byte("gov/vote/")
	govExecPrefix       = []byte("gov/exec/")
	govTotalKey         = []byte("gov/total")
	govProposalSeqKey   = []byte("gov/proposal/seq")
	govExecSeqKey       = []byte("gov/exec/seq")
)

func govStakeKey(addr [20]byte) []byte {
	return composeKey(govStakePrefix, addr[:])
}

func govDelegationKey(addr [20]byte) []byte {
	return composeKey(govDelegationPrefix, addr[:])
}

func govDelegatorsKey(addr [20]byte) []byte {
	return composeKey(govDelegatorsPrefix, addr[:])
}

func govInboundKey(addr [20]byte) []byte {
	return composeKey(govInboundPrefix, addr[:])
}

func govProposalKey(id uint64) []byte {
	return composeKey(govProposalPrefix, uint64Segment(id))
}

func govVoteKey(proposalID uint64, voter [20]byte) []byte {
	return composeKey(govVotePrefix, uint64Segment(proposalID), voter[:])
}

func govExecKey(index uint64) []byte {
	return composeKey(govExecPrefix, uint64Segment(index))
}

// GovGetStake loads an owner's stake record, or nil when absent.
func (m *Manager) GovGetStake(addr [20]byte) (*governance.Stake, error) {
	stake := &governance.Stake{}
	ok, err := m.KVGet(govStakeKey(addr), stake)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stake, nil
}

// GovPutStake persists a stake record keyed by its owner.
func (m *Manager) GovPutStake(stake *governance.Stake) error {
	if stake == nil {
		return fmt.Errorf("state: stake must not be nil")
	}
	return m.KVPut(govStakeKey(stake.Owner), stake)
}

// GovDeleteStake removes a fully withdrawn stake record.
func (m *Manager) GovDeleteStake(addr [20]byte) error {
	return m.KVDelete(govStakeKey(addr))
}

// GovGetDelegation loads a delegator's outbound delegation, or nil.
func (m *Manager) GovGetDelegation(delegator [20]byte) (*governance.Delegation, error) {
	d := &governance.Delegation{}
	ok, err := m.KVGet(govDelegationKey(delegator), d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return d, nil
}

// GovPutDelegation persists a delegation keyed by its delegator.
func (m *Manager) GovPutDelegation(d *governance.Delegation) error {
	if d == nil {
		return fmt.Errorf("state: delegation must not be nil")
	}
	return m.KVPut(govDelegationKey(d.Delegator), d)
}

// GovDeleteDelegation removes a revoked or decayed delegation.
func (m *Manager) GovDeleteDelegation(delegator [20]byte) error {
	return m.KVDelete(govDelegationKey(delegator))
}

// GovDelegators loads the inbound delegator index for a delegate.
func (m *Manager) GovDelegators(delegate [20]byte) ([][20]byte, error) {
	var delegators [][20]byte
	if _, err := m.KVGet(govDelegatorsKey(delegate), &delegators); err != nil {
		return nil, err
	}
	return delegators, nil
}

// GovSetDelegators stores the inbound delegator index for a delegate.
func (m *Manager) GovSetDelegators(delegate [20]byte, delegators [][20]byte) error {
	if len(delegators) == 0 {
		return m.KVDelete(govDelegatorsKey(delegate))
	}
	return m.KVPut(govDelegatorsKey(delegate), delegators)
}

// GovInboundPower loads a delegate's inbound delegated tally, or nil.
func (m *Manager) GovInboundPower(delegate [20]byte) (*big.Int, error) {
	var power big.Int
	ok, err := m.KVGet(govInboundKey(delegate), &power)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &power, nil
}

// GovSetInboundPower stores a delegate's inbound delegated tally.
func (m *Manager) GovSetInboundPower(delegate [20]byte, power *big.Int) error {
	if power == nil || power.Sign() == 0 {
		return m.KVDelete(govInboundKey(delegate))
	}
	return m.KVPut(govInboundKey(delegate), power)
}

// GovTotalPower reads the tracked total base voting power, defaulting to
// zero.
func (m *Manager) GovTotalPower() (*big.Int, error) {
	var total big.Int
	ok, err := m.KVGet(govTotalKey, &total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &total, nil
}

// GovSetTotalPower stores the tracked total base voting power.
func (m *Manager) GovSetTotalPower(total *big.Int) error {
	if total == nil {
		return fmt.Errorf("state: total power must not be nil")
	}
	return m.KVPut(govTotalKey, total)
}

// GovGetProposal loads a proposal by id, or nil when absent.
func (m *Manager) GovGetProposal(id uint64) (*governance.Proposal, error) {
	p := &governance.Proposal{}
	ok, err := m.KVGet(govProposalKey(id), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return p, nil
}

// GovPutProposal persists a proposal keyed by its id.
func (m *Manager) GovPutProposal(p *governance.Proposal) error {
	if p == nil {
		return fmt.Errorf("state: proposal must not be nil")
	}
	return m.KVPut(govProposalKey(p.ID), p)
}

// GovNextProposalID allocates the next proposal id. Ids start at 1.
func (m *Manager) GovNextProposalID() (uint64, error) {
	seq, err := m.KVGetUint64(govProposalSeqKey)
	if err != nil {
		return 0, err
	}
	seq++
	if err := m.KVPutUint64(govProposalSeqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// GovGetVote loads a voter's ballot on a proposal, or nil when none was cast.
func (m *Manager) GovGetVote(proposalID uint64, voter [20]byte) (*governance.Vote, error) {
	v := &governance.Vote{}
	ok, err := m.KVGet(govVoteKey(proposalID, voter), v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// GovPutVote persists a ballot keyed by proposal and voter.
func (m *Manager) GovPutVote(v *governance.Vote) error {
	if v == nil {
		return fmt.Errorf("state: vote must not be nil")
	}
	return m.KVPut(govVoteKey(v.ProposalID, v.Voter), v)
}

// GovAppendExecution appends a record to the execution history.
func (m *Manager) GovAppendExecution(rec *governance.ExecutionRecord) error {
	if rec == nil {
		return fmt.Errorf("state: execution record must not be nil")
	}
	seq, err := m.KVGetUint64(govExecSeqKey)
	if err != nil {
		return err
	}
	if err := m.KVPut(govExecKey(seq), rec); err != nil {
		return err
	}
	return m.KVPutUint64(govExecSeqKey, seq+1)
}

// GovExecutionCount reports how many executions have been recorded.
func (m *Manager) GovExecutionCount() (uint64, error) {
	return m.KVGetUint64(govExecSeqKey)
}

// GovExecutionAt loads an execution record by history index, or nil when out
// of range.
func (m *Manager) GovExecutionAt(index uint64) (*governance.ExecutionRecord, error) {
	rec := &governance.ExecutionRecord{}
	ok, err := m.KVGet(govExecKey(index), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return rec, nil
}
