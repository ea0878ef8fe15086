package core

import (
	"log/slog"
	"math/big"
	"sync"

	"lendfi/core/events"
	"lendfi/core/state"
	"lendfi/native/common"
	"lendfi/native/governance"
	"lendfi/native/ledger"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
	"lendfi/native/reputation"
	"lendfi/observability/metrics"
	"lendfi/storage"
)

// eventLogCap bounds the in-memory event window exposed over RPC.
const eventLogCap = 1024

// Config wires the protocol node: the privileged identities and the
// per-engine parameters.
type Config struct {
	// Vault is the system account holding deposits, collateral, stakes, and
	// the reward reserve.
	Vault [20]byte
	// OracleAdmin may register and deactivate price oracles.
	OracleAdmin [20]byte
	// GovernanceAddress is the identity the governance engine presents to the
	// loan engine's privileged parameter setters.
	GovernanceAddress [20]byte

	Ledger      ledger.Config
	Loan        loan.Config
	Oracle      oracle.Config
	Liquidation liquidation.Config
	Governance  governance.Config
}

// eventLog is a bounded in-order window of emitted events.
type eventLog struct {
	events []events.Event
}

func (l *eventLog) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	l.events = append(l.events, evt)
	if len(l.events) > eventLogCap {
		l.events = l.events[len(l.events)-eventLogCap:]
	}
}

// Node owns the state manager and the protocol engines and dispatches every
// operation atomically: a snapshot is taken before the engine runs, reverted
// on failure, and committed to the database on success. A single mutex
// serializes all operations, reads included, since the state manager's
// overlay performs no locking of its own.
type Node struct {
	mu      sync.Mutex
	state   *state.Manager
	pauses  *common.Pauses
	log     *slog.Logger
	metrics *metrics.ProtocolMetrics
	events  *eventLog

	ledger       *ledger.Engine
	loans        *loan.Engine
	reputation   *reputation.Engine
	oracle       *oracle.Engine
	liquidations *liquidation.Engine
	governance   *governance.Engine

	height uint64
}

// NewNode constructs a fully wired node over the supplied database.
func NewNode(db storage.Database, cfg Config, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		state:   state.NewManager(db),
		pauses:  common.NewPauses(),
		log:     logger,
		metrics: metrics.Protocol(),
		events:  &eventLog{},
	}

	n.reputation = reputation.NewEngine()
	n.reputation.SetState(n.state)

	n.ledger = ledger.NewEngine(cfg.Vault, cfg.Ledger)
	n.ledger.SetState(n.state)
	n.ledger.SetTransfer(n.state)
	n.ledger.SetPauses(n.pauses)
	n.ledger.SetEmitter(n.events)

	n.loans = loan.NewEngine(cfg.Vault, cfg.Loan)
	n.loans.SetState(n.state)
	n.loans.SetTransfer(n.state)
	n.loans.SetDepositView(n.ledger)
	n.loans.SetReputation(n.reputation)
	n.loans.SetGovernanceAuthority(cfg.GovernanceAddress)
	n.loans.SetPauses(n.pauses)
	n.loans.SetEmitter(n.events)

	n.ledger.SetRateSource(n.loans)

	n.oracle = oracle.NewEngine(cfg.Oracle)
	n.oracle.SetState(n.state)
	n.oracle.SetAdmin(cfg.OracleAdmin)
	n.oracle.SetPauses(n.pauses)
	n.oracle.SetEmitter(n.events)

	n.liquidations = liquidation.NewEngine(cfg.Liquidation)
	n.liquidations.SetState(n.state)
	n.liquidations.SetLoanBook(n.loans)
	n.liquidations.SetPriceSource(n.oracle)
	n.liquidations.SetTransfer(n.state, cfg.Vault)
	n.liquidations.SetPauses(n.pauses)
	n.liquidations.SetEmitter(n.events)

	n.governance = governance.NewEngine(cfg.Governance)
	n.governance.SetState(n.state)
	n.governance.SetLoanBook(n.loans)
	n.governance.SetTransfer(n.state, cfg.Vault)
	n.governance.SetIdentity(cfg.GovernanceAddress)
	n.governance.SetPauses(n.pauses)
	n.governance.SetEmitter(n.events)

	return n
}

// SetBlockHeight advances the logical clock shared by every engine. Heights
// only move forward; a lower value is ignored.
func (n *Node) SetBlockHeight(height uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if height < n.height {
		return
	}
	n.height = height
	n.ledger.SetBlockHeight(height)
	n.loans.SetBlockHeight(height)
	n.oracle.SetBlockHeight(height)
	n.liquidations.SetBlockHeight(height)
	n.governance.SetBlockHeight(height)
}

// BlockHeight reports the current logical clock.
func (n *Node) BlockHeight() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// SetPaused toggles the emergency halt for one module.
func (n *Node) SetPaused(module string, paused bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pauses.SetPaused(module, paused)
	n.log.Info("module pause toggled", "module", module, "paused", paused)
}

// Credit seeds an account balance. Genesis and test helper only.
func (n *Node) Credit(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withCommit("credit", func() error {
		return n.state.Credit(addr, amount)
	})
}

// BalanceOf reports an address's spendable balance.
func (n *Node) BalanceOf(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.BalanceOf(addr)
}

// Events returns the retained event window in emission order.
func (n *Node) Events() []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.Event(nil), n.events.events...)
}

// withCommit runs one operation atomically against the state manager. The
// caller must hold n.mu.
func (n *Node) withCommit(op string, fn func() error) error {
	snapshot := n.state.Snapshot()
	if err := fn(); err != nil {
		n.state.RevertToSnapshot(snapshot)
		n.metrics.ObserveOperation(op, false)
		n.log.Debug("operation rejected", "op", op, "err", err)
		return err
	}
	if err := n.state.Commit(); err != nil {
		n.metrics.ObserveOperation(op, false)
		n.log.Error("state commit failed", "op", op, "err", err)
		return err
	}
	n.metrics.ObserveOperation(op, true)
	return nil
}

// Deposit credits an interest-bearing deposit. It returns the new balance
// and the interest accrued since the last balance-touching operation.
func (n *Node) Deposit(owner [20]byte, amount *big.Int) (balance, accrued *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("ledger.deposit", func() error {
		balance, accrued, err = n.ledger.Deposit(owner, amount)
		return err
	})
	if err == nil {
		n.gaugeTotals()
	}
	return balance, accrued, err
}

// Withdraw debits a deposit after accruing interest.
func (n *Node) Withdraw(owner [20]byte, amount *big.Int) (balance, accrued *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("ledger.withdraw", func() error {
		balance, accrued, err = n.ledger.Withdraw(owner, amount)
		return err
	})
	if err == nil {
		n.gaugeTotals()
	}
	return balance, accrued, err
}

// DepositBalanceOf projects a deposit balance with interest to the current
// block without writing state.
func (n *Node) DepositBalanceOf(owner [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(owner)
}

// TotalDeposits reports the tracked deposit total.
func (n *Node) TotalDeposits() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.TotalDeposits()
}

// Borrow opens a collateralized loan and returns its id.
func (n *Node) Borrow(borrower [20]byte, amount, collateral *big.Int) (loanID uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("loan.borrow", func() error {
		loanID, err = n.loans.Borrow(borrower, amount, collateral)
		return err
	})
	if err == nil {
		n.gaugeTotals()
	}
	return loanID, err
}

// Repay settles a loan in full and returns the amount paid.
func (n *Node) Repay(caller [20]byte, loanID uint64) (paid *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("loan.repay", func() error {
		paid, err = n.loans.Repay(caller, loanID)
		return err
	})
	if err == nil {
		n.gaugeTotals()
	}
	return paid, err
}

// Liquidate seizes an unhealthy loan directly, bypassing the queue.
func (n *Node) Liquidate(caller [20]byte, loanID uint64) (penalty *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("loan.liquidate", func() error {
		penalty, err = n.loans.Liquidate(caller, loanID)
		return err
	})
	if err == nil {
		n.gaugeTotals()
	}
	return penalty, err
}

// LoanHealth reports a loan's current collateralization.
func (n *Node) LoanHealth(loanID uint64) (*loan.HealthReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Health(loanID)
}

// GetLoan returns a loan by id.
func (n *Node) GetLoan(loanID uint64) (*loan.Loan, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Get(loanID)
}

// LoansOf lists a borrower's loan ids.
func (n *Node) LoansOf(borrower [20]byte) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.LoansOf(borrower)
}

// LoanParams returns the live protocol parameters.
func (n *Node) LoanParams() (*loan.ProtocolParameters, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Params()
}

// ReputationOf returns a borrower's reputation record.
func (n *Node) ReputationOf(addr [20]byte) (*reputation.Reputation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reputation.Get(addr)
}

// RegisterOracle admits a price oracle for an asset.
func (n *Node) RegisterOracle(caller [20]byte, asset string, oracleAddr [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withCommit("oracle.register", func() error {
		return n.oracle.RegisterOracle(caller, asset, oracleAddr)
	})
}

// DeactivateOracle bars an oracle from further updates.
func (n *Node) DeactivateOracle(caller [20]byte, asset string, oracleAddr [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withCommit("oracle.deactivate", func() error {
		return n.oracle.DeactivateOracle(caller, asset, oracleAddr)
	})
}

// UpdatePrice records a validated oracle price submission.
func (n *Node) UpdatePrice(oracleAddr [20]byte, asset string, price *big.Int, confidence uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withCommit("oracle.update", func() error {
		return n.oracle.UpdatePrice(oracleAddr, asset, price, confidence)
	})
}

// GetPrice returns the latest quote for an asset, flagged when stale.
func (n *Node) GetPrice(asset string) (*oracle.Quote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.GetPrice(asset)
}

// OracleRegistration returns an oracle's registration for an asset.
func (n *Node) OracleRegistration(asset string, oracleAddr [20]byte) (*oracle.Registration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.Registration(asset, oracleAddr)
}

// QueueForLiquidation snapshots an unhealthy loan into the liquidation queue.
func (n *Node) QueueForLiquidation(loanID uint64) (entry *liquidation.QueueEntry, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("liquidation.queue", func() error {
		entry, err = n.liquidations.QueueForLiquidation(loanID)
		return err
	})
	if err == nil {
		n.gaugeQueueDepth()
	}
	return entry, err
}

// ExecuteLiquidation liquidates a queued position and pays the caller's
// reward.
func (n *Node) ExecuteLiquidation(caller [20]byte, position uint64) (reward *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("liquidation.execute", func() error {
		reward, err = n.liquidations.ExecuteLiquidation(caller, position)
		return err
	})
	if err == nil {
		n.gaugeTotals()
		n.gaugeQueueDepth()
	}
	return reward, err
}

// PendingLiquidations lists queued positions in order.
func (n *Node) PendingLiquidations() ([]*liquidation.QueueEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.liquidations.PendingQueue()
}

// LiquidatorStats returns an address's lifetime liquidation record.
func (n *Node) LiquidatorStats(addr [20]byte) (*liquidation.LiquidatorStats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.liquidations.Stats(addr)
}

// Stake locks value for voting power.
func (n *Node) Stake(owner [20]byte, amount *big.Int, lockBlocks uint64) (stake *governance.Stake, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("governance.stake", func() error {
		stake, err = n.governance.Stake(owner, amount, lockBlocks)
		return err
	})
	return stake, err
}

// Unstake releases staked value after the lock expires.
func (n *Node) Unstake(owner [20]byte, amount *big.Int) (stake *governance.Stake, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("governance.unstake", func() error {
		stake, err = n.governance.Unstake(owner, amount)
		return err
	})
	return stake, err
}

// Delegate assigns the owner's effective power to another address.
func (n *Node) Delegate(owner, delegate [20]byte) (d *governance.Delegation, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("governance.delegate", func() error {
		d, err = n.governance.Delegate(owner, delegate)
		return err
	})
	return d, err
}

// RevokeDelegation removes the owner's outbound delegation.
func (n *Node) RevokeDelegation(owner [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withCommit("governance.revoke", func() error {
		return n.governance.RevokeDelegation(owner)
	})
}

// EffectivePower reports an address's current voting power.
func (n *Node) EffectivePower(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.EffectivePower(addr)
}

// CreateProposal opens a parameter change for voting.
func (n *Node) CreateProposal(proposer [20]byte, title, description, paramType string, newValue uint64) (p *governance.Proposal, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("governance.propose", func() error {
		p, err = n.governance.CreateProposal(proposer, title, description, paramType, newValue)
		return err
	})
	if err == nil {
		n.metrics.ObserveProposalOpened()
	}
	return p, err
}

// VoteOnProposal casts a ballot weighted by the voter's effective power.
func (n *Node) VoteOnProposal(voter [20]byte, proposalID uint64, inFavor bool) (v *governance.Vote, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.withCommit("governance.vote", func() error {
		v, err = n.governance.VoteOnProposal(voter, proposalID, inFavor)
		return err
	})
	return v, err
}

// ExecuteProposal applies a passed proposal to the protocol parameters.
func (n *Node) ExecuteProposal(proposalID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.withCommit("governance.execute", func() error {
		return n.governance.ExecuteProposal(proposalID)
	})
	if err == nil {
		n.metrics.ObserveProposalApplied()
	}
	return err
}

// GetProposal returns a proposal by id.
func (n *Node) GetProposal(id uint64) (*governance.Proposal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.Proposal(id)
}

// StakeOf returns an owner's stake record.
func (n *Node) StakeOf(owner [20]byte) (*governance.Stake, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.StakeOf(owner)
}

// ExecutionHistory lists applied proposals in order.
func (n *Node) ExecutionHistory() ([]*governance.ExecutionRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.governance.ExecutionHistory()
}

func (n *Node) gaugeTotals() {
	if deposits, err := n.ledger.TotalDeposits(); err == nil {
		n.metrics.SetTotalDeposits(bigFloat(deposits))
	}
	if borrowed, err := n.loans.TotalBorrowed(); err == nil {
		n.metrics.SetTotalBorrowed(bigFloat(borrowed))
	}
}

func (n *Node) gaugeQueueDepth() {
	if pending, err := n.liquidations.PendingQueue(); err == nil {
		n.metrics.SetLiquidationQueueDepth(float64(len(pending)))
	}
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
