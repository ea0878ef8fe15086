package loan

import (
	"errors"
	"math/big"
	"strconv"

	"lendfi/core/events"
	"lendfi/core/types"
	"lendfi/native/common"
	"lendfi/native/reputation"
)

var (
	ErrNilState               = errors.New("loan engine: state not configured")
	ErrInvalidAmount          = errors.New("loan engine: amount must be positive")
	ErrAmountOutOfRange       = errors.New("loan engine: loan amount outside configured bounds")
	ErrInsufficientCollateral = errors.New("loan engine: collateral below required ratio")
	ErrInsufficientLiquidity  = errors.New("loan engine: insufficient available liquidity")
	ErrLoanNotFound           = errors.New("loan engine: loan not found")
	ErrLoanClosed             = errors.New("loan engine: loan already closed")
	ErrUnauthorized           = errors.New("loan engine: caller not authorized")
	ErrNotLiquidatable        = errors.New("loan engine: loan health above liquidation threshold")
	ErrLoanLimitReached       = errors.New("loan engine: borrower loan limit reached")
	ErrValueOutOfRange        = errors.New("loan engine: parameter value outside governed range")
)

const moduleName = "loan"

const (
	EventTypeBorrow      = "loan.borrow"
	EventTypeRepay       = "loan.repay"
	EventTypeLiquidate   = "loan.liquidate"
	EventTypeParamUpdate = "loan.params"
)

// Borrowers with a reputation score at or above the floor borrow against a
// discounted collateral ratio.
const (
	reputationScoreFloor    = 80
	reputationDiscountPct   = 10
	percentDenominator      = 100
	healthyWhenNoDebtSignal = ^uint64(0)
)

type engineState interface {
	LoanGet(id uint64) (*Loan, error)
	LoanPut(loan *Loan) error
	LoanNextID() (uint64, error)
	LoanOwnerIDs(addr [20]byte) ([]uint64, error)
	LoanPutOwnerIDs(addr [20]byte, ids []uint64) error
	LoanTotalBorrowed() (*big.Int, error)
	LoanSetTotalBorrowed(total *big.Int) error
	LoanParams() (*ProtocolParameters, error)
	LoanPutParams(params *ProtocolParameters) error
	LoanAppendLiquidation(record *LiquidationRecord) error
}

// DepositView exposes the ledger's outstanding deposit total for the
// available-liquidity check.
type DepositView interface {
	TotalDeposits() (*big.Int, error)
}

// Engine orchestrates the loan lifecycle: borrow, repay, liquidate, and the
// privileged parameter updates driven by governance.
type Engine struct {
	state       engineState
	transfer    common.TransferService
	deposits    DepositView
	reputation  *reputation.Engine
	vault       [20]byte
	authority   [20]byte
	config      Config
	pauses      common.PauseView
	emitter     events.Emitter
	blockHeight uint64
}

// NewEngine constructs a loan engine operating against the shared system
// vault.
func NewEngine(vault [20]byte, config Config) *Engine {
	return &Engine{
		vault:   vault,
		config:  config.Clone(),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransfer wires the value transfer service.
func (e *Engine) SetTransfer(transfer common.TransferService) { e.transfer = transfer }

// SetDepositView wires the ledger read used for the liquidity check.
func (e *Engine) SetDepositView(deposits DepositView) { e.deposits = deposits }

// SetReputation wires the reputation tracker updated on loan lifecycle
// transitions.
func (e *Engine) SetReputation(rep *reputation.Engine) { e.reputation = rep }

// SetGovernanceAuthority registers the single caller allowed to mutate the
// protocol parameters. The check is by identity, not pattern matching.
func (e *Engine) SetGovernanceAuthority(addr [20]byte) {
	if e == nil {
		return
	}
	e.authority = addr
}

func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetBlockHeight records the logical clock value used for interest accrual.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// Params returns the current protocol parameters, falling back to the
// configured defaults when governance has not written yet. The fallback is a
// pure read-time default; nothing is persisted.
func (e *Engine) Params() (*ProtocolParameters, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	params, err := e.state.LoanParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		defaults := e.config.DefaultParams
		return &defaults, nil
	}
	return params.Clone(), nil
}

// InterestRateBps satisfies the ledger's RateSource so deposit accrual and
// loan interest share one governed rate.
func (e *Engine) InterestRateBps() (uint64, error) {
	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	return params.InterestRateBps, nil
}

// Borrow locks collateral, pays out the loan amount and opens a loan record.
// It returns the id of the new loan.
func (e *Engine) Borrow(borrower [20]byte, amount, collateral *big.Int) (uint64, error) {
	if e == nil || e.state == nil || e.transfer == nil {
		return 0, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 || collateral == nil || collateral.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if e.config.MinLoan != nil && amount.Cmp(e.config.MinLoan) < 0 {
		return 0, ErrAmountOutOfRange
	}
	if e.config.MaxLoan != nil && e.config.MaxLoan.Sign() > 0 && amount.Cmp(e.config.MaxLoan) > 0 {
		return 0, ErrAmountOutOfRange
	}

	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	requiredRatio, err := e.requiredRatio(borrower, params)
	if err != nil {
		return 0, err
	}

	// collateral*100 >= amount*requiredRatio, evaluated exactly so the
	// boundary case is accepted.
	lhs := new(big.Int).Mul(collateral, big.NewInt(percentDenominator))
	rhs := new(big.Int).Mul(amount, new(big.Int).SetUint64(requiredRatio))
	if lhs.Cmp(rhs) < 0 {
		return 0, ErrInsufficientCollateral
	}

	available, err := e.availableLiquidity()
	if err != nil {
		return 0, err
	}
	if available.Cmp(amount) < 0 {
		return 0, ErrInsufficientLiquidity
	}

	ids, err := e.state.LoanOwnerIDs(borrower)
	if err != nil {
		return 0, err
	}
	if len(ids) >= MaxLoansPerBorrower {
		return 0, ErrLoanLimitReached
	}

	if err := e.transfer.Transfer(borrower, e.vault, collateral); err != nil {
		return 0, err
	}
	if err := e.transfer.Transfer(e.vault, borrower, amount); err != nil {
		return 0, err
	}

	id, err := e.state.LoanNextID()
	if err != nil {
		return 0, err
	}
	record := &Loan{
		ID:                id,
		Borrower:          borrower,
		Principal:         new(big.Int).Set(amount),
		Collateral:        new(big.Int).Set(collateral),
		StartBlock:        e.blockHeight,
		LastInterestBlock: e.blockHeight,
		AccruedInterest:   big.NewInt(0),
	}
	if err := e.state.LoanPut(record); err != nil {
		return 0, err
	}
	if err := e.state.LoanPutOwnerIDs(borrower, append(ids, id)); err != nil {
		return 0, err
	}

	if e.reputation != nil {
		if err := e.reputation.RecordLoanOpened(borrower); err != nil {
			return 0, err
		}
	}

	total, err := e.state.LoanTotalBorrowed()
	if err != nil {
		return 0, err
	}
	if err := e.state.LoanSetTotalBorrowed(new(big.Int).Add(total, amount)); err != nil {
		return 0, err
	}

	e.emit(EventTypeBorrow, map[string]string{
		"id":         strconv.FormatUint(id, 10),
		"borrower":   common.AddrHex(borrower),
		"amount":     amount.String(),
		"collateral": collateral.String(),
		"ratio":      strconv.FormatUint(requiredRatio, 10),
	})
	return id, nil
}

// Repay settles the loan in full. Only the borrower may repay; the total owed
// is principal plus all accrued interest. The collateral is returned in full
// and the repaid amount is reported back to the caller.
func (e *Engine) Repay(caller [20]byte, loanID uint64) (*big.Int, error) {
	if e == nil || e.state == nil || e.transfer == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	record, err := e.state.LoanGet(loanID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLoanNotFound
	}
	if record.Borrower != caller {
		return nil, ErrUnauthorized
	}
	if record.Repaid {
		return nil, ErrLoanClosed
	}
	record.EnsureDefaults()

	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	newInterest := common.AccrueInterest(record.Principal, params.InterestRateBps, elapsed(record.LastInterestBlock, e.blockHeight))
	totalOwed := new(big.Int).Add(record.Principal, record.AccruedInterest)
	totalOwed.Add(totalOwed, newInterest)

	if err := e.transfer.Transfer(caller, e.vault, totalOwed); err != nil {
		return nil, err
	}
	if err := e.transfer.Transfer(e.vault, caller, record.Collateral); err != nil {
		return nil, err
	}

	record.AccruedInterest = new(big.Int).Add(record.AccruedInterest, newInterest)
	record.LastInterestBlock = e.blockHeight
	record.Repaid = true
	if err := e.state.LoanPut(record); err != nil {
		return nil, err
	}

	if e.reputation != nil {
		if err := e.reputation.RecordRepayment(caller); err != nil {
			return nil, err
		}
	}

	if err := e.reduceTotalBorrowed(record.Principal); err != nil {
		return nil, err
	}

	e.emit(EventTypeRepay, map[string]string{
		"id":       strconv.FormatUint(loanID, 10),
		"borrower": common.AddrHex(caller),
		"owed":     totalOwed.String(),
		"interest": new(big.Int).Set(record.AccruedInterest).String(),
	})
	return totalOwed, nil
}

// Liquidate closes an undercollateralized loan. The caller earns the
// liquidation penalty share of the collateral, the borrower receives the
// remainder, and the loan becomes terminal. The penalty paid to the caller is
// returned.
func (e *Engine) Liquidate(caller [20]byte, loanID uint64) (*big.Int, error) {
	if e == nil || e.state == nil || e.transfer == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	record, err := e.state.LoanGet(loanID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLoanNotFound
	}
	if record.Repaid {
		return nil, ErrLoanClosed
	}
	record.EnsureDefaults()

	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	newInterest := common.AccrueInterest(record.Principal, params.InterestRateBps, elapsed(record.LastInterestBlock, e.blockHeight))
	totalDebt := new(big.Int).Add(record.Principal, record.AccruedInterest)
	totalDebt.Add(totalDebt, newInterest)

	ratio := healthRatio(record.Collateral, totalDebt)
	if ratio >= params.LiquidationThresholdPct {
		return nil, ErrNotLiquidatable
	}

	penalty := new(big.Int).Mul(record.Collateral, new(big.Int).SetUint64(params.LiquidationPenaltyPct))
	penalty.Quo(penalty, big.NewInt(percentDenominator))
	remainder := new(big.Int).Sub(record.Collateral, penalty)

	if penalty.Sign() > 0 {
		if err := e.transfer.Transfer(e.vault, caller, penalty); err != nil {
			return nil, err
		}
	}
	if remainder.Sign() > 0 {
		if err := e.transfer.Transfer(e.vault, record.Borrower, remainder); err != nil {
			return nil, err
		}
	}

	record.AccruedInterest = new(big.Int).Add(record.AccruedInterest, newInterest)
	record.LastInterestBlock = e.blockHeight
	record.Repaid = true
	record.Liquidated = true
	if err := e.state.LoanPut(record); err != nil {
		return nil, err
	}

	if e.reputation != nil {
		if err := e.reputation.RecordLiquidation(record.Borrower); err != nil {
			return nil, err
		}
	}

	if err := e.reduceTotalBorrowed(record.Principal); err != nil {
		return nil, err
	}

	if err := e.state.LoanAppendLiquidation(&LiquidationRecord{
		LoanID:     loanID,
		Borrower:   record.Borrower,
		Liquidator: caller,
		Penalty:    new(big.Int).Set(penalty),
		Block:      e.blockHeight,
	}); err != nil {
		return nil, err
	}

	e.emit(EventTypeLiquidate, map[string]string{
		"id":         strconv.FormatUint(loanID, 10),
		"borrower":   common.AddrHex(record.Borrower),
		"liquidator": common.AddrHex(caller),
		"penalty":    penalty.String(),
		"ratio":      strconv.FormatUint(ratio, 10),
	})
	return penalty, nil
}

// Health reports the collateralization of an open loan as of the current
// block.
func (e *Engine) Health(loanID uint64) (*HealthReport, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.state.LoanGet(loanID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLoanNotFound
	}
	if record.Repaid {
		return nil, ErrLoanClosed
	}
	record.EnsureDefaults()
	params, err := e.Params()
	if err != nil {
		return nil, err
	}
	newInterest := common.AccrueInterest(record.Principal, params.InterestRateBps, elapsed(record.LastInterestBlock, e.blockHeight))
	totalDebt := new(big.Int).Add(record.Principal, record.AccruedInterest)
	totalDebt.Add(totalDebt, newInterest)
	ratio := healthRatio(record.Collateral, totalDebt)
	report := &HealthReport{
		Ratio:        ratio,
		TotalDebt:    totalDebt,
		Liquidatable: ratio < params.LiquidationThresholdPct,
	}
	if params.LiquidationThresholdPct > 0 && ratio != healthyWhenNoDebtSignal {
		report.HealthFactorPct = ratio * percentDenominator / params.LiquidationThresholdPct
	} else {
		report.HealthFactorPct = healthyWhenNoDebtSignal
	}
	return report, nil
}

// Get returns the loan record for the supplied id.
func (e *Engine) Get(loanID uint64) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.state.LoanGet(loanID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrLoanNotFound
	}
	record.EnsureDefaults()
	return record, nil
}

// LoansOf returns the borrower's loan ids in issue order.
func (e *Engine) LoansOf(borrower [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.LoanOwnerIDs(borrower)
}

// TotalBorrowed reports the outstanding borrowed principal.
func (e *Engine) TotalBorrowed() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.LoanTotalBorrowed()
}

// UpdateInterestRate applies a governed interest rate change. Only the
// registered governance authority may call it.
func (e *Engine) UpdateInterestRate(caller [20]byte, rateBps uint64) error {
	return e.updateParams(caller, func(p *ProtocolParameters) error {
		if rateBps < MinInterestRateBps || rateBps > MaxInterestRateBps {
			return ErrValueOutOfRange
		}
		p.InterestRateBps = rateBps
		return nil
	})
}

// UpdateCollateralRatio applies a governed collateral ratio change.
func (e *Engine) UpdateCollateralRatio(caller [20]byte, ratioPct uint64) error {
	return e.updateParams(caller, func(p *ProtocolParameters) error {
		if ratioPct < MinCollateralRatioPct || ratioPct > MaxCollateralRatioPct {
			return ErrValueOutOfRange
		}
		p.CollateralRatioPct = ratioPct
		return nil
	})
}

// UpdateLiquidationThreshold applies a governed liquidation threshold change.
func (e *Engine) UpdateLiquidationThreshold(caller [20]byte, thresholdPct uint64) error {
	return e.updateParams(caller, func(p *ProtocolParameters) error {
		if thresholdPct < MinLiquidationThresholdPct || thresholdPct > MaxLiquidationThresholdPct {
			return ErrValueOutOfRange
		}
		p.LiquidationThresholdPct = thresholdPct
		return nil
	})
}

func (e *Engine) updateParams(caller [20]byte, mutate func(*ProtocolParameters) error) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if common.ZeroAddress(e.authority) || caller != e.authority {
		return ErrUnauthorized
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	if err := mutate(params); err != nil {
		return err
	}
	params.Version++
	if err := e.state.LoanPutParams(params); err != nil {
		return err
	}
	e.emit(EventTypeParamUpdate, map[string]string{
		"rateBps":   strconv.FormatUint(params.InterestRateBps, 10),
		"ratio":     strconv.FormatUint(params.CollateralRatioPct, 10),
		"threshold": strconv.FormatUint(params.LiquidationThresholdPct, 10),
		"version":   strconv.FormatUint(params.Version, 10),
	})
	return nil
}

func (e *Engine) requiredRatio(borrower [20]byte, params *ProtocolParameters) (uint64, error) {
	ratio := params.CollateralRatioPct
	if e.reputation == nil {
		return ratio, nil
	}
	score, err := e.reputation.Score(borrower)
	if err != nil {
		return 0, err
	}
	if score >= reputationScoreFloor && ratio > reputationDiscountPct {
		ratio -= reputationDiscountPct
	}
	return ratio, nil
}

// availableLiquidity is the system's total holdings minus the outstanding
// deposit liabilities: funds that can be lent without touching depositor
// balances.
func (e *Engine) availableLiquidity() (*big.Int, error) {
	holdings, err := e.transfer.BalanceOf(e.vault)
	if err != nil {
		return nil, err
	}
	if e.deposits == nil {
		return holdings, nil
	}
	outstanding, err := e.deposits.TotalDeposits()
	if err != nil {
		return nil, err
	}
	available := new(big.Int).Sub(holdings, outstanding)
	if available.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return available, nil
}

func (e *Engine) reduceTotalBorrowed(amount *big.Int) error {
	total, err := e.state.LoanTotalBorrowed()
	if err != nil {
		return err
	}
	total = new(big.Int).Sub(total, amount)
	if total.Sign() < 0 {
		total = big.NewInt(0)
	}
	return e.state.LoanSetTotalBorrowed(total)
}

func (e *Engine) emit(eventType string, attrs map[string]string) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrapped{Evt: &types.Event{Type: eventType, Attributes: attrs}})
}

// healthRatio returns collateral*100/totalDebt, truncating. Zero debt reads
// as maximally healthy.
func healthRatio(collateral, totalDebt *big.Int) uint64 {
	if totalDebt == nil || totalDebt.Sign() == 0 {
		return healthyWhenNoDebtSignal
	}
	if collateral == nil || collateral.Sign() == 0 {
		return 0
	}
	ratio := new(big.Int).Mul(collateral, big.NewInt(percentDenominator))
	ratio.Quo(ratio, totalDebt)
	if !ratio.IsUint64() {
		return healthyWhenNoDebtSignal
	}
	return ratio.Uint64()
}

func elapsed(since, now uint64) uint64 {
	if now <= since {
		return 0
	}
	return now - since
}
