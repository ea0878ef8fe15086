package liquidation

import (
	"errors"
	"fmt"
	"math/big"

	"lendfi/core/events"
	"lendfi/core/types"
	"lendfi/native/common"
	"lendfi/native/loan"
	"lendfi/native/oracle"
)

const moduleName = "liquidation"

var (
	// ErrNilState indicates the engine has not been wired to a state backend.
	ErrNilState = errors.New("liquidation engine: state not configured")
	// ErrNotLiquidatable indicates the loan's health still clears the
	// liquidation threshold.
	ErrNotLiquidatable = errors.New("liquidation engine: loan not liquidatable")
	// ErrBelowMinValue indicates the collateral value is under the minimum
	// worth queueing.
	ErrBelowMinValue = errors.New("liquidation engine: collateral value below minimum")
	// ErrAlreadyQueued indicates the loan already has a pending queue entry.
	ErrAlreadyQueued = errors.New("liquidation engine: loan already queued")
	// ErrPositionNotFound indicates no pending entry exists at the position.
	ErrPositionNotFound = errors.New("liquidation engine: queue position not found")
	// ErrLoanClosed indicates the loan was repaid or liquidated already.
	ErrLoanClosed = errors.New("liquidation engine: loan closed")
)

type engineState interface {
	LiquidationGetEntry(position uint64) (*QueueEntry, error)
	LiquidationPutEntry(entry *QueueEntry) error
	LiquidationDeleteEntry(position uint64) error
	LiquidationCursor() (*QueueCursor, error)
	LiquidationSetCursor(cursor *QueueCursor) error
	LiquidationQueuedLoan(loanID uint64) (uint64, bool, error)
	LiquidationSetQueuedLoan(loanID, position uint64) error
	LiquidationClearQueuedLoan(loanID uint64) error
	LiquidationGetStats(addr [20]byte) (*LiquidatorStats, error)
	LiquidationPutStats(stats *LiquidatorStats) error
}

// LoanBook is the slice of the loan engine the liquidation flow needs.
type LoanBook interface {
	Get(loanID uint64) (*loan.Loan, error)
	Health(loanID uint64) (*loan.HealthReport, error)
	Liquidate(caller [20]byte, loanID uint64) (*big.Int, error)
}

// PriceSource supplies oracle quotes for valuing collateral and debt.
type PriceSource interface {
	GetPrice(asset string) (*oracle.Quote, error)
}

// Engine maintains the liquidation queue and pays executor rewards.
type Engine struct {
	state    engineState
	loans    LoanBook
	prices   PriceSource
	transfer common.TransferService
	vault    [20]byte
	emitter  events.Emitter
	pauses   common.PauseView
	height   uint64
	cfg      Config
}

// NewEngine constructs a liquidation engine with the supplied configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.MinLiquidationValue == nil {
		cfg.MinLiquidationValue = big.NewInt(0)
	}
	return &Engine{cfg: cfg.Clone(), emitter: events.NoopEmitter{}}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLoanBook wires the loan engine consulted for health and liquidation.
func (e *Engine) SetLoanBook(loans LoanBook) { e.loans = loans }

// SetPriceSource wires the oracle feed used to value positions.
func (e *Engine) SetPriceSource(prices PriceSource) { e.prices = prices }

// SetTransfer wires balance movement for executor rewards.
func (e *Engine) SetTransfer(transfer common.TransferService, vault [20]byte) {
	e.transfer = transfer
	e.vault = vault
}

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

// SetBlockHeight records the logical clock used for queue timestamps.
func (e *Engine) SetBlockHeight(height uint64) { e.height = height }

// QueueForLiquidation prices an unhealthy loan and appends a snapshot entry
// at the queue tail. The oracle quote may be stale; the queue exists so stale
// prices delay rather than block liquidation.
func (e *Engine) QueueForLiquidation(loanID uint64) (*QueueEntry, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.loans == nil || e.prices == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	ln, err := e.loans.Get(loanID)
	if err != nil {
		return nil, err
	}
	if ln.Repaid || ln.Liquidated {
		return nil, ErrLoanClosed
	}
	if _, queued, err := e.state.LiquidationQueuedLoan(loanID); err != nil {
		return nil, err
	} else if queued {
		return nil, ErrAlreadyQueued
	}
	report, err := e.loans.Health(loanID)
	if err != nil {
		return nil, err
	}
	if !report.Liquidatable {
		return nil, ErrNotLiquidatable
	}
	quote, err := e.prices.GetPrice(e.cfg.BaseAsset)
	if err != nil {
		return nil, err
	}
	collateralValue := scaleByPrice(ln.Collateral, quote.Price)
	debtValue := scaleByPrice(report.TotalDebt, quote.Price)
	if collateralValue.Cmp(e.cfg.MinLiquidationValue) < 0 {
		return nil, ErrBelowMinValue
	}
	cursor, err := e.state.LiquidationCursor()
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		cursor = &QueueCursor{}
	}
	entry := &QueueEntry{
		Position:        cursor.Tail,
		LoanID:          loanID,
		Borrower:        ln.Borrower,
		CollateralValue: collateralValue,
		DebtValue:       debtValue,
		HealthRatio:     report.Ratio,
		QueuedBlock:     e.height,
	}
	if err := e.state.LiquidationPutEntry(entry); err != nil {
		return nil, err
	}
	if err := e.state.LiquidationSetQueuedLoan(loanID, entry.Position); err != nil {
		return nil, err
	}
	cursor.Tail++
	if err := e.state.LiquidationSetCursor(cursor); err != nil {
		return nil, err
	}
	e.emitter.Emit(queueEvent(entry))
	return entry, nil
}

// ExecuteLiquidation liquidates the queued loan at the given position and
// pays the caller a reward cut of the snapshotted collateral value. The entry
// is removed only when the whole flow succeeds.
func (e *Engine) ExecuteLiquidation(caller [20]byte, position uint64) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.loans == nil || e.transfer == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	entry, err := e.state.LiquidationGetEntry(position)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrPositionNotFound
	}
	entry.EnsureDefaults()
	if _, err := e.loans.Liquidate(caller, entry.LoanID); err != nil {
		return nil, err
	}
	reward := new(big.Int).Mul(entry.CollateralValue, new(big.Int).SetUint64(e.cfg.RewardPct))
	reward.Quo(reward, big.NewInt(100))
	if reward.Sign() > 0 {
		if err := e.transfer.Transfer(e.vault, caller, reward); err != nil {
			return nil, fmt.Errorf("liquidation engine: reward payout: %w", err)
		}
	}
	stats, err := e.state.LiquidationGetStats(caller)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &LiquidatorStats{Liquidator: caller}
	}
	stats.EnsureDefaults()
	stats.TotalLiquidations++
	stats.TotalReward = new(big.Int).Add(stats.TotalReward, reward)
	stats.LastLiquidationBlock = e.height
	if err := e.state.LiquidationPutStats(stats); err != nil {
		return nil, err
	}
	if err := e.state.LiquidationDeleteEntry(position); err != nil {
		return nil, err
	}
	if err := e.state.LiquidationClearQueuedLoan(entry.LoanID); err != nil {
		return nil, err
	}
	if err := e.advanceHead(); err != nil {
		return nil, err
	}
	e.emitter.Emit(executeEvent(entry, caller, reward))
	return reward, nil
}

// PendingQueue returns all queued entries in position order.
func (e *Engine) PendingQueue() ([]*QueueEntry, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cursor, err := e.state.LiquidationCursor()
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		return nil, nil
	}
	var pending []*QueueEntry
	for pos := cursor.Head; pos < cursor.Tail; pos++ {
		entry, err := e.state.LiquidationGetEntry(pos)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		entry.EnsureDefaults()
		pending = append(pending, entry)
	}
	return pending, nil
}

// Stats returns the lifetime liquidation record for an address, or nil when
// the address has never executed a liquidation.
func (e *Engine) Stats(addr [20]byte) (*LiquidatorStats, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	stats, err := e.state.LiquidationGetStats(addr)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		stats.EnsureDefaults()
	}
	return stats, nil
}

// QueuedPosition reports whether a loan has a pending entry and at which
// position.
func (e *Engine) QueuedPosition(loanID uint64) (uint64, bool, error) {
	if e.state == nil {
		return 0, false, ErrNilState
	}
	return e.state.LiquidationQueuedLoan(loanID)
}

// advanceHead moves the head cursor past executed positions so queue scans
// stay short.
func (e *Engine) advanceHead() error {
	cursor, err := e.state.LiquidationCursor()
	if err != nil {
		return err
	}
	if cursor == nil {
		return nil
	}
	moved := false
	for cursor.Head < cursor.Tail {
		entry, err := e.state.LiquidationGetEntry(cursor.Head)
		if err != nil {
			return err
		}
		if entry != nil {
			break
		}
		cursor.Head++
		moved = true
	}
	if !moved {
		return nil
	}
	return e.state.LiquidationSetCursor(cursor)
}

func scaleByPrice(amount, price *big.Int) *big.Int {
	if amount == nil || price == nil {
		return big.NewInt(0)
	}
	value := new(big.Int).Mul(amount, price)
	return value.Quo(value, big.NewInt(oracle.PriceScale))
}

func queueEvent(entry *QueueEntry) events.Event {
	return events.Wrapped{Evt: &types.Event{
		Type: "liquidation.queued",
		Attributes: map[string]string{
			"position":        fmt.Sprintf("%d", entry.Position),
			"loanId":          fmt.Sprintf("%d", entry.LoanID),
			"borrower":        common.AddrHex(entry.Borrower),
			"collateralValue": entry.CollateralValue.String(),
			"healthRatio":     fmt.Sprintf("%d", entry.HealthRatio),
		},
	}}
}

func executeEvent(entry *QueueEntry, caller [20]byte, reward *big.Int) events.Event {
	return events.Wrapped{Evt: &types.Event{
		Type: "liquidation.executed",
		Attributes: map[string]string{
			"position":   fmt.Sprintf("%d", entry.Position),
			"loanId":     fmt.Sprintf("%d", entry.LoanID),
			"liquidator": common.AddrHex(caller),
			"reward":     reward.String(),
		},
	}}
}
