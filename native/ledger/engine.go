package ledger

import (
	"errors"
	"math/big"
	"strconv"

	"lendfi/core/events"
	"lendfi/core/types"
	"lendfi/native/common"
)

var (
	ErrNilState            = errors.New("ledger engine: state not configured")
	ErrInvalidAmount       = errors.New("ledger engine: amount must be positive")
	ErrAccountNotFound     = errors.New("ledger engine: deposit account not found")
	ErrInsufficientBalance = errors.New("ledger engine: insufficient balance")
	ErrCooldownActive      = errors.New("ledger engine: large operation cooldown active")
)

const moduleName = "ledger"

const (
	EventTypeDeposit  = "ledger.deposit"
	EventTypeWithdraw = "ledger.withdraw"
)

type engineState interface {
	LedgerGetAccount(addr [20]byte) (*DepositAccount, error)
	LedgerPutAccount(account *DepositAccount) error
	LedgerDeleteAccount(addr [20]byte) error
	LedgerTotalDeposits() (*big.Int, error)
	LedgerSetTotalDeposits(total *big.Int) error
}

// RateSource exposes the governed deposit interest rate. The loan book owns
// the protocol parameters; the ledger only ever reads them.
type RateSource interface {
	InterestRateBps() (uint64, error)
}

// Engine implements the account ledger: interest-bearing deposits with lazy
// accrual and a cooldown on consecutive large operations.
type Engine struct {
	state       engineState
	transfer    common.TransferService
	rates       RateSource
	vault       [20]byte
	config      Config
	pauses      common.PauseView
	emitter     events.Emitter
	blockHeight uint64
}

// NewEngine constructs a ledger engine paying into the supplied vault
// address.
func NewEngine(vault [20]byte, config Config) *Engine {
	return &Engine{
		vault:   vault,
		config:  config.Clone(),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTransfer wires the value transfer service used to move funds in and out
// of the vault.
func (e *Engine) SetTransfer(transfer common.TransferService) { e.transfer = transfer }

// SetRateSource wires the protocol parameter view that supplies the deposit
// interest rate.
func (e *Engine) SetRateSource(rates RateSource) { e.rates = rates }

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

// SetBlockHeight records the logical clock value used for accrual and
// cooldown computations.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// Vault returns the module vault address holding all deposits.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) rateBps() (uint64, error) {
	if e.rates == nil {
		return 0, nil
	}
	return e.rates.InterestRateBps()
}

func (e *Engine) isLarge(amount *big.Int) bool {
	if e.config.LargeOpThreshold == nil || e.config.LargeOpThreshold.Sign() == 0 {
		return false
	}
	return amount.Cmp(e.config.LargeOpThreshold) >= 0
}

// Deposit credits the owner's account with amount plus any interest accrued
// since the last update. It returns the new balance and the interest
// credited.
func (e *Engine) Deposit(owner [20]byte, amount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil || e.transfer == nil {
		return nil, nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	rate, err := e.rateBps()
	if err != nil {
		return nil, nil, err
	}
	account, err := e.state.LedgerGetAccount(owner)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		account = &DepositAccount{Owner: owner, LastAccrualBlock: e.blockHeight}
	}
	account.EnsureDefaults()

	accrued := common.AccrueInterest(account.Balance, rate, elapsed(account.LastAccrualBlock, e.blockHeight))

	if err := e.transfer.Transfer(owner, e.vault, amount); err != nil {
		return nil, nil, err
	}

	account.Balance = new(big.Int).Add(account.Balance, new(big.Int).Add(amount, accrued))
	account.LastAccrualBlock = e.blockHeight
	if e.isLarge(amount) {
		account.LastLargeOpBlock = e.blockHeight
	}
	if err := e.state.LedgerPutAccount(account); err != nil {
		return nil, nil, err
	}

	total, err := e.state.LedgerTotalDeposits()
	if err != nil {
		return nil, nil, err
	}
	total = new(big.Int).Add(total, new(big.Int).Add(amount, accrued))
	if err := e.state.LedgerSetTotalDeposits(total); err != nil {
		return nil, nil, err
	}

	e.emit(EventTypeDeposit, owner, amount, account.Balance, accrued)
	return new(big.Int).Set(account.Balance), accrued, nil
}

// Withdraw debits the owner's account after folding in pending interest,
// deleting the record when the remainder reaches zero. It returns the
// remaining balance and the interest credited.
func (e *Engine) Withdraw(owner [20]byte, amount *big.Int) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil || e.transfer == nil {
		return nil, nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	account, err := e.state.LedgerGetAccount(owner)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrAccountNotFound
	}
	account.EnsureDefaults()

	if e.isLarge(amount) && account.LastLargeOpBlock > 0 {
		if elapsed(account.LastLargeOpBlock, e.blockHeight) < e.config.CooldownBlocks {
			return nil, nil, ErrCooldownActive
		}
	}

	rate, err := e.rateBps()
	if err != nil {
		return nil, nil, err
	}
	accrued := common.AccrueInterest(account.Balance, rate, elapsed(account.LastAccrualBlock, e.blockHeight))
	available := new(big.Int).Add(account.Balance, accrued)
	if available.Cmp(amount) < 0 {
		return nil, nil, ErrInsufficientBalance
	}

	if err := e.transfer.Transfer(e.vault, owner, amount); err != nil {
		return nil, nil, err
	}

	remainder := new(big.Int).Sub(available, amount)

	total, err := e.state.LedgerTotalDeposits()
	if err != nil {
		return nil, nil, err
	}
	total = new(big.Int).Add(total, accrued)
	total.Sub(total, amount)
	if total.Sign() < 0 {
		total = big.NewInt(0)
	}
	if err := e.state.LedgerSetTotalDeposits(total); err != nil {
		return nil, nil, err
	}

	if remainder.Sign() == 0 {
		if err := e.state.LedgerDeleteAccount(owner); err != nil {
			return nil, nil, err
		}
	} else {
		account.Balance = remainder
		account.LastAccrualBlock = e.blockHeight
		if e.isLarge(amount) {
			account.LastLargeOpBlock = e.blockHeight
		}
		if err := e.state.LedgerPutAccount(account); err != nil {
			return nil, nil, err
		}
	}

	e.emit(EventTypeWithdraw, owner, amount, remainder, accrued)
	return remainder, accrued, nil
}

// BalanceOf projects the owner's balance including interest accrued since the
// last update. It never mutates state; accrual stays lazy until the next
// deposit or withdrawal.
func (e *Engine) BalanceOf(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	account, err := e.state.LedgerGetAccount(owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return big.NewInt(0), nil
	}
	account.EnsureDefaults()
	rate, err := e.rateBps()
	if err != nil {
		return nil, err
	}
	accrued := common.AccrueInterest(account.Balance, rate, elapsed(account.LastAccrualBlock, e.blockHeight))
	return new(big.Int).Add(account.Balance, accrued), nil
}

// TotalDeposits reports the tracked sum of all deposit balances.
func (e *Engine) TotalDeposits() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.LedgerTotalDeposits()
}

func (e *Engine) emit(eventType string, owner [20]byte, amount, balance, accrued *big.Int) {
	if e == nil || e.emitter == nil {
		return
	}
	attrs := map[string]string{
		"owner":    common.AddrHex(owner),
		"amount":   amount.String(),
		"balance":  balance.String(),
		"interest": accrued.String(),
		"height":   strconv.FormatUint(e.blockHeight, 10),
	}
	e.emitter.Emit(events.Wrapped{Evt: &types.Event{Type: eventType, Attributes: attrs}})
}

func elapsed(since, now uint64) uint64 {
	if now <= since {
		return 0
	}
	return now - since
}
