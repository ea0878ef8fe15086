package common

import (
	"errors"
	"math/big"
)

// ErrInsufficientFunds is returned by the value transfer service when the
// debited account cannot cover the amount.
var ErrInsufficientFunds = errors.New("transfer: insufficient funds")

// TransferService is the external value-transfer collaborator. The engines
// never mutate balances directly: every deposit, payout, collateral lock and
// reward flows through this interface so a failed transfer aborts the
// enclosing operation together with the rest of its writes.
type TransferService interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	BalanceOf(addr [20]byte) (*big.Int, error)
}
