package types

import "math/big"

// Address identifies an authenticated principal. The core never derives
// addresses itself; callers are expected to arrive pre-authenticated.
type Address = [20]byte

// Account holds the spendable balance for a principal inside the value
// transfer service. Amounts are big integers to keep accounting exact.
type Account struct {
	Balance *big.Int
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (a *Account) EnsureDefaults() {
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
}
