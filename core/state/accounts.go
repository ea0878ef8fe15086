package state

import (
	"fmt"
	"math/big"

	"lendfi/core/types"
	"lendfi/native/common"
)

var accountPrefix = []byte("account/")

func accountKey(addr [20]byte) []byte {
	return append(append([]byte(nil), accountPrefix...), addr[:]...)
}

// GetAccount loads the account record for the supplied address. Unknown
// addresses resolve to a zero-balance account without writing state.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	ok, err := m.KVGet(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	return account, nil
}

// PutAccount persists the account record for the supplied address.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	account.EnsureDefaults()
	return m.KVPut(accountKey(addr), account)
}

// Credit adds to an account balance, creating the record when absent. It is
// exposed for genesis seeding and tests; the engines themselves move value
// exclusively through Transfer.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: credit amount must be positive")
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr, account)
}

// Transfer implements the value transfer service over account records. Either
// both balance mutations land in the overlay or, when the snapshot is
// reverted, neither does.
func (m *Manager) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: transfer amount must be positive")
	}
	if from == to {
		return nil
	}
	sender, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return common.ErrInsufficientFunds
	}
	recipient, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := m.PutAccount(from, sender); err != nil {
		return err
	}
	return m.PutAccount(to, recipient)
}

// BalanceOf reports the spendable balance for the supplied address.
func (m *Manager) BalanceOf(addr [20]byte) (*big.Int, error) {
	account, err := m.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}
