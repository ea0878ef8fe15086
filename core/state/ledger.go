package state

import (
	"fmt"
	"math/big"

	"lendfi/native/ledger"
)

var (
	ledgerAccountPrefix = []byte("ledger/account/")
	ledgerTotalKey      = []byte("ledger/total")
)

func ledgerAccountKey(addr [20]byte) []byte {
	return composeKey(ledgerAccountPrefix, addr[:])
}

// LedgerGetAccount loads a deposit account, or nil when the owner has none.
func (m *Manager) LedgerGetAccount(addr [20]byte) (*ledger.DepositAccount, error) {
	account := &ledger.DepositAccount{}
	ok, err := m.KVGet(ledgerAccountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

// LedgerPutAccount persists a deposit account keyed by its owner.
func (m *Manager) LedgerPutAccount(account *ledger.DepositAccount) error {
	if account == nil {
		return fmt.Errorf("state: deposit account must not be nil")
	}
	return m.KVPut(ledgerAccountKey(account.Owner), account)
}

// LedgerDeleteAccount removes a deposit account record.
func (m *Manager) LedgerDeleteAccount(addr [20]byte) error {
	return m.KVDelete(ledgerAccountKey(addr))
}

// LedgerTotalDeposits reads the global deposit total, defaulting to zero.
func (m *Manager) LedgerTotalDeposits() (*big.Int, error) {
	var total big.Int
	ok, err := m.KVGet(ledgerTotalKey, &total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &total, nil
}

// LedgerSetTotalDeposits stores the global deposit total.
func (m *Manager) LedgerSetTotalDeposits(total *big.Int) error {
	if total == nil {
		return fmt.Errorf("state: deposit total must not be nil")
	}
	return m.KVPut(ledgerTotalKey, total)
}
