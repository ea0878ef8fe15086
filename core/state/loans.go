package state

import (
	"fmt"
	"math/big"

	"lendfi/native/loan"
)

var (
	loanRecordPrefix      = []byte("loan/record/")
	loanOwnerPrefix       = []byte("loan/owner/")
	loanSeqKey            = []byte("loan/seq")
	loanTotalKey          = []byte("loan/total")
	loanParamsKey         = []byte("loan/params")
	loanLiquidationPrefix = []byte("loan/liquidation/")
	loanLiquidationSeqKey = []byte("loan/liquidation/seq")
)

func loanRecordKey(id uint64) []byte {
	return composeKey(loanRecordPrefix, uint64Segment(id))
}

func loanOwnerKey(addr [20]byte) []byte {
	return composeKey(loanOwnerPrefix, addr[:])
}

func loanLiquidationKey(index uint64) []byte {
	return composeKey(loanLiquidationPrefix, uint64Segment(index))
}

// LoanGet loads a loan by id, or nil when absent.
func (m *Manager) LoanGet(id uint64) (*loan.Loan, error) {
	record := &loan.Loan{}
	ok, err := m.KVGet(loanRecordKey(id), record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return record, nil
}

// LoanPut persists a loan keyed by its id.
func (m *Manager) LoanPut(record *loan.Loan) error {
	if record == nil {
		return fmt.Errorf("state: loan must not be nil")
	}
	return m.KVPut(loanRecordKey(record.ID), record)
}

// LoanNextID allocates the next loan id. Ids start at 1 and never repeat.
func (m *Manager) LoanNextID() (uint64, error) {
	seq, err := m.KVGetUint64(loanSeqKey)
	if err != nil {
		return 0, err
	}
	seq++
	if err := m.KVPutUint64(loanSeqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// LoanOwnerIDs loads the ordered loan id list for a borrower.
func (m *Manager) LoanOwnerIDs(addr [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.KVGet(loanOwnerKey(addr), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// LoanPutOwnerIDs stores the ordered loan id list for a borrower.
func (m *Manager) LoanPutOwnerIDs(addr [20]byte, ids []uint64) error {
	return m.KVPut(loanOwnerKey(addr), ids)
}

// LoanTotalBorrowed reads the outstanding principal total, defaulting to zero.
func (m *Manager) LoanTotalBorrowed() (*big.Int, error) {
	var total big.Int
	ok, err := m.KVGet(loanTotalKey, &total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &total, nil
}

// LoanSetTotalBorrowed stores the outstanding principal total.
func (m *Manager) LoanSetTotalBorrowed(total *big.Int) error {
	if total == nil {
		return fmt.Errorf("state: borrowed total must not be nil")
	}
	return m.KVPut(loanTotalKey, total)
}

// LoanParams loads the governed protocol parameters, or nil when the chain
// still runs on configured defaults.
func (m *Manager) LoanParams() (*loan.ProtocolParameters, error) {
	params := &loan.ProtocolParameters{}
	ok, err := m.KVGet(loanParamsKey, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return params, nil
}

// LoanPutParams stores the governed protocol parameters.
func (m *Manager) LoanPutParams(params *loan.ProtocolParameters) error {
	if params == nil {
		return fmt.Errorf("state: protocol parameters must not be nil")
	}
	return m.KVPut(loanParamsKey, params)
}

// LoanAppendLiquidation appends a liquidation record to the audit log.
func (m *Manager) LoanAppendLiquidation(record *loan.LiquidationRecord) error {
	if record == nil {
		return fmt.Errorf("state: liquidation record must not be nil")
	}
	seq, err := m.KVGetUint64(loanLiquidationSeqKey)
	if err != nil {
		return err
	}
	if err := m.KVPut(loanLiquidationKey(seq), record); err != nil {
		return err
	}
	return m.KVPutUint64(loanLiquidationSeqKey, seq+1)
}

// LoanLiquidationCount reports how many liquidation records exist.
func (m *Manager) LoanLiquidationCount() (uint64, error) {
	return m.KVGetUint64(loanLiquidationSeqKey)
}

// LoanLiquidationAt loads a liquidation record by log index, or nil when out
// of range.
func (m *Manager) LoanLiquidationAt(index uint64) (*loan.LiquidationRecord, error) {
	record := &loan.LiquidationRecord{}
	ok, err := m.KVGet(loanLiquidationKey(index), record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return record, nil
}
