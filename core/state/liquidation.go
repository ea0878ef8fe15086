package state

import (
	"fmt"

	"lendfi/native/liquidation"
)

var (
	liquidationEntryPrefix = []byte("liquidation/queue/")
	liquidationLoanPrefix  = []byte("liquidation/loan/")
	liquidationStatsPrefix = []byte("liquidation/stats/")
	liquidationCursorKey   = []byte("liquidation/cursor")
)

func liquidationEntryKey(position uint64) []byte {
	return composeKey(liquidationEntryPrefix, uint64Segment(position))
}

func liquidationLoanKey(loanID uint64) []byte {
	return composeKey(liquidationLoanPrefix, uint64Segment(loanID))
}

func liquidationStatsKey(addr [20]byte) []byte {
	return composeKey(liquidationStatsPrefix, addr[:])
}

// LiquidationGetEntry loads the queue entry at a position, or nil when the
// position was never filled or already executed.
func (m *Manager) LiquidationGetEntry(position uint64) (*liquidation.QueueEntry, error) {
	entry := &liquidation.QueueEntry{}
	ok, err := m.KVGet(liquidationEntryKey(position), entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// LiquidationPutEntry persists a queue entry keyed by its position.
func (m *Manager) LiquidationPutEntry(entry *liquidation.QueueEntry) error {
	if entry == nil {
		return fmt.Errorf("state: queue entry must not be nil")
	}
	return m.KVPut(liquidationEntryKey(entry.Position), entry)
}

// LiquidationDeleteEntry removes an executed queue entry.
func (m *Manager) LiquidationDeleteEntry(position uint64) error {
	return m.KVDelete(liquidationEntryKey(position))
}

// LiquidationCursor loads the queue head/tail cursor, or nil before the first
// entry is queued.
func (m *Manager) LiquidationCursor() (*liquidation.QueueCursor, error) {
	cursor := &liquidation.QueueCursor{}
	ok, err := m.KVGet(liquidationCursorKey, cursor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return cursor, nil
}

// LiquidationSetCursor stores the queue head/tail cursor.
func (m *Manager) LiquidationSetCursor(cursor *liquidation.QueueCursor) error {
	if cursor == nil {
		return fmt.Errorf("state: queue cursor must not be nil")
	}
	return m.KVPut(liquidationCursorKey, cursor)
}

// LiquidationQueuedLoan reports whether a loan is queued and at which
// position.
func (m *Manager) LiquidationQueuedLoan(loanID uint64) (uint64, bool, error) {
	var position uint64
	ok, err := m.KVGet(liquidationLoanKey(loanID), &position)
	if err != nil {
		return 0, false, err
	}
	return position, ok, nil
}

// LiquidationSetQueuedLoan records the queue position held by a loan.
func (m *Manager) LiquidationSetQueuedLoan(loanID, position uint64) error {
	return m.KVPut(liquidationLoanKey(loanID), position)
}

// LiquidationClearQueuedLoan removes a loan's queue marker.
func (m *Manager) LiquidationClearQueuedLoan(loanID uint64) error {
	return m.KVDelete(liquidationLoanKey(loanID))
}

// LiquidationGetStats loads a liquidator's lifetime stats, or nil when the
// address has never executed a liquidation.
func (m *Manager) LiquidationGetStats(addr [20]byte) (*liquidation.LiquidatorStats, error) {
	stats := &liquidation.LiquidatorStats{}
	ok, err := m.KVGet(liquidationStatsKey(addr), stats)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stats, nil
}

// LiquidationPutStats persists a liquidator's lifetime stats.
func (m *Manager) LiquidationPutStats(stats *liquidation.LiquidatorStats) error {
	if stats == nil {
		return fmt.Errorf("state: liquidator stats must not be nil")
	}
	return m.KVPut(liquidationStatsKey(stats.Liquidator), stats)
}
