package state

import (
	"fmt"

	"lendfi/native/reputation"
)

var reputationPrefix = []byte("reputation/")

func reputationKey(addr [20]byte) []byte {
	return composeKey(reputationPrefix, addr[:])
}

// ReputationGet loads a borrower's reputation record, or nil when absent.
func (m *Manager) ReputationGet(addr [20]byte) (*reputation.Reputation, error) {
	rep := &reputation.Reputation{}
	ok, err := m.KVGet(reputationKey(addr), rep)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return rep, nil
}

// ReputationPut persists a borrower's reputation record.
func (m *Manager) ReputationPut(rep *reputation.Reputation) error {
	if rep == nil {
		return fmt.Errorf("state: reputation must not be nil")
	}
	return m.KVPut(reputationKey(rep.Owner), rep)
}
