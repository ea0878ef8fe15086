package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lendfi/storage"
)

// Manager provides the durable key-value state shared by the protocol
// engines. Values are RLP encoded and keys are hashed with keccak256 so key
// layout changes never leak into the backing store.
//
// Writes are buffered in an overlay and journalled, giving every top-level
// operation all-or-nothing semantics: the dispatcher takes a snapshot before
// invoking an engine, reverts the journal on failure and commits the overlay
// to the database on success. The protocol is single-writer by design, so the
// manager performs no locking of its own.
type Manager struct {
	db      storage.Database
	overlay map[string][]byte // pending writes; nil value marks deletion
	journal []journalEntry
}

type journalEntry struct {
	key     string
	prev    []byte
	existed bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		overlay: make(map[string][]byte),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Snapshot returns a revision identifier for the current journal position.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot unwinds every overlay mutation recorded after the supplied
// revision, restoring the state visible when Snapshot was called.
func (m *Manager) RevertToSnapshot(revision int) {
	if revision < 0 {
		revision = 0
	}
	for i := len(m.journal) - 1; i >= revision; i-- {
		entry := m.journal[i]
		if entry.existed {
			m.overlay[entry.key] = entry.prev
		} else {
			delete(m.overlay, entry.key)
		}
	}
	if revision < len(m.journal) {
		m.journal = m.journal[:revision]
	}
}

// Commit flushes the buffered overlay to the backing database and resets the
// journal. A failed flush leaves the overlay intact so the caller can retry
// or abandon the batch.
func (m *Manager) Commit() error {
	for key, value := range m.overlay {
		if value == nil {
			if err := m.db.Delete([]byte(key)); err != nil {
				return err
			}
			continue
		}
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	m.overlay = make(map[string][]byte)
	m.journal = nil
	return nil
}

func (m *Manager) record(key string) {
	prev, existed := m.overlay[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, existed: existed})
}

func (m *Manager) rawPut(key, value []byte) {
	k := string(key)
	m.record(k)
	m.overlay[k] = append([]byte(nil), value...)
}

func (m *Manager) rawDelete(key []byte) {
	k := string(key)
	m.record(k)
	m.overlay[k] = nil
}

func (m *Manager) rawGet(key []byte) ([]byte, error) {
	if value, ok := m.overlay[string(key)]; ok {
		if value == nil {
			return nil, nil
		}
		return value, nil
	}
	return m.db.Get(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.rawPut(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the
// key existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.rawGet(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key. Deleting an
// absent key is a no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.rawDelete(kvKey(key))
	return nil
}

// KVGetUint64 reads a bare counter, defaulting to zero when unset.
func (m *Manager) KVGetUint64(key []byte) (uint64, error) {
	var value uint64
	ok, err := m.KVGet(key, &value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return value, nil
}

// KVPutUint64 stores a bare counter.
func (m *Manager) KVPutUint64(key []byte, value uint64) error {
	return m.KVPut(key, value)
}
