package state

import (
	"fmt"

	"lendfi/native/oracle"
)

var (
	oraclePricePrefix   = []byte("oracle/price/")
	oracleRegPrefix     = []byte("oracle/reg/")
	oracleCountPrefix   = []byte("oracle/count/")
	oracleHistoryPrefix = []byte("oracle/history/")
)

func oraclePriceKey(asset string) []byte {
	return composeKey(oraclePricePrefix, []byte(asset))
}

func oracleRegKey(asset string, addr [20]byte) []byte {
	return composeKey(oracleRegPrefix, []byte(asset), []byte("/"), addr[:])
}

func oracleCountKey(asset string) []byte {
	return composeKey(oracleCountPrefix, []byte(asset))
}

func oracleHistoryKey(asset string, block uint64) []byte {
	return composeKey(oracleHistoryPrefix, []byte(asset), []byte("/"), uint64Segment(block))
}

// OracleGetPrice loads the live price record for an asset, or nil when the
// asset has never been priced.
func (m *Manager) OracleGetPrice(asset string) (*oracle.PriceData, error) {
	price := &oracle.PriceData{}
	ok, err := m.KVGet(oraclePriceKey(asset), price)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return price, nil
}

// OraclePutPrice persists the live price record keyed by asset.
func (m *Manager) OraclePutPrice(price *oracle.PriceData) error {
	if price == nil {
		return fmt.Errorf("state: price data must not be nil")
	}
	return m.KVPut(oraclePriceKey(price.Asset), price)
}

// OracleGetRegistration loads an oracle's registration for an asset, or nil
// when the oracle was never registered.
func (m *Manager) OracleGetRegistration(asset string, addr [20]byte) (*oracle.Registration, error) {
	reg := &oracle.Registration{}
	ok, err := m.KVGet(oracleRegKey(asset, addr), reg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return reg, nil
}

// OraclePutRegistration persists an oracle registration.
func (m *Manager) OraclePutRegistration(reg *oracle.Registration) error {
	if reg == nil {
		return fmt.Errorf("state: registration must not be nil")
	}
	return m.KVPut(oracleRegKey(reg.Asset, reg.Oracle), reg)
}

// OracleCount reads the number of oracles registered for an asset.
func (m *Manager) OracleCount(asset string) (uint64, error) {
	return m.KVGetUint64(oracleCountKey(asset))
}

// OracleSetCount stores the number of oracles registered for an asset.
func (m *Manager) OracleSetCount(asset string, count uint64) error {
	return m.KVPutUint64(oracleCountKey(asset), count)
}

// OracleAppendHistory stores a history point keyed by its block. A second
// accepted update in the same block overwrites the first.
func (m *Manager) OracleAppendHistory(asset string, point *oracle.HistoryPoint) error {
	if point == nil {
		return fmt.Errorf("state: history point must not be nil")
	}
	return m.KVPut(oracleHistoryKey(asset, point.Block), point)
}

// OracleHistoryAt loads the history point recorded at a block, or nil when
// none was recorded.
func (m *Manager) OracleHistoryAt(asset string, block uint64) (*oracle.HistoryPoint, error) {
	point := &oracle.HistoryPoint{}
	ok, err := m.KVGet(oracleHistoryKey(asset, block), point)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return point, nil
}
