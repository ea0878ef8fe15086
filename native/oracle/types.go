package oracle

import "math/big"

// PriceScale expresses prices in micro-units: 1_000_000 equals 1.0.
const PriceScale = 1_000_000

// PriceData is the latest accepted price for an asset. Each valid update
// overwrites the record; the previous values live on in the history table.
type PriceData struct {
	Asset       string
	Price       *big.Int
	Block       uint64
	LastUpdater [20]byte
	Confidence  uint64
	OracleCount uint64
}

// EnsureDefaults populates nil fields so encoding and arithmetic are safe.
func (p *PriceData) EnsureDefaults() {
	if p.Price == nil {
		p.Price = big.NewInt(0)
	}
}

// Registration tracks one oracle's standing on one asset feed. Registrations
// are deactivated by the admin but never deleted, preserving the update
// counters for reputation scoring.
type Registration struct {
	Asset           string
	Oracle          [20]byte
	Active          bool
	LastUpdateBlock uint64
	UpdateCount     uint64
	// AccurateUpdates counts submissions that deviated less than 10% from
	// the prior price.
	AccurateUpdates uint64
	// DeviationScore accumulates the percentage deviation of every accepted
	// update.
	DeviationScore uint64
}

// HistoryPoint is one audited price observation, keyed by block height.
type HistoryPoint struct {
	Price      *big.Int
	Confidence uint64
	Block      uint64
	Updater    [20]byte
}

// Quote is the read-side projection returned by GetPrice. Stale prices are
// returned with IsStale set so callers can apply their own staleness policy.
type Quote struct {
	Price      *big.Int
	Confidence uint64
	Block      uint64
	IsStale    bool
}

// Config captures the oracle feed tolerances.
type Config struct {
	MaxOraclesPerAsset   uint64
	UpdateCooldownBlocks uint64
	// MaxDeviationPct caps the jump between consecutive prices; larger
	// updates are rejected outright, never clamped.
	MaxDeviationPct   uint64
	MaxPriceAgeBlocks uint64
	// DefaultPrice seeds an asset's feed at first registration.
	DefaultPrice      *big.Int
	DefaultConfidence uint64
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := c
	if c.DefaultPrice != nil {
		clone.DefaultPrice = new(big.Int).Set(c.DefaultPrice)
	}
	return clone
}
