package oracle

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"lendfi/core/events"
	"lendfi/core/types"
	"lendfi/native/common"
)

var (
	ErrNilState              = errors.New("oracle engine: state not configured")
	ErrUnauthorized          = errors.New("oracle engine: caller not authorized")
	ErrInvalidAsset          = errors.New("oracle engine: asset identifier required")
	ErrTooManyOracles        = errors.New("oracle engine: asset oracle limit reached")
	ErrAlreadyRegistered     = errors.New("oracle engine: oracle already registered for asset")
	ErrOracleNotRegistered   = errors.New("oracle engine: oracle not registered for asset")
	ErrOracleInactive        = errors.New("oracle engine: oracle deactivated")
	ErrCooldownActive        = errors.New("oracle engine: oracle update cooldown active")
	ErrInvalidPrice          = errors.New("oracle engine: price must be positive")
	ErrInvalidConfidence     = errors.New("oracle engine: confidence must not exceed 100")
	ErrPriceDeviationTooHigh = errors.New("oracle engine: price deviation exceeds cap")
	ErrPriceNotFound         = errors.New("oracle engine: no price for asset")
)

const moduleName = "oracle"

const (
	EventTypeRegistered = "oracle.registered"
	EventTypePriceSet   = "oracle.price"
	EventTypeDeactivate = "oracle.deactivated"
)

// Updates deviating less than this many percent from the prior price count
// towards the oracle's accuracy score.
const accurateDeviationPct = 10

type engineState interface {
	OracleGetPrice(asset string) (*PriceData, error)
	OraclePutPrice(price *PriceData) error
	OracleGetRegistration(asset string, oracle [20]byte) (*Registration, error)
	OraclePutRegistration(reg *Registration) error
	OracleCount(asset string) (uint64, error)
	OracleSetCount(asset string, count uint64) error
	OracleAppendHistory(asset string, point *HistoryPoint) error
	OracleHistoryAt(asset string, block uint64) (*HistoryPoint, error)
}

// Engine validates and records oracle price submissions.
type Engine struct {
	state       engineState
	admin       [20]byte
	config      Config
	pauses      common.PauseView
	emitter     events.Emitter
	blockHeight uint64
}

// NewEngine constructs an oracle engine with the supplied tolerances.
func NewEngine(config Config) *Engine {
	return &Engine{
		config:  config.Clone(),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin registers the operator allowed to manage oracle registrations.
func (e *Engine) SetAdmin(addr [20]byte) {
	if e == nil {
		return
	}
	e.admin = addr
}

func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetBlockHeight records the logical clock value used for cooldown and
// staleness computations.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

func normaliseAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// RegisterOracle admits an oracle onto an asset feed, seeding a default price
// entry when the asset has none yet.
func (e *Engine) RegisterOracle(caller [20]byte, asset string, oracleAddr [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if common.ZeroAddress(e.admin) || caller != e.admin {
		return ErrUnauthorized
	}
	symbol := normaliseAsset(asset)
	if symbol == "" {
		return ErrInvalidAsset
	}

	count, err := e.state.OracleCount(symbol)
	if err != nil {
		return err
	}
	if e.config.MaxOraclesPerAsset > 0 && count >= e.config.MaxOraclesPerAsset {
		return ErrTooManyOracles
	}
	existing, err := e.state.OracleGetRegistration(symbol, oracleAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyRegistered
	}

	price, err := e.state.OracleGetPrice(symbol)
	if err != nil {
		return err
	}
	if price == nil {
		seed := e.config.DefaultPrice
		if seed == nil || seed.Sign() <= 0 {
			seed = big.NewInt(PriceScale)
		}
		price = &PriceData{
			Asset:      symbol,
			Price:      new(big.Int).Set(seed),
			Block:      e.blockHeight,
			Confidence: e.config.DefaultConfidence,
		}
	}
	price.OracleCount = count + 1
	if err := e.state.OraclePutPrice(price); err != nil {
		return err
	}

	if err := e.state.OraclePutRegistration(&Registration{
		Asset:  symbol,
		Oracle: oracleAddr,
		Active: true,
	}); err != nil {
		return err
	}
	if err := e.state.OracleSetCount(symbol, count+1); err != nil {
		return err
	}

	e.emit(EventTypeRegistered, map[string]string{
		"asset":  symbol,
		"oracle": common.AddrHex(oracleAddr),
		"count":  strconv.FormatUint(count+1, 10),
	})
	return nil
}

// DeactivateOracle retires an oracle from a feed. The registration record
// stays behind so its update history remains auditable.
func (e *Engine) DeactivateOracle(caller [20]byte, asset string, oracleAddr [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if common.ZeroAddress(e.admin) || caller != e.admin {
		return ErrUnauthorized
	}
	symbol := normaliseAsset(asset)
	reg, err := e.state.OracleGetRegistration(symbol, oracleAddr)
	if err != nil {
		return err
	}
	if reg == nil {
		return ErrOracleNotRegistered
	}
	reg.Active = false
	if err := e.state.OraclePutRegistration(reg); err != nil {
		return err
	}
	e.emit(EventTypeDeactivate, map[string]string{
		"asset":  symbol,
		"oracle": common.AddrHex(oracleAddr),
	})
	return nil
}

// UpdatePrice validates and applies an oracle submission. Deviations beyond
// the configured cap are rejected, not clamped.
func (e *Engine) UpdatePrice(oracleAddr [20]byte, asset string, price *big.Int, confidence uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	symbol := normaliseAsset(asset)
	if symbol == "" {
		return ErrInvalidAsset
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if confidence > 100 {
		return ErrInvalidConfidence
	}

	reg, err := e.state.OracleGetRegistration(symbol, oracleAddr)
	if err != nil {
		return err
	}
	if reg == nil {
		return ErrOracleNotRegistered
	}
	if !reg.Active {
		return ErrOracleInactive
	}
	if reg.LastUpdateBlock > 0 && e.config.UpdateCooldownBlocks > 0 {
		if elapsed(reg.LastUpdateBlock, e.blockHeight) < e.config.UpdateCooldownBlocks {
			return ErrCooldownActive
		}
	}

	current, err := e.state.OracleGetPrice(symbol)
	if err != nil {
		return err
	}
	var deviation uint64
	if current != nil && current.Price != nil && current.Price.Sign() > 0 {
		deviation = deviationPct(price, current.Price)
		if e.config.MaxDeviationPct > 0 && deviation > e.config.MaxDeviationPct {
			return ErrPriceDeviationTooHigh
		}
	}

	oracleCount := uint64(0)
	if current != nil {
		oracleCount = current.OracleCount
	}
	updated := &PriceData{
		Asset:       symbol,
		Price:       new(big.Int).Set(price),
		Block:       e.blockHeight,
		LastUpdater: oracleAddr,
		Confidence:  confidence,
		OracleCount: oracleCount,
	}
	if err := e.state.OraclePutPrice(updated); err != nil {
		return err
	}

	reg.LastUpdateBlock = e.blockHeight
	reg.UpdateCount++
	reg.DeviationScore += deviation
	if deviation < accurateDeviationPct {
		reg.AccurateUpdates++
	}
	if err := e.state.OraclePutRegistration(reg); err != nil {
		return err
	}

	if err := e.state.OracleAppendHistory(symbol, &HistoryPoint{
		Price:      new(big.Int).Set(price),
		Confidence: confidence,
		Block:      e.blockHeight,
		Updater:    oracleAddr,
	}); err != nil {
		return err
	}

	e.emit(EventTypePriceSet, map[string]string{
		"asset":      symbol,
		"oracle":     common.AddrHex(oracleAddr),
		"price":      price.String(),
		"confidence": strconv.FormatUint(confidence, 10),
		"deviation":  strconv.FormatUint(deviation, 10),
	})
	return nil
}

// GetPrice returns the latest price with its staleness flag. Stale prices are
// still returned so callers can apply their own policy.
func (e *Engine) GetPrice(asset string) (*Quote, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	symbol := normaliseAsset(asset)
	price, err := e.state.OracleGetPrice(symbol)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, ErrPriceNotFound
	}
	price.EnsureDefaults()
	stale := false
	if e.config.MaxPriceAgeBlocks > 0 {
		stale = elapsed(price.Block, e.blockHeight) > e.config.MaxPriceAgeBlocks
	}
	return &Quote{
		Price:      new(big.Int).Set(price.Price),
		Confidence: price.Confidence,
		Block:      price.Block,
		IsStale:    stale,
	}, nil
}

// Registration returns the standing of one oracle on one feed.
func (e *Engine) Registration(asset string, oracleAddr [20]byte) (*Registration, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	reg, err := e.state.OracleGetRegistration(normaliseAsset(asset), oracleAddr)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrOracleNotRegistered
	}
	return reg, nil
}

// HistoryAt returns the audited observation recorded at the given block, or
// nil when no update landed then.
func (e *Engine) HistoryAt(asset string, block uint64) (*HistoryPoint, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.OracleHistoryAt(normaliseAsset(asset), block)
}

func (e *Engine) emit(eventType string, attrs map[string]string) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrapped{Evt: &types.Event{Type: eventType, Attributes: attrs}})
}

// deviationPct computes |new-old|*100/max(new,old), truncating.
func deviationPct(newPrice, oldPrice *big.Int) uint64 {
	diff := new(big.Int).Sub(newPrice, oldPrice)
	if diff.Sign() < 0 {
		diff.Neg(diff)
	}
	max := oldPrice
	if newPrice.Cmp(oldPrice) > 0 {
		max = newPrice
	}
	if max.Sign() == 0 {
		return 0
	}
	pct := new(big.Int).Mul(diff, big.NewInt(100))
	pct.Quo(pct, max)
	if !pct.IsUint64() {
		return ^uint64(0)
	}
	return pct.Uint64()
}

func elapsed(since, now uint64) uint64 {
	if now <= since {
		return 0
	}
	return now - since
}
