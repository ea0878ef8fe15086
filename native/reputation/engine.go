package reputation

import "errors"

// ErrNilState marks an engine invoked before its persistence layer was wired.
var ErrNilState = errors.New("reputation engine: state not configured")

type engineState interface {
	ReputationGet(addr [20]byte) (*Reputation, error)
	ReputationPut(rep *Reputation) error
}

// Engine maintains borrower reputation records. Only the loan book calls the
// mutating methods; everything else reads scores.
type Engine struct {
	state engineState
}

// NewEngine constructs a reputation engine.
func NewEngine() *Engine { return &Engine{} }

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) ensure(addr [20]byte) (*Reputation, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	rep, err := e.state.ReputationGet(addr)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		rep = &Reputation{Owner: addr}
	}
	return rep, nil
}

// RecordLoanOpened bumps the borrower's total loan count.
func (e *Engine) RecordLoanOpened(addr [20]byte) error {
	rep, err := e.ensure(addr)
	if err != nil {
		return err
	}
	rep.TotalLoans++
	rep.Recompute()
	return e.state.ReputationPut(rep)
}

// RecordRepayment registers a successful loan closure.
func (e *Engine) RecordRepayment(addr [20]byte) error {
	rep, err := e.ensure(addr)
	if err != nil {
		return err
	}
	rep.SuccessfulRepayments++
	rep.Recompute()
	return e.state.ReputationPut(rep)
}

// RecordLiquidation registers a liquidation event and its score penalty.
func (e *Engine) RecordLiquidation(addr [20]byte) error {
	rep, err := e.ensure(addr)
	if err != nil {
		return err
	}
	rep.Liquidations++
	rep.Recompute()
	return e.state.ReputationPut(rep)
}

// Get returns the stored reputation. Unknown borrowers resolve to a zeroed
// record at read time without writing state.
func (e *Engine) Get(addr [20]byte) (*Reputation, error) {
	return e.ensure(addr)
}

// Score reports the borrower's current score.
func (e *Engine) Score(addr [20]byte) (uint64, error) {
	rep, err := e.ensure(addr)
	if err != nil {
		return 0, err
	}
	return rep.Score, nil
}
