package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"lendfi/core/events"
	"lendfi/native/governance"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
	"lendfi/native/reputation"
)

// response is the tagged envelope every endpoint returns.
type response struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", value)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("address %q must be 20 bytes", value)
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addrString(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

type loanView struct {
	ID                uint64 `json:"id"`
	Borrower          string `json:"borrower"`
	Principal         string `json:"principal"`
	Collateral        string `json:"collateral"`
	StartBlock        uint64 `json:"startBlock"`
	AccruedInterest   string `json:"accruedInterest"`
	LastInterestBlock uint64 `json:"lastInterestBlock"`
	Repaid            bool   `json:"repaid"`
	Liquidated        bool   `json:"liquidated"`
}

func newLoanView(l *loan.Loan) *loanView {
	if l == nil {
		return nil
	}
	return &loanView{
		ID:                l.ID,
		Borrower:          addrString(l.Borrower),
		Principal:         bigString(l.Principal),
		Collateral:        bigString(l.Collateral),
		StartBlock:        l.StartBlock,
		AccruedInterest:   bigString(l.AccruedInterest),
		LastInterestBlock: l.LastInterestBlock,
		Repaid:            l.Repaid,
		Liquidated:        l.Liquidated,
	}
}

type healthView struct {
	Ratio           uint64 `json:"ratio"`
	HealthFactorPct uint64 `json:"healthFactorPct"`
	TotalDebt       string `json:"totalDebt"`
	Liquidatable    bool   `json:"liquidatable"`
}

func newHealthView(r *loan.HealthReport) *healthView {
	if r == nil {
		return nil
	}
	return &healthView{
		Ratio:           r.Ratio,
		HealthFactorPct: r.HealthFactorPct,
		TotalDebt:       bigString(r.TotalDebt),
		Liquidatable:    r.Liquidatable,
	}
}

type quoteView struct {
	Price      string `json:"price"`
	Confidence uint64 `json:"confidence"`
	Block      uint64 `json:"block"`
	IsStale    bool   `json:"isStale"`
}

func newQuoteView(q *oracle.Quote) *quoteView {
	if q == nil {
		return nil
	}
	return &quoteView{
		Price:      bigString(q.Price),
		Confidence: q.Confidence,
		Block:      q.Block,
		IsStale:    q.IsStale,
	}
}

type queueEntryView struct {
	Position        uint64 `json:"position"`
	LoanID          uint64 `json:"loanId"`
	Borrower        string `json:"borrower"`
	CollateralValue string `json:"collateralValue"`
	DebtValue       string `json:"debtValue"`
	HealthRatio     uint64 `json:"healthRatio"`
	QueuedBlock     uint64 `json:"queuedBlock"`
}

func newQueueEntryView(e *liquidation.QueueEntry) *queueEntryView {
	if e == nil {
		return nil
	}
	return &queueEntryView{
		Position:        e.Position,
		LoanID:          e.LoanID,
		Borrower:        addrString(e.Borrower),
		CollateralValue: bigString(e.CollateralValue),
		DebtValue:       bigString(e.DebtValue),
		HealthRatio:     e.HealthRatio,
		QueuedBlock:     e.QueuedBlock,
	}
}

type statsView struct {
	Liquidator           string `json:"liquidator"`
	TotalLiquidations    uint64 `json:"totalLiquidations"`
	TotalReward          string `json:"totalReward"`
	LastLiquidationBlock uint64 `json:"lastLiquidationBlock"`
}

func newStatsView(s *liquidation.LiquidatorStats) *statsView {
	if s == nil {
		return nil
	}
	return &statsView{
		Liquidator:           addrString(s.Liquidator),
		TotalLiquidations:    s.TotalLiquidations,
		TotalReward:          bigString(s.TotalReward),
		LastLiquidationBlock: s.LastLiquidationBlock,
	}
}

type stakeView struct {
	Owner          string `json:"owner"`
	Amount         string `json:"amount"`
	LastStakeBlock uint64 `json:"lastStakeBlock"`
	LockEnd        uint64 `json:"lockEnd"`
	Power          string `json:"power"`
}

func newStakeView(s *governance.Stake) *stakeView {
	if s == nil {
		return nil
	}
	return &stakeView{
		Owner:          addrString(s.Owner),
		Amount:         bigString(s.Amount),
		LastStakeBlock: s.LastStakeBlock,
		LockEnd:        s.LockEnd,
		Power:          bigString(s.Power),
	}
}

type proposalView struct {
	ID           uint64 `json:"id"`
	Proposer     string `json:"proposer"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ParamType    string `json:"paramType"`
	NewValue     uint64 `json:"newValue"`
	VotesFor     string `json:"votesFor"`
	VotesAgainst string `json:"votesAgainst"`
	StartBlock   uint64 `json:"startBlock"`
	EndBlock     uint64 `json:"endBlock"`
	Deadline     uint64 `json:"deadline"`
	Executed     bool   `json:"executed"`
	VoterCount   uint64 `json:"voterCount"`
}

func newProposalView(p *governance.Proposal) *proposalView {
	if p == nil {
		return nil
	}
	return &proposalView{
		ID:           p.ID,
		Proposer:     addrString(p.Proposer),
		Title:        p.Title,
		Description:  p.Description,
		ParamType:    p.ParamType,
		NewValue:     p.NewValue,
		VotesFor:     bigString(p.VotesFor),
		VotesAgainst: bigString(p.VotesAgainst),
		StartBlock:   p.StartBlock,
		EndBlock:     p.EndBlock,
		Deadline:     p.Deadline,
		Executed:     p.Executed,
		VoterCount:   p.VoterCount,
	}
}

type reputationView struct {
	Owner                string `json:"owner"`
	SuccessfulRepayments uint64 `json:"successfulRepayments"`
	TotalLoans           uint64 `json:"totalLoans"`
	Liquidations         uint64 `json:"liquidations"`
	Score                uint64 `json:"score"`
}

func newReputationView(r *reputation.Reputation) *reputationView {
	if r == nil {
		return nil
	}
	return &reputationView{
		Owner:                addrString(r.Owner),
		SuccessfulRepayments: r.SuccessfulRepayments,
		TotalLoans:           r.TotalLoans,
		Liquidations:         r.Liquidations,
		Score:                r.Score,
	}
}

type eventView struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func newEventView(evt events.Event) eventView {
	view := eventView{Type: evt.EventType()}
	if wrapped, ok := evt.(events.Wrapped); ok && wrapped.Evt != nil {
		view.Attributes = wrapped.Evt.Attributes
	}
	return view
}
