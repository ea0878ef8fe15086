package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendfi/core"
)

// Server exposes the protocol node over HTTP. Every mutating endpoint maps
// onto exactly one atomic node operation; responses use a tagged envelope so
// callers never have to interpret transport errors as protocol outcomes.
type Server struct {
	node   *core.Node
	log    *slog.Logger
	router chi.Router
}

// NewServer builds the HTTP surface for the supplied node.
func NewServer(node *core.Node, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{node: node, log: logger}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ledger", func(r chi.Router) {
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Get("/balance/{address}", s.handleDepositBalance)
			r.Get("/total", s.handleTotalDeposits)
		})
		r.Route("/loans", func(r chi.Router) {
			r.Post("/borrow", s.handleBorrow)
			r.Post("/repay", s.handleRepay)
			r.Post("/liquidate", s.handleLiquidate)
			r.Get("/params", s.handleLoanParams)
			r.Get("/borrower/{address}", s.handleLoansOf)
			r.Get("/{id}", s.handleGetLoan)
			r.Get("/{id}/health", s.handleLoanHealth)
		})
		r.Get("/reputation/{address}", s.handleReputation)
		r.Route("/oracle", func(r chi.Router) {
			r.Post("/register", s.handleRegisterOracle)
			r.Post("/deactivate", s.handleDeactivateOracle)
			r.Post("/price", s.handleUpdatePrice)
			r.Get("/price/{asset}", s.handleGetPrice)
		})
		r.Route("/liquidation", func(r chi.Router) {
			r.Post("/queue", s.handleQueueLiquidation)
			r.Post("/execute", s.handleExecuteLiquidation)
			r.Get("/queue", s.handlePendingQueue)
			r.Get("/stats/{address}", s.handleLiquidatorStats)
		})
		r.Route("/governance", func(r chi.Router) {
			r.Post("/stake", s.handleStake)
			r.Post("/unstake", s.handleUnstake)
			r.Post("/delegate", s.handleDelegate)
			r.Post("/revoke", s.handleRevoke)
			r.Get("/power/{address}", s.handleEffectivePower)
			r.Get("/stake/{address}", s.handleStakeOf)
			r.Get("/history", s.handleExecutionHistory)
			r.Route("/proposals", func(r chi.Router) {
				r.Post("/", s.handleCreateProposal)
				r.Get("/{id}", s.handleGetProposal)
				r.Post("/{id}/vote", s.handleVote)
				r.Post("/{id}/execute", s.handleExecuteProposal)
			})
		})
		r.Get("/events", s.handleEvents)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/height", s.handleSetHeight)
			r.Post("/pause", s.handleSetPause)
		})
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response{OK: true, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errorKind(err)
	status := http.StatusUnprocessableEntity
	switch kind {
	case KindNotFound:
		status = http.StatusNotFound
	case KindUnauthorized:
		status = http.StatusForbidden
	case KindInternal:
		status = http.StatusInternalServerError
		s.log.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{OK: false, Error: &errorBody{Kind: kind, Message: err.Error()}})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(response{OK: false, Error: &errorBody{Kind: KindInvalidAmount, Message: err.Error()}})
}

func decode(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func pathAddress(r *http.Request) ([20]byte, error) {
	return parseAddress(chi.URLParam(r, "address"))
}

func pathUint64(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeResult(w, map[string]uint64{"height": s.node.BlockHeight()})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner"`
		Amount string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	balance, accrued, err := s.node.Deposit(owner, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{
		"balance": bigString(balance),
		"accrued": bigString(accrued),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner"`
		Amount string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	balance, accrued, err := s.node.Withdraw(owner, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{
		"balance": bigString(balance),
		"accrued": bigString(accrued),
	})
}

func (s *Server) handleDepositBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	balance, err := s.node.DepositBalanceOf(owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"balance": bigString(balance)})
}

func (s *Server) handleTotalDeposits(w http.ResponseWriter, _ *http.Request) {
	total, err := s.node.TotalDeposits()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"total": bigString(total)})
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Borrower   string `json:"borrower"`
		Amount     string `json:"amount"`
		Collateral string `json:"collateral"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	collateral, err := parseAmount(req.Collateral)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	loanID, err := s.node.Borrow(borrower, amount, collateral)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]uint64{"loanId": loanID})
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		LoanID uint64 `json:"loanId"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	paid, err := s.node.Repay(caller, req.LoanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"paid": bigString(paid)})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		LoanID uint64 `json:"loanId"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	penalty, err := s.node.Liquidate(caller, req.LoanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"penalty": bigString(penalty)})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	loanRecord, err := s.node.GetLoan(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newLoanView(loanRecord))
}

func (s *Server) handleLoanHealth(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	report, err := s.node.LoanHealth(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newHealthView(report))
}

func (s *Server) handleLoansOf(w http.ResponseWriter, r *http.Request) {
	borrower, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	ids, err := s.node.LoansOf(borrower)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string][]uint64{"loanIds": ids})
}

func (s *Server) handleLoanParams(w http.ResponseWriter, _ *http.Request) {
	params, err := s.node.LoanParams()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, params)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	rep, err := s.node.ReputationOf(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newReputationView(rep))
}

func (s *Server) handleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
		Oracle string `json:"oracle"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	oracleAddr, err := parseAddress(req.Oracle)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.RegisterOracle(caller, req.Asset, oracleAddr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleDeactivateOracle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
		Oracle string `json:"oracle"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	oracleAddr, err := parseAddress(req.Oracle)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.DeactivateOracle(caller, req.Asset, oracleAddr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Oracle     string `json:"oracle"`
		Asset      string `json:"asset"`
		Price      string `json:"price"`
		Confidence uint64 `json:"confidence"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	oracleAddr, err := parseAddress(req.Oracle)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.UpdatePrice(oracleAddr, req.Asset, price, req.Confidence); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := s.node.GetPrice(chi.URLParam(r, "asset"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newQuoteView(quote))
}

func (s *Server) handleQueueLiquidation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID uint64 `json:"loanId"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	entry, err := s.node.QueueForLiquidation(req.LoanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newQueueEntryView(entry))
}

func (s *Server) handleExecuteLiquidation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller   string `json:"caller"`
		Position uint64 `json:"position"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	reward, err := s.node.ExecuteLiquidation(caller, req.Position)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"reward": bigString(reward)})
}

func (s *Server) handlePendingQueue(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.node.PendingLiquidations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]*queueEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newQueueEntryView(entry))
	}
	s.writeResult(w, views)
}

func (s *Server) handleLiquidatorStats(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	stats, err := s.node.LiquidatorStats(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newStatsView(stats))
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner      string `json:"owner"`
		Amount     string `json:"amount"`
		LockBlocks uint64 `json:"lockBlocks"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	stake, err := s.node.Stake(owner, amount, req.LockBlocks)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newStakeView(stake))
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner  string `json:"owner"`
		Amount string `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	stake, err := s.node.Unstake(owner, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newStakeView(stake))
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner    string `json:"owner"`
		Delegate string `json:"delegate"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	delegate, err := parseAddress(req.Delegate)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	d, err := s.node.Delegate(owner, delegate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{
		"delegator": addrString(d.Delegator),
		"delegate":  addrString(d.Delegate),
		"power":     bigString(d.Power),
	})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.RevokeDelegation(owner); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleEffectivePower(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	power, err := s.node.EffectivePower(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"power": bigString(power)})
}

func (s *Server) handleStakeOf(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	stake, err := s.node.StakeOf(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newStakeView(stake))
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Proposer    string `json:"proposer"`
		Title       string `json:"title"`
		Description string `json:"description"`
		ParamType   string `json:"paramType"`
		NewValue    uint64 `json:"newValue"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	proposer, err := parseAddress(req.Proposer)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	p, err := s.node.CreateProposal(proposer, req.Title, req.Description, req.ParamType, req.NewValue)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newProposalView(p))
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	p, err := s.node.GetProposal(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, newProposalView(p))
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	var req struct {
		Voter   string `json:"voter"`
		InFavor bool   `json:"inFavor"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	voter, err := parseAddress(req.Voter)
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	v, err := s.node.VoteOnProposal(voter, id, req.InFavor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, map[string]string{"power": bigString(v.Power)})
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathUint64(r, "id")
	if err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.node.ExecuteProposal(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, nil)
}

func (s *Server) handleExecutionHistory(w http.ResponseWriter, _ *http.Request) {
	records, err := s.node.ExecutionHistory()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResult(w, records)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	evts := s.node.Events()
	views := make([]eventView, 0, len(evts))
	for _, evt := range evts {
		views = append(views, newEventView(evt))
	}
	s.writeResult(w, views)
}

func (s *Server) handleSetHeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Height uint64 `json:"height"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	s.node.SetBlockHeight(req.Height)
	s.writeResult(w, map[string]uint64{"height": s.node.BlockHeight()})
}

func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Module string `json:"module"`
		Paused bool   `json:"paused"`
	}
	if err := decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	s.node.SetPaused(req.Module, req.Paused)
	s.writeResult(w, nil)
}
