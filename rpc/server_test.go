package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"lendfi/core"
	"lendfi/native/governance"
	"lendfi/native/ledger"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
	"lendfi/storage"
)

const (
	vaultHex = "aa00000000000000000000000000000000000000"
	adminHex = "ab00000000000000000000000000000000000000"
	aliceHex = "0100000000000000000000000000000000000000"
	bobHex   = "0200000000000000000000000000000000000000"
)

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *core.Node) {
	t.Helper()
	vault, err := parseAddress(vaultHex)
	require.NoError(t, err)
	admin, err := parseAddress(adminHex)
	require.NoError(t, err)
	alice, err := parseAddress(aliceHex)
	require.NoError(t, err)

	node := core.NewNode(storage.NewMemDB(), core.Config{
		Vault:             vault,
		OracleAdmin:       admin,
		GovernanceAddress: [20]byte{0xAC},
		Ledger:            ledger.Config{LargeOpThreshold: big.NewInt(1_000_000_000)},
		Loan: loan.Config{
			MinLoan: big.NewInt(100),
			MaxLoan: big.NewInt(10_000_000),
			DefaultParams: loan.ProtocolParameters{
				InterestRateBps:         500,
				CollateralRatioPct:      150,
				LiquidationThresholdPct: 120,
				LiquidationPenaltyPct:   10,
			},
		},
		Oracle: oracle.Config{
			MaxOraclesPerAsset: 5,
			MaxDeviationPct:    20,
			DefaultPrice:       big.NewInt(oracle.PriceScale),
			DefaultConfidence:  100,
		},
		Liquidation: liquidation.Config{BaseAsset: "ETH", MinLiquidationValue: big.NewInt(100), RewardPct: 5},
		Governance:  governance.Config{VotingPeriodBlocks: 100, MaxProposalLifetime: 300},
	}, nil)
	require.NoError(t, node.Credit(vault, big.NewInt(1_000_000)))
	require.NoError(t, node.Credit(alice, big.NewInt(100_000)))

	return NewServer(node, nil), node
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHealthz(t *testing.T) {
	s, node := newTestServer(t)
	node.SetBlockHeight(7)
	rec, env := doRequest(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	var result map[string]uint64
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Equal(t, uint64(7), result["height"])
}

func TestDepositAndBalance(t *testing.T) {
	s, _ := newTestServer(t)
	rec, env := doRequest(t, s, http.MethodPost, "/v1/ledger/deposit", map[string]string{
		"owner":  aliceHex,
		"amount": "10000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	var result map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Equal(t, "10000", result["balance"])
	require.Equal(t, "0", result["accrued"])

	rec, env = doRequest(t, s, http.MethodGet, "/v1/ledger/balance/"+aliceHex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Equal(t, "10000", result["balance"])

	rec, env = doRequest(t, s, http.MethodGet, "/v1/ledger/total", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Equal(t, "10000", result["total"])
}

func TestBorrowAndReadLoan(t *testing.T) {
	s, _ := newTestServer(t)
	rec, env := doRequest(t, s, http.MethodPost, "/v1/loans/borrow", map[string]string{
		"borrower":   aliceHex,
		"amount":     "1000",
		"collateral": "1500",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	var created map[string]uint64
	require.NoError(t, json.Unmarshal(env.Result, &created))
	require.Equal(t, uint64(1), created["loanId"])

	rec, env = doRequest(t, s, http.MethodGet, "/v1/loans/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view loanView
	require.NoError(t, json.Unmarshal(env.Result, &view))
	require.Equal(t, aliceHex, view.Borrower)
	require.Equal(t, "1000", view.Principal)
	require.False(t, view.Repaid)

	rec, env = doRequest(t, s, http.MethodGet, "/v1/loans/1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthView
	require.NoError(t, json.Unmarshal(env.Result, &health))
	require.Equal(t, uint64(150), health.Ratio)
	require.False(t, health.Liquidatable)
}

func TestErrorKindsAndStatusCodes(t *testing.T) {
	s, _ := newTestServer(t)

	// Unknown deposit account maps to 404 NotFound.
	rec, env := doRequest(t, s, http.MethodPost, "/v1/ledger/withdraw", map[string]string{
		"owner":  bobHex,
		"amount": "100",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, env.OK)
	require.NotNil(t, env.Error)
	require.Equal(t, KindNotFound, env.Error.Kind)

	// A non-admin oracle registration maps to 403 Unauthorized.
	rec, env = doRequest(t, s, http.MethodPost, "/v1/oracle/register", map[string]string{
		"caller": aliceHex,
		"asset":  "ETH",
		"oracle": bobHex,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, KindUnauthorized, env.Error.Kind)

	// Undercollateralized borrow maps to 422 with a domain kind.
	rec, env = doRequest(t, s, http.MethodPost, "/v1/loans/borrow", map[string]string{
		"borrower":   aliceHex,
		"amount":     "1000",
		"collateral": "1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, KindInsufficientCollateral, env.Error.Kind)

	// Malformed addresses and unknown fields are transport-level 400s.
	rec, _ = doRequest(t, s, http.MethodPost, "/v1/ledger/deposit", map[string]string{
		"owner":  "nothex",
		"amount": "100",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = doRequest(t, s, http.MethodPost, "/v1/ledger/deposit", map[string]string{
		"owner":   aliceHex,
		"amount":  "100",
		"unknown": "field",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	s, node := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/v1/admin/height", map[string]uint64{"height": 42})
	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]uint64
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.Equal(t, uint64(42), result["height"])
	require.Equal(t, uint64(42), node.BlockHeight())

	rec, _ = doRequest(t, s, http.MethodPost, "/v1/admin/pause", map[string]interface{}{
		"module": "ledger",
		"paused": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env = doRequest(t, s, http.MethodPost, "/v1/ledger/deposit", map[string]string{
		"owner":  aliceHex,
		"amount": "100",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, KindPaused, env.Error.Kind)
}

func TestGovernanceEndpoints(t *testing.T) {
	s, node := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/v1/governance/stake", map[string]interface{}{
		"owner":      aliceHex,
		"amount":     "10000",
		"lockBlocks": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var stake stakeView
	require.NoError(t, json.Unmarshal(env.Result, &stake))
	require.Equal(t, "10000", stake.Amount)

	rec, env = doRequest(t, s, http.MethodPost, "/v1/governance/proposals/", map[string]interface{}{
		"proposer":    aliceHex,
		"title":       "Raise rate",
		"description": "to 10%",
		"paramType":   governance.ParamInterestRate,
		"newValue":    1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var proposal proposalView
	require.NoError(t, json.Unmarshal(env.Result, &proposal))
	require.Equal(t, uint64(1), proposal.ID)

	rec, env = doRequest(t, s, http.MethodPost, "/v1/governance/proposals/1/vote", map[string]interface{}{
		"voter":   aliceHex,
		"inFavor": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var vote map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &vote))
	require.Equal(t, "10000", vote["power"])

	node.SetBlockHeight(101)
	rec, _ = doRequest(t, s, http.MethodPost, "/v1/governance/proposals/1/execute", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, s, http.MethodGet, "/v1/loans/params", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var params loan.ProtocolParameters
	require.NoError(t, json.Unmarshal(env.Result, &params))
	require.Equal(t, uint64(1000), params.InterestRateBps)
}
