package core

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"lendfi/native/common"
	"lendfi/native/governance"
	"lendfi/native/ledger"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
	"lendfi/storage"
)

var (
	vault       = [20]byte{0xAA}
	oracleAdmin = [20]byte{0xAB}
	govAddr     = [20]byte{0xAC}
	alice       = [20]byte{0x01}
	keeper      = [20]byte{0x03}
	feeder      = [20]byte{0x04}
)

func testConfig() Config {
	return Config{
		Vault:             vault,
		OracleAdmin:       oracleAdmin,
		GovernanceAddress: govAddr,
		Ledger: ledger.Config{
			LargeOpThreshold: big.NewInt(1_000_000_000),
			CooldownBlocks:   6,
		},
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
			MaxOraclesPerAsset:   5,
			UpdateCooldownBlocks: 1,
			MaxDeviationPct:      20,
			MaxPriceAgeBlocks:    1_000_000,
			DefaultPrice:         big.NewInt(oracle.PriceScale),
			DefaultConfidence:    100,
		},
		Liquidation: liquidation.Config{
			BaseAsset:           "ETH",
			MinLiquidationValue: big.NewInt(100),
			RewardPct:           5,
		},
		Governance: governance.Config{
			VotingPeriodBlocks:    100,
			MaxProposalLifetime:   300,
			DelegationDecayBlocks: 200,
		},
	}
}

func newTestNode(t *testing.T) (*Node, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	node := NewNode(db, testConfig(), nil)
	return node, db
}

func TestDepositBorrowRepayFlow(t *testing.T) {
	node, _ := newTestNode(t)
	require.NoError(t, node.Credit(vault, big.NewInt(1_000_000)))
	require.NoError(t, node.Credit(alice, big.NewInt(100_000)))

	balance, accrued, err := node.Deposit(alice, big.NewInt(10_000))
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(10_000)))
	require.Zero(t, accrued.Sign())
	total, err := node.TotalDeposits()
	require.NoError(t, err)
	require.Zero(t, total.Cmp(big.NewInt(10_000)))

	id, err := node.Borrow(alice, big.NewInt(1_000), big.NewInt(1_500))
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	ids, err := node.LoansOf(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids)

	node.SetBlockHeight(common.BlocksPerYear)
	paid, err := node.Repay(alice, id)
	require.NoError(t, err)
	require.Zero(t, paid.Cmp(big.NewInt(1_050)))

	rep, err := node.ReputationOf(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rep.TotalLoans)
	require.Equal(t, uint64(1), rep.SuccessfulRepayments)
	require.Equal(t, uint64(100), rep.Score)

	// The deposit kept accruing through all of it.
	projected, err := node.DepositBalanceOf(alice)
	require.NoError(t, err)
	require.Zero(t, projected.Cmp(big.NewInt(10_500)))

	require.NotEmpty(t, node.Events())
}

func TestFailedOperationLeavesNoResidue(t *testing.T) {
	node, db := newTestNode(t)
	require.NoError(t, node.Credit(vault, big.NewInt(1_000)))
	require.NoError(t, node.Credit(alice, big.NewInt(2_000)))

	id, err := node.Borrow(alice, big.NewInt(1_000), big.NewInt(1_500))
	require.NoError(t, err)

	// Register a feed so the queue can value the position, then age the loan
	// until it is liquidatable.
	require.NoError(t, node.RegisterOracle(oracleAdmin, "ETH", feeder))
	node.SetBlockHeight(6 * common.BlocksPerYear)
	entry, err := node.QueueForLiquidation(id)
	require.NoError(t, err)
	require.Equal(t, uint64(0), entry.Position)

	keysBefore := db.Len()
	keeperBefore, err := node.BalanceOf(keeper)
	require.NoError(t, err)

	// The vault holds exactly the collateral, so the liquidation itself goes
	// through but the reward payout fails. The whole operation must unwind.
	_, err = node.ExecuteLiquidation(keeper, entry.Position)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)

	require.Equal(t, keysBefore, db.Len())
	keeperAfter, err := node.BalanceOf(keeper)
	require.NoError(t, err)
	require.Zero(t, keeperBefore.Cmp(keeperAfter))
	record, err := node.GetLoan(id)
	require.NoError(t, err)
	require.False(t, record.Liquidated)
	pending, err := node.PendingLiquidations()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Topping up the reward reserve lets the same entry execute.
	require.NoError(t, node.Credit(vault, big.NewInt(100)))
	reward, err := node.ExecuteLiquidation(keeper, entry.Position)
	require.NoError(t, err)
	require.Zero(t, reward.Cmp(big.NewInt(75)))
	keeperAfter, err = node.BalanceOf(keeper)
	require.NoError(t, err)
	// 10% penalty on 1500 collateral plus the 5% queue reward.
	require.Zero(t, keeperAfter.Cmp(big.NewInt(225)))
	pending, err = node.PendingLiquidations()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestGovernanceChangesLoanParameters(t *testing.T) {
	node, _ := newTestNode(t)
	require.NoError(t, node.Credit(alice, big.NewInt(50_000)))

	_, err := node.Stake(alice, big.NewInt(10_000), 0)
	require.NoError(t, err)
	power, err := node.EffectivePower(alice)
	require.NoError(t, err)
	require.Zero(t, power.Cmp(big.NewInt(10_000)))

	p, err := node.CreateProposal(alice, "Raise rate", "to 10%", governance.ParamInterestRate, 1_000)
	require.NoError(t, err)
	_, err = node.VoteOnProposal(alice, p.ID, true)
	require.NoError(t, err)

	node.SetBlockHeight(p.EndBlock + 1)
	require.NoError(t, node.ExecuteProposal(p.ID))

	params, err := node.LoanParams()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), params.InterestRateBps)
	require.Equal(t, uint64(1), params.Version)

	history, err := node.ExecutionHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, p.ID, history[0].ProposalID)
}

func TestHeightOnlyMovesForward(t *testing.T) {
	node, _ := newTestNode(t)
	node.SetBlockHeight(10)
	node.SetBlockHeight(5)
	require.Equal(t, uint64(10), node.BlockHeight())
}

func TestPauseHaltsModule(t *testing.T) {
	node, _ := newTestNode(t)
	require.NoError(t, node.Credit(alice, big.NewInt(1_000)))

	node.SetPaused("ledger", true)
	_, _, err := node.Deposit(alice, big.NewInt(100))
	require.ErrorIs(t, err, common.ErrModulePaused)

	// Other modules keep running.
	_, err = node.Stake(alice, big.NewInt(100), 0)
	require.NoError(t, err)

	node.SetPaused("ledger", false)
	_, _, err = node.Deposit(alice, big.NewInt(100))
	require.NoError(t, err)
}

func TestConcurrentOperationsSerialize(t *testing.T) {
	node, _ := newTestNode(t)

	const workers = 8
	const depositsPerWorker = 4
	owners := make([][20]byte, workers)
	for i := range owners {
		owners[i] = [20]byte{0x10, byte(i)}
		require.NoError(t, node.Credit(owners[i], big.NewInt(100_000)))
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(owner [20]byte) {
			defer wg.Done()
			for j := 0; j < depositsPerWorker; j++ {
				if _, _, err := node.Deposit(owner, big.NewInt(1_000)); err != nil {
					t.Errorf("deposit: %v", err)
					return
				}
				if _, err := node.DepositBalanceOf(owner); err != nil {
					t.Errorf("balance: %v", err)
					return
				}
			}
		}(owners[i])
	}
	wg.Wait()

	total, err := node.TotalDeposits()
	require.NoError(t, err)
	require.Zero(t, total.Cmp(big.NewInt(workers*depositsPerWorker*1_000)))
	for _, owner := range owners {
		balance, err := node.DepositBalanceOf(owner)
		require.NoError(t, err)
		require.Zero(t, balance.Cmp(big.NewInt(depositsPerWorker*1_000)))
	}
}
