package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8545", cfg.RPCAddress)
	require.Equal(t, "leveldb", cfg.StorageBackend)
	require.Equal(t, uint64(500), cfg.Loan.InterestRateBps)
	require.Equal(t, "1000000", cfg.Oracle.DefaultPrice)

	// Loading the generated file back yields the same configuration.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
RPCAddress = ":9000"
StorageBackend = "bolt"

[Loan]
InterestRateBps = 750
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.Equal(t, "bolt", cfg.StorageBackend)
	require.Equal(t, uint64(750), cfg.Loan.InterestRateBps)
	require.Equal(t, uint64(150), cfg.Loan.CollateralRatioPct)
	require.Equal(t, uint64(1440), cfg.Governance.VotingPeriodBlocks)
}

func TestProtocolTranslation(t *testing.T) {
	cfg := &Config{
		VaultAddress:       "0xaa00000000000000000000000000000000000000",
		OracleAdminAddress: "bb00000000000000000000000000000000000000",
		GovernanceAddress:  "cc00000000000000000000000000000000000000",
	}
	cfg.applyDefaults()
	cfg.Ledger.LargeOpThreshold = "123456789012345678901"
	cfg.Governance.MinProposalPower = "2500"

	out, err := cfg.Protocol()
	require.NoError(t, err)
	require.Equal(t, byte(0xAA), out.Vault[0])
	require.Equal(t, byte(0xBB), out.OracleAdmin[0])
	require.Equal(t, byte(0xCC), out.GovernanceAddress[0])

	want, _ := new(big.Int).SetString("123456789012345678901", 10)
	require.Zero(t, out.Ledger.LargeOpThreshold.Cmp(want))
	require.Zero(t, out.Governance.MinProposalPower.Cmp(big.NewInt(2500)))
	require.Equal(t, uint64(120), out.Loan.DefaultParams.LiquidationThresholdPct)
}

func TestProtocolRejectsBadValues(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	cfg.VaultAddress = "not-hex"
	_, err := cfg.Protocol()
	require.ErrorContains(t, err, "VaultAddress")

	cfg.VaultAddress = "aabb"
	_, err = cfg.Protocol()
	require.ErrorContains(t, err, "expected 20 bytes")

	cfg.VaultAddress = "aa00000000000000000000000000000000000000"
	cfg.Ledger.LargeOpThreshold = "-5"
	_, err = cfg.Protocol()
	require.ErrorContains(t, err, "must not be negative")
}
