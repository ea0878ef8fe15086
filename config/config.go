package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lendfi/core"
	"lendfi/native/governance"
	"lendfi/native/ledger"
	"lendfi/native/liquidation"
	"lendfi/native/loan"
	"lendfi/native/oracle"
)

// Config is the on-disk TOML configuration for the lendfid daemon. Token
// amounts are decimal strings so they survive values past 2^63; addresses are
// 40-char hex strings.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	Environment    string `toml:"Environment"`
	LogLevel       string `toml:"LogLevel"`

	VaultAddress       string `toml:"VaultAddress"`
	OracleAdminAddress string `toml:"OracleAdminAddress"`
	GovernanceAddress  string `toml:"GovernanceAddress"`

	Ledger      LedgerConfig      `toml:"Ledger"`
	Loan        LoanConfig        `toml:"Loan"`
	Oracle      OracleConfig      `toml:"Oracle"`
	Liquidation LiquidationConfig `toml:"Liquidation"`
	Governance  GovernanceConfig  `toml:"Governance"`
}

type LedgerConfig struct {
	LargeOpThreshold string `toml:"LargeOpThreshold"`
	CooldownBlocks   uint64 `toml:"CooldownBlocks"`
}

type LoanConfig struct {
	MinLoan                 string `toml:"MinLoan"`
	MaxLoan                 string `toml:"MaxLoan"`
	InterestRateBps         uint64 `toml:"InterestRateBps"`
	CollateralRatioPct      uint64 `toml:"CollateralRatioPct"`
	LiquidationThresholdPct uint64 `toml:"LiquidationThresholdPct"`
	LiquidationPenaltyPct   uint64 `toml:"LiquidationPenaltyPct"`
}

type OracleConfig struct {
	MaxOraclesPerAsset   uint64 `toml:"MaxOraclesPerAsset"`
	UpdateCooldownBlocks uint64 `toml:"UpdateCooldownBlocks"`
	MaxDeviationPct      uint64 `toml:"MaxDeviationPct"`
	MaxPriceAgeBlocks    uint64 `toml:"MaxPriceAgeBlocks"`
	DefaultPrice         string `toml:"DefaultPrice"`
	DefaultConfidence    uint64 `toml:"DefaultConfidence"`
}

type LiquidationConfig struct {
	BaseAsset           string `toml:"BaseAsset"`
	MinLiquidationValue string `toml:"MinLiquidationValue"`
	RewardPct           uint64 `toml:"RewardPct"`
}

type GovernanceConfig struct {
	MinProposalPower      string `toml:"MinProposalPower"`
	MinVotingPower        string `toml:"MinVotingPower"`
	VotingPeriodBlocks    uint64 `toml:"VotingPeriodBlocks"`
	MaxProposalLifetime   uint64 `toml:"MaxProposalLifetime"`
	QuorumPct             uint64 `toml:"QuorumPct"`
	ApprovalPct           uint64 `toml:"ApprovalPct"`
	DelegationDecayBlocks uint64 `toml:"DelegationDecayBlocks"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./lendfid-data"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = "leveldb"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.VaultAddress) == "" {
		c.VaultAddress = strings.Repeat("11", 20)
	}
	if strings.TrimSpace(c.OracleAdminAddress) == "" {
		c.OracleAdminAddress = strings.Repeat("22", 20)
	}
	if strings.TrimSpace(c.GovernanceAddress) == "" {
		c.GovernanceAddress = strings.Repeat("33", 20)
	}
	if c.Ledger.LargeOpThreshold == "" {
		c.Ledger.LargeOpThreshold = "1000000"
	}
	if c.Ledger.CooldownBlocks == 0 {
		c.Ledger.CooldownBlocks = 6
	}
	if c.Loan.MinLoan == "" {
		c.Loan.MinLoan = "1000"
	}
	if c.Loan.MaxLoan == "" {
		c.Loan.MaxLoan = "1000000000"
	}
	if c.Loan.InterestRateBps == 0 {
		c.Loan.InterestRateBps = 500
	}
	if c.Loan.CollateralRatioPct == 0 {
		c.Loan.CollateralRatioPct = 150
	}
	if c.Loan.LiquidationThresholdPct == 0 {
		c.Loan.LiquidationThresholdPct = 120
	}
	if c.Loan.LiquidationPenaltyPct == 0 {
		c.Loan.LiquidationPenaltyPct = 10
	}
	if c.Oracle.MaxOraclesPerAsset == 0 {
		c.Oracle.MaxOraclesPerAsset = 5
	}
	if c.Oracle.UpdateCooldownBlocks == 0 {
		c.Oracle.UpdateCooldownBlocks = 1
	}
	if c.Oracle.MaxDeviationPct == 0 {
		c.Oracle.MaxDeviationPct = 20
	}
	if c.Oracle.MaxPriceAgeBlocks == 0 {
		c.Oracle.MaxPriceAgeBlocks = 144
	}
	if c.Oracle.DefaultPrice == "" {
		c.Oracle.DefaultPrice = "1000000"
	}
	if c.Oracle.DefaultConfidence == 0 {
		c.Oracle.DefaultConfidence = 50
	}
	if strings.TrimSpace(c.Liquidation.BaseAsset) == "" {
		c.Liquidation.BaseAsset = "LFI"
	}
	if c.Liquidation.MinLiquidationValue == "" {
		c.Liquidation.MinLiquidationValue = "100"
	}
	if c.Liquidation.RewardPct == 0 {
		c.Liquidation.RewardPct = 5
	}
	if c.Governance.MinProposalPower == "" {
		c.Governance.MinProposalPower = "1000"
	}
	if c.Governance.MinVotingPower == "" {
		c.Governance.MinVotingPower = "1"
	}
	if c.Governance.VotingPeriodBlocks == 0 {
		c.Governance.VotingPeriodBlocks = 1440
	}
	if c.Governance.MaxProposalLifetime == 0 {
		c.Governance.MaxProposalLifetime = 4320
	}
	if c.Governance.QuorumPct == 0 {
		c.Governance.QuorumPct = 30
	}
	if c.Governance.ApprovalPct == 0 {
		c.Governance.ApprovalPct = 51
	}
	if c.Governance.DelegationDecayBlocks == 0 {
		c.Governance.DelegationDecayBlocks = 4320
	}
}

// Protocol translates the file configuration into the node wiring config.
func (c *Config) Protocol() (core.Config, error) {
	var out core.Config
	var err error
	if out.Vault, err = parseAddress(c.VaultAddress); err != nil {
		return out, fmt.Errorf("config: VaultAddress: %w", err)
	}
	if out.OracleAdmin, err = parseAddress(c.OracleAdminAddress); err != nil {
		return out, fmt.Errorf("config: OracleAdminAddress: %w", err)
	}
	if out.GovernanceAddress, err = parseAddress(c.GovernanceAddress); err != nil {
		return out, fmt.Errorf("config: GovernanceAddress: %w", err)
	}

	largeOp, err := parseAmount(c.Ledger.LargeOpThreshold)
	if err != nil {
		return out, fmt.Errorf("config: Ledger.LargeOpThreshold: %w", err)
	}
	out.Ledger = ledger.Config{
		LargeOpThreshold: largeOp,
		CooldownBlocks:   c.Ledger.CooldownBlocks,
	}

	minLoan, err := parseAmount(c.Loan.MinLoan)
	if err != nil {
		return out, fmt.Errorf("config: Loan.MinLoan: %w", err)
	}
	maxLoan, err := parseAmount(c.Loan.MaxLoan)
	if err != nil {
		return out, fmt.Errorf("config: Loan.MaxLoan: %w", err)
	}
	out.Loan = loan.Config{
		MinLoan: minLoan,
		MaxLoan: maxLoan,
		DefaultParams: loan.ProtocolParameters{
			InterestRateBps:         c.Loan.InterestRateBps,
			CollateralRatioPct:      c.Loan.CollateralRatioPct,
			LiquidationThresholdPct: c.Loan.LiquidationThresholdPct,
			LiquidationPenaltyPct:   c.Loan.LiquidationPenaltyPct,
		},
	}

	defaultPrice, err := parseAmount(c.Oracle.DefaultPrice)
	if err != nil {
		return out, fmt.Errorf("config: Oracle.DefaultPrice: %w", err)
	}
	out.Oracle = oracle.Config{
		MaxOraclesPerAsset:   c.Oracle.MaxOraclesPerAsset,
		UpdateCooldownBlocks: c.Oracle.UpdateCooldownBlocks,
		MaxDeviationPct:      c.Oracle.MaxDeviationPct,
		MaxPriceAgeBlocks:    c.Oracle.MaxPriceAgeBlocks,
		DefaultPrice:         defaultPrice,
		DefaultConfidence:    c.Oracle.DefaultConfidence,
	}

	minValue, err := parseAmount(c.Liquidation.MinLiquidationValue)
	if err != nil {
		return out, fmt.Errorf("config: Liquidation.MinLiquidationValue: %w", err)
	}
	out.Liquidation = liquidation.Config{
		BaseAsset:           c.Liquidation.BaseAsset,
		MinLiquidationValue: minValue,
		RewardPct:           c.Liquidation.RewardPct,
	}

	minProposal, err := parseAmount(c.Governance.MinProposalPower)
	if err != nil {
		return out, fmt.Errorf("config: Governance.MinProposalPower: %w", err)
	}
	minVoting, err := parseAmount(c.Governance.MinVotingPower)
	if err != nil {
		return out, fmt.Errorf("config: Governance.MinVotingPower: %w", err)
	}
	out.Governance = governance.Config{
		MinProposalPower:      minProposal,
		MinVotingPower:        minVoting,
		VotingPeriodBlocks:    c.Governance.VotingPeriodBlocks,
		MaxProposalLifetime:   c.Governance.MaxProposalLifetime,
		QuorumPct:             c.Governance.QuorumPct,
		ApprovalPct:           c.Governance.ApprovalPct,
		DelegationDecayBlocks: c.Governance.DelegationDecayBlocks,
	}
	return out, nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, err
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("expected 20 bytes, got %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", value)
	}
	return amount, nil
}
