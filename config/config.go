package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the daemon's TOML configuration.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	// Treasury identity and collaborators. Addresses are 0x-prefixed hex.
	TreasuryAddress  string `toml:"TreasuryAddress"`
	OperatorAddress  string `toml:"OperatorAddress"`
	StableAddress    string `toml:"StableAddress"`
	BondAddress      string `toml:"BondAddress"`
	ShareAddress     string `toml:"ShareAddress"`
	BoardroomAddress string `toml:"BoardroomAddress"`

	// Epoch schedule. StartTime is a unix timestamp; zero means "now".
	StartTime     int64 `toml:"StartTime"`
	PeriodSeconds int64 `toml:"PeriodSeconds"`

	// Peg is the target price as a decimal string, e.g. "1.0".
	Peg string `toml:"Peg"`

	// Balances excluded from circulating supply.
	ExcludedAddresses []string `toml:"ExcludedAddresses"`

	Oracle    OracleConfig    `toml:"oracle"`
	Boardroom BoardroomConfig `toml:"boardroom"`
}

// OracleConfig configures the price feed sources.
type OracleConfig struct {
	Endpoint           string `toml:"Endpoint"`
	APIKey             string `toml:"APIKey"`
	MaxQuoteAgeSeconds int64  `toml:"MaxQuoteAgeSeconds"`
	TwapWindowSeconds  int64  `toml:"TwapWindowSeconds"`
}

// BoardroomConfig configures the staking room lockups.
type BoardroomConfig struct {
	WithdrawLockupEpochs uint64 `toml:"WithdrawLockupEpochs"`
	RewardLockupEpochs   uint64 `toml:"RewardLockupEpochs"`
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./pegd-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.PeriodSeconds <= 0 {
		c.PeriodSeconds = 21600
	}
	if strings.TrimSpace(c.Peg) == "" {
		c.Peg = "1.0"
	}
	if c.Oracle.MaxQuoteAgeSeconds <= 0 {
		c.Oracle.MaxQuoteAgeSeconds = 120
	}
	if c.Oracle.TwapWindowSeconds <= 0 {
		c.Oracle.TwapWindowSeconds = 3600
	}
	if c.Boardroom.WithdrawLockupEpochs == 0 {
		c.Boardroom.WithdrawLockupEpochs = 6
	}
	if c.Boardroom.RewardLockupEpochs == 0 {
		c.Boardroom.RewardLockupEpochs = 3
	}
	if c.ExcludedAddresses == nil {
		c.ExcludedAddresses = []string{}
	}
}

// Validate checks address formats and numeric fields.
func (c *Config) Validate() error {
	required := map[string]string{
		"TreasuryAddress":  c.TreasuryAddress,
		"OperatorAddress":  c.OperatorAddress,
		"StableAddress":    c.StableAddress,
		"BondAddress":      c.BondAddress,
		"ShareAddress":     c.ShareAddress,
		"BoardroomAddress": c.BoardroomAddress,
	}
	for field, value := range required {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("config: %s %q is not a valid address", field, value)
		}
	}
	for _, addr := range c.ExcludedAddresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: excluded address %q is not valid", addr)
		}
	}
	if _, err := c.PegAmount(); err != nil {
		return err
	}
	return nil
}

// PegAmount parses the peg into its 18-decimal fixed-point form.
func (c *Config) PegAmount() (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(c.Peg))
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("config: Peg %q must be a positive decimal", c.Peg)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}

// Period returns the epoch period as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.PeriodSeconds) * time.Second
}

// MaxQuoteAge returns the oracle freshness window as a duration.
func (o OracleConfig) MaxQuoteAge() time.Duration {
	return time.Duration(o.MaxQuoteAgeSeconds) * time.Second
}

// TwapWindow returns the oracle TWAP window as a duration.
func (o OracleConfig) TwapWindow() time.Duration {
	return time.Duration(o.TwapWindowSeconds) * time.Second
}

// Excluded returns the parsed excluded address list.
func (c *Config) Excluded() []common.Address {
	out := make([]common.Address, 0, len(c.ExcludedAddresses))
	for _, addr := range c.ExcludedAddresses {
		out = append(out, common.HexToAddress(addr))
	}
	return out
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		TreasuryAddress:  "0x0000000000000000000000000000000000000001",
		OperatorAddress:  "0x0000000000000000000000000000000000000002",
		StableAddress:    "0x0000000000000000000000000000000000000010",
		BondAddress:      "0x0000000000000000000000000000000000000011",
		ShareAddress:     "0x0000000000000000000000000000000000000012",
		BoardroomAddress: "0x0000000000000000000000000000000000000020",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return toml.NewEncoder(file).Encode(cfg)
}
