package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TokenConfig configures the ledger.
type TokenConfig struct {
	Name      string `toml:"Name"`
	Symbol    string `toml:"Symbol"`
	Decimals  uint8  `toml:"Decimals"`
	MaxSupply uint64 `toml:"MaxSupply"`
	Admin     string `toml:"Admin"`
}

// DEXConfig configures the settlement engine limits.
type DEXConfig struct {
	FeeBps             uint64 `toml:"FeeBps"`
	MaxPriceImpactBps  uint64 `toml:"MaxPriceImpactBps"`
	MinLiquidityTokens uint64 `toml:"MinLiquidityTokens"`
	MaxDrainBps        uint64 `toml:"MaxDrainBps"`
}

// TreasuryConfig configures the default multisig wallet.
type TreasuryConfig struct {
	Owners     []string `toml:"Owners"`
	Threshold  int      `toml:"Threshold"`
	DailyLimit uint64   `toml:"DailyLimit"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `toml:"Level"`
	Environment string `toml:"Environment"`
}

type Config struct {
	Token    TokenConfig    `toml:"token"`
	DEX      DEXConfig      `toml:"dex"`
	Treasury TreasuryConfig `toml:"treasury"`
	Logging  LoggingConfig  `toml:"logging"`
}

// Default returns the production defaults: DYO token with a 1B cap, 30 bps
// swap fee, 20% impact ceiling, 1000-token liquidity floor.
func Default() *Config {
	return &Config{
		Token: TokenConfig{
			Name:      "Dujyo",
			Symbol:    "DYO",
			Decimals:  9,
			MaxSupply: 1_000_000_000,
		},
		DEX: DEXConfig{
			FeeBps:             30,
			MaxPriceImpactBps:  2_000,
			MinLiquidityTokens: 1_000,
			MaxDrainBps:        9_900,
		},
		Treasury: TreasuryConfig{
			Threshold: 1,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "dev",
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." {
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

// Validate rejects configurations the modules cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token.Symbol) == "" {
		return fmt.Errorf("config: token symbol required")
	}
	if c.Token.MaxSupply == 0 {
		return fmt.Errorf("config: token max supply must be positive")
	}
	if c.DEX.FeeBps >= 10_000 {
		return fmt.Errorf("config: dex fee %d bps out of range", c.DEX.FeeBps)
	}
	if c.DEX.MaxPriceImpactBps == 0 || c.DEX.MaxPriceImpactBps > 10_000 {
		return fmt.Errorf("config: dex price impact ceiling %d bps out of range", c.DEX.MaxPriceImpactBps)
	}
	if c.DEX.MaxDrainBps == 0 || c.DEX.MaxDrainBps > 10_000 {
		return fmt.Errorf("config: dex drain cap %d bps out of range", c.DEX.MaxDrainBps)
	}
	if len(c.Treasury.Owners) > 0 && (c.Treasury.Threshold < 1 || c.Treasury.Threshold > len(c.Treasury.Owners)) {
		return fmt.Errorf("config: treasury threshold %d unsatisfiable with %d owners", c.Treasury.Threshold, len(c.Treasury.Owners))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}
