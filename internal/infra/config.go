package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarketConfig describes one tradable market for the paper adapter:
// the opaque market id plus its base/quote currencies and fee schedule.
// Fees are decimal fractions (0.0033 = 0.33%), kept as strings so they
// parse losslessly into decimals at the adapter boundary.
type MarketConfig struct {
	ID      string `yaml:"id"`
	Base    string `yaml:"base"`
	Quote   string `yaml:"quote"`
	BuyFee  string `yaml:"buy_fee"`
	SellFee string `yaml:"sell_fee"`
}

// Config holds the full application configuration.
// Secrets can be overridden by environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		CycleIntervalSec int `yaml:"cycle_interval_sec"`
		TimeoutRetries   int `yaml:"timeout_retries"`
	} `yaml:"engine"`

	Exchange struct {
		Name    string   `yaml:"name"`    // adapter id, e.g. "paper", "bitget"
		Markets []string `yaml:"markets"` // market ids the bot trades

		Bitget struct {
			RestURL    string `yaml:"rest_url"`
			WSURL      string `yaml:"ws_url"`
			AccessKey  string `yaml:"access_key"`
			SecretKey  string `yaml:"secret_key"`
			Passphrase string `yaml:"passphrase"`
		} `yaml:"bitget"`

		Paper struct {
			Markets  []MarketConfig    `yaml:"markets"`
			Deposits map[string]string `yaml:"deposits"` // currency -> amount
		} `yaml:"paper"`
	} `yaml:"exchange"`

	Strategy struct {
		Market        string `yaml:"market"`         // empty = first traded market
		CounterAmount string `yaml:"counter_amount"` // quote currency per buy
		MinProfit     string `yaml:"min_profit"`     // fraction, e.g. "0.01"
	} `yaml:"strategy"`

	Journal struct {
		Path string `yaml:"path"` // empty = workspace default
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// variable overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Engine.CycleIntervalSec <= 0 {
		return fmt.Errorf("engine cycle interval must be positive")
	}
	if c.Engine.TimeoutRetries < 0 {
		return fmt.Errorf("engine timeout retries must not be negative")
	}

	if c.Exchange.Name == "" {
		return fmt.Errorf("exchange name is required")
	}
	if c.Strategy.CounterAmount == "" {
		return fmt.Errorf("strategy counter amount is required")
	}
	if len(c.Exchange.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}

	switch strings.ToLower(c.Exchange.Name) {
	case "bitget":
		if !strings.HasPrefix(c.Exchange.Bitget.RestURL, "https://") {
			return fmt.Errorf("invalid Bitget REST URL: %s", c.Exchange.Bitget.RestURL)
		}
	case "paper":
		if len(c.Exchange.Paper.Markets) == 0 {
			return fmt.Errorf("paper exchange requires market definitions")
		}
		known := make(map[string]bool, len(c.Exchange.Paper.Markets))
		for _, m := range c.Exchange.Paper.Markets {
			if m.ID == "" || m.Base == "" || m.Quote == "" {
				return fmt.Errorf("paper market %q needs id, base and quote", m.ID)
			}
			known[m.ID] = true
		}
		for _, id := range c.Exchange.Markets {
			if !known[id] {
				return fmt.Errorf("traded market %q has no paper market definition", id)
			}
		}
	}

	return nil
}

// overrideWithEnv overrides secret values from environment variables.
// Environment variables take precedence over the config file so keys
// never have to live on disk.
func overrideWithEnv(cfg *Config) {
	if cfg.Exchange.Bitget.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Println("   Recommendation: use environment variables instead:")
		fmt.Println("   - TRADEBOT_BITGET_KEY, TRADEBOT_BITGET_SECRET, TRADEBOT_BITGET_PASSPHRASE")
	}

	if key := os.Getenv("TRADEBOT_BITGET_KEY"); key != "" {
		cfg.Exchange.Bitget.AccessKey = key
	}
	if secret := os.Getenv("TRADEBOT_BITGET_SECRET"); secret != "" {
		cfg.Exchange.Bitget.SecretKey = secret
	}
	if pass := os.Getenv("TRADEBOT_BITGET_PASSPHRASE"); pass != "" {
		cfg.Exchange.Bitget.Passphrase = pass
	}
}
