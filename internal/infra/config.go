package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Secrets may live in the file for
// local development but environment variables always override them.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Symbol          string  `yaml:"symbol"`
		Leverage        int     `yaml:"leverage"`
		MarginType      string  `yaml:"margin_type"` // ISOLATED or CROSSED
		CycleMinutes    int     `yaml:"cycle_minutes"`
		WaitTimeSec     int     `yaml:"wait_time_sec"`
		PollIntervalSec int     `yaml:"poll_interval_sec"`
		MaxRetries      int     `yaml:"max_retries"`
		RetryPauseSec   int     `yaml:"retry_pause_sec"`
		RiskPercentage  float64 `yaml:"risk_percentage"` // stop-loss distance from entry
		Testnet         bool    `yaml:"testnet"`
		DryRun          bool    `yaml:"dry_run"`       // simulate fills, never send real orders
		PaperBalance    float64 `yaml:"paper_balance"` // starting balance for dry runs
	} `yaml:"trading"`

	API struct {
		Binance struct {
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"binance"`
		OpenAI struct {
			APIKey          string `yaml:"api_key"`
			Model           string `yaml:"model"`
			ReflectionModel string `yaml:"reflection_model"`
		} `yaml:"openai"`
	} `yaml:"api"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Telemetry struct {
		DiscordWebhook string `yaml:"discord_webhook"`
	} `yaml:"telemetry"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Symbol == "" {
		c.Trading.Symbol = "BTCUSDT"
	}
	if c.Trading.Leverage == 0 {
		c.Trading.Leverage = 10
	}
	if c.Trading.MarginType == "" {
		c.Trading.MarginType = "ISOLATED"
	}
	if c.Trading.CycleMinutes == 0 {
		c.Trading.CycleMinutes = 20
	}
	if c.Trading.WaitTimeSec == 0 {
		c.Trading.WaitTimeSec = 300
	}
	if c.Trading.PollIntervalSec == 0 {
		c.Trading.PollIntervalSec = 10
	}
	if c.Trading.MaxRetries == 0 {
		c.Trading.MaxRetries = 3
	}
	if c.Trading.RetryPauseSec == 0 {
		c.Trading.RetryPauseSec = 5
	}
	if c.Trading.RiskPercentage == 0 {
		c.Trading.RiskPercentage = 2.5
	}
	if c.Trading.PaperBalance == 0 {
		c.Trading.PaperBalance = 1000
	}
	if c.API.OpenAI.Model == "" {
		c.API.OpenAI.Model = "gpt-4-1106-preview"
	}
	if c.API.OpenAI.ReflectionModel == "" {
		c.API.OpenAI.ReflectionModel = c.API.OpenAI.Model
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "futures_trades.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("trading symbol is required")
	}
	if c.Trading.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1, got %d", c.Trading.Leverage)
	}
	if c.Trading.MarginType != "ISOLATED" && c.Trading.MarginType != "CROSSED" {
		return fmt.Errorf("margin_type must be ISOLATED or CROSSED, got %s", c.Trading.MarginType)
	}
	if c.Trading.RiskPercentage <= 0 || c.Trading.RiskPercentage >= 100 {
		return fmt.Errorf("risk_percentage must be in (0,100), got %.2f", c.Trading.RiskPercentage)
	}
	if c.Trading.PollIntervalSec > c.Trading.WaitTimeSec {
		return fmt.Errorf("poll_interval_sec (%d) exceeds wait_time_sec (%d)",
			c.Trading.PollIntervalSec, c.Trading.WaitTimeSec)
	}
	if !c.Trading.DryRun && (c.API.Binance.AccessKey == "" || c.API.Binance.SecretKey == "") {
		return fmt.Errorf("binance api keys are required unless dry_run is set")
	}
	return nil
}

// overrideWithEnv lets environment variables win over the config file so
// secrets never have to be committed. Variable names match the original
// .env layout.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("BINANCE_ACCESS_KEY"); key != "" {
		cfg.API.Binance.AccessKey = key
	}
	if secret := os.Getenv("BINANCE_SECRET_KEY"); secret != "" {
		cfg.API.Binance.SecretKey = secret
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.OpenAI.APIKey = key
	}
	if hook := os.Getenv("DISCORD_WEBHOOK_URL"); hook != "" {
		cfg.Telemetry.DiscordWebhook = hook
	}
}
