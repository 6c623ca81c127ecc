package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
trading:
  dry_run: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Trading.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s, want BTCUSDT", cfg.Trading.Symbol)
	}
	if cfg.Trading.Leverage != 10 {
		t.Errorf("leverage = %d, want 10", cfg.Trading.Leverage)
	}
	if cfg.Trading.MarginType != "ISOLATED" {
		t.Errorf("margin type = %s, want ISOLATED", cfg.Trading.MarginType)
	}
	if cfg.Trading.WaitTimeSec != 300 || cfg.Trading.PollIntervalSec != 10 {
		t.Errorf("wait/poll = %d/%d, want 300/10", cfg.Trading.WaitTimeSec, cfg.Trading.PollIntervalSec)
	}
	if cfg.Trading.MaxRetries != 3 || cfg.Trading.RetryPauseSec != 5 {
		t.Errorf("retries/pause = %d/%d, want 3/5", cfg.Trading.MaxRetries, cfg.Trading.RetryPauseSec)
	}
	if cfg.Trading.RiskPercentage != 2.5 {
		t.Errorf("risk = %f, want 2.5", cfg.Trading.RiskPercentage)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
trading:
  dry_run: true
api:
  binance:
    access_key: "from-file"
`)
	t.Setenv("BINANCE_ACCESS_KEY", "from-env")
	t.Setenv("BINANCE_SECRET_KEY", "secret-from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.Binance.AccessKey != "from-env" {
		t.Errorf("access key = %s, want env override", cfg.API.Binance.AccessKey)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad margin type",
			content: `
trading:
  dry_run: true
  margin_type: "HALF"
`,
		},
		{
			name: "poll exceeds wait",
			content: `
trading:
  dry_run: true
  wait_time_sec: 10
  poll_interval_sec: 60
`,
		},
		{
			name: "live trading without keys",
			content: `
trading:
  dry_run: false
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BINANCE_ACCESS_KEY", "")
			t.Setenv("BINANCE_SECRET_KEY", "")
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
