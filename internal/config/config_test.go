package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Create a temporary YAML config file.
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/stocklab/data"
  sqlite_path: "/tmp/stocklab/stocklab.db"
server:
  host: "0.0.0.0"
  port: 8080
provider:
  name: "alphavantage"
  rate_limit_per_min: 5
  alphavantage:
    api_key: "test-key"
logging:
  level: "info"
  format: "json"
scheduler:
  enabled: true
  symbols: ["AAPL", "MSFT"]
  bars_cron: "0 22 * * 1-5"
backtest:
  short_window: 50
  long_window: 200
`)

	tmpFile, err := os.CreateTemp("", "stocklab-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPHAVANTAGE_API_KEY")
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("STOCKLAB_PROVIDER")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/stocklab/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/stocklab/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/stocklab/stocklab.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/stocklab/stocklab.db")
	}

	// -- Server --
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}

	// -- Provider --
	if cfg.Provider.Name != "alphavantage" {
		t.Errorf("Provider.Name = %q, want %q", cfg.Provider.Name, "alphavantage")
	}
	if cfg.Provider.AlphaVantage.APIKey != "test-key" {
		t.Errorf("AlphaVantage.APIKey = %q, want %q", cfg.Provider.AlphaVantage.APIKey, "test-key")
	}
	if cfg.Provider.AlphaVantage.BaseURL != "https://www.alphavantage.co/query" {
		t.Errorf("AlphaVantage.BaseURL = %q, want default endpoint", cfg.Provider.AlphaVantage.BaseURL)
	}
	if cfg.Provider.RetryAttempts != 3 {
		t.Errorf("Provider.RetryAttempts = %d, want default 3", cfg.Provider.RetryAttempts)
	}

	// -- Scheduler --
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want true")
	}
	if len(cfg.Scheduler.Symbols) != 2 || cfg.Scheduler.Symbols[0] != "AAPL" {
		t.Errorf("Scheduler.Symbols = %v, want [AAPL MSFT]", cfg.Scheduler.Symbols)
	}
	if cfg.Scheduler.LookbackDays != 730 {
		t.Errorf("Scheduler.LookbackDays = %d, want default 730", cfg.Scheduler.LookbackDays)
	}

	// -- Backtest defaults --
	if cfg.Backtest.ShortWindow != 50 {
		t.Errorf("Backtest.ShortWindow = %d, want 50", cfg.Backtest.ShortWindow)
	}
	if cfg.Backtest.LongWindow != 200 {
		t.Errorf("Backtest.LongWindow = %d, want 200", cfg.Backtest.LongWindow)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
provider:
  alphavantage:
    api_key: "yaml-key"
  alpaca:
    api_key: "yaml-alpaca-key"
    api_secret: "yaml-alpaca-secret"
storage:
  data_dir: "/original/data"
`)

	tmpFile, err := os.CreateTemp("", "stocklab-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("ALPHAVANTAGE_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPHAVANTAGE_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Provider.AlphaVantage.APIKey != "env-key" {
		t.Errorf("AlphaVantage.APIKey = %q, want %q (env override)", cfg.Provider.AlphaVantage.APIKey, "env-key")
	}
	// Alpaca secret should remain from YAML since no env override was set.
	if cfg.Provider.Alpaca.APISecret != "yaml-alpaca-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Provider.Alpaca.APISecret, "yaml-alpaca-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
}
