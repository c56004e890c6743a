package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stocklab platform.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Provider  Provider        `yaml:"provider"`
	Logging   Logging         `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Backtest  BacktestConfig  `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Provider selects and configures the upstream market-data source.
type Provider struct {
	// Name is "alphavantage" or "alpaca".
	Name            string       `yaml:"name"`
	RateLimitPerMin int          `yaml:"rate_limit_per_min"`
	RetryAttempts   int          `yaml:"retry_attempts"`
	AlphaVantage    AlphaVantage `yaml:"alphavantage"`
	Alpaca          Alpaca       `yaml:"alpaca"`
}

// AlphaVantage holds the Alpha Vantage API key and endpoint.
type AlphaVantage struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig controls the periodic data-refresh jobs.
type SchedulerConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Symbols      []string `yaml:"symbols"`
	BarsCron     string   `yaml:"bars_cron"`
	OverviewCron string   `yaml:"overview_cron"`
	LookbackDays int      `yaml:"lookback_days"`
}

// BacktestConfig holds default strategy parameters applied when a request
// omits them.
type BacktestConfig struct {
	ShortWindow int `yaml:"short_window"`
	LongWindow  int `yaml:"long_window"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in values that most deployments never need to change.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "alphavantage"
	}
	if cfg.Provider.RateLimitPerMin == 0 {
		cfg.Provider.RateLimitPerMin = 5 // Alpha Vantage free-tier pacing
	}
	if cfg.Provider.RetryAttempts == 0 {
		cfg.Provider.RetryAttempts = 3
	}
	if cfg.Provider.AlphaVantage.BaseURL == "" {
		cfg.Provider.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.Backtest.ShortWindow == 0 {
		cfg.Backtest.ShortWindow = 50
	}
	if cfg.Backtest.LongWindow == 0 {
		cfg.Backtest.LongWindow = 200
	}
	if cfg.Scheduler.BarsCron == "" {
		cfg.Scheduler.BarsCron = "0 22 * * 1-5" // weeknights after the close
	}
	if cfg.Scheduler.OverviewCron == "" {
		cfg.Scheduler.OverviewCron = "0 6 * * 6" // Saturday mornings
	}
	if cfg.Scheduler.LookbackDays == 0 {
		cfg.Scheduler.LookbackDays = 730 // two years of history
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("STOCKLAB_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Provider.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Provider.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Provider.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Provider.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars take highest priority (canonical SDK names).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Provider.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Provider.Alpaca.APISecret = v
	}
}
