package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Alert rules live in the
// separate rules document named by Rules.File.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
		Retries  int    `yaml:"retries"`
	} `yaml:"telegram"`
	Exchange struct {
		BaseURL    string `yaml:"base_url"`
		QuoteAsset string `yaml:"quote_asset"`
	} `yaml:"exchange"`
	Aggregator struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"aggregator"`
	Market struct {
		CandleInterval string `yaml:"candle_interval"`
		CandleLimit    int    `yaml:"candle_limit"`
		Concurrency    int    `yaml:"concurrency"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		UniverseCron   string `yaml:"universe_cron"`
		Mock           bool   `yaml:"mock"`
	} `yaml:"market"`
	Rules struct {
		File        string `yaml:"file"`
		HistoryFile string `yaml:"history_file"`
	} `yaml:"rules"`
	Sound struct {
		Enabled bool     `yaml:"enabled"`
		Command []string `yaml:"command"`
	} `yaml:"sound"`
	Prompt struct {
		AckTimeoutSeconds int `yaml:"ack_timeout_seconds"`
		LogDelaySeconds   int `yaml:"log_delay_seconds"`
	} `yaml:"prompt"`
	Server struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log   LogConfig `yaml:"log"`
	Proxy string    `yaml:"proxy"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Sound.Enabled = true
	cfg.Log.Console = true
	cfg.Telegram.Polling = true
	cfg.Server.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Aggregator.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RULES_FILE"); v != "" {
		cfg.Rules.File = v
	}
	if v := os.Getenv("HISTORY_FILE"); v != "" {
		cfg.Rules.HistoryFile = v
	}
	if v := os.Getenv("MOCK_MARKET"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Market.Mock = b
		}
	}

	// Defaults
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = "https://api.binance.com"
	}
	if cfg.Exchange.QuoteAsset == "" {
		cfg.Exchange.QuoteAsset = "USDT"
	}
	if cfg.Aggregator.BaseURL == "" {
		cfg.Aggregator.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Market.CandleInterval == "" {
		cfg.Market.CandleInterval = "1d"
	}
	if cfg.Market.CandleLimit == 0 {
		cfg.Market.CandleLimit = 300
	}
	if cfg.Market.Concurrency == 0 {
		cfg.Market.Concurrency = 4
	}
	if cfg.Market.TimeoutSeconds == 0 {
		cfg.Market.TimeoutSeconds = 10
	}
	if cfg.Market.UniverseCron == "" {
		cfg.Market.UniverseCron = "0 0 */6 * * *"
	}
	if cfg.Telegram.Retries == 0 {
		cfg.Telegram.Retries = 3
	}
	if cfg.Rules.File == "" {
		cfg.Rules.File = "data/config.json"
	}
	if cfg.Rules.HistoryFile == "" {
		cfg.Rules.HistoryFile = filepath.Join(filepath.Dir(cfg.Rules.File), "history.json")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/coin_sentinel.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}

	return cfg, nil
}

// Validate checks fields whose values are constrained.
func (c *Config) Validate() error {
	if c.Market.CandleLimit < 35 {
		return fmt.Errorf("market.candle_limit must be at least 35, got %d", c.Market.CandleLimit)
	}
	if c.Market.Concurrency < 1 {
		return fmt.Errorf("market.concurrency must be positive")
	}
	if c.Market.TimeoutSeconds < 1 {
		return fmt.Errorf("market.timeout_seconds must be positive")
	}
	if c.Telegram.Retries < 0 {
		return fmt.Errorf("telegram.retries must not be negative")
	}
	if c.Prompt.AckTimeoutSeconds < 0 || c.Prompt.LogDelaySeconds < 0 {
		return fmt.Errorf("prompt timeouts must not be negative")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.Market.UniverseCron); err != nil {
		return fmt.Errorf("market.universe_cron: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
