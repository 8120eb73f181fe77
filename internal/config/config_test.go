package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.binance.com", cfg.Exchange.BaseURL)
	assert.Equal(t, "data/config.json", cfg.Rules.File)
	assert.Equal(t, filepath.Join("data", "history.json"), cfg.Rules.HistoryFile)
	assert.Equal(t, 300, cfg.Market.CandleLimit)
	assert.True(t, cfg.Sound.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  bot_token: from-file
  chat_id: "42"
market:
  candle_limit: 200
sound:
  enabled: false
rules:
  file: /tmp/sentinel/rules.json
`), 0o644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, 200, cfg.Market.CandleLimit)
	assert.False(t, cfg.Sound.Enabled)
	assert.Equal(t, "/tmp/sentinel/history.json", cfg.Rules.HistoryFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short candles", func(c *Config) { c.Market.CandleLimit = 10 }},
		{"bad cron", func(c *Config) { c.Market.UniverseCron = "every day" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative retries", func(c *Config) { c.Telegram.Retries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "sentinel.log")
	logger, err := NewLogger(LogConfig{Level: "info", File: file, MaxSizeMB: 1})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
