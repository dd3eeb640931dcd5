package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "kaito", cfg.Token.ID)
	assert.Equal(t, "usd", cfg.Token.VsCurrency)
	assert.Equal(t, 30, cfg.Analysis.Days)
	assert.Equal(t, 10.0, cfg.Analysis.PriceThreshold)
	assert.Equal(t, 50.0, cfg.Analysis.VolumeThreshold)
	assert.Equal(t, "data", cfg.Output.DataDir)
	assert.Equal(t, 3, cfg.Auth.MaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
token:
  id: bitcoin
analysis:
  days: 90
  price_threshold: 5
`)
	t.Setenv("TRACKER_VOLUME_THRESHOLD", "75.5")
	t.Setenv("TRACKER_DAYS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", cfg.Token.ID)
	assert.Equal(t, 90, cfg.Analysis.Days, "unparsable env value is ignored")
	assert.Equal(t, 5.0, cfg.Analysis.PriceThreshold)
	assert.Equal(t, 75.5, cfg.Analysis.VolumeThreshold)
	assert.Equal(t, "BITCOIN-Market-Tracker/1.0", cfg.UserAgent())
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "token: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"negative days", func(c *Config) { c.Analysis.Days = -1 }, true},
		{"negative price threshold", func(c *Config) { c.Analysis.PriceThreshold = -5 }, true},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, true},
		{"telegram token without chat", func(c *Config) { c.Telegram.BotToken = "abc" }, true},
		{"telegram token with chat", func(c *Config) { c.Telegram.BotToken = "abc"; c.Telegram.ChatID = "1" }, false},
		{"bucket without region", func(c *Config) { c.S3.Bucket = "reports" }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
