package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesTemplateAndDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	// First load drops a template for the user to edit.
	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, "BTC", cfg.Trading.DefaultUnderlying)
	assert.Equal(t, 0.05, cfg.Trading.MaxStrikeDevPct)
	assert.Equal(t, 30*time.Second, cfg.Execution.RequestTimeout)
	assert.Equal(t, "https://api.india.delta.exchange", cfg.Exchange.BaseURL)
	assert.True(t, cfg.IsPaperMode())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[trading]
mode = "live"
default_underlying = "ETH"

[execution]
request_timeout = "45s"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.Equal(t, "ETH", cfg.Trading.DefaultUnderlying)
	assert.Equal(t, 45*time.Second, cfg.Execution.RequestTimeout)
	assert.False(t, cfg.IsPaperMode())
	// Unset keys still get defaults.
	assert.Equal(t, 2*time.Second, cfg.Execution.PollInterval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("DELTA_BASE_URL", "https://testnet.example")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.Equal(t, "https://testnet.example", cfg.Exchange.BaseURL)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Trading.Mode = "dry-run"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Trading.MaxStrikeDevPct = 1.5
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Execution.RequestTimeout = 0
	assert.Error(t, bad.Validate())
}

func TestWriteTemplateKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("[trading]\nmode = \"live\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), custom, 0600))

	path, err := WriteTemplate(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}
