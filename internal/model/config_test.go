package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	d := DefaultAppConfig()
	assert.Equal(t, d.API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, RestorePolicyTrust, cfg.Session.RestorePolicy)
	assert.Equal(t, time.Hour, cfg.Session.Expiry())
	assert.Equal(t, 5, cfg.Alerts.MaxVisible)
}

func TestLoadConfigNormalizesOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://portal.example.edu
  timeout_sec: -1
session:
  expiry_sec: 900
  restore_policy: sometimes
  trust_window_sec: 0
alerts:
  max_visible: 0
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.edu", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 15*time.Minute, cfg.Session.Expiry())
	assert.Equal(t, 15*time.Minute, cfg.Session.TrustWindow())
	assert.Equal(t, RestorePolicyTrust, cfg.Session.RestorePolicy)
	assert.Equal(t, 5, cfg.Alerts.MaxVisible)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("PGPORTAL_API_BASE_URL", "https://staging.example.edu")
	t.Setenv("PGPORTAL_SESSION_RESTORE_POLICY", "validate")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.edu", cfg.API.BaseURL)
	assert.Equal(t, RestorePolicyValidate, cfg.Session.RestorePolicy)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.API.BaseURL = "https://portal.example.edu"
	cfg.Realtime.Enabled = false
	cfg.Alerts.TTLSec = 20

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.edu", got.API.BaseURL)
	assert.False(t, got.Realtime.Enabled)
	assert.Equal(t, 20, got.Alerts.TTLSec)
}
