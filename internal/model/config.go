package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session restore policies.
const (
	// RestorePolicyTrust resumes a persisted session without contacting
	// the portal as long as it is inside the trust window.
	RestorePolicyTrust = "trust"

	// RestorePolicyValidate asks the portal to confirm the persisted
	// credential before resuming.
	RestorePolicyValidate = "validate"
)

// APIConfig holds settings for the portal REST API.
type APIConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// RealtimeConfig holds settings for the live notification channel.
type RealtimeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// URL is the websocket endpoint of the Pusher-compatible server,
	// including the application key path (e.g. wss://host/app/KEY).
	URL string `mapstructure:"url" yaml:"url"`

	// AuthPath is the portal path that signs private channel subscriptions.
	AuthPath string `mapstructure:"auth_path" yaml:"auth_path"`

	// ChannelPrefix is prepended to the per-user or shared topic.
	ChannelPrefix string `mapstructure:"channel_prefix" yaml:"channel_prefix"`

	// SharedTopic is the topic suffix used by the admin role.
	SharedTopic string `mapstructure:"shared_topic" yaml:"shared_topic"`

	// Event is the broadcast event name carrying notifications.
	Event string `mapstructure:"event" yaml:"event"`
}

// SessionConfig holds the session expiry and restore policy.
type SessionConfig struct {
	ExpirySec          int    `mapstructure:"expiry_sec" yaml:"expiry_sec"`
	CheckIntervalSec   int    `mapstructure:"check_interval_sec" yaml:"check_interval_sec"`
	RestorePolicy      string `mapstructure:"restore_policy" yaml:"restore_policy"`
	TrustWindowSec     int    `mapstructure:"trust_window_sec" yaml:"trust_window_sec"`
	ActivityPersistSec int    `mapstructure:"activity_persist_sec" yaml:"activity_persist_sec"`
}

// Expiry returns the idle timeout as a duration.
func (c SessionConfig) Expiry() time.Duration {
	return time.Duration(c.ExpirySec) * time.Second
}

// CheckInterval returns the expiry check period as a duration.
func (c SessionConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

// TrustWindow returns the maximum session age accepted on restore.
func (c SessionConfig) TrustWindow() time.Duration {
	return time.Duration(c.TrustWindowSec) * time.Second
}

// AlertConfig holds settings for transient popup alerts.
type AlertConfig struct {
	MaxVisible int `mapstructure:"max_visible" yaml:"max_visible"`
	TTLSec     int `mapstructure:"ttl_sec" yaml:"ttl_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// CacheConfig locates the local SQLite cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Alerts   AlertConfig    `mapstructure:"alerts" yaml:"alerts"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/pgportal, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pgportal")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/pgportal/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 30,
		},
		Realtime: RealtimeConfig{
			Enabled:       true,
			URL:           "ws://localhost:6001/app/pgportal",
			AuthPath:      "/api/broadcasting/auth",
			ChannelPrefix: "private-notifications.",
			SharedTopic:   "admin",
			Event:         "notification.sent",
		},
		Session: SessionConfig{
			ExpirySec:          3600,
			CheckIntervalSec:   60,
			RestorePolicy:      RestorePolicyTrust,
			TrustWindowSec:     3600,
			ActivityPersistSec: 30,
		},
		Alerts: AlertConfig{
			MaxVisible: 5,
			TTLSec:     8,
		},
		Display: DisplayConfig{
			Theme:           "default",
			PollIntervalSec: 120,
		},
		Cache: CacheConfig{
			Path: filepath.Join(ConfigDir(), "cache.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "pgportal.log"),
		},
	}
}

// setDefaults mirrors DefaultAppConfig into v so missing keys resolve
// to sensible values and environment overrides can bind to them.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("realtime.enabled", d.Realtime.Enabled)
	v.SetDefault("realtime.url", d.Realtime.URL)
	v.SetDefault("realtime.auth_path", d.Realtime.AuthPath)
	v.SetDefault("realtime.channel_prefix", d.Realtime.ChannelPrefix)
	v.SetDefault("realtime.shared_topic", d.Realtime.SharedTopic)
	v.SetDefault("realtime.event", d.Realtime.Event)
	v.SetDefault("session.expiry_sec", d.Session.ExpirySec)
	v.SetDefault("session.check_interval_sec", d.Session.CheckIntervalSec)
	v.SetDefault("session.restore_policy", d.Session.RestorePolicy)
	v.SetDefault("session.trust_window_sec", d.Session.TrustWindowSec)
	v.SetDefault("session.activity_persist_sec", d.Session.ActivityPersistSec)
	v.SetDefault("alerts.max_visible", d.Alerts.MaxVisible)
	v.SetDefault("alerts.ttl_sec", d.Alerts.TTLSec)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.poll_interval_sec", d.Display.PollIntervalSec)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with PGPORTAL_ override file values
// (e.g. PGPORTAL_API_BASE_URL). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("pgportal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if _, ok := err.(*os.PathError); !ok && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, nil
}

// normalize replaces out-of-range values with their defaults.
func (c *AppConfig) normalize() {
	d := DefaultAppConfig()
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = d.API.TimeoutSec
	}
	if c.Session.ExpirySec <= 0 {
		c.Session.ExpirySec = d.Session.ExpirySec
	}
	if c.Session.CheckIntervalSec <= 0 {
		c.Session.CheckIntervalSec = d.Session.CheckIntervalSec
	}
	if c.Session.TrustWindowSec <= 0 {
		c.Session.TrustWindowSec = c.Session.ExpirySec
	}
	if c.Session.RestorePolicy != RestorePolicyValidate {
		c.Session.RestorePolicy = RestorePolicyTrust
	}
	if c.Alerts.MaxVisible <= 0 {
		c.Alerts.MaxVisible = d.Alerts.MaxVisible
	}
	if c.Alerts.TTLSec <= 0 {
		c.Alerts.TTLSec = d.Alerts.TTLSec
	}
	if c.Display.PollIntervalSec <= 0 {
		c.Display.PollIntervalSec = d.Display.PollIntervalSec
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("realtime", cfg.Realtime)
	v.Set("session", cfg.Session)
	v.Set("alerts", cfg.Alerts)
	v.Set("display", cfg.Display)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
