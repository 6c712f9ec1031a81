// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestDefaults(t *testing.T) {
	v := viper.New()
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err, "a bare viper must yield a runnable configuration")

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "https://www.airbnb.com", cfg.Target.BaseURL)
	assert.Equal(t, 3, cfg.Journey.Adults)
	assert.Equal(t, 2, cfg.Journey.Children)
	assert.Equal(t, 20, cfg.Journey.MaxListings)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1440, cfg.Browser.WindowWidth)
	assert.Equal(t, 120*time.Millisecond, cfg.Timeouts.ProbeInterval)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Stage)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Empty(t, cfg.Postgres.URL, "persistence is off unless configured")
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("should layer YAML values over defaults", func(t *testing.T) {
		yamlBytes := []byte(`
target:
  base_url: "https://stay.example.com"
journey:
  destination: "Japan"
  typing_delay: 40ms
browser:
  headless: false
  args:
    - "--lang=en-US"
timeouts:
  stage: 2m
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "https://stay.example.com", cfg.Target.BaseURL)
		assert.Equal(t, "Japan", cfg.Journey.Destination)
		assert.Equal(t, 40*time.Millisecond, cfg.Journey.TypingDelay)
		assert.False(t, cfg.Browser.Headless)
		assert.Equal(t, []string{"--lang=en-US"}, cfg.Browser.Args)
		assert.Equal(t, 2*time.Minute, cfg.Timeouts.Stage)
		// Untouched keys keep their defaults.
		assert.Equal(t, 8, cfg.Journey.SuggestionCap)
	})

	t.Run("should surface validation failures", func(t *testing.T) {
		v := viper.New()
		v.Set("journey.adults", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "journey.adults must be at least 1")
	})
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := NewConfigFromViper(viper.New())
		require.NoError(t, err)
		return cfg
	}

	t.Run("should accept the default configuration", func(t *testing.T) {
		assert.NoError(t, base(t).Validate())
	})

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "target URL without a scheme",
			mutate:  func(c *Config) { c.Target.BaseURL = "stay.example.com" },
			wantErr: "must be http or https",
		},
		{
			name:    "target URL without a host",
			mutate:  func(c *Config) { c.Target.BaseURL = "https://" },
			wantErr: "has no host",
		},
		{
			name:    "negative children",
			mutate:  func(c *Config) { c.Journey.Children = -1 },
			wantErr: "journey.children cannot be negative",
		},
		{
			name:    "zero listings cap",
			mutate:  func(c *Config) { c.Journey.MaxListings = 0 },
			wantErr: "journey.max_listings must be at least 1",
		},
		{
			name:    "zero opener attempts",
			mutate:  func(c *Config) { c.Journey.OpenerAttempts = 0 },
			wantErr: "journey.opener_attempts must be at least 1",
		},
		{
			name:    "non-positive interaction rate",
			mutate:  func(c *Config) { c.Journey.InteractionsPerSecond = 0 },
			wantErr: "journey.interactions_per_second must be positive",
		},
		{
			name:    "degenerate window",
			mutate:  func(c *Config) { c.Browser.WindowHeight = 0 },
			wantErr: "window dimensions must be positive",
		},
		{
			name:    "probe deadline shorter than its interval",
			mutate:  func(c *Config) { c.Timeouts.ProbeDeadline = 50 * time.Millisecond },
			wantErr: "cannot be shorter than timeouts.probe_interval",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logger.Level = "loud" },
			wantErr: "not a recognized zap level",
		},
		{
			name:    "unknown report format",
			mutate:  func(c *Config) { c.Report.Format = "tap" },
			wantErr: "report.format must be json or junit",
		},
	}

	for _, tc := range cases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			cfg := base(t)
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
