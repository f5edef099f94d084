package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	return load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFrom(t, "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "NY.GDP.MKTP.CD", cfg.History.Indicator)
	assert.Equal(t, 1990, cfg.History.FromYear)
	assert.Equal(t, 2023, cfg.History.ToYear)
	assert.Equal(t, "momentum", cfg.Bridge.Policy)
	assert.Equal(t, 5, cfg.Bridge.Lookback)
	assert.Equal(t, 1.12, cfg.Bridge.DefaultMultiplier)
	assert.Contains(t, cfg.Bridge.Anchors, "IND")
	assert.Equal(t, 0.8, cfg.Model.DefaultConfidence)
	assert.Equal(t, 0.1, cfg.Model.ChangepointPriorScale)
	assert.Equal(t, 25, cfg.Model.DefaultHorizon)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 2022, cfg.Factors.CutoffYear)
	assert.Equal(t, 2.5, cfg.Factors.Jitter)
	assert.Equal(t, "NE.RSB.GNFS.ZS", cfg.Factors.Indicators.Exports)
	assert.Equal(t, 62.5, cfg.Factors.Fallback.Consumption)
	assert.Equal(t, 6*time.Hour, cfg.Cache.SourceTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFileOverrides(t *testing.T) {
	cfg, err := loadFrom(t, `
environment: production
bridge:
  policy: Anchor
  damping: 1.06
  anchors:
    bra: 2.3e12
resolver:
  aliases:
    holland: NLD
model:
  timeout: 10s
`)
	require.NoError(t, err)
	assert.Equal(t, "anchor", cfg.Bridge.Policy)
	assert.Equal(t, 1.06, cfg.Bridge.Damping)
	assert.Equal(t, 2.3e12, cfg.Bridge.Anchors["BRA"])
	assert.Equal(t, "NLD", cfg.Resolver.Aliases["holland"])
	assert.Equal(t, 10*time.Second, cfg.Model.Timeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("BRIDGE_LOOKBACK", "4")
	t.Setenv("FACTORS_CUTOFF_YEAR", "2021")

	cfg, err := loadFrom(t, "")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "k", cfg.Chat.APIKey)
	assert.Equal(t, 4, cfg.Bridge.Lookback)
	assert.Equal(t, 2021, cfg.Factors.CutoffYear)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"policy":     "bridge:\n  policy: linear\n",
		"lookback":   "bridge:\n  lookback: 0\n",
		"window":     "history:\n  from_year: 2023\n  to_year: 2023\n",
		"confidence": "model:\n  default_confidence: 1.5\n",
		"horizon":    "model:\n  default_horizon: 0\n",
		"cutoff":     "factors:\n  cutoff_year: 2030\n",
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadFrom(t, yaml)
			assert.Error(t, err)
		})
	}
}
