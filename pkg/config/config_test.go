package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1000.0, cfg.Mission.PowerCapacity)
	assert.Equal(t, 500.0, cfg.Mission.ThermalCapacity)
	assert.Equal(t, 8192.0, cfg.Mission.BandwidthCapacity)
	assert.Equal(t, 1.5, cfg.Mission.CriticalMultiplier)
	assert.Equal(t, 10.0, cfg.Power.EmergencySoC)
	assert.Equal(t, 20.0, cfg.Power.LowSoC)
	assert.Equal(t, 5*time.Minute, cfg.Thermal.Forecast.Step)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "odin.yaml")
	content := `
api_addr: 0.0.0.0:9000
power:
  low_soc: 25
  approval_window: 10m
mission:
  power_capacity: 1200
  slot_duration: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.APIAddr)
	assert.Equal(t, 25.0, cfg.Power.LowSoC)
	assert.Equal(t, 10*time.Minute, cfg.Power.ApprovalWindow)
	assert.Equal(t, 1200.0, cfg.Mission.PowerCapacity)
	assert.Equal(t, 30*time.Minute, cfg.Mission.SlotDuration)
	// untouched keys keep their defaults
	assert.Equal(t, 500.0, cfg.Mission.ThermalCapacity)
	assert.Equal(t, 0.85, cfg.Thermal.Emissivity)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ODIN_MISSION_BANDWIDTH_CAPACITY", "4096")
	t.Setenv("ODIN_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4096.0, cfg.Mission.BandwidthCapacity)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero thermal step", func(c *Config) { c.Thermal.Forecast.Step = 0 }, true},
		{"window shorter than slot", func(c *Config) { c.Mission.AnalysisWindow = time.Minute }, true},
		{"emergency above low", func(c *Config) { c.Power.EmergencySoC = 30 }, true},
		{"multiplier below one", func(c *Config) { c.Mission.CriticalMultiplier = 0.5 }, true},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, true},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }, true},
		{"rate limit without burst", func(c *Config) { c.API.Burst = 0 }, true},
		{"limiting disabled", func(c *Config) { c.API.RateLimit, c.API.Burst = 0, 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestForecastConfidence(t *testing.T) {
	f := Default().Thermal.Forecast
	assert.Equal(t, 95.0, f.Confidence(0))
	assert.Equal(t, 93.0, f.Confidence(1))
	assert.Equal(t, 50.0, f.Confidence(100))
}
