package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ODIN_POWER_LOW_SOC
const EnvPrefix = "ODIN"

// Config is the complete engine configuration
type Config struct {
	DataDir       string        `mapstructure:"data_dir" yaml:"data_dir"`
	APIAddr       string        `mapstructure:"api_addr" yaml:"api_addr"`
	GRPCAddr      string        `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	TickInterval  time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	TelemetrySeed int64         `mapstructure:"telemetry_seed" yaml:"telemetry_seed"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Thermal ThermalConfig `mapstructure:"thermal" yaml:"thermal"`
	Power   PowerConfig   `mapstructure:"power" yaml:"power"`
	Mission MissionConfig `mapstructure:"mission" yaml:"mission"`
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// LogConfig controls pkg/log
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// APIConfig guards the mutating HTTP routes
type APIConfig struct {
	// RateLimit in requests per second per client; zero disables limiting
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
	// AllowedNetworks are CIDRs permitted to issue commands. Empty allows all.
	AllowedNetworks []string `mapstructure:"allowed_networks" yaml:"allowed_networks"`
}

// ForecastConfig is shared by the thermal and power forecasts
type ForecastConfig struct {
	Step              time.Duration `mapstructure:"step" yaml:"step"`
	InitialConfidence float64       `mapstructure:"initial_confidence" yaml:"initial_confidence"`
	ConfidenceDecay   float64       `mapstructure:"confidence_decay" yaml:"confidence_decay"`
	ConfidenceFloor   float64       `mapstructure:"confidence_floor" yaml:"confidence_floor"`
}

// Confidence returns the confidence for forecast step k (0-based)
func (f ForecastConfig) Confidence(k int) float64 {
	c := f.InitialConfidence - f.ConfidenceDecay*float64(k)
	if c < f.ConfidenceFloor {
		return f.ConfidenceFloor
	}
	return c
}

// ThermalConfig holds the thermal model constants
type ThermalConfig struct {
	Forecast ForecastConfig `mapstructure:"forecast" yaml:"forecast"`
	// Emissivity of radiating surfaces
	Emissivity float64 `mapstructure:"emissivity" yaml:"emissivity"`
	// RadiatingArea in m^2 per component
	RadiatingArea float64 `mapstructure:"radiating_area" yaml:"radiating_area"`
	// BackgroundTemperature of deep space in kelvin
	BackgroundTemperature float64 `mapstructure:"background_temperature" yaml:"background_temperature"`
	// SolarConstant in W/m^2 at the nominal solar wind speed
	SolarConstant float64 `mapstructure:"solar_constant" yaml:"solar_constant"`
	// InternalHeat is the per-component internal generation in watts
	InternalHeat float64 `mapstructure:"internal_heat" yaml:"internal_heat"`
	// FlareAbsorption scales flare intensity into absorbed watts
	FlareAbsorption float64 `mapstructure:"flare_absorption" yaml:"flare_absorption"`
	// DefaultFlareDuration applies to flares without a duration
	DefaultFlareDuration time.Duration `mapstructure:"default_flare_duration" yaml:"default_flare_duration"`
	// CouplingConductance in W/°C conducted between coupled components
	CouplingConductance float64 `mapstructure:"coupling_conductance" yaml:"coupling_conductance"`
	MaxActionHistory    int     `mapstructure:"max_action_history" yaml:"max_action_history"`
}

// PowerConfig holds the power model constants and decision thresholds
type PowerConfig struct {
	Forecast ForecastConfig `mapstructure:"forecast" yaml:"forecast"`
	// EmergencySoC: average SoC below this selects emergency_mode
	EmergencySoC float64 `mapstructure:"emergency_soc" yaml:"emergency_soc"`
	// LowSoC: average SoC below this selects shed_load
	LowSoC float64 `mapstructure:"low_soc" yaml:"low_soc"`
	// MinSoC and MinSoH drive the warning tier of the health cascade
	MinSoC float64 `mapstructure:"min_soc" yaml:"min_soc"`
	MinSoH float64 `mapstructure:"min_soh" yaml:"min_soh"`
	// SolarStormSeverity: solar storms above this severity shed load
	SolarStormSeverity float64 `mapstructure:"solar_storm_severity" yaml:"solar_storm_severity"`
	// CycleDelta is the SoC swing (percentage points) that closes a cycle record
	CycleDelta float64 `mapstructure:"cycle_delta" yaml:"cycle_delta"`
	// CycleDepth is the depth of discharge above which a record counts as a cycle
	CycleDepth      float64 `mapstructure:"cycle_depth" yaml:"cycle_depth"`
	MaxCycleRecords int     `mapstructure:"max_cycle_records" yaml:"max_cycle_records"`
	// RunawayTemperature in celsius above which runaway risk accumulates
	RunawayTemperature float64 `mapstructure:"runaway_temperature" yaml:"runaway_temperature"`
	// RunawayTrigger: a bank whose runaway risk exceeds this is isolated on tick
	RunawayTrigger float64 `mapstructure:"runaway_trigger" yaml:"runaway_trigger"`
	// SolarWindBaseline in km/s above which solar efficiency degrades
	SolarWindBaseline  float64       `mapstructure:"solar_wind_baseline" yaml:"solar_wind_baseline"`
	MinSolarEfficiency float64       `mapstructure:"min_solar_efficiency" yaml:"min_solar_efficiency"`
	SoHDecrement       float64       `mapstructure:"soh_decrement" yaml:"soh_decrement"`
	MaxActionHistory   int           `mapstructure:"max_action_history" yaml:"max_action_history"`
	ApprovalWindow     time.Duration `mapstructure:"approval_window" yaml:"approval_window"`
	// BankTemperature is the idle bank temperature in celsius that simulated
	// telemetry relaxes toward
	BankTemperature float64 `mapstructure:"bank_temperature" yaml:"bank_temperature"`
	// BankTimeConstant is how quickly a bank settles toward its target temperature
	BankTimeConstant time.Duration `mapstructure:"bank_time_constant" yaml:"bank_time_constant"`
}

// MissionConfig holds the scheduler constants
type MissionConfig struct {
	AnalysisWindow time.Duration `mapstructure:"analysis_window" yaml:"analysis_window"`
	SlotDuration   time.Duration `mapstructure:"slot_duration" yaml:"slot_duration"`
	// Capacities per resource: watts, watts-thermal, kbps, percent
	PowerCapacity     float64 `mapstructure:"power_capacity" yaml:"power_capacity"`
	ThermalCapacity   float64 `mapstructure:"thermal_capacity" yaml:"thermal_capacity"`
	BandwidthCapacity float64 `mapstructure:"bandwidth_capacity" yaml:"bandwidth_capacity"`
	ComputeCapacity   float64 `mapstructure:"compute_capacity" yaml:"compute_capacity"`
	// CriticalMultiplier: demand above capacity times this is a critical conflict
	CriticalMultiplier float64       `mapstructure:"critical_multiplier" yaml:"critical_multiplier"`
	OptimizeInterval   time.Duration `mapstructure:"optimize_interval" yaml:"optimize_interval"`
	DeadlineWindow     time.Duration `mapstructure:"deadline_window" yaml:"deadline_window"`
	MetricsHistory     int           `mapstructure:"metrics_history" yaml:"metrics_history"`
	// HighFlareRisk: solar activity risk at or above this defers non-critical work
	HighFlareRisk float64 `mapstructure:"high_flare_risk" yaml:"high_flare_risk"`
}

// ArchiveConfig configures the optional Postgres action archive
type ArchiveConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Default returns the documented defaults
func Default() *Config {
	forecast := ForecastConfig{
		Step:              5 * time.Minute,
		InitialConfidence: 95,
		ConfidenceDecay:   2,
		ConfidenceFloor:   50,
	}
	return &Config{
		DataDir:       "./odin-data",
		APIAddr:       "127.0.0.1:8080",
		GRPCAddr:      "127.0.0.1:9090",
		TickInterval:  30 * time.Second,
		TelemetrySeed: 1,
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		API: APIConfig{
			RateLimit: 10,
			Burst:     20,
		},
		Thermal: ThermalConfig{
			Forecast:              forecast,
			Emissivity:            0.85,
			RadiatingArea:         0.5,
			BackgroundTemperature: 2.7,
			SolarConstant:         1361,
			InternalHeat:          10,
			FlareAbsorption:       0.001,
			DefaultFlareDuration:  30 * time.Minute,
			CouplingConductance:   2,
			MaxActionHistory:      500,
		},
		Power: PowerConfig{
			Forecast:           forecast,
			EmergencySoC:       10,
			LowSoC:             20,
			MinSoC:             20,
			MinSoH:             80,
			SolarStormSeverity: 7,
			CycleDelta:         10,
			CycleDepth:         20,
			MaxCycleRecords:    1000,
			RunawayTemperature: 45,
			RunawayTrigger:     50,
			SolarWindBaseline:  400,
			MinSolarEfficiency: 0.1,
			SoHDecrement:       0.0001,
			MaxActionHistory:   500,
			ApprovalWindow:     5 * time.Minute,
			BankTemperature:    22,
			BankTimeConstant:   30 * time.Minute,
		},
		Mission: MissionConfig{
			AnalysisWindow:     24 * time.Hour,
			SlotDuration:       time.Hour,
			PowerCapacity:      1000,
			ThermalCapacity:    500,
			BandwidthCapacity:  8192,
			ComputeCapacity:    100,
			CriticalMultiplier: 1.5,
			OptimizeInterval:   5 * time.Minute,
			DeadlineWindow:     24 * time.Hour,
			MetricsHistory:     288,
			HighFlareRisk:      70,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and
// ODIN_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the predictors cannot run with
func (c *Config) Validate() error {
	if c.Thermal.Forecast.Step <= 0 || c.Power.Forecast.Step <= 0 {
		return fmt.Errorf("forecast step must be positive")
	}
	if c.Mission.SlotDuration <= 0 || c.Mission.AnalysisWindow < c.Mission.SlotDuration {
		return fmt.Errorf("mission analysis window must cover at least one slot")
	}
	if c.Power.EmergencySoC > c.Power.LowSoC {
		return fmt.Errorf("power emergency_soc (%v) must not exceed low_soc (%v)", c.Power.EmergencySoC, c.Power.LowSoC)
	}
	if c.Mission.CriticalMultiplier < 1 {
		return fmt.Errorf("mission critical_multiplier must be >= 1")
	}
	if c.API.RateLimit < 0 || (c.API.RateLimit > 0 && c.API.Burst < 1) {
		return fmt.Errorf("api rate_limit must be >= 0 with a positive burst")
	}
	if c.TickInterval <= 0 || c.Mission.OptimizeInterval <= 0 {
		return fmt.Errorf("loop intervals must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("api_addr", d.APIAddr)
	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("tick_interval", d.TickInterval)
	v.SetDefault("telemetry_seed", d.TelemetrySeed)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)

	setForecastDefaults(v, "thermal.forecast", d.Thermal.Forecast)
	v.SetDefault("thermal.emissivity", d.Thermal.Emissivity)
	v.SetDefault("thermal.radiating_area", d.Thermal.RadiatingArea)
	v.SetDefault("thermal.background_temperature", d.Thermal.BackgroundTemperature)
	v.SetDefault("thermal.solar_constant", d.Thermal.SolarConstant)
	v.SetDefault("thermal.internal_heat", d.Thermal.InternalHeat)
	v.SetDefault("thermal.flare_absorption", d.Thermal.FlareAbsorption)
	v.SetDefault("thermal.default_flare_duration", d.Thermal.DefaultFlareDuration)
	v.SetDefault("thermal.coupling_conductance", d.Thermal.CouplingConductance)
	v.SetDefault("thermal.max_action_history", d.Thermal.MaxActionHistory)

	setForecastDefaults(v, "power.forecast", d.Power.Forecast)
	v.SetDefault("power.emergency_soc", d.Power.EmergencySoC)
	v.SetDefault("power.low_soc", d.Power.LowSoC)
	v.SetDefault("power.min_soc", d.Power.MinSoC)
	v.SetDefault("power.min_soh", d.Power.MinSoH)
	v.SetDefault("power.solar_storm_severity", d.Power.SolarStormSeverity)
	v.SetDefault("power.cycle_delta", d.Power.CycleDelta)
	v.SetDefault("power.cycle_depth", d.Power.CycleDepth)
	v.SetDefault("power.max_cycle_records", d.Power.MaxCycleRecords)
	v.SetDefault("power.runaway_temperature", d.Power.RunawayTemperature)
	v.SetDefault("power.runaway_trigger", d.Power.RunawayTrigger)
	v.SetDefault("power.solar_wind_baseline", d.Power.SolarWindBaseline)
	v.SetDefault("power.min_solar_efficiency", d.Power.MinSolarEfficiency)
	v.SetDefault("power.soh_decrement", d.Power.SoHDecrement)
	v.SetDefault("power.max_action_history", d.Power.MaxActionHistory)
	v.SetDefault("power.approval_window", d.Power.ApprovalWindow)
	v.SetDefault("power.bank_temperature", d.Power.BankTemperature)
	v.SetDefault("power.bank_time_constant", d.Power.BankTimeConstant)

	v.SetDefault("mission.analysis_window", d.Mission.AnalysisWindow)
	v.SetDefault("mission.slot_duration", d.Mission.SlotDuration)
	v.SetDefault("mission.power_capacity", d.Mission.PowerCapacity)
	v.SetDefault("mission.thermal_capacity", d.Mission.ThermalCapacity)
	v.SetDefault("mission.bandwidth_capacity", d.Mission.BandwidthCapacity)
	v.SetDefault("mission.compute_capacity", d.Mission.ComputeCapacity)
	v.SetDefault("mission.critical_multiplier", d.Mission.CriticalMultiplier)
	v.SetDefault("mission.optimize_interval", d.Mission.OptimizeInterval)
	v.SetDefault("mission.deadline_window", d.Mission.DeadlineWindow)
	v.SetDefault("mission.metrics_history", d.Mission.MetricsHistory)
	v.SetDefault("mission.high_flare_risk", d.Mission.HighFlareRisk)

	v.SetDefault("archive.dsn", d.Archive.DSN)
}

func setForecastDefaults(v *viper.Viper, prefix string, f ForecastConfig) {
	v.SetDefault(prefix+".step", f.Step)
	v.SetDefault(prefix+".initial_confidence", f.InitialConfidence)
	v.SetDefault(prefix+".confidence_decay", f.ConfidenceDecay)
	v.SetDefault(prefix+".confidence_floor", f.ConfidenceFloor)
}
