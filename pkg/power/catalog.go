package power

import (
	"time"
)

// Well-known bank ids. The decision tree switches from PrimaryBank to
// BackupBank and brings EmergencyBank online when another bank is isolated.
const (
	PrimaryBank   = "primary-bank"
	BackupBank    = "backup-bank"
	EmergencyBank = "emergency-bank"
)

// TemperatureRange is an inclusive operating band in celsius
type TemperatureRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// BatteryState is the live electrical and thermal state of a bank
type BatteryState struct {
	SoC            float64 `json:"soc" yaml:"soc"`
	SoH            float64 `json:"soh" yaml:"soh"`
	AvailablePower float64 `json:"availablePower" yaml:"availablePower"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	Voltage        float64 `json:"voltage" yaml:"voltage"`
	Current        float64 `json:"current" yaml:"current"`
	CycleCount     int     `json:"cycleCount" yaml:"cycleCount"`
	// RemainingLife is the predicted number of cycles left before SoH reaches the minimum
	RemainingLife   float64   `json:"remainingLife" yaml:"remainingLife"`
	RunawayRisk     float64   `json:"runawayRisk" yaml:"runawayRisk"`
	LastCalibration time.Time `json:"lastCalibration" yaml:"lastCalibration"`
}

// CycleRecord is one closed charge or discharge swing
type CycleRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	StartSoC           float64   `json:"startSoc"`
	EndSoC             float64   `json:"endSoc"`
	DepthOfDischarge   float64   `json:"depthOfDischarge"`
	AverageTemperature float64   `json:"averageTemperature"`
	PeakCurrent        float64   `json:"peakCurrent"`
	// EnergyTransferred in watt-hours
	EnergyTransferred float64 `json:"energyTransferred"`
}

// CycleTracker accumulates readings since the last closed cycle
type CycleTracker struct {
	Anchor      float64   `json:"anchor"`
	Since       time.Time `json:"since"`
	PeakCurrent float64   `json:"peakCurrent"`
	TempSum     float64   `json:"tempSum"`
	TempSamples int       `json:"tempSamples"`
}

// Bank is a battery bank with its embedded state and cycle history
type Bank struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// Capacity in amp-hours
	Capacity       float64          `json:"capacity" yaml:"capacity"`
	Voltage        float64          `json:"voltage" yaml:"voltage"`
	Cells          int              `json:"cells" yaml:"cells"`
	Chemistry      string           `json:"chemistry" yaml:"chemistry"`
	OperatingRange TemperatureRange `json:"operatingRange" yaml:"operatingRange"`
	State          BatteryState     `json:"state" yaml:"state"`
	Cycles         []CycleRecord    `json:"cycles,omitempty" yaml:"-"`
	Tracker        CycleTracker     `json:"tracker" yaml:"-"`
	Active         bool             `json:"active" yaml:"active"`
	Isolated       bool             `json:"isolated" yaml:"isolated"`
}

// CapacityWh is the nominal stored energy at full charge
func (b *Bank) CapacityWh() float64 {
	return b.Capacity * b.Voltage
}

// Supplying reports whether the bank contributes to the power balance
func (b *Bank) Supplying() bool {
	return b.Active && !b.Isolated
}

// LoadCategory tiers a load's importance
type LoadCategory string

const (
	LoadCritical     LoadCategory = "critical"
	LoadEssential    LoadCategory = "essential"
	LoadOperational  LoadCategory = "operational"
	LoadScience      LoadCategory = "science"
	LoadNonEssential LoadCategory = "non-essential"
)

// PowerProfile describes a load's draw in each operating mode, in watts
type PowerProfile struct {
	Startup     float64       `json:"startup" yaml:"startup"`
	Nominal     float64       `json:"nominal" yaml:"nominal"`
	Peak        float64       `json:"peak" yaml:"peak"`
	Standby     float64       `json:"standby" yaml:"standby"`
	StartupTime time.Duration `json:"startupTime" yaml:"startupTime"`
}

// Load is an electrical consumer
type Load struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Category    LoadCategory `json:"category" yaml:"category"`
	CurrentDraw float64      `json:"currentDraw" yaml:"currentDraw"`
	NominalDraw float64      `json:"nominalDraw" yaml:"nominalDraw"`
	// DutyCycle is the fraction (0-1) of time the load runs
	DutyCycle  float64       `json:"dutyCycle" yaml:"dutyCycle"`
	Priority   int           `json:"priority" yaml:"priority"`
	Sheddable  bool          `json:"sheddable" yaml:"sheddable"`
	MinRuntime time.Duration `json:"minRuntime" yaml:"minRuntime"`
	Profile    PowerProfile  `json:"profile" yaml:"profile"`
	Shed       bool          `json:"shed" yaml:"shed"`
}

// CanShed reports whether the load may be shed. Critical loads never are.
func (l *Load) CanShed() bool {
	return l.Sheddable && l.Category != LoadCritical
}

// SourceType is the kind of generation hardware
type SourceType string

const (
	SourceSolar    SourceType = "solar"
	SourceRTG      SourceType = "rtg"
	SourceFuelCell SourceType = "fuel-cell"
	SourceBackup   SourceType = "backup"
)

// Source is a power generation source
type Source struct {
	ID            string     `json:"id" yaml:"id"`
	Type          SourceType `json:"type" yaml:"type"`
	CurrentOutput float64    `json:"currentOutput" yaml:"currentOutput"`
	MaxOutput     float64    `json:"maxOutput" yaml:"maxOutput"`
	Efficiency    float64    `json:"efficiency" yaml:"efficiency"`
	// Degradation is a percentage of MaxOutput lost to aging
	Degradation float64 `json:"degradation" yaml:"degradation"`
	Active      bool    `json:"active" yaml:"active"`
}

// RatedOutput is MaxOutput after degradation
func (s *Source) RatedOutput() float64 {
	return s.MaxOutput * (1 - s.Degradation/100)
}

func newBank(id, name string, capacity, soc float64, active bool) *Bank {
	state := BatteryState{
		SoC:         soc,
		SoH:         98,
		Temperature: 22,
		Voltage:     28,
	}
	return &Bank{
		ID:             id,
		Name:           name,
		Capacity:       capacity,
		Voltage:        28,
		Cells:          8,
		Chemistry:      "li-ion",
		OperatingRange: TemperatureRange{Min: 0, Max: 40},
		State:          state,
		Tracker:        CycleTracker{Anchor: soc},
		Active:         active,
	}
}

// DefaultBanks returns the baseline battery banks
func DefaultBanks() []*Bank {
	return []*Bank{
		newBank(PrimaryBank, "Primary Battery Bank", 100, 85, true),
		newBank(BackupBank, "Backup Battery Bank", 100, 90, true),
		newBank(EmergencyBank, "Emergency Reserve Bank", 50, 100, false),
	}
}

// DefaultLoads returns the baseline load catalog
func DefaultLoads() []*Load {
	load := func(id, name string, cat LoadCategory, nominal, duty float64, priority int, sheddable bool, standby float64) *Load {
		return &Load{
			ID: id, Name: name, Category: cat,
			CurrentDraw: nominal, NominalDraw: nominal, DutyCycle: duty,
			Priority: priority, Sheddable: sheddable,
			MinRuntime: time.Minute,
			Profile: PowerProfile{
				Startup: nominal * 1.5, Nominal: nominal, Peak: nominal * 1.3,
				Standby: standby, StartupTime: 10 * time.Second,
			},
		}
	}
	return []*Load{
		load("flight-computer", "Flight Computer", LoadCritical, 45, 1, 10, false, 45),
		load("attitude-control", "Attitude Control", LoadCritical, 60, 1, 10, false, 60),
		load("thermal-control", "Thermal Control", LoadEssential, 80, 0.7, 9, false, 20),
		load("comm-system", "Communications", LoadEssential, 70, 0.6, 8, false, 10),
		load("science-primary", "Primary Science Payload", LoadScience, 120, 0.8, 6, true, 5),
		load("science-secondary", "Secondary Science Payload", LoadScience, 80, 0.6, 4, true, 5),
		load("cameras", "Imaging Cameras", LoadNonEssential, 40, 0.5, 3, true, 2),
		load("backup-systems", "Backup Systems", LoadNonEssential, 30, 0.4, 2, true, 1),
	}
}

// DefaultSources returns the baseline generation sources
func DefaultSources() []*Source {
	return []*Source{
		{ID: "solar-array-1", Type: SourceSolar, CurrentOutput: 600, MaxOutput: 800, Efficiency: 0.29, Degradation: 2, Active: true},
		{ID: "rtg-1", Type: SourceRTG, MaxOutput: 110, Efficiency: 0.06, Degradation: 1, Active: false},
	}
}
