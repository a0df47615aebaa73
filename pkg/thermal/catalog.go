package thermal

import (
	"time"
)

// Location is a component's physical placement on the spacecraft
type Location string

const (
	LocationSunFacing   Location = "sun-facing"
	LocationAntiSun     Location = "anti-sun"
	LocationEarthFacing Location = "earth-facing"
	LocationDeepSpace   Location = "deep-space"
	LocationInternal    Location = "internal"
)

// ExposureFactor is the fraction of incident environmental heat the location receives
func (l Location) ExposureFactor() float64 {
	switch l {
	case LocationSunFacing:
		return 1.0
	case LocationEarthFacing:
		return 0.6
	case LocationAntiSun:
		return 0.3
	case LocationDeepSpace:
		return 0.1
	case LocationInternal:
		return 0.05
	default:
		return 0.05
	}
}

// Criticality tiers a component's importance to the mission
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityHigh     Criticality = "high"
	CriticalityMedium   Criticality = "medium"
	CriticalityLow      Criticality = "low"
)

// Range is an inclusive temperature band in celsius
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether t lies within the band
func (r Range) Contains(t float64) bool {
	return t >= r.Min && t <= r.Max
}

// Component is a thermally tracked spacecraft part
type Component struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Nominal     Range   `json:"nominal" yaml:"nominal"`
	Survival    Range   `json:"survival" yaml:"survival"`
	// ThermalMass in kJ/°C
	ThermalMass float64     `json:"thermalMass" yaml:"thermalMass"`
	Location    Location    `json:"location" yaml:"location"`
	Criticality Criticality `json:"criticality" yaml:"criticality"`
	Coupled     []string    `json:"coupled,omitempty" yaml:"coupled,omitempty"`
}

// ActuatorType is the kind of thermal control hardware
type ActuatorType string

const (
	ActuatorRadiator ActuatorType = "radiator"
	ActuatorHeater   ActuatorType = "heater"
	ActuatorHeatPipe ActuatorType = "heat-pipe"
	ActuatorShield   ActuatorType = "shield"
	ActuatorLouver   ActuatorType = "louver"
)

// Heating reports whether the actuator adds heat rather than removing it
func (t ActuatorType) Heating() bool {
	return t == ActuatorHeater
}

// Actuator is a thermal control device. Activation is the only field that
// changes at runtime.
type Actuator struct {
	ID   string       `json:"id" yaml:"id"`
	Type ActuatorType `json:"type" yaml:"type"`
	// Capacity in watts-thermal at full activation
	Capacity float64 `json:"capacity" yaml:"capacity"`
	// Activation is 0-100
	Activation   float64       `json:"activation" yaml:"activation"`
	ResponseTime time.Duration `json:"responseTime" yaml:"responseTime"`
	// PowerDraw in watts at full activation
	PowerDraw float64 `json:"powerDraw" yaml:"powerDraw"`
	// Reliability is 0-100
	Reliability float64 `json:"reliability" yaml:"reliability"`
}

// Effect returns the realized thermal effect in watts at the current activation
func (a *Actuator) Effect() float64 {
	return a.Capacity * (a.Activation / 100) * (a.Reliability / 100)
}

// Well-known actuator ids used by action execution
const (
	PrimaryRadiator   = "primary-radiator"
	EmergencyRadiator = "emergency-radiator"
	BatteryHeaters    = "battery-heaters"
	ThermalLouvers    = "thermal-louvers"
)

// DefaultComponents returns the baseline spacecraft component catalog
func DefaultComponents() []*Component {
	return []*Component{
		{
			ID: "solar-array-1", Name: "Solar Array 1", Temperature: 45,
			Nominal: Range{-40, 85}, Survival: Range{-100, 120},
			ThermalMass: 40, Location: LocationSunFacing, Criticality: CriticalityHigh,
			Coupled: []string{"power-distribution"},
		},
		{
			ID: "battery-bank-1", Name: "Battery Bank 1", Temperature: 22,
			Nominal: Range{0, 40}, Survival: Range{-20, 60},
			ThermalMass: 60, Location: LocationInternal, Criticality: CriticalityCritical,
			Coupled: []string{"power-distribution"},
		},
		{
			ID: "power-distribution", Name: "Power Distribution Unit", Temperature: 28,
			Nominal: Range{-10, 50}, Survival: Range{-40, 80},
			ThermalMass: 25, Location: LocationInternal, Criticality: CriticalityCritical,
			Coupled: []string{"solar-array-1", "battery-bank-1"},
		},
		{
			ID: "flight-computer", Name: "Flight Computer", Temperature: 30,
			Nominal: Range{-10, 50}, Survival: Range{-40, 85},
			ThermalMass: 15, Location: LocationInternal, Criticality: CriticalityCritical,
		},
		{
			ID: "comm-antenna", Name: "High Gain Antenna", Temperature: 10,
			Nominal: Range{-60, 80}, Survival: Range{-120, 120},
			ThermalMass: 20, Location: LocationEarthFacing, Criticality: CriticalityHigh,
		},
		{
			ID: "propulsion-tank", Name: "Propellant Tank", Temperature: 15,
			Nominal: Range{5, 40}, Survival: Range{-5, 55},
			ThermalMass: 120, Location: LocationAntiSun, Criticality: CriticalityHigh,
		},
		{
			ID: "star-tracker", Name: "Star Tracker", Temperature: -10,
			Nominal: Range{-30, 30}, Survival: Range{-50, 60},
			ThermalMass: 5, Location: LocationDeepSpace, Criticality: CriticalityMedium,
		},
		{
			ID: "science-instrument", Name: "Science Instrument Suite", Temperature: 5,
			Nominal: Range{-20, 35}, Survival: Range{-45, 60},
			ThermalMass: 30, Location: LocationAntiSun, Criticality: CriticalityMedium,
		},
	}
}

// DefaultActuators returns the baseline thermal control hardware
func DefaultActuators() []*Actuator {
	return []*Actuator{
		{ID: PrimaryRadiator, Type: ActuatorRadiator, Capacity: 500, ResponseTime: 30 * time.Second, PowerDraw: 5, Reliability: 98},
		{ID: EmergencyRadiator, Type: ActuatorRadiator, Capacity: 800, ResponseTime: 60 * time.Second, PowerDraw: 10, Reliability: 95},
		{ID: BatteryHeaters, Type: ActuatorHeater, Capacity: 150, ResponseTime: 10 * time.Second, PowerDraw: 150, Reliability: 99},
		{ID: ThermalLouvers, Type: ActuatorLouver, Capacity: 200, ResponseTime: 20 * time.Second, PowerDraw: 2, Reliability: 97},
		{ID: "heat-pipes", Type: ActuatorHeatPipe, Capacity: 300, ResponseTime: 5 * time.Second, PowerDraw: 0, Reliability: 99.5},
		{ID: "sun-shield", Type: ActuatorShield, Capacity: 400, ResponseTime: 120 * time.Second, PowerDraw: 15, Reliability: 96},
	}
}
