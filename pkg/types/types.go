package types

import (
	"time"
)

// MissionImpact grades how much an action disturbs the mission plan
type MissionImpact string

const (
	ImpactNone     MissionImpact = "none"
	ImpactMinor    MissionImpact = "minor"
	ImpactModerate MissionImpact = "moderate"
	ImpactSevere   MissionImpact = "severe"
	ImpactCritical MissionImpact = "critical"
)

// Rank orders impact tiers so they can be compared
func (m MissionImpact) Rank() int {
	switch m {
	case ImpactNone:
		return 0
	case ImpactMinor:
		return 1
	case ImpactModerate:
		return 2
	case ImpactSevere:
		return 3
	case ImpactCritical:
		return 4
	default:
		return 0
	}
}

// Effect quantifies what an action changes
type Effect struct {
	// PowerSavings is in watts. Negative values denote added generation.
	PowerSavings     float64            `json:"powerSavings"`
	TemperatureDelta float64            `json:"temperatureDelta"`
	ResourceImpact   map[string]float64 `json:"resourceImpact,omitempty"`
}

// Action is the immutable record of a decision made by one of the predictors.
// It is shared by thermal, power and scheduling outputs.
type Action struct {
	ID               string        `json:"id"`
	Predictor        string        `json:"predictor"`
	Trigger          string        `json:"trigger"`
	Action           string        `json:"action"`
	AffectedSystems  []string      `json:"affectedSystems"`
	Effect           Effect        `json:"effect"`
	MissionImpact    MissionImpact `json:"missionImpact"`
	ExecutionTime    time.Duration `json:"executionTime"`
	Reversible       bool          `json:"reversible"`
	Confidence       float64       `json:"confidence"`
	Timestamp        time.Time     `json:"timestamp"`
	RequiresApproval bool          `json:"requiresApproval"`
	ApprovalDeadline time.Time     `json:"approvalDeadline,omitempty"`
}

// NeedsApproval reports whether an action should be gated behind operator
// sign-off before it is relied upon: irreversible or severe+ actions.
func NeedsApproval(reversible bool, impact MissionImpact) bool {
	return !reversible || impact.Rank() >= ImpactSevere.Rank()
}

// FlareClass is the X-ray class of a solar flare
type FlareClass string

const (
	FlareA FlareClass = "A"
	FlareB FlareClass = "B"
	FlareC FlareClass = "C"
	FlareM FlareClass = "M"
	FlareX FlareClass = "X"
)

// BaseIntensity returns the class-indexed intensity multiplier
func (c FlareClass) BaseIntensity() float64 {
	switch c {
	case FlareA:
		return 1
	case FlareB:
		return 10
	case FlareC:
		return 100
	case FlareM:
		return 1000
	case FlareX:
		return 10000
	default:
		return 0
	}
}

// Major reports whether the flare class is M or X
func (c FlareClass) Major() bool {
	return c == FlareM || c == FlareX
}

// SolarFlare is a predicted flare event
type SolarFlare struct {
	Class       FlareClass    `json:"class" yaml:"class"`
	Magnitude   float64       `json:"magnitude" yaml:"magnitude"`
	ArrivalTime time.Time     `json:"arrivalTime" yaml:"arrivalTime"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Probability float64       `json:"probability" yaml:"probability"`
}

// Environment is the space-weather snapshot supplied with every forecast request
type Environment struct {
	// SolarWindSpeed in km/s
	SolarWindSpeed float64 `json:"solarWindSpeed" yaml:"solarWindSpeed"`
	// SolarActivityRisk is 0-100
	SolarActivityRisk float64      `json:"solarActivityRisk" yaml:"solarActivityRisk"`
	PredictedFlares   []SolarFlare `json:"predictedFlares,omitempty" yaml:"predictedFlares,omitempty"`
	// Radiation in mSv/h
	Radiation float64 `json:"radiation" yaml:"radiation"`
	// ThermalExposure scales incident environmental heat (1.0 = nominal)
	ThermalExposure float64 `json:"thermalExposure" yaml:"thermalExposure"`
	// SunExposure is the fraction (0-1) of the step the arrays are sunlit
	SunExposure  float64 `json:"sunExposure" yaml:"sunExposure"`
	MissionPhase string  `json:"missionPhase,omitempty" yaml:"missionPhase,omitempty"`
}

// NominalEnvironment returns quiet space-weather conditions
func NominalEnvironment() Environment {
	return Environment{
		SolarWindSpeed:    400,
		SolarActivityRisk: 20,
		Radiation:         0.5,
		ThermalExposure:   1.0,
		SunExposure:       0.85,
		MissionPhase:      "cruise",
	}
}

// SystemHealth maps a subsystem name to a 0-100 health score
type SystemHealth map[string]float64

// NominalHealth returns a healthy subsystem summary
func NominalHealth() SystemHealth {
	return SystemHealth{
		"power":      95,
		"thermal":    95,
		"comms":      95,
		"navigation": 95,
		"propulsion": 95,
		"science":    95,
	}
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
