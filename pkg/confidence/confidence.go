// Package confidence scores decisions. The default Table maps trigger/action
// keys to constants; a live uncertainty model can replace it by implementing
// Scorer without touching the decision trees that consume it.
package confidence

// Key identifies the decision being scored
type Key struct {
	Trigger  string
	Action   string
	Severity float64
}

// Scorer returns a 0-100 confidence for a decision
type Scorer interface {
	Score(key Key) float64
}

// Table is a constant lookup. "trigger/action" entries take precedence over
// bare "trigger" entries; anything else scores Fallback.
type Table struct {
	Values   map[string]float64
	Fallback float64
}

// Score implements Scorer
func (t Table) Score(key Key) float64 {
	if v, ok := t.Values[key.Trigger+"/"+key.Action]; ok {
		return v
	}
	if v, ok := t.Values[key.Trigger]; ok {
		return v
	}
	return t.Fallback
}

// DefaultThermal returns the per-trigger constants used by thermal responses
func DefaultThermal() Table {
	return Table{
		Values: map[string]float64{
			"solar_flare":        88,
			"component_overheat": 92,
			"deep_space_cooling": 85,
		},
		Fallback: 75,
	}
}

// DefaultPower returns the constants used by the power decision tree
func DefaultPower() Table {
	return Table{
		Values: map[string]float64{
			"low_soc/emergency_mode":       95,
			"low_soc/shed_load":            90,
			"low_soc/switch_battery_bank":  88,
			"thermal_runaway/isolate_bank": 98,
			"solar_storm/shed_load":        85,
			"solar_storm/activate_backup":  92,
			"load_spike/shed_load":         80,
		},
		Fallback: 75,
	}
}

// DefaultSchedule returns the constants used for conflict resolutions
func DefaultSchedule() Table {
	return Table{
		Values: map[string]float64{
			"resource_conflict/reschedule":   85,
			"resource_conflict/reduce_power": 70,
			"resource_conflict/defer":        78,
		},
		Fallback: 70,
	}
}
