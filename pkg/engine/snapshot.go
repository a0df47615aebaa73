package engine

import (
	"github.com/cuemby/odin/pkg/metrics"
)

// MetricsSnapshot implements metrics.StatusSource
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	ts := e.thermal.Status()
	ps := e.power.Status()

	s := metrics.Snapshot{
		ComponentTemperatures: make(map[string]float64, len(ts.Components)),
		ActuatorActivation:    make(map[string]float64, len(ts.Actuators)),
		ThermalAlerts:         make(map[string]int),
		Generation:            ps.TotalGeneration,
		Consumption:           ps.TotalConsumption,
		Emergency:             ps.EmergencyMode,
		ActivitiesByStatus:    make(map[string]int),
		ConflictsBySeverity:   make(map[string]int),
	}

	for _, c := range ts.Components {
		s.ComponentTemperatures[c.ID] = c.Temperature
	}
	for _, a := range ts.Actuators {
		s.ActuatorActivation[a.ID] = a.Activation
	}
	for _, a := range ts.Alerts {
		s.ThermalAlerts[a.Level]++
	}

	for _, b := range ps.Banks {
		s.Banks = append(s.Banks, metrics.BankSample{
			ID:          b.ID,
			SoC:         b.SoC,
			SoH:         b.SoH,
			RunawayRisk: b.RunawayRisk,
		})
	}

	for _, a := range e.mission.Activities() {
		s.ActivitiesByStatus[string(a.Status)]++
	}
	for _, c := range e.mission.LastReport().Conflicts {
		s.ConflictsBySeverity[string(c.Severity)]++
	}

	m := e.mission.Metrics()
	s.Schedule = map[string]float64{
		"efficiency":      m.Efficiency,
		"risk_level":      m.RiskLevel,
		"completion_rate": m.CompletionRate,
		"autonomy_level":  m.AutonomyLevel,
		"adaptability":    m.Adaptability,
	}
	return s
}
