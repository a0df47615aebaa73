package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	snapshot Snapshot
}

func (s staticSource) MetricsSnapshot() Snapshot {
	return s.snapshot
}

func TestCollectorCollect(t *testing.T) {
	src := staticSource{snapshot: Snapshot{
		ComponentTemperatures: map[string]float64{"flight-computer": 31.5},
		ActuatorActivation:    map[string]float64{"primary-radiator": 50},
		ThermalAlerts:         map[string]int{"warning": 2},
		Banks:                 []BankSample{{ID: "primary-bank", SoC: 85, SoH: 98, RunawayRisk: 14}},
		Generation:            666,
		Consumption:           431,
		Emergency:             true,
		ActivitiesByStatus:    map[string]int{"planned": 4, "completed": 1},
		ConflictsBySeverity:   map[string]int{"critical": 1},
		Schedule:              map[string]float64{"efficiency": 72},
	}}

	NewCollector(src, 0).Collect()

	assert.Equal(t, 31.5, testutil.ToFloat64(ComponentTemperature.WithLabelValues("flight-computer")))
	assert.Equal(t, 50.0, testutil.ToFloat64(ActuatorActivation.WithLabelValues("primary-radiator")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ThermalAlerts.WithLabelValues("warning")))
	assert.Equal(t, 85.0, testutil.ToFloat64(BatterySoC.WithLabelValues("primary-bank")))
	assert.Equal(t, 14.0, testutil.ToFloat64(BatteryRunawayRisk.WithLabelValues("primary-bank")))
	assert.Equal(t, 666.0, testutil.ToFloat64(PowerGeneration))
	assert.Equal(t, 1.0, testutil.ToFloat64(EmergencyMode))
	assert.Equal(t, 4.0, testutil.ToFloat64(ActivitiesTotal.WithLabelValues("planned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ConflictsTotal.WithLabelValues("critical")))
	assert.Equal(t, 72.0, testutil.ToFloat64(ScheduleScore.WithLabelValues("efficiency")))
}

func TestRecordAction(t *testing.T) {
	before := testutil.ToFloat64(ActionsTotal.WithLabelValues("power", "shed_load", "failed"))
	RecordAction("power", "shed_load", false)
	assert.Equal(t, before+1, testutil.ToFloat64(ActionsTotal.WithLabelValues("power", "shed_load", "failed")))
}
