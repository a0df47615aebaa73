package power

import (
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/telemetry"
	"github.com/cuemby/odin/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestManager(opts ...Option) *Manager {
	opts = append([]Option{
		WithClock(func() time.Time { return epoch }),
		WithTelemetry(telemetry.Static{}),
	}, opts...)
	return New(config.Default().Power, DefaultBanks(), DefaultLoads(), DefaultSources(), opts...)
}

func bank(t *testing.T, m *Manager, id string) *Bank {
	t.Helper()
	for _, b := range m.Banks() {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("bank %s not found", id)
	return nil
}

func TestCycleCounting(t *testing.T) {
	tests := []struct {
		name          string
		socs          []float64
		expectedCount int
		records       int
	}{
		{
			name:          "depth 25 counts a cycle",
			socs:          []float64{75, 60},
			expectedCount: 1,
			records:       1,
		},
		{
			name:          "depth 15 records but does not count",
			socs:          []float64{80, 70},
			expectedCount: 0,
			records:       1,
		},
		{
			name:          "small swings close nothing",
			socs:          []float64{84, 80, 76},
			expectedCount: 0,
			records:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager()
			for _, soc := range tt.socs {
				require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{SoC: Float(soc)}))
			}

			b := bank(t, m, PrimaryBank)
			assert.Equal(t, tt.expectedCount, b.State.CycleCount)
			assert.Len(t, b.Cycles, tt.records)
		})
	}
}

func TestCycleRecordContents(t *testing.T) {
	var hooked []CycleRecord
	m := newTestManager(WithCycleHook(func(bankID string, rec CycleRecord) {
		assert.Equal(t, PrimaryBank, bankID)
		hooked = append(hooked, rec)
	}))

	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(20), Current: Float(-12)}))
	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(30), Current: Float(-5)}))
	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{SoC: Float(60)}))

	require.Len(t, hooked, 1)
	rec := hooked[0]
	assert.Equal(t, 85.0, rec.StartSoC)
	assert.Equal(t, 60.0, rec.EndSoC)
	assert.Equal(t, 25.0, rec.DepthOfDischarge)
	assert.Equal(t, 25.0, rec.AverageTemperature)
	assert.Equal(t, 12.0, rec.PeakCurrent)
	assert.InDelta(t, 0.25*100*28, rec.EnergyTransferred, 1e-9)

	// The next cycle is measured from the new anchor
	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{SoC: Float(55)}))
	assert.Len(t, hooked, 1)
}

func TestCycleHistoryBounded(t *testing.T) {
	cfg := config.Default().Power
	cfg.MaxCycleRecords = 5
	m := New(cfg, DefaultBanks(), DefaultLoads(), DefaultSources(), WithTelemetry(telemetry.Static{}))

	for i := 0; i < 20; i++ {
		soc := 90.0
		if i%2 == 0 {
			soc = 50
		}
		require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{SoC: Float(soc)}))
	}
	b := bank(t, m, PrimaryBank)
	assert.Len(t, b.Cycles, 5)
	assert.Equal(t, 20, b.State.CycleCount)
}

func TestRunawayRiskRatchet(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(50)}))
	assert.Equal(t, 10.0, bank(t, m, PrimaryBank).State.RunawayRisk)

	// Cooling down does not reduce the accumulated risk
	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(20)}))
	assert.Equal(t, 10.0, bank(t, m, PrimaryBank).State.RunawayRisk)

	for i := 0; i < 10; i++ {
		require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(80)}))
	}
	assert.Equal(t, 100.0, bank(t, m, PrimaryBank).State.RunawayRisk)
}

func TestBatteryTemperatureScenario(t *testing.T) {
	tests := []struct {
		name         string
		priorRisk    float64
		expectedRisk float64
	}{
		{name: "low prior risk", priorRisk: 0, expectedRisk: 14},
		{name: "risk crosses fifty", priorRisk: 40, expectedRisk: 54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBank("battery-bank-1", "Battery Bank 1", 100, 85, true)
			b.State.RunawayRisk = tt.priorRisk
			m := New(config.Default().Power, []*Bank{b}, DefaultLoads(), DefaultSources(), WithTelemetry(telemetry.Static{}))

			require.NoError(t, m.UpdateBatteryState("battery-bank-1", BatteryStateUpdate{Temperature: Float(52)}))
			assert.Equal(t, tt.expectedRisk, bank(t, m, "battery-bank-1").State.RunawayRisk)

			health, err := m.AssessHealth("battery-bank-1")
			require.NoError(t, err)
			assert.Equal(t, HealthCritical, health)
		})
	}
}

func TestAssessHealthCascade(t *testing.T) {
	tests := []struct {
		name     string
		state    BatteryState
		isolated bool
		expected HealthStatus
	}{
		{name: "nominal", state: BatteryState{SoC: 80, SoH: 95, Temperature: 25}, expected: HealthNominal},
		{name: "runaway risk", state: BatteryState{SoC: 80, SoH: 95, Temperature: 25, RunawayRisk: 51}, expected: HealthCritical},
		{name: "overheated", state: BatteryState{SoC: 80, SoH: 95, Temperature: 51}, expected: HealthCritical},
		{name: "isolated", state: BatteryState{SoC: 80, SoH: 95, Temperature: 25}, isolated: true, expected: HealthCritical},
		{name: "low soc", state: BatteryState{SoC: 15, SoH: 95, Temperature: 25}, expected: HealthWarning},
		{name: "low soh", state: BatteryState{SoC: 80, SoH: 75, Temperature: 25}, expected: HealthWarning},
		{name: "warm", state: BatteryState{SoC: 80, SoH: 95, Temperature: 41}, expected: HealthWarning},
		{name: "soc under thirty", state: BatteryState{SoC: 25, SoH: 95, Temperature: 25}, expected: HealthCaution},
		{name: "soh under ninety", state: BatteryState{SoC: 80, SoH: 85, Temperature: 25}, expected: HealthCaution},
		{name: "slightly warm", state: BatteryState{SoC: 80, SoH: 95, Temperature: 36}, expected: HealthCaution},
		{name: "risk at fifty is not critical", state: BatteryState{SoC: 80, SoH: 95, Temperature: 25, RunawayRisk: 50}, expected: HealthNominal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBank("b", "B", 100, tt.state.SoC, true)
			b.State = tt.state
			b.Isolated = tt.isolated
			m := New(config.Default().Power, []*Bank{b}, nil, nil)

			health, err := m.AssessHealth("b")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, health)
		})
	}
}

func TestUnknownBank(t *testing.T) {
	m := newTestManager()

	err := m.UpdateBatteryState("nope", BatteryStateUpdate{SoC: Float(50)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.AssessHealth("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceChargesPrimaryBank(t *testing.T) {
	m := newTestManager()
	before := bank(t, m, PrimaryBank).State.SoC

	m.Advance(30*time.Minute, types.NominalEnvironment())

	after := bank(t, m, PrimaryBank).State.SoC
	assert.Greater(t, after, before)
	assert.Greater(t, m.Status().TotalGeneration, 0.0)
	assert.Equal(t, 90.0, bank(t, m, BackupBank).State.SoC)
}

func TestAdvanceKeepsBankTemperatureBounded(t *testing.T) {
	tests := []struct {
		name  string
		dt    time.Duration
		ticks int
		bias  float64
	}{
		{name: "five minute ticks, positive bias", dt: 5 * time.Minute, ticks: 2000, bias: 1},
		{name: "one second ticks, positive bias", dt: time.Second, ticks: 20000, bias: 1},
		{name: "five minute ticks, negative bias", dt: 5 * time.Minute, ticks: 2000, bias: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Power
			clock := epoch
			m := New(cfg, DefaultBanks(), DefaultLoads(), DefaultSources(),
				WithClock(func() time.Time { return clock }),
				WithTelemetry(telemetry.Static{Value: tt.bias}))

			for i := 0; i < tt.ticks; i++ {
				clock = clock.Add(tt.dt)
				m.Advance(tt.dt, types.NominalEnvironment())

				b := bank(t, m, PrimaryBank)
				require.Less(t, b.State.Temperature, cfg.RunawayTemperature, "tick %d", i)
			}

			b := bank(t, m, PrimaryBank)
			assert.Zero(t, b.State.RunawayRisk)
			assert.False(t, b.Isolated)
			assert.Greater(t, b.State.Temperature, cfg.BankTemperature-5)
		})
	}
}

func TestAdvanceCoolsHotBankTowardTarget(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.UpdateBatteryState(PrimaryBank, BatteryStateUpdate{Temperature: Float(44)}))

	prev := 44.0
	for i := 0; i < 6; i++ {
		m.Advance(5*time.Minute, types.NominalEnvironment())
		temp := bank(t, m, PrimaryBank).State.Temperature
		assert.Less(t, temp, prev, "tick %d", i)
		prev = temp
	}
}

func TestStatus(t *testing.T) {
	m := newTestManager()
	_, ok := m.ExecuteAction(TriggerLoadSpike, 3)
	require.True(t, ok)

	st := m.Status()
	assert.Len(t, st.Banks, 3)
	assert.InDelta(t, 87.5, st.AverageSoC, 1e-9)
	assert.Equal(t, []string{"backup-systems"}, st.ShedLoads)
	assert.Len(t, st.RecentActions, 1)
	assert.False(t, st.EmergencyMode)
	assert.InDelta(t, st.TotalGeneration-st.TotalConsumption, st.NetBalance, 1e-9)
}
