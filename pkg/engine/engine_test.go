package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/events"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/storage"
	"github.com/cuemby/odin/pkg/telemetry"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return epoch }),
		WithTelemetry(telemetry.Static{}),
	}, opts...)
	e, err := New(config.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Stop() })
	return e
}

func waitFor(t *testing.T, sub events.Subscriber, typ events.EventType) *events.Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
			return nil
		}
	}
}

func bank(t *testing.T, e *Engine, id string) *power.Bank {
	t.Helper()
	for _, b := range e.Power().Banks() {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("bank %s not found", id)
	return nil
}

func TestNewUsesDefaultCatalogs(t *testing.T) {
	e := newTestEngine(t)

	assert.Len(t, e.Thermal().Components(), len(thermal.DefaultComponents()))
	assert.Len(t, e.Power().Banks(), 3)
	assert.Len(t, e.Mission().Activities(), len(mission.DefaultActivities(epoch)))
	assert.Equal(t, "cruise", e.Mission().MissionPhase())
}

func TestTickIsolatesRunawayBank(t *testing.T) {
	e := newTestEngine(t)
	e.Events().Start()
	sub := e.Events().Subscribe(events.EventBankIsolated)

	require.NoError(t, e.Power().UpdateBatteryState(power.BackupBank, power.BatteryStateUpdate{Temperature: power.Float(80)}))
	require.NoError(t, e.Tick(context.Background()))

	assert.True(t, bank(t, e, power.BackupBank).Isolated)
	assert.True(t, bank(t, e, power.EmergencyBank).Active)

	ev := waitFor(t, sub, events.EventBankIsolated)
	assert.Equal(t, power.BackupBank, ev.Metadata["bank_id"])

	// isolated banks are not candidates again
	require.NoError(t, e.Tick(context.Background()))
	isolations := 0
	for _, a := range e.Power().Actions() {
		if a.Action == power.ActionIsolateBank {
			isolations++
		}
	}
	assert.Equal(t, 1, isolations)
}

func TestTickLowSoCRunsOnceBelowBand(t *testing.T) {
	e := newTestEngine(t)

	for _, id := range []string{power.PrimaryBank, power.BackupBank} {
		require.NoError(t, e.Power().UpdateBatteryState(id, power.BatteryStateUpdate{SoC: power.Float(15)}))
	}
	require.NoError(t, e.Tick(context.Background()))
	require.NoError(t, e.Tick(context.Background()))

	var lowSoC []string
	for _, a := range e.Power().Actions() {
		if a.Trigger == string(power.TriggerLowSoC) {
			lowSoC = append(lowSoC, a.Action)
		}
	}
	assert.Equal(t, []string{power.ActionShedLoad}, lowSoC)
}

func TestTickRespondsToOverheat(t *testing.T) {
	e := newTestEngine(t)
	e.Events().Start()
	sub := e.Events().Subscribe(events.EventThermalAlert)

	require.NoError(t, e.Thermal().UpdateComponentTemperature("flight-computer", 70))
	require.NoError(t, e.Tick(context.Background()))

	for _, a := range e.Thermal().Actuators() {
		if a.ID == thermal.PrimaryRadiator {
			assert.Greater(t, a.Activation, 0.0)
		}
	}
	ev := waitFor(t, sub, events.EventThermalAlert)
	assert.Equal(t, "flight-computer", ev.Metadata["component_id"])
	assert.Less(t, e.Health()[thermal.Predictor], 100.0)
}

func TestOverheatSeverity(t *testing.T) {
	components := []*thermal.Component{
		{ID: "a", Temperature: 60, Nominal: thermal.Range{Max: 50}, Survival: thermal.Range{Max: 70}},
		{ID: "b", Temperature: 55, Nominal: thermal.Range{Max: 50}, Survival: thermal.Range{Max: 100}},
		{ID: "c", Temperature: 90, Nominal: thermal.Range{Max: 50}, Survival: thermal.Range{Max: 70}},
	}

	tests := []struct {
		name     string
		hot      []string
		expected float64
	}{
		{name: "halfway to survival", hot: []string{"a"}, expected: 5},
		{name: "worst of several", hot: []string{"a", "b"}, expected: 5},
		{name: "past survival clamps", hot: []string{"c"}, expected: 10},
		{name: "none", hot: nil, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, overheatSeverity(components, tt.hot), 1e-9)
		})
	}
}

func TestActionsPersistAndPublish(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	e := newTestEngine(t, WithStore(store))
	e.Events().Start()
	sub := e.Events().Subscribe(events.EventActionExecuted, events.EventActionFailed)

	action, ok := e.ExecutePowerAction(power.TriggerLoadSpike, 3)
	require.True(t, ok)

	ev := waitFor(t, sub, events.EventActionExecuted)
	assert.Equal(t, action.ID, ev.Metadata["action_id"])

	logged, err := store.ListActions(0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, power.ActionShedLoad, logged[0].Action)

	_, ok = e.ExecutePowerAction(power.Trigger("meteor"), 1)
	assert.False(t, ok)
	waitFor(t, sub, events.EventActionFailed)

	logged, err = store.ListActions(0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir

	e, err := NewFromConfig(context.Background(), cfg, WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)
	require.NoError(t, e.Thermal().UpdateComponentTemperature("star-tracker", -25))
	require.NoError(t, e.Power().UpdateBatteryState(power.PrimaryBank, power.BatteryStateUpdate{SoC: power.Float(60)}))
	require.NoError(t, e.TransitionActivity("calib-1", mission.StatusCancelled))
	require.NoError(t, e.Stop())

	restarted, err := NewFromConfig(context.Background(), cfg, WithClock(func() time.Time { return epoch.Add(time.Hour) }))
	require.NoError(t, err)
	defer restarted.Stop()

	for _, c := range restarted.Thermal().Components() {
		if c.ID == "star-tracker" {
			assert.Equal(t, -25.0, c.Temperature)
		}
	}
	assert.Equal(t, 60.0, bank(t, restarted, power.PrimaryBank).State.SoC)

	assert.Len(t, bank(t, restarted, power.PrimaryBank).Cycles, 1)

	calib, err := restarted.Mission().Activity("calib-1")
	require.NoError(t, err)
	assert.Equal(t, mission.StatusCancelled, calib.Status)
	assert.True(t, calib.Start.Equal(epoch.Add(8*time.Hour)))
}

func TestEmergencyModeSurvivesRestart(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	e, err := NewFromConfig(context.Background(), cfg, WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)
	for _, id := range []string{power.PrimaryBank, power.BackupBank} {
		require.NoError(t, e.Power().UpdateBatteryState(id, power.BatteryStateUpdate{SoC: power.Float(8)}))
	}
	emergency, ok := e.ExecutePowerAction(power.TriggerLowSoC, 5)
	require.True(t, ok)
	require.Equal(t, power.ActionEmergencyMode, emergency.Action)
	require.NoError(t, e.Stop())

	restarted, err := NewFromConfig(context.Background(), cfg, WithClock(func() time.Time { return epoch.Add(time.Minute) }))
	require.NoError(t, err)
	defer restarted.Stop()

	assert.True(t, restarted.Power().EmergencyMode())
	pending := restarted.Power().PendingApprovals()
	require.Len(t, pending, 1)
	assert.Equal(t, emergency.ID, pending[0].ID)
	for _, l := range restarted.Power().Loads() {
		if l.ID == "cameras" {
			assert.True(t, l.Shed)
		}
	}
	require.NoError(t, restarted.ApprovePowerAction(emergency.ID))
}

func TestResolveConflicts(t *testing.T) {
	e := newTestEngine(t)
	e.Events().Start()
	sub := e.Events().Subscribe(events.EventActivityRescheduled)

	for _, a := range []*mission.Activity{
		{ID: "imaging", Name: "imaging", Type: mission.ActivityScience, Priority: 3, Start: epoch, Duration: time.Hour, Autonomous: true, Status: mission.StatusPlanned,
			Requirements: []mission.ResourceRequirement{{Type: mission.ResourcePower, Amount: 800, Unit: "W"}}},
		{ID: "heater-test", Name: "heater-test", Type: mission.ActivityMaintenance, Priority: 8, Start: epoch, Duration: time.Hour, Autonomous: true, Status: mission.StatusPlanned,
			Requirements: []mission.ResourceRequirement{{Type: mission.ResourcePower, Amount: 800, Unit: "W"}}},
	} {
		require.NoError(t, e.AddActivity(a))
	}

	report := e.ResolveConflicts()
	assert.Equal(t, []string{"imaging"}, report.Rescheduled)

	ev := waitFor(t, sub, events.EventActivityRescheduled)
	assert.Equal(t, "imaging", ev.Metadata["activity_id"])
	assert.Empty(t, e.Mission().DetectConflicts(epoch))
}

func TestMetricsSnapshot(t *testing.T) {
	e := newTestEngine(t)
	s := e.MetricsSnapshot()

	assert.Len(t, s.ComponentTemperatures, len(thermal.DefaultComponents()))
	assert.Len(t, s.ActuatorActivation, len(thermal.DefaultActuators()))
	assert.Len(t, s.Banks, 3)
	assert.Equal(t, len(mission.DefaultActivities(epoch)), s.ActivitiesByStatus[string(mission.StatusPlanned)])
	assert.Contains(t, s.Schedule, "efficiency")
	assert.False(t, s.Emergency)
}

func TestCheckDependencies(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	e, err := NewFromConfig(context.Background(), cfg, WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)

	statuses := e.CheckDependencies(context.Background())
	require.Contains(t, statuses, "storage")
	assert.True(t, statuses["storage"].Healthy)
	assert.NotContains(t, statuses, "archive")

	healthy, registered := metrics.ComponentHealthy("storage")
	assert.True(t, registered)
	assert.True(t, healthy)

	require.NoError(t, e.Stop())
	healthy, _ = metrics.ComponentHealthy("storage")
	assert.False(t, healthy)
}

// closeTrackingStore counts store calls that arrive after Close
type closeTrackingStore struct {
	storage.Store
	closed    atomic.Bool
	lateCalls atomic.Int64
}

func (s *closeTrackingStore) note() {
	if s.closed.Load() {
		s.lateCalls.Add(1)
	}
}

func (s *closeTrackingStore) SaveComponent(c *thermal.Component) error {
	s.note()
	return s.Store.SaveComponent(c)
}

func (s *closeTrackingStore) SaveBank(b *power.Bank) error {
	s.note()
	return s.Store.SaveBank(b)
}

func (s *closeTrackingStore) Ping(ctx context.Context) error {
	s.note()
	return s.Store.Ping(ctx)
}

func (s *closeTrackingStore) Close() error {
	s.closed.Store(true)
	return s.Store.Close()
}

func TestStopWaitsForRunningLoops(t *testing.T) {
	bolt, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	store := &closeTrackingStore{Store: bolt}

	cfg := config.Default()
	cfg.TickInterval = time.Millisecond
	e, err := New(cfg, WithStore(store), WithTelemetry(telemetry.Static{}))
	require.NoError(t, err)

	e.Start()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, e.Stop())

	// give any straggling goroutine the chance to touch the store
	time.Sleep(20 * time.Millisecond)
	assert.True(t, store.closed.Load())
	assert.Zero(t, store.lateCalls.Load())
}
