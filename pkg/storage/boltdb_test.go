package storage

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestThermalCatalogRoundTrip(t *testing.T) {
	store := newTestStore(t)

	for _, c := range thermal.DefaultComponents() {
		require.NoError(t, store.SaveComponent(c))
	}
	for _, a := range thermal.DefaultActuators() {
		require.NoError(t, store.SaveActuator(a))
	}

	components, err := store.ListComponents()
	require.NoError(t, err)
	assert.Len(t, components, len(thermal.DefaultComponents()))

	actuators, err := store.ListActuators()
	require.NoError(t, err)
	require.Len(t, actuators, len(thermal.DefaultActuators()))
	assert.Equal(t, "battery-heaters", actuators[0].ID)
	for _, a := range actuators {
		if a.ID == thermal.PrimaryRadiator {
			assert.Equal(t, 30*time.Second, a.ResponseTime)
		}
	}
}

func TestPowerCatalogUpsert(t *testing.T) {
	store := newTestStore(t)

	banks := power.DefaultBanks()
	for _, b := range banks {
		require.NoError(t, store.SaveBank(b))
	}
	banks[0].State.SoC = 42
	banks[0].Isolated = true
	require.NoError(t, store.SaveBank(banks[0]))

	got, err := store.ListBanks()
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, b := range got {
		if b.ID == banks[0].ID {
			assert.Equal(t, 42.0, b.State.SoC)
			assert.True(t, b.Isolated)
		}
	}

	for _, l := range power.DefaultLoads() {
		require.NoError(t, store.SaveLoad(l))
	}
	loads, err := store.ListLoads()
	require.NoError(t, err)
	assert.Len(t, loads, len(power.DefaultLoads()))

	for _, s := range power.DefaultSources() {
		require.NoError(t, store.SaveSource(s))
	}
	sources, err := store.ListSources()
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}

func TestPowerState(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPowerState()
	assert.ErrorIs(t, err, ErrNotFound)

	deadline := time.Date(2030, 1, 1, 0, 5, 0, 0, time.UTC)
	st := power.ManagerState{
		EmergencyMode: true,
		Pending: []types.Action{
			{ID: "act-1", Action: power.ActionIsolateBank, RequiresApproval: true, ApprovalDeadline: deadline},
		},
	}
	require.NoError(t, store.SavePowerState(st))

	got, err := store.GetPowerState()
	require.NoError(t, err)
	assert.True(t, got.EmergencyMode)
	require.Len(t, got.Pending, 1)
	assert.Equal(t, "act-1", got.Pending[0].ID)
	assert.True(t, got.Pending[0].ApprovalDeadline.Equal(deadline))

	st.EmergencyMode = false
	st.Pending = nil
	require.NoError(t, store.SavePowerState(st))
	got, err = store.GetPowerState()
	require.NoError(t, err)
	assert.False(t, got.EmergencyMode)
	assert.Empty(t, got.Pending)
}

func TestActivities(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, a := range mission.DefaultActivities(now) {
		require.NoError(t, store.SaveActivity(a))
	}

	a, err := store.GetActivity("comm-pass-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"science-obs-1"}, a.Dependencies)
	require.NotNil(t, a.Deadline)
	assert.True(t, a.Deadline.Equal(now.Add(12*time.Hour)))

	require.NoError(t, store.DeleteActivity("comm-pass-1"))
	_, err = store.GetActivity("comm-pass-1")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.ListActivities()
	require.NoError(t, err)
	assert.Len(t, all, len(mission.DefaultActivities(now))-1)
}

func TestActionLog(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"shed_load", "switch_battery_bank", "emergency_mode"} {
		require.NoError(t, store.AppendAction(types.Action{ID: name, Predictor: "power", Action: name}))
	}

	all, err := store.ListActions(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "shed_load", all[0].Action)

	recent, err := store.ListActions(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "switch_battery_bank", recent[0].Action)
	assert.Equal(t, "emergency_mode", recent[1].Action)
}

func TestCycleLog(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendCycle(power.PrimaryBank, power.CycleRecord{StartSoC: 85, EndSoC: 60, DepthOfDischarge: 25}))
	require.NoError(t, store.AppendCycle(power.PrimaryBank, power.CycleRecord{StartSoC: 80, EndSoC: 70, DepthOfDischarge: 10}))

	cycles, err := store.ListCycles(power.PrimaryBank)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, 25.0, cycles[0].DepthOfDischarge)

	none, err := store.ListCycles(power.BackupBank)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)

	closed, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, closed.Close())
	assert.Error(t, closed.Ping(context.Background()))
}
