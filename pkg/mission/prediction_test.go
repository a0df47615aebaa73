package mission

import (
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessProbability(t *testing.T) {
	tests := []struct {
		name     string
		activity Activity
		expected float64
	}{
		{
			name:     "simple autonomous",
			activity: Activity{Autonomous: true},
			expected: 90,
		},
		{
			name:     "many dependencies",
			activity: Activity{Autonomous: true, Dependencies: []string{"a", "b", "c"}},
			expected: 80,
		},
		{
			name: "many requirements",
			activity: Activity{Autonomous: true, Requirements: []ResourceRequirement{
				{Type: ResourcePower}, {Type: ResourceThermal}, {Type: ResourceCompute}, {Type: ResourceBandwidth},
			}},
			expected: 85,
		},
		{
			name:     "manual",
			activity: Activity{Autonomous: false},
			expected: 75,
		},
		{
			name:     "flexible constraints",
			activity: Activity{Autonomous: true, Constraints: []Constraint{{Flexibility: 40}, {Flexibility: 60}}},
			expected: 99,
		},
		{
			name: "everything against it",
			activity: Activity{
				Dependencies: []string{"a", "b", "c"},
				Requirements: []ResourceRequirement{{}, {}, {}, {}},
				Constraints:  []Constraint{{Flexibility: 10}},
			},
			expected: 62,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SuccessProbability(&tt.activity), 1e-9)
		})
	}
}

func TestGenerateMissionPredictionEvents(t *testing.T) {
	acts := DefaultActivities(epoch)
	s := newTestScheduler(acts)
	require.NoError(t, s.TransitionActivity("calib-1", StatusCancelled))

	p := s.GenerateMissionPrediction(12*time.Hour, types.NominalHealth(), types.NominalEnvironment())

	var ids []string
	for _, e := range p.Events {
		ids = append(ids, e.ActivityID)
		assert.GreaterOrEqual(t, e.SuccessProbability, 10.0)
		assert.LessOrEqual(t, e.SuccessProbability, 99.0)
	}
	assert.Equal(t, []string{"nav-burn-1", "science-obs-1", "comm-pass-1"}, ids)

	require.Len(t, p.Trends, 4)
	for _, trend := range p.Trends {
		require.Len(t, trend.Points, 12)
		for k := 1; k < len(trend.Points); k++ {
			assert.LessOrEqual(t, trend.Points[k].Confidence, trend.Points[k-1].Confidence)
		}
	}
}

func TestEnvironmentEvents(t *testing.T) {
	// 2030-01-01 is a Tuesday; the next maintenance window is Sunday the 6th
	env := types.NominalEnvironment()
	env.PredictedFlares = []types.SolarFlare{
		{Class: types.FlareX, Magnitude: 2.1, ArrivalTime: epoch.Add(3 * time.Hour), Probability: 60},
		{Class: types.FlareC, Magnitude: 1, ArrivalTime: epoch.Add(30 * time.Hour), Probability: 40},
	}

	events := environmentEvents(epoch, epoch.Add(24*time.Hour), env)
	require.Len(t, events, 1)
	assert.Equal(t, "solar_flare", events[0].Type)
	assert.Equal(t, epoch.Add(3*time.Hour+30*time.Minute), events[0].Window.End)
	assert.Equal(t, []ResourceEffect{
		{Resource: ResourcePower, Reduction: 30},
		{Resource: ResourceBandwidth, Reduction: 50},
	}, events[0].Impacts)

	events = environmentEvents(epoch, epoch.Add(7*24*time.Hour), env)
	require.Len(t, events, 3)
	assert.Equal(t, "maintenance_blackout", events[2].Type)
	assert.Equal(t, time.Date(2030, 1, 6, 2, 0, 0, 0, time.UTC), events[2].Window.Start)
}

func TestNextMaintenanceWindow(t *testing.T) {
	sunday := time.Date(2030, 1, 6, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2030, 1, 6, 2, 0, 0, 0, time.UTC), nextMaintenanceWindow(sunday))

	late := time.Date(2030, 1, 6, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2030, 1, 13, 2, 0, 0, 0, time.UTC), nextMaintenanceWindow(late))
}

func TestRiskAssessment(t *testing.T) {
	s := newTestScheduler(nil)

	calm := s.GenerateMissionPrediction(6*time.Hour, types.NominalHealth(), types.NominalEnvironment())
	assert.Equal(t, "low", calm.Risk.Level)
	require.Len(t, calm.Risk.Factors, 3)
	require.Len(t, calm.Risk.Cascades, 2)

	health := types.NominalHealth()
	health["power"] = 20
	env := types.NominalEnvironment()
	env.SolarActivityRisk = 95
	env.PredictedFlares = []types.SolarFlare{{Class: types.FlareX, Magnitude: 1, ArrivalTime: epoch.Add(time.Hour)}}

	stormy := s.GenerateMissionPrediction(6*time.Hour, health, env)
	assert.Greater(t, stormy.Risk.Overall, calm.Risk.Overall)
	assert.Equal(t, "medium", stormy.Risk.Level)
	assert.Contains(t, stormy.Risk.Factors[1].Description, "power")
	assert.Greater(t, stormy.Risk.Cascades[0].Probability, calm.Risk.Cascades[0].Probability)
}

func TestOptimizations(t *testing.T) {
	acts := []*Activity{
		powerActivity("obs", ActivityScience, 4, epoch, 450),
		powerActivity("burn", ActivityNavigation, 9, epoch.Add(30*time.Minute), 350),
		powerActivity("check", ActivitySafety, 10, epoch.Add(4*time.Hour), 50),
	}
	s := newTestScheduler(acts)

	env := types.NominalEnvironment()
	p := s.GenerateMissionPrediction(12*time.Hour, types.NominalHealth(), env)

	byType := map[string][]string{}
	for _, o := range p.Optimizations {
		byType[o.Type] = o.Activities
		assert.NotEmpty(t, o.Benefits)
		assert.NotEmpty(t, o.Tradeoffs)
	}
	assert.ElementsMatch(t, []string{"obs", "burn"}, byType[OptimizeHighPowerOverlap])
	assert.Equal(t, []string{"obs"}, byType[OptimizeScienceWindow])
	assert.NotContains(t, byType, OptimizeDeferFlareRisk)

	env.SolarActivityRisk = 80
	p = s.GenerateMissionPrediction(12*time.Hour, types.NominalHealth(), env)
	var deferred []string
	for _, o := range p.Optimizations {
		if o.Type == OptimizeDeferFlareRisk {
			deferred = o.Activities
		}
	}
	assert.Equal(t, []string{"obs"}, deferred)
}

func TestScheduleMetrics(t *testing.T) {
	acts := []*Activity{
		powerActivity("a", ActivityScience, 5, epoch, 800),
		powerActivity("b", ActivityScience, 5, epoch, 800),
		powerActivity("c", ActivityMaintenance, 5, epoch.Add(-2*time.Hour), 100),
		powerActivity("d", ActivityMaintenance, 5, epoch.Add(5*time.Hour), 100),
	}
	acts[2].Status = StatusCompleted
	acts[3].Autonomous = false
	s := newTestScheduler(acts)

	m := s.Metrics()
	assert.Equal(t, 25.0, m.CompletionRate)
	assert.Equal(t, 75.0, m.AutonomyLevel)
	assert.Equal(t, -600.0, m.ResourceMargin["power"])
	assert.Equal(t, 500.0, m.ResourceMargin["thermal"])
	assert.Equal(t, 25.0, m.RiskLevel)
	assert.InDelta(t, 25.0, m.Efficiency, 1e-9)
	assert.InDelta(t, 37.5, m.Adaptability, 1e-9)
}
