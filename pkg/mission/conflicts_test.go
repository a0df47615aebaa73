package mission

import (
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictSeverityThreshold(t *testing.T) {
	tests := []struct {
		name      string
		demand    []float64
		conflicts int
		severity  Severity
	}{
		{name: "1600 W is critical", demand: []float64{800, 800}, conflicts: 1, severity: SeverityCritical},
		{name: "1400 W is high", demand: []float64{700, 700}, conflicts: 1, severity: SeverityHigh},
		{name: "exactly 1.5x is high", demand: []float64{750, 750}, conflicts: 1, severity: SeverityHigh},
		{name: "at capacity is no conflict", demand: []float64{500, 500}, conflicts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acts []*Activity
			for i, w := range tt.demand {
				acts = append(acts, powerActivity(string(rune('a'+i)), ActivityScience, 5, epoch, w))
			}
			s := newTestScheduler(acts)

			conflicts := s.DetectConflicts(epoch)
			require.Len(t, conflicts, tt.conflicts)
			if tt.conflicts == 0 {
				return
			}

			c := conflicts[0]
			assert.Equal(t, tt.severity, c.Severity)
			assert.Equal(t, ResourcePower, c.Resource)
			assert.Equal(t, 1000.0, c.Available)
			assert.InDelta(t, tt.demand[0]+tt.demand[1], c.Required, 1e-9)
			assert.Equal(t, TimeWindow{Start: epoch, End: epoch.Add(time.Hour)}, c.Window)
			assert.ElementsMatch(t, []string{"a", "b"}, c.Activities)
		})
	}
}

func TestConflictResolutions(t *testing.T) {
	acts := []*Activity{
		powerActivity("science", ActivityScience, 4, epoch, 800),
		powerActivity("nav", ActivityNavigation, 8, epoch, 800),
	}
	acts[1].Deadline = deadlineIn(6 * time.Hour)
	s := newTestScheduler(acts)

	conflicts := s.DetectConflicts(epoch)
	require.Len(t, conflicts, 1)

	res := conflicts[0].Resolutions
	require.Len(t, res, 3)

	assert.Equal(t, StrategyReschedule, res[0].Strategy)
	assert.Equal(t, 85.0, res[0].Confidence)
	assert.Equal(t, types.ImpactMinor, res[0].Impact)
	assert.Equal(t, []string{"science", "nav"}, res[0].Activities)

	assert.Equal(t, StrategyReducePower, res[1].Strategy)
	assert.Equal(t, 70.0, res[1].Confidence)
	assert.Equal(t, []string{"science"}, res[1].Activities)

	assert.Equal(t, StrategyDefer, res[2].Strategy)
	assert.Equal(t, []string{"science"}, res[2].Activities)
}

func TestWithScorerChangesConfidenceOnly(t *testing.T) {
	build := func(opts ...Option) *Scheduler {
		acts := []*Activity{
			powerActivity("science", ActivityScience, 4, epoch, 800),
			powerActivity("nav", ActivityNavigation, 8, epoch, 800),
		}
		acts[1].Deadline = deadlineIn(6 * time.Hour)
		return newTestScheduler(acts, opts...)
	}
	custom := confidence.Table{Values: map[string]float64{"resource_conflict/reschedule": 51}, Fallback: 12}

	want := build().DetectConflicts(epoch)
	got := build(WithScorer(custom)).DetectConflicts(epoch)
	require.Len(t, want, 1)
	require.Len(t, got, 1)
	require.Len(t, got[0].Resolutions, len(want[0].Resolutions))

	for i, r := range got[0].Resolutions {
		assert.Equal(t, want[0].Resolutions[i].Strategy, r.Strategy)
		assert.Equal(t, want[0].Resolutions[i].Activities, r.Activities)
		assert.Equal(t, want[0].Resolutions[i].Impact, r.Impact)
	}
	assert.Equal(t, 51.0, got[0].Resolutions[0].Confidence)
	assert.Equal(t, 12.0, got[0].Resolutions[1].Confidence)
	assert.Equal(t, 12.0, got[0].Resolutions[2].Confidence)
	assert.Equal(t, want[0].Severity, got[0].Severity)
}

func TestConflictWithoutApplicableResolution(t *testing.T) {
	a := powerActivity("safe-1", ActivitySafety, 10, epoch, 800)
	b := powerActivity("safe-2", ActivitySafety, 10, epoch, 800)
	s := newTestScheduler([]*Activity{a, b})

	conflicts := s.DetectConflicts(epoch)
	require.Len(t, conflicts, 1)
	assert.NotNil(t, conflicts[0].Resolutions)
	assert.Empty(t, conflicts[0].Resolutions)
}

func TestConflictIgnoresTerminalActivities(t *testing.T) {
	a := powerActivity("a", ActivityScience, 5, epoch, 800)
	b := powerActivity("b", ActivityScience, 5, epoch, 800)
	b.Status = StatusCancelled
	s := newTestScheduler([]*Activity{a, b})

	assert.Empty(t, s.DetectConflicts(epoch))
}

func TestRequirementDurationLimitsSpan(t *testing.T) {
	a := powerActivity("a", ActivityScience, 5, epoch, 800)
	a.Duration = 3 * time.Hour
	a.Requirements[0].Duration = time.Hour
	b := powerActivity("b", ActivityScience, 5, epoch.Add(time.Hour), 800)
	s := newTestScheduler([]*Activity{a, b})

	assert.Empty(t, s.DetectConflicts(epoch))
}

func TestConflictsPerResource(t *testing.T) {
	a := &Activity{
		ID: "downlink", Name: "Downlink", Type: ActivityCommunication, Priority: 5,
		Start: epoch, Duration: time.Hour, Status: StatusPlanned,
		Requirements: []ResourceRequirement{
			{Type: ResourceBandwidth, Amount: 9000, Unit: "kbps"},
			{Type: ResourceThermal, Amount: 600, Unit: "W"},
		},
	}
	s := newTestScheduler([]*Activity{a})

	conflicts := s.DetectConflicts(epoch)
	require.Len(t, conflicts, 2)
	resources := []ResourceType{conflicts[0].Resource, conflicts[1].Resource}
	assert.ElementsMatch(t, []ResourceType{ResourceThermal, ResourceBandwidth}, resources)
}

func TestDetectAndResolveConflicts(t *testing.T) {
	acts := []*Activity{
		powerActivity("low", ActivityScience, 3, epoch, 800),
		powerActivity("high", ActivityNavigation, 9, epoch, 800),
	}
	s := newTestScheduler(acts)

	report := s.DetectAndResolveConflicts()
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, []string{"low"}, report.Rescheduled)
	require.Len(t, report.Actions, 1)

	action := report.Actions[0]
	assert.Equal(t, StrategyReschedule, action.Action)
	assert.Equal(t, Predictor, action.Predictor)
	assert.Equal(t, []string{"low"}, action.AffectedSystems)
	assert.True(t, action.Reversible)
	assert.InDelta(t, 600, action.Effect.ResourceImpact["power"], 1e-9)

	low, err := s.Activity("low")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Hour), low.Start)

	assert.Empty(t, s.DetectConflicts(epoch))
}

func TestDetectAndResolveRespectsDeadline(t *testing.T) {
	acts := []*Activity{
		powerActivity("low", ActivityScience, 3, epoch, 800),
		powerActivity("high", ActivityNavigation, 9, epoch, 800),
	}
	acts[0].Deadline = deadlineIn(time.Hour)
	s := newTestScheduler(acts)

	report := s.DetectAndResolveConflicts()
	assert.Equal(t, []string{"high"}, report.Rescheduled)
}

func TestDetectAndResolveSkipsStartedWork(t *testing.T) {
	acts := []*Activity{
		powerActivity("a", ActivityScience, 3, epoch, 800),
		powerActivity("b", ActivityNavigation, 9, epoch, 800),
	}
	acts[0].Status = StatusExecuting
	acts[1].Status = StatusReady
	s := newTestScheduler(acts)

	report := s.DetectAndResolveConflicts()
	assert.Len(t, report.Conflicts, 1)
	assert.Empty(t, report.Rescheduled)
	assert.Empty(t, report.Actions)
}
