package mission

import (
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/types"
	"github.com/google/uuid"
)

// Severity grades a resource conflict
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TimeWindow is a half-open interval [Start, End)
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resolution is a candidate fix for a conflict
type Resolution struct {
	Strategy    string              `json:"strategy"`
	Description string              `json:"description"`
	Impact      types.MissionImpact `json:"impact"`
	Confidence  float64             `json:"confidence"`
	Complexity  string              `json:"complexity"`
	Activities  []string            `json:"activities"`
}

// Conflict is a slot in which demand for one resource exceeds capacity
type Conflict struct {
	ID          string       `json:"id"`
	Resource    ResourceType `json:"resource"`
	Activities  []string     `json:"activities"`
	Severity    Severity     `json:"severity"`
	Available   float64      `json:"available"`
	Required    float64      `json:"required"`
	Window      TimeWindow   `json:"window"`
	Resolutions []Resolution `json:"resolutions"`
}

// conflictResources are the resources checked slot by slot
var conflictResources = []ResourceType{ResourcePower, ResourceThermal, ResourceBandwidth}

// Resolution strategies
const (
	StrategyReschedule  = "reschedule"
	StrategyReducePower = "reduce_power"
	StrategyDefer       = "defer"
)

const conflictTrigger = "resource_conflict"

// strategy proposes a resolution, or nil when it does not apply
type strategy func(s *Scheduler, c *Conflict, acts []*Activity) *Resolution

var strategies = []strategy{rescheduleStrategy, reducePowerStrategy, deferStrategy}

func (s *Scheduler) capacity(r ResourceType) float64 {
	switch r {
	case ResourcePower:
		return s.cfg.PowerCapacity
	case ResourceThermal:
		return s.cfg.ThermalCapacity
	case ResourceBandwidth:
		return s.cfg.BandwidthCapacity
	case ResourceCompute:
		return s.cfg.ComputeCapacity
	}
	return 0
}

// DetectConflicts scans the analysis window starting at from, slot by slot
func (s *Scheduler) DetectConflicts(from time.Time) []Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detectLocked(from)
}

func (s *Scheduler) detectLocked(from time.Time) []Conflict {
	acts := s.sortedLocked()
	slot := s.cfg.SlotDuration
	end := from.Add(s.cfg.AnalysisWindow)

	conflicts := []Conflict{}
	for start := from; start.Before(end); start = start.Add(slot) {
		window := TimeWindow{Start: start, End: start.Add(slot)}
		for _, res := range conflictResources {
			demand := 0.0
			var involved []*Activity
			for _, a := range acts {
				if a.Status.Terminal() {
					continue
				}
				d := a.Demand(res, window.Start, window.End)
				if d <= 0 {
					continue
				}
				demand += d
				involved = append(involved, a)
			}

			capacity := s.capacity(res)
			if demand <= capacity {
				continue
			}

			c := Conflict{
				ID:         uuid.New().String(),
				Resource:   res,
				Severity:   SeverityHigh,
				Available:  capacity,
				Required:   demand,
				Window:     window,
				Activities: make([]string, 0, len(involved)),
			}
			if demand > capacity*s.cfg.CriticalMultiplier {
				c.Severity = SeverityCritical
			}
			for _, a := range involved {
				c.Activities = append(c.Activities, a.ID)
			}
			c.Resolutions = s.resolutions(&c, involved)
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// resolutions runs every strategy; the result may be empty
func (s *Scheduler) resolutions(c *Conflict, acts []*Activity) []Resolution {
	out := []Resolution{}
	for _, strat := range strategies {
		if r := strat(s, c, acts); r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Scheduler) score(strategy string) float64 {
	return s.scorer.Score(confidence.Key{Trigger: conflictTrigger, Action: strategy})
}

// reschedulable activities are not safety work and have not started
func reschedulable(a *Activity) bool {
	return a.Type != ActivitySafety && (a.Status == StatusPlanned || a.Status == StatusReady)
}

// byPriority orders activities lowest priority first
func byPriority(acts []*Activity) []*Activity {
	out := append([]*Activity(nil), acts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func rescheduleStrategy(s *Scheduler, c *Conflict, acts []*Activity) *Resolution {
	var ids []string
	for _, a := range byPriority(acts) {
		if reschedulable(a) {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return &Resolution{
		Strategy:    StrategyReschedule,
		Description: fmt.Sprintf("Move %s to a later slot to relieve %s demand", ids[0], c.Resource),
		Impact:      types.ImpactMinor,
		Confidence:  s.score(StrategyReschedule),
		Complexity:  "low",
		Activities:  ids,
	}
}

func reducePowerStrategy(s *Scheduler, c *Conflict, acts []*Activity) *Resolution {
	if c.Resource != ResourcePower {
		return nil
	}
	var ids []string
	for _, a := range acts {
		if a.Type == ActivityScience {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return &Resolution{
		Strategy:    StrategyReducePower,
		Description: "Run science payloads in reduced power mode",
		Impact:      types.ImpactModerate,
		Confidence:  s.score(StrategyReducePower),
		Complexity:  "medium",
		Activities:  ids,
	}
}

func deferStrategy(s *Scheduler, c *Conflict, acts []*Activity) *Resolution {
	var ids []string
	for _, a := range byPriority(acts) {
		if reschedulable(a) && a.Deadline == nil && a.Priority <= 5 {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return &Resolution{
		Strategy:    StrategyDefer,
		Description: "Defer low priority work without a deadline beyond the analysis window",
		Impact:      types.ImpactModerate,
		Confidence:  s.score(StrategyDefer),
		Complexity:  "low",
		Activities:  ids,
	}
}

// ResolutionReport is the outcome of DetectAndResolveConflicts
type ResolutionReport struct {
	Conflicts   []Conflict     `json:"conflicts"`
	Actions     []types.Action `json:"actions"`
	Rescheduled []string       `json:"rescheduled"`
}

// DetectAndResolveConflicts detects conflicts from now and applies the
// reschedule resolution: the lowest priority planned, non-safety activity of
// each conflict moves one slot later, provided it still meets its deadline.
// Each activity moves at most once per call.
func (s *Scheduler) DetectAndResolveConflicts() ResolutionReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	report := ResolutionReport{
		Conflicts:   s.detectLocked(now),
		Actions:     []types.Action{},
		Rescheduled: []string{},
	}

	moved := make(map[string]bool)
	for _, c := range report.Conflicts {
		for _, r := range c.Resolutions {
			if r.Strategy != StrategyReschedule {
				continue
			}
			for _, id := range r.Activities {
				a := s.activities[id]
				if moved[id] || a.Status != StatusPlanned {
					continue
				}
				shifted := a.Start.Add(s.cfg.SlotDuration)
				if a.Deadline != nil && shifted.Add(a.Duration).After(*a.Deadline) {
					continue
				}
				a.Start = shifted
				moved[id] = true
				report.Rescheduled = append(report.Rescheduled, id)
				report.Actions = append(report.Actions, types.Action{
					ID:              uuid.New().String(),
					Predictor:       Predictor,
					Trigger:         conflictTrigger,
					Action:          StrategyReschedule,
					AffectedSystems: []string{id},
					Effect: types.Effect{
						ResourceImpact: map[string]float64{string(c.Resource): c.Required - c.Available},
					},
					MissionImpact: r.Impact,
					ExecutionTime: 0,
					Reversible:    true,
					Confidence:    r.Confidence,
					Timestamp:     now,
				})
				actLog := log.WithActivityID(s.logger, id)
				actLog.Info().
					Str("resource", string(c.Resource)).
					Time("start", shifted).
					Msg("activity rescheduled to resolve conflict")
				break
			}
		}
	}
	return report
}
