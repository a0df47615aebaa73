package mission

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cuemby/odin/pkg/types"
	"github.com/google/uuid"
)

// PredictedEvent is an upcoming activity with its estimated success probability
type PredictedEvent struct {
	ActivityID         string       `json:"activityId"`
	Name               string       `json:"name"`
	Type               ActivityType `json:"type"`
	Time               time.Time    `json:"time"`
	SuccessProbability float64      `json:"successProbability"`
}

// ResourceEffect is the predicted degradation of a resource, in percent
type ResourceEffect struct {
	Resource  ResourceType `json:"resource"`
	Reduction float64      `json:"reduction"`
}

// EnvironmentEvent is an externally caused window that affects resources
type EnvironmentEvent struct {
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Window      TimeWindow       `json:"window"`
	Probability float64          `json:"probability"`
	Impacts     []ResourceEffect `json:"impacts"`
}

// TrendPoint is one sample of a resource utilization trend
type TrendPoint struct {
	Time        time.Time `json:"time"`
	Utilization float64   `json:"utilization"`
	Confidence  float64   `json:"confidence"`
}

// ResourceTrend is the predicted utilization of one resource
type ResourceTrend struct {
	Resource ResourceType `json:"resource"`
	Points   []TrendPoint `json:"points"`
}

// RiskFactor is one contribution to the overall risk
type RiskFactor struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// CascadeRisk describes how a single failure could propagate
type CascadeRisk struct {
	Name        string   `json:"name"`
	Trigger     string   `json:"trigger"`
	Sequence    []string `json:"sequence"`
	Probability float64  `json:"probability"`
	Mitigation  string   `json:"mitigation"`
}

// RiskAssessment combines risk factors and cascade templates
type RiskAssessment struct {
	Overall  float64       `json:"overall"`
	Level    string        `json:"level"`
	Factors  []RiskFactor  `json:"factors"`
	Cascades []CascadeRisk `json:"cascades"`
}

// Optimization is a suggested schedule change
type Optimization struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	Description    string             `json:"description"`
	Activities     []string           `json:"activities"`
	Benefits       []string           `json:"benefits"`
	Tradeoffs      []string           `json:"tradeoffs"`
	ResourceImpact map[string]float64 `json:"resourceImpact"`
	Complexity     string             `json:"complexity"`
	Confidence     float64            `json:"confidence"`
}

// Prediction is the result of GenerateMissionPrediction
type Prediction struct {
	GeneratedAt       time.Time          `json:"generatedAt"`
	Horizon           time.Duration      `json:"horizon"`
	Events            []PredictedEvent   `json:"events"`
	EnvironmentEvents []EnvironmentEvent `json:"environmentEvents"`
	Trends            []ResourceTrend    `json:"trends"`
	Risk              RiskAssessment     `json:"risk"`
	Optimizations     []Optimization     `json:"optimizations"`
}

// Optimization types
const (
	OptimizeHighPowerOverlap = "reschedule_high_power_overlap"
	OptimizeScienceWindow    = "retime_science_window"
	OptimizeDeferFlareRisk   = "defer_during_flare_risk"
)

// highPowerThreshold in watts marks an activity as power hungry
const highPowerThreshold = 300.0

// GenerateMissionPrediction composes events, environment windows, resource
// trends, risk and optimizations over the horizon
func (s *Scheduler) GenerateMissionPrediction(horizon time.Duration, health types.SystemHealth, env types.Environment) Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	acts := s.sortedLocked()
	end := now.Add(horizon)

	p := Prediction{
		GeneratedAt:       now,
		Horizon:           horizon,
		Events:            []PredictedEvent{},
		EnvironmentEvents: environmentEvents(now, end, env),
		Trends:            s.trendsLocked(acts, now, horizon),
	}

	for _, a := range acts {
		if a.Status != StatusPlanned || a.Start.Before(now) || a.Start.After(end) {
			continue
		}
		p.Events = append(p.Events, PredictedEvent{
			ActivityID:         a.ID,
			Name:               a.Name,
			Type:               a.Type,
			Time:               a.Start,
			SuccessProbability: SuccessProbability(a),
		})
	}

	p.Risk = s.assessRisk(p.Trends, health, env)
	p.Optimizations = s.optimizations(acts, now, end, env)
	return p
}

// SuccessProbability estimates an activity's chance of success from its complexity
func SuccessProbability(a *Activity) float64 {
	p := 90.0
	if len(a.Dependencies) > 2 {
		p -= 10
	}
	if len(a.Requirements) > 3 {
		p -= 5
	}
	if !a.Autonomous {
		p -= 15
	}
	p += a.Flexibility() * 0.2
	return types.Clamp(p, 10, 99)
}

func environmentEvents(now, end time.Time, env types.Environment) []EnvironmentEvent {
	events := []EnvironmentEvent{}

	for _, f := range env.PredictedFlares {
		if f.ArrivalTime.Before(now) || f.ArrivalTime.After(end) {
			continue
		}
		duration := f.Duration
		if duration <= 0 {
			duration = 30 * time.Minute
		}
		powerCut, commsCut := flareEffects(f.Class)
		events = append(events, EnvironmentEvent{
			Type:        "solar_flare",
			Description: fmt.Sprintf("%s%.1f flare", f.Class, f.Magnitude),
			Window:      TimeWindow{Start: f.ArrivalTime, End: f.ArrivalTime.Add(duration)},
			Probability: f.Probability,
			Impacts: []ResourceEffect{
				{Resource: ResourcePower, Reduction: powerCut},
				{Resource: ResourceBandwidth, Reduction: commsCut},
			},
		})
	}

	if start := nextMaintenanceWindow(now); !start.After(end) {
		events = append(events, EnvironmentEvent{
			Type:        "maintenance_blackout",
			Description: "Weekly ground station maintenance",
			Window:      TimeWindow{Start: start, End: start.Add(2 * time.Hour)},
			Probability: 100,
			Impacts:     []ResourceEffect{{Resource: ResourceBandwidth, Reduction: 100}},
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Window.Start.Before(events[j].Window.Start) })
	return events
}

// flareEffects returns the percentage reductions of power and comms for a flare class
func flareEffects(class types.FlareClass) (power, comms float64) {
	switch class {
	case types.FlareX:
		return 30, 50
	case types.FlareM:
		return 15, 25
	case types.FlareC:
		return 5, 10
	default:
		return 1, 2
	}
}

// nextMaintenanceWindow returns the next Sunday 02:00 UTC at or after now
func nextMaintenanceWindow(now time.Time) time.Time {
	utc := now.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 2, 0, 0, 0, time.UTC)
	offset := (7 - int(day.Weekday())) % 7
	next := day.AddDate(0, 0, offset)
	if next.Before(utc) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (s *Scheduler) trendsLocked(acts []*Activity, now time.Time, horizon time.Duration) []ResourceTrend {
	slot := s.cfg.SlotDuration
	steps := int(horizon / slot)

	trends := make([]ResourceTrend, 0, len(metricResources))
	for _, res := range metricResources {
		capacity := s.capacity(res)
		trend := ResourceTrend{Resource: res, Points: make([]TrendPoint, 0, steps)}
		for k := 0; k < steps; k++ {
			start := now.Add(time.Duration(k) * slot)
			demand := 0.0
			for _, a := range acts {
				if !a.Status.Terminal() {
					demand += a.Demand(res, start, start.Add(slot))
				}
			}
			util := 0.0
			if capacity > 0 {
				util = demand / capacity * 100
			}
			trend.Points = append(trend.Points, TrendPoint{
				Time:        start,
				Utilization: util,
				Confidence:  math.Max(50, 95-2*float64(k)),
			})
		}
		trends = append(trends, trend)
	}
	return trends
}

func (s *Scheduler) assessRisk(trends []ResourceTrend, health types.SystemHealth, env types.Environment) RiskAssessment {
	envScore := env.SolarActivityRisk
	for _, f := range env.PredictedFlares {
		if f.Class.Major() {
			envScore += 10
		}
	}
	envScore = math.Min(100, envScore+env.Radiation*2)

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)
	healthScore, weakest := 0.0, "none"
	for _, name := range names {
		if r := 100 - health[name]; r > healthScore {
			healthScore, weakest = r, name
		}
	}

	peak := 0.0
	for _, t := range trends {
		for _, p := range t.Points {
			peak = math.Max(peak, p.Utilization)
		}
	}
	resourceScore := math.Min(100, peak)

	overall := 0.4*envScore + 0.35*healthScore + 0.25*resourceScore
	level := "low"
	switch {
	case overall >= 70:
		level = "high"
	case overall >= 40:
		level = "medium"
	}

	powerHealth, ok := health["power"]
	if !ok {
		powerHealth = 100
	}

	return RiskAssessment{
		Overall: overall,
		Level:   level,
		Factors: []RiskFactor{
			{Category: "environmental", Description: "Solar activity, flares and radiation", Score: envScore},
			{Category: "system_health", Description: fmt.Sprintf("Weakest subsystem: %s", weakest), Score: healthScore},
			{Category: "resource_constraint", Description: "Peak predicted resource utilization", Score: resourceScore},
		},
		Cascades: []CascadeRisk{
			{
				Name:        "power_failure_cascade",
				Trigger:     "battery bank failure",
				Sequence:    []string{"bank isolation", "load shedding", "science suspension", "safe mode"},
				Probability: types.Clamp((100-powerHealth)*0.5+resourceScore*0.1, 0, 100),
				Mitigation:  "Keep emergency reserve bank charged and pre-plan shed order",
			},
			{
				Name:        "solar_storm_cascade",
				Trigger:     "major solar flare",
				Sequence:    []string{"array output drop", "thermal excursion", "communications loss"},
				Probability: types.Clamp(env.SolarActivityRisk*0.6, 0, 100),
				Mitigation:  "Stow sensitive instruments and orient sun shield ahead of arrival",
			},
		},
	}
}

func (s *Scheduler) optimizations(acts []*Activity, now, end time.Time, env types.Environment) []Optimization {
	out := []Optimization{}

	var open []*Activity
	for _, a := range acts {
		if a.Status.Terminal() || a.End().Before(now) || a.Start.After(end) {
			continue
		}
		open = append(open, a)
	}

	for i := 0; i < len(open); i++ {
		for j := i + 1; j < len(open); j++ {
			a, b := open[i], open[j]
			pa, pb := a.Requirement(ResourcePower), b.Requirement(ResourcePower)
			if pa < highPowerThreshold || pb < highPowerThreshold {
				continue
			}
			if !a.Start.Before(b.End()) || !b.Start.Before(a.End()) {
				continue
			}
			lower := a
			if b.Priority < a.Priority {
				lower = b
			}
			out = append(out, Optimization{
				ID:             uuid.New().String(),
				Type:           OptimizeHighPowerOverlap,
				Description:    fmt.Sprintf("Separate %s and %s which overlap at %.0f W combined", a.ID, b.ID, pa+pb),
				Activities:     []string{a.ID, b.ID},
				Benefits:       []string{"Lower peak power demand", "Larger battery margin"},
				Tradeoffs:      []string{fmt.Sprintf("%s completes later", lower.ID)},
				ResourceImpact: map[string]float64{string(ResourcePower): -math.Min(pa, pb)},
				Complexity:     "low",
				Confidence:     85,
			})
		}
	}

	for _, a := range open {
		if a.Type != ActivityScience {
			continue
		}
		out = append(out, Optimization{
			ID:             uuid.New().String(),
			Type:           OptimizeScienceWindow,
			Description:    fmt.Sprintf("Retime %s to the best target visibility window", a.ID),
			Activities:     []string{a.ID},
			Benefits:       []string{"Higher data quality", "Shorter integration time"},
			Tradeoffs:      []string{"May move into a busier slot"},
			ResourceImpact: map[string]float64{string(ResourceCompute): 0},
			Complexity:     "medium",
			Confidence:     70,
		})
	}

	if env.SolarActivityRisk >= s.cfg.HighFlareRisk {
		var ids []string
		for _, a := range open {
			if a.Type != ActivitySafety && a.Priority < 8 {
				ids = append(ids, a.ID)
			}
		}
		if len(ids) > 0 {
			out = append(out, Optimization{
				ID:             uuid.New().String(),
				Type:           OptimizeDeferFlareRisk,
				Description:    "Defer non-critical activities until solar activity subsides",
				Activities:     ids,
				Benefits:       []string{"Avoid flare-induced anomalies", "Preserve power margin"},
				Tradeoffs:      []string{"Science return delayed"},
				ResourceImpact: map[string]float64{string(ResourcePower): 0},
				Complexity:     "low",
				Confidence:     78,
			})
		}
	}
	return out
}
