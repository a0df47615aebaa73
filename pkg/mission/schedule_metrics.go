package mission

import (
	"math"
	"time"
)

// ScheduleMetrics summarizes schedule quality
type ScheduleMetrics struct {
	Timestamp time.Time `json:"timestamp"`
	// Efficiency is the mean peak utilization across resources, 0-100
	Efficiency float64 `json:"efficiency"`
	// RiskLevel aggregates conflict severity, 0-100
	RiskLevel      float64 `json:"riskLevel"`
	CompletionRate float64 `json:"completionRate"`
	AutonomyLevel  float64 `json:"autonomyLevel"`
	// ResourceMargin is capacity minus peak demand per resource
	ResourceMargin map[string]float64 `json:"resourceMargin"`
	// Adaptability scores tolerance to disruption, 0-100
	Adaptability float64 `json:"adaptability"`
}

var metricResources = []ResourceType{ResourcePower, ResourceThermal, ResourceBandwidth, ResourceCompute}

// Metrics computes schedule metrics over the analysis window starting now
func (s *Scheduler) Metrics() ScheduleMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	return s.metricsLocked(now, s.detectLocked(now))
}

// MetricsHistory returns the retained metrics samples, oldest first
func (s *Scheduler) MetricsHistory() []ScheduleMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ScheduleMetrics, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) recordMetricsLocked(conflicts []Conflict) {
	s.history = append(s.history, s.metricsLocked(s.now(), conflicts))
	if max := s.cfg.MetricsHistory; max > 0 && len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

func (s *Scheduler) metricsLocked(now time.Time, conflicts []Conflict) ScheduleMetrics {
	acts := s.sortedLocked()
	m := ScheduleMetrics{
		Timestamp:      now,
		ResourceMargin: make(map[string]float64, len(metricResources)),
	}

	utilization := 0.0
	for _, res := range metricResources {
		peak := s.peakDemandLocked(acts, res, now)
		capacity := s.capacity(res)
		m.ResourceMargin[string(res)] = capacity - peak
		if capacity > 0 {
			utilization += math.Min(peak/capacity, 1)
		}
	}
	m.Efficiency = utilization / float64(len(metricResources)) * 100

	risk := 0.0
	for _, c := range conflicts {
		switch c.Severity {
		case SeverityCritical:
			risk += 25
		case SeverityHigh:
			risk += 15
		default:
			risk += 5
		}
	}
	m.RiskLevel = math.Min(100, risk)

	if len(acts) == 0 {
		return m
	}

	completed, autonomous, flexible := 0, 0, 0
	flexibility := 0.0
	for _, a := range acts {
		if a.Status == StatusCompleted {
			completed++
		}
		if a.Autonomous {
			autonomous++
		}
		if reschedulable(a) {
			flexible++
		}
		flexibility += a.Flexibility()
	}
	total := float64(len(acts))
	m.CompletionRate = float64(completed) / total * 100
	m.AutonomyLevel = float64(autonomous) / total * 100
	m.Adaptability = 0.5*(flexibility/total) + 0.5*(float64(flexible)/total*100)
	return m
}

// peakDemandLocked is the highest per-slot demand for a resource in the window
func (s *Scheduler) peakDemandLocked(acts []*Activity, res ResourceType, from time.Time) float64 {
	peak := 0.0
	end := from.Add(s.cfg.AnalysisWindow)
	for start := from; start.Before(end); start = start.Add(s.cfg.SlotDuration) {
		slotEnd := start.Add(s.cfg.SlotDuration)
		demand := 0.0
		for _, a := range acts {
			if a.Status.Terminal() {
				continue
			}
			demand += a.Demand(res, start, slotEnd)
		}
		peak = math.Max(peak, demand)
	}
	return peak
}
