package metrics

import (
	"time"
)

// BankSample is one battery bank's collected values
type BankSample struct {
	ID          string
	SoC         float64
	SoH         float64
	RunawayRisk float64
}

// Snapshot is the engine state the collector exports
type Snapshot struct {
	ComponentTemperatures map[string]float64
	ActuatorActivation    map[string]float64
	ThermalAlerts         map[string]int
	Banks                 []BankSample
	Generation            float64
	Consumption           float64
	Emergency             bool
	ActivitiesByStatus    map[string]int
	ConflictsBySeverity   map[string]int
	Schedule              map[string]float64
}

// StatusSource supplies snapshots to the collector
type StatusSource interface {
	MetricsSnapshot() Snapshot
}

// Collector periodically copies engine state into the prometheus gauges
type Collector struct {
	source   StatusSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StatusSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect exports one snapshot
func (c *Collector) Collect() {
	s := c.source.MetricsSnapshot()

	for id, t := range s.ComponentTemperatures {
		ComponentTemperature.WithLabelValues(id).Set(t)
	}
	for id, a := range s.ActuatorActivation {
		ActuatorActivation.WithLabelValues(id).Set(a)
	}
	ThermalAlerts.Reset()
	for level, n := range s.ThermalAlerts {
		ThermalAlerts.WithLabelValues(level).Set(float64(n))
	}

	for _, b := range s.Banks {
		BatterySoC.WithLabelValues(b.ID).Set(b.SoC)
		BatterySoH.WithLabelValues(b.ID).Set(b.SoH)
		BatteryRunawayRisk.WithLabelValues(b.ID).Set(b.RunawayRisk)
	}
	PowerGeneration.Set(s.Generation)
	PowerConsumption.Set(s.Consumption)
	if s.Emergency {
		EmergencyMode.Set(1)
	} else {
		EmergencyMode.Set(0)
	}

	ActivitiesTotal.Reset()
	for status, n := range s.ActivitiesByStatus {
		ActivitiesTotal.WithLabelValues(status).Set(float64(n))
	}
	ConflictsTotal.Reset()
	for severity, n := range s.ConflictsBySeverity {
		ConflictsTotal.WithLabelValues(severity).Set(float64(n))
	}
	for name, v := range s.Schedule {
		ScheduleScore.WithLabelValues(name).Set(v)
	}
}
