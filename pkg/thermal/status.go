package thermal

import (
	"fmt"
	"time"

	"github.com/cuemby/odin/pkg/types"
)

// Health levels reported for components and overall
const (
	StatusNominal  = "nominal"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// ComponentStatus is the live view of one component
type ComponentStatus struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Temperature float64     `json:"temperature"`
	Nominal     Range       `json:"nominal"`
	Survival    Range       `json:"survival"`
	Criticality Criticality `json:"criticality"`
	Status      string      `json:"status"`
}

// ActuatorStatus is the live view of one actuator
type ActuatorStatus struct {
	ID         string       `json:"id"`
	Type       ActuatorType `json:"type"`
	Activation float64      `json:"activation"`
	Effect     float64      `json:"effect"`
}

// Alert flags a component outside its nominal range
type Alert struct {
	ComponentID string    `json:"componentId"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Status is the thermal snapshot returned to callers
type Status struct {
	Overall       string            `json:"overall"`
	Components    []ComponentStatus `json:"components"`
	Actuators     []ActuatorStatus  `json:"actuators"`
	Alerts        []Alert           `json:"alerts"`
	RecentActions []types.Action    `json:"recentActions"`
	Timestamp     time.Time         `json:"timestamp"`
}

const recentActionCount = 10

// ComponentState classifies a temperature against the component's bands
func ComponentState(c *Component) string {
	switch {
	case !c.Survival.Contains(c.Temperature):
		return StatusCritical
	case !c.Nominal.Contains(c.Temperature):
		return StatusWarning
	default:
		return StatusNominal
	}
}

// Status returns a consistent snapshot of components, actuators and alerts
func (f *Forecaster) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()

	now := f.now()
	st := Status{
		Overall:   StatusNominal,
		Alerts:    []Alert{},
		Timestamp: now,
	}

	for _, c := range f.sortedComponentsLocked() {
		state := ComponentState(c)
		st.Components = append(st.Components, ComponentStatus{
			ID:          c.ID,
			Name:        c.Name,
			Temperature: c.Temperature,
			Nominal:     c.Nominal,
			Survival:    c.Survival,
			Criticality: c.Criticality,
			Status:      state,
		})

		switch state {
		case StatusCritical:
			st.Overall = StatusCritical
			st.Alerts = append(st.Alerts, Alert{
				ComponentID: c.ID,
				Level:       StatusCritical,
				Message:     fmt.Sprintf("%s at %.1f°C outside survival range [%.0f, %.0f]", c.Name, c.Temperature, c.Survival.Min, c.Survival.Max),
				Timestamp:   now,
			})
		case StatusWarning:
			if st.Overall == StatusNominal {
				st.Overall = StatusWarning
			}
			st.Alerts = append(st.Alerts, Alert{
				ComponentID: c.ID,
				Level:       StatusWarning,
				Message:     fmt.Sprintf("%s at %.1f°C outside nominal range [%.0f, %.0f]", c.Name, c.Temperature, c.Nominal.Min, c.Nominal.Max),
				Timestamp:   now,
			})
		}
	}

	for _, a := range f.sortedActuatorsLocked() {
		st.Actuators = append(st.Actuators, ActuatorStatus{
			ID:         a.ID,
			Type:       a.Type,
			Activation: a.Activation,
			Effect:     a.Effect(),
		})
	}

	start := len(f.actions) - recentActionCount
	if start < 0 {
		start = 0
	}
	st.RecentActions = append([]types.Action{}, f.actions[start:]...)

	return st
}

// OverheatedComponents returns the ids of components above their nominal maximum
func (f *Forecaster) OverheatedComponents() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var ids []string
	for _, c := range f.sortedComponentsLocked() {
		if c.Temperature > c.Nominal.Max {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// SetActuatorActivation restores a persisted activation level
func (f *Forecaster) SetActuatorActivation(id string, activation float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.actuators[id]
	if !ok {
		return fmt.Errorf("actuator %s: %w", id, ErrNotFound)
	}
	a.Activation = types.Clamp(activation, 0, 100)
	return nil
}
