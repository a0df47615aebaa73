package thermal

import (
	"fmt"
	"math"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/types"
	"github.com/google/uuid"
)

// Trigger is a condition that calls for a thermal response
type Trigger string

const (
	TriggerSolarFlare        Trigger = "solar_flare"
	TriggerComponentOverheat Trigger = "component_overheat"
	TriggerDeepSpaceCooling  Trigger = "deep_space_cooling"
)

// Priority of a thermal action; it sets how far the actuator is driven
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ActivationStep is the activation increase applied for the priority
func (p Priority) ActivationStep() float64 {
	switch p {
	case PriorityLow:
		return 10
	case PriorityMedium:
		return 25
	case PriorityHigh:
		return 50
	case PriorityCritical:
		return 100
	default:
		return 0
	}
}

// Symbolic thermal action names
const (
	ActionDeployRadiator = "deploy_radiator"
	ActionActivateHeater = "activate_heater"
	ActionReorient       = "reorient"
	ActionReducePower    = "reduce_power"
)

// governingActuator maps each action to the actuator it drives
var governingActuator = map[string]string{
	ActionDeployRadiator: PrimaryRadiator,
	ActionActivateHeater: BatteryHeaters,
	ActionReorient:       ThermalLouvers,
	ActionReducePower:    ThermalLouvers,
}

// ThermalAction is a single automatic actuator command
type ThermalAction struct {
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
	// ActuatorID overrides the governing actuator for the action when set
	ActuatorID string `json:"actuatorId,omitempty"`
	// Target is the component the action protects, if any
	Target  string  `json:"target,omitempty"`
	Trigger Trigger `json:"trigger,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Response is the outcome of GenerateResponse
type Response struct {
	ID                    string          `json:"id"`
	Trigger               Trigger         `json:"trigger"`
	Severity              float64         `json:"severity"`
	AutomaticActions      []ThermalAction `json:"automaticActions"`
	ManualRecommendations []string        `json:"manualRecommendations"`
	Confidence            float64         `json:"confidence"`
	Timestamp             time.Time       `json:"timestamp"`
}

var manualRecommendations = map[Trigger][]string{
	TriggerSolarFlare: {
		"Orient sun shield toward flare source",
		"Suspend non-essential science operations",
		"Monitor sun-facing component temperatures every 5 minutes",
	},
	TriggerComponentOverheat: {
		"Reduce duty cycle of affected component",
		"Verify heat-pipe continuity to affected component",
		"Consider attitude change to lower sun exposure",
	},
	TriggerDeepSpaceCooling: {
		"Increase heater duty cycle on battery and propellant systems",
		"Close thermal louvers to retain heat",
		"Reduce radiator deployment",
	},
}

// GenerateResponse builds automatic actions scaled to severity plus manual
// recommendations. affected lists the component ids involved; it is used by
// component_overheat.
func (f *Forecaster) GenerateResponse(trigger Trigger, severity float64, affected []string) Response {
	var actions []ThermalAction

	switch trigger {
	case TriggerSolarFlare:
		if severity > 5 {
			actions = append(actions, ThermalAction{
				Action:     ActionDeployRadiator,
				Priority:   PriorityHigh,
				ActuatorID: PrimaryRadiator,
				Trigger:    trigger,
				Reason:     "reject absorbed flare heat",
			})
		}
		if severity > 8 {
			actions = append(actions, ThermalAction{
				Action:     ActionDeployRadiator,
				Priority:   PriorityCritical,
				ActuatorID: EmergencyRadiator,
				Trigger:    trigger,
				Reason:     "emergency heat rejection for severe flare",
			})
		}
	case TriggerComponentOverheat:
		priority := PriorityHigh
		if severity > 7 {
			priority = PriorityCritical
		}
		for _, id := range affected {
			actions = append(actions, ThermalAction{
				Action:   ActionDeployRadiator,
				Priority: priority,
				Target:   id,
				Trigger:  trigger,
				Reason:   fmt.Sprintf("%s above nominal range", id),
			})
		}
	case TriggerDeepSpaceCooling:
		priority := PriorityMedium
		if severity > 5 {
			priority = PriorityHigh
		}
		actions = append(actions, ThermalAction{
			Action:   ActionActivateHeater,
			Priority: priority,
			Trigger:  trigger,
			Reason:   "maintain battery temperature",
		})
		if severity > 8 {
			actions = append(actions, ThermalAction{
				Action:   ActionReorient,
				Priority: PriorityHigh,
				Trigger:  trigger,
				Reason:   "close louvers to retain heat",
			})
		}
	}

	recs := append([]string(nil), manualRecommendations[trigger]...)

	return Response{
		ID:                    uuid.New().String(),
		Trigger:               trigger,
		Severity:              severity,
		AutomaticActions:      actions,
		ManualRecommendations: recs,
		Confidence:            f.scorer.Score(confidence.Key{Trigger: string(trigger), Severity: severity}),
		Timestamp:             f.now(),
	}
}

// ExecutionResult reports what ExecuteAction did
type ExecutionResult struct {
	Success    bool    `json:"success"`
	Status     string  `json:"status"`
	ActuatorID string  `json:"actuatorId,omitempty"`
	Activation float64 `json:"activation"`
	// Effect is the realized thermal effect in watts
	Effect float64       `json:"effect"`
	Record *types.Action `json:"record,omitempty"`
}

// ExecuteAction drives the governing actuator for the action. Unknown actions
// or actuators produce a failed result; nothing is changed in that case.
func (f *Forecaster) ExecuteAction(action ThermalAction) ExecutionResult {
	actuatorID := action.ActuatorID
	if actuatorID == "" {
		id, ok := governingActuator[action.Action]
		if !ok {
			f.logger.Warn().Str("action", action.Action).Msg("unknown thermal action")
			return ExecutionResult{Success: false, Status: fmt.Sprintf("unknown action: %s", action.Action)}
		}
		actuatorID = id
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.actuators[actuatorID]
	if !ok {
		f.logger.Warn().Str("actuator", actuatorID).Msg("actuator not found")
		return ExecutionResult{Success: false, Status: fmt.Sprintf("actuator not found: %s", actuatorID), ActuatorID: actuatorID}
	}

	a.Activation = math.Min(100, a.Activation+action.Priority.ActivationStep())
	effect := a.Effect()

	delta := f.temperatureDeltaLocked(effect)
	if !a.Type.Heating() {
		delta = -delta
	}

	affected := []string{actuatorID}
	if action.Target != "" {
		affected = append(affected, action.Target)
	}

	impact := types.ImpactNone
	if action.Action == ActionReducePower {
		impact = types.ImpactMinor
	}

	trigger := string(action.Trigger)
	if trigger == "" {
		trigger = "manual"
	}

	record := types.Action{
		ID:              uuid.New().String(),
		Predictor:       Predictor,
		Trigger:         trigger,
		Action:          action.Action,
		AffectedSystems: affected,
		Effect: types.Effect{
			PowerSavings:     -a.PowerDraw * a.Activation / 100,
			TemperatureDelta: delta,
		},
		MissionImpact: impact,
		ExecutionTime: a.ResponseTime,
		Reversible:    true,
		Confidence:    f.scorer.Score(confidence.Key{Trigger: trigger, Action: action.Action}),
		Timestamp:     f.now(),
	}
	f.appendActionLocked(record)

	f.logger.Info().
		Str("action", action.Action).
		Str("actuator", actuatorID).
		Float64("activation", a.Activation).
		Float64("effect_w", effect).
		Msg("thermal action executed")

	return ExecutionResult{
		Success:    true,
		Status:     "executed",
		ActuatorID: actuatorID,
		Activation: a.Activation,
		Effect:     effect,
		Record:     &record,
	}
}

// temperatureDeltaLocked converts an actuator effect into the per-step
// temperature change averaged over the catalog
func (f *Forecaster) temperatureDeltaLocked(watts float64) float64 {
	if len(f.components) == 0 {
		return 0
	}
	mass := 0.0
	for _, c := range f.components {
		mass += c.ThermalMass
	}
	avg := mass / float64(len(f.components))
	return f.temperatureChange(watts, f.cfg.Forecast.Step, avg)
}

func (f *Forecaster) appendActionLocked(a types.Action) {
	f.actions = append(f.actions, a)
	if max := f.cfg.MaxActionHistory; max > 0 && len(f.actions) > max {
		f.actions = f.actions[len(f.actions)-max:]
	}
}
