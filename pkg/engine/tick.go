package engine

import (
	"context"
	"fmt"

	"github.com/cuemby/odin/pkg/events"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
)

// Tick advances simulated telemetry by one tick interval, then reacts:
// banks above the runaway trigger are isolated, a fall below the low SoC band
// runs low_soc once, and overheated components get a component_overheat
// response every tick until they cool. State is persisted at the end.
func (e *Engine) Tick(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TickDuration)

	if err := ctx.Err(); err != nil {
		return err
	}

	env := e.Environment()
	dt := e.cfg.TickInterval
	e.thermal.Advance(dt, env, e.telemetry)
	e.power.Advance(dt, env)

	for _, id := range e.power.RunawayCandidates(e.cfg.Power.RunawayTrigger) {
		e.isolate(id)
	}

	soc := e.power.AverageSoC()
	e.mu.Lock()
	crossed := soc < e.cfg.Power.LowSoC && !e.lowSoC
	e.lowSoC = soc < e.cfg.Power.LowSoC
	e.mu.Unlock()
	if crossed {
		e.ExecutePowerAction(power.TriggerLowSoC, e.cfg.Power.LowSoC-soc)
	}

	if hot := e.thermal.OverheatedComponents(); len(hot) > 0 {
		e.respondToOverheat(hot)
	}

	e.refreshHealth()

	if err := e.Persist(); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

func (e *Engine) isolate(bankID string) {
	action, ok := e.power.HandleThermalRunaway(bankID)
	e.recordAction(power.Predictor, string(power.TriggerThermalRunaway), action, ok)
	if !ok {
		return
	}
	e.broker.Publish(&events.Event{
		Type:      events.EventBankIsolated,
		Predictor: power.Predictor,
		Message:   fmt.Sprintf("bank %s isolated after thermal runaway risk", bankID),
		Metadata:  map[string]string{"bank_id": bankID, "action_id": action.ID},
	})
}

// overheatSeverity maps how far the hottest component sits between its
// nominal and survival maxima onto 0-10
func overheatSeverity(components []*thermal.Component, hot []string) float64 {
	worst := 0.0
	for _, c := range components {
		for _, id := range hot {
			if c.ID != id {
				continue
			}
			span := c.Survival.Max - c.Nominal.Max
			if span <= 0 {
				worst = 10
				continue
			}
			if s := (c.Temperature - c.Nominal.Max) / span * 10; s > worst {
				worst = s
			}
		}
	}
	return types.Clamp(worst, 0, 10)
}

func (e *Engine) respondToOverheat(hot []string) {
	severity := overheatSeverity(e.thermal.Components(), hot)
	for _, id := range hot {
		e.broker.Publish(&events.Event{
			Type:      events.EventThermalAlert,
			Predictor: thermal.Predictor,
			Message:   fmt.Sprintf("%s above nominal range", id),
			Metadata:  map[string]string{"component_id": id, "severity": fmt.Sprintf("%.1f", severity)},
		})
	}
	e.ExecuteThermalResponse(thermal.TriggerComponentOverheat, severity, hot)
}

// refreshHealth derives the thermal and power entries of the health summary
// from live predictor state
func (e *Engine) refreshHealth() {
	ts := e.thermal.Status()
	thermalHealth := 100.0
	for _, a := range ts.Alerts {
		switch a.Level {
		case thermal.StatusCritical:
			thermalHealth -= 40
		case thermal.StatusWarning:
			thermalHealth -= 15
		}
	}
	thermalHealth = types.Clamp(thermalHealth, 0, 100)

	ps := e.power.Status()
	powerHealth := 100.0
	for _, b := range ps.Banks {
		if !b.Isolated && b.SoH < powerHealth {
			powerHealth = b.SoH
		}
	}
	if ps.EmergencyMode {
		powerHealth -= 20
	}
	powerHealth = types.Clamp(powerHealth, 0, 100)

	e.mu.Lock()
	e.health[thermal.Predictor] = thermalHealth
	e.health[power.Predictor] = powerHealth
	e.mu.Unlock()

	metrics.UpdateComponent(thermal.Predictor, ts.Overall != thermal.StatusCritical, ts.Overall)
	metrics.UpdateComponent(power.Predictor, !ps.EmergencyMode, fmt.Sprintf("average soc %.1f", ps.AverageSoC))
}
