package engine

import (
	"fmt"

	"github.com/cuemby/odin/pkg/events"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
)

// ExecutePowerAction runs the power decision tree for trigger and records
// the outcome
func (e *Engine) ExecutePowerAction(trigger power.Trigger, severity float64) (types.Action, bool) {
	action, ok := e.power.ExecuteAction(trigger, severity)
	e.recordAction(power.Predictor, string(trigger), action, ok)
	if ok && action.Action == power.ActionIsolateBank {
		e.broker.Publish(&events.Event{
			Type:      events.EventBankIsolated,
			Predictor: power.Predictor,
			Message:   fmt.Sprintf("bank %s isolated", action.AffectedSystems[0]),
			Metadata:  map[string]string{"action_id": action.ID},
		})
	}
	if ok && action.Action == power.ActionEmergencyMode {
		e.broker.Publish(&events.Event{
			Type:      events.EventEmergencyMode,
			Predictor: power.Predictor,
			Message:   "power emergency mode engaged",
			Metadata:  map[string]string{"action_id": action.ID},
		})
	}
	return action, ok
}

// ApprovePowerAction clears a pending approval
func (e *Engine) ApprovePowerAction(id string) error {
	if err := e.power.ApproveAction(id); err != nil {
		return err
	}
	e.broker.Publish(&events.Event{
		Type:      events.EventActionApproved,
		Predictor: power.Predictor,
		Message:   fmt.Sprintf("action %s approved", id),
		Metadata:  map[string]string{"action_id": id},
	})
	return nil
}

// ExecuteThermalResponse generates a response for the trigger and executes
// each of its automatic actions in order
func (e *Engine) ExecuteThermalResponse(trigger thermal.Trigger, severity float64, affected []string) (thermal.Response, []thermal.ExecutionResult) {
	resp := e.thermal.GenerateResponse(trigger, severity, affected)
	results := make([]thermal.ExecutionResult, 0, len(resp.AutomaticActions))
	for _, a := range resp.AutomaticActions {
		res := e.thermal.ExecuteAction(a)
		results = append(results, res)

		var record types.Action
		if res.Record != nil {
			record = *res.Record
		} else {
			record = types.Action{Predictor: thermal.Predictor, Trigger: string(trigger), Action: a.Action}
		}
		e.recordAction(thermal.Predictor, string(trigger), record, res.Success)
	}
	return resp, results
}

// ResolveConflicts detects schedule conflicts and applies the reschedule
// resolutions
func (e *Engine) ResolveConflicts() mission.ResolutionReport {
	report := e.mission.DetectAndResolveConflicts()
	e.publishConflicts(report.Conflicts)
	for _, a := range report.Actions {
		e.recordAction(mission.Predictor, a.Trigger, a, true)
		e.broker.Publish(&events.Event{
			Type:      events.EventActivityRescheduled,
			Predictor: mission.Predictor,
			Message:   fmt.Sprintf("%s rescheduled", a.AffectedSystems[0]),
			Metadata:  map[string]string{"activity_id": a.AffectedSystems[0], "action_id": a.ID},
		})
	}
	if e.store != nil {
		for _, id := range report.Rescheduled {
			if a, err := e.mission.Activity(id); err == nil {
				if err := e.store.SaveActivity(a); err != nil {
					actLog := log.WithActivityID(e.logger, id)
					actLog.Error().Err(err).Msg("failed to persist activity")
				}
			}
		}
	}
	return report
}

// AddActivity adds an activity to the schedule and persists it
func (e *Engine) AddActivity(a *mission.Activity) error {
	if err := e.mission.AddActivity(a); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.store.SaveActivity(a); err != nil {
			return fmt.Errorf("failed to persist activity: %w", err)
		}
	}
	return nil
}

// TransitionActivity moves an activity through its lifecycle and persists it
func (e *Engine) TransitionActivity(id string, to mission.Status) error {
	if err := e.mission.TransitionActivity(id, to); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	a, err := e.mission.Activity(id)
	if err != nil {
		return err
	}
	return e.store.SaveActivity(a)
}

// recordAction counts, logs, persists, archives and publishes an action
// outcome. Failed outcomes are only counted and published.
func (e *Engine) recordAction(predictor, trigger string, action types.Action, ok bool) {
	name := action.Action
	if name == "" {
		name = trigger
	}
	metrics.RecordAction(predictor, name, ok)

	if !ok {
		e.logger.Warn().Str("predictor", predictor).Str("trigger", trigger).Str("action", name).Msg("action failed")
		e.broker.Publish(&events.Event{
			Type:      events.EventActionFailed,
			Predictor: predictor,
			Message:   fmt.Sprintf("%s for %s failed", name, trigger),
			Metadata:  map[string]string{"trigger": trigger},
		})
		return
	}

	e.logger.Info().
		Str("predictor", predictor).
		Str("action_id", action.ID).
		Str("action", name).
		Bool("requires_approval", action.RequiresApproval).
		Msg("action executed")

	if e.store != nil {
		if err := e.store.AppendAction(action); err != nil {
			e.logger.Error().Err(err).Str("action_id", action.ID).Msg("failed to persist action")
		}
	}
	if e.archive != nil {
		if err := e.archive.ArchiveAction(action); err != nil {
			e.logger.Error().Err(err).Str("action_id", action.ID).Msg("failed to archive action")
		}
	}

	e.broker.Publish(&events.Event{
		Type:      events.EventActionExecuted,
		Predictor: predictor,
		Message:   fmt.Sprintf("%s executed for %s", name, trigger),
		Metadata: map[string]string{
			"action_id":         action.ID,
			"trigger":           trigger,
			"mission_impact":    string(action.MissionImpact),
			"requires_approval": fmt.Sprintf("%t", action.RequiresApproval),
		},
	})
}

func (e *Engine) publishConflicts(conflicts []mission.Conflict) {
	for _, c := range conflicts {
		e.broker.Publish(&events.Event{
			Type:      events.EventConflictDetected,
			Predictor: mission.Predictor,
			Message:   fmt.Sprintf("%s conflict: %.0f required, %.0f available", c.Resource, c.Required, c.Available),
			Metadata: map[string]string{
				"conflict_id": c.ID,
				"severity":    string(c.Severity),
				"window":      c.Window.Start.Format("2006-01-02T15:04Z07:00"),
			},
		})
	}
}

// onOptimize runs on every scheduler optimization pass
func (e *Engine) onOptimize(report mission.OptimizationReport) {
	e.publishConflicts(report.Conflicts)
	for _, id := range report.Escalated {
		e.broker.Publish(&events.Event{
			Type:      events.EventPriorityEscalated,
			Predictor: mission.Predictor,
			Message:   fmt.Sprintf("%s priority escalated ahead of its deadline", id),
			Metadata:  map[string]string{"activity_id": id},
		})
	}
	metrics.UpdateComponent(mission.Predictor, true, fmt.Sprintf("%d conflicts", len(report.Conflicts)))
}

// onCycle runs whenever a bank closes a charge cycle record
func (e *Engine) onCycle(bankID string, rec power.CycleRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.AppendCycle(bankID, rec); err != nil {
		bankLog := log.WithBankID(e.logger, bankID)
		bankLog.Error().Err(err).Msg("failed to persist cycle")
	}
}
