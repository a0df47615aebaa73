package power

import (
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/types"
	"github.com/google/uuid"
)

// Trigger is a condition handled by the decision tree
type Trigger string

const (
	TriggerLowSoC         Trigger = "low_soc"
	TriggerThermalRunaway Trigger = "thermal_runaway"
	TriggerSolarStorm     Trigger = "solar_storm"
	TriggerLoadSpike      Trigger = "load_spike"
)

// Action names produced by the decision tree
const (
	ActionEmergencyMode  = "emergency_mode"
	ActionShedLoad       = "shed_load"
	ActionSwitchBank     = "switch_battery_bank"
	ActionIsolateBank    = "isolate_bank"
	ActionActivateBackup = "activate_backup"
)

var (
	emergencyShed = []string{"science-primary", "science-secondary", "cameras", "backup-systems"}
	lowSoCShed    = []string{"science-secondary", "cameras", "backup-systems"}
	stormShed     = []string{"science-primary", "cameras"}
	spikeShed     = []string{"backup-systems"}
)

// ExecuteAction selects an action for the trigger, records it and applies it.
// It returns false, and keeps nothing in history, when the trigger is unknown
// or the action cannot be applied.
func (m *Manager) ExecuteAction(trigger Trigger, severity float64) (types.Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	action, err := m.decideLocked(trigger, severity)
	if err != nil {
		m.logger.Warn().Err(err).Str("trigger", string(trigger)).Msg("no power action selected")
		return types.Action{}, false
	}
	return m.recordAndApplyLocked(action)
}

// HandleThermalRunaway isolates the named bank
func (m *Manager) HandleThermalRunaway(bankID string) (types.Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.recordAndApplyLocked(m.isolateActionLocked(bankID))
}

func (m *Manager) decideLocked(trigger Trigger, severity float64) (types.Action, error) {
	switch trigger {
	case TriggerLowSoC:
		soc := m.averageSoCLocked()
		switch {
		case soc < m.cfg.EmergencySoC:
			return m.shedActionLocked(trigger, ActionEmergencyMode, emergencyShed, types.ImpactSevere, 5*time.Second, severity), nil
		case soc < m.cfg.LowSoC:
			return m.shedActionLocked(trigger, ActionShedLoad, lowSoCShed, types.ImpactModerate, 10*time.Second, severity), nil
		default:
			return m.newActionLocked(trigger, ActionSwitchBank, []string{}, types.Effect{}, types.ImpactMinor, 30*time.Second, true, severity), nil
		}

	case TriggerThermalRunaway:
		target := m.runawayTargetLocked()
		if target == "" {
			return types.Action{}, fmt.Errorf("no bank eligible for isolation")
		}
		return m.isolateActionLocked(target), nil

	case TriggerSolarStorm:
		if severity > m.cfg.SolarStormSeverity {
			return m.shedActionLocked(trigger, ActionShedLoad, stormShed, types.ImpactModerate, 15*time.Second, severity), nil
		}
		src := m.backupSourceLocked()
		var systems []string
		added := 0.0
		if src != nil {
			systems = []string{src.ID}
			added = src.RatedOutput()
		}
		return m.newActionLocked(trigger, ActionActivateBackup, systems, types.Effect{PowerSavings: -added}, types.ImpactMinor, 60*time.Second, true, severity), nil

	case TriggerLoadSpike:
		return m.shedActionLocked(trigger, ActionShedLoad, spikeShed, types.ImpactNone, 5*time.Second, severity), nil
	}

	return types.Action{}, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
}

// shedActionLocked builds a shed action over the named loads, dropping any
// load that may not be shed
func (m *Manager) shedActionLocked(trigger Trigger, name string, ids []string, impact types.MissionImpact, exec time.Duration, severity float64) types.Action {
	systems := make([]string, 0, len(ids))
	savings := 0.0
	for _, id := range ids {
		l, ok := m.loads[id]
		if ok && !l.CanShed() {
			continue
		}
		systems = append(systems, id)
		if ok && !l.Shed {
			savings += l.CurrentDraw - l.Profile.Standby
		}
	}
	return m.newActionLocked(trigger, name, systems, types.Effect{PowerSavings: savings}, impact, exec, true, severity)
}

func (m *Manager) isolateActionLocked(bankID string) types.Action {
	return m.newActionLocked(TriggerThermalRunaway, ActionIsolateBank, []string{bankID}, types.Effect{}, types.ImpactModerate, 2*time.Second, false, 0)
}

func (m *Manager) newActionLocked(trigger Trigger, name string, systems []string, effect types.Effect, impact types.MissionImpact, exec time.Duration, reversible bool, severity float64) types.Action {
	now := m.now()
	a := types.Action{
		ID:              uuid.New().String(),
		Predictor:       Predictor,
		Trigger:         string(trigger),
		Action:          name,
		AffectedSystems: systems,
		Effect:          effect,
		MissionImpact:   impact,
		ExecutionTime:   exec,
		Reversible:      reversible,
		Confidence:      m.scorer.Score(confidence.Key{Trigger: string(trigger), Action: name, Severity: severity}),
		Timestamp:       now,
	}
	if types.NeedsApproval(reversible, impact) {
		a.RequiresApproval = true
		a.ApprovalDeadline = now.Add(m.cfg.ApprovalWindow)
	}
	return a
}

// runawayTargetLocked picks the non-isolated bank with the highest runaway risk
func (m *Manager) runawayTargetLocked() string {
	target := ""
	best := -1.0
	for _, b := range m.sortedBanksLocked() {
		if b.Isolated {
			continue
		}
		if b.State.RunawayRisk > best {
			best = b.State.RunawayRisk
			target = b.ID
		}
	}
	return target
}

// backupSourceLocked returns the first inactive non-solar source by id
func (m *Manager) backupSourceLocked() *Source {
	for _, s := range m.sortedSourcesLocked() {
		if s.Type != SourceSolar && !s.Active {
			return m.sources[s.ID]
		}
	}
	return nil
}

// recordAndApplyLocked appends the action to history, applies it and rolls
// the history back when application fails
func (m *Manager) recordAndApplyLocked(a types.Action) (types.Action, bool) {
	m.actions = append(m.actions, a)

	if err := m.applyLocked(a); err != nil {
		m.actions = m.actions[:len(m.actions)-1]
		m.logger.Warn().
			Err(err).
			Str("trigger", a.Trigger).
			Str("action", a.Action).
			Msg("power action not applied")
		return a, false
	}

	if max := m.cfg.MaxActionHistory; max > 0 && len(m.actions) > max {
		m.actions = m.actions[len(m.actions)-max:]
	}
	if a.RequiresApproval {
		m.pending[a.ID] = a
	}

	m.logger.Info().
		Str("trigger", a.Trigger).
		Str("action", a.Action).
		Strs("systems", a.AffectedSystems).
		Bool("reversible", a.Reversible).
		Float64("confidence", a.Confidence).
		Msg("power action executed")
	return a, true
}

func (m *Manager) applyLocked(a types.Action) error {
	switch a.Action {
	case ActionShedLoad:
		return m.shedLocked(a.AffectedSystems)

	case ActionEmergencyMode:
		if err := m.shedLocked(a.AffectedSystems); err != nil {
			return err
		}
		m.emergency = true
		return nil

	case ActionSwitchBank:
		primary, ok := m.banks[PrimaryBank]
		if !ok {
			return fmt.Errorf("bank %s: %w", PrimaryBank, ErrNotFound)
		}
		backup, ok := m.banks[BackupBank]
		if !ok {
			return fmt.Errorf("bank %s: %w", BackupBank, ErrNotFound)
		}
		if backup.Isolated {
			return fmt.Errorf("backup bank %s is isolated", BackupBank)
		}
		primary.Active = false
		backup.Active = true
		return nil

	case ActionIsolateBank:
		if len(a.AffectedSystems) == 0 {
			return fmt.Errorf("no bank to isolate")
		}
		return m.isolateLocked(a.AffectedSystems[0])

	case ActionActivateBackup:
		if len(a.AffectedSystems) == 0 {
			return fmt.Errorf("no inactive backup source")
		}
		s, ok := m.sources[a.AffectedSystems[0]]
		if !ok {
			return fmt.Errorf("source %s: %w", a.AffectedSystems[0], ErrNotFound)
		}
		s.Active = true
		return nil
	}
	return fmt.Errorf("unhandled action %s", a.Action)
}

// shedLocked drops each named load to standby. Critical loads are skipped.
func (m *Manager) shedLocked(ids []string) error {
	shed := 0
	for _, id := range ids {
		l, ok := m.loads[id]
		if !ok || !l.CanShed() {
			continue
		}
		l.Shed = true
		l.CurrentDraw = l.Profile.Standby
		shed++
	}
	if shed == 0 {
		return fmt.Errorf("none of %v can be shed: %w", ids, ErrNotFound)
	}
	return nil
}

func (m *Manager) isolateLocked(id string) error {
	b, ok := m.banks[id]
	if !ok {
		return fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	wasIsolated := b.Isolated
	b.Isolated = true
	b.Active = false

	if !wasIsolated && id != EmergencyBank {
		if reserve, ok := m.banks[EmergencyBank]; ok && !reserve.Isolated {
			reserve.Active = true
			bankLog := log.WithBankID(m.logger, EmergencyBank)
			bankLog.Info().Msg("emergency reserve bank activated")
		}
	}
	return nil
}

// PendingApprovals lists actions awaiting operator sign-off whose deadline
// has not passed, soonest deadline first
func (m *Manager) PendingApprovals() []types.Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingLocked()
}

func (m *Manager) pendingLocked() []types.Action {
	now := m.now()
	out := make([]types.Action, 0, len(m.pending))
	for _, a := range m.pending {
		if a.ApprovalDeadline.Before(now) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovalDeadline.Before(out[j].ApprovalDeadline) })
	return out
}

// ExpirePending drops pending actions whose approval deadline has passed
// and returns them, earliest deadline first
func (m *Manager) ExpirePending() []types.Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []types.Action
	for id, a := range m.pending {
		if a.ApprovalDeadline.Before(now) {
			out = append(out, a)
			delete(m.pending, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovalDeadline.Before(out[j].ApprovalDeadline) })
	return out
}

// ApproveAction records operator sign-off for a pending action
func (m *Manager) ApproveAction(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.pending[id]
	if !ok {
		return fmt.Errorf("pending action %s: %w", id, ErrNotFound)
	}
	delete(m.pending, id)
	m.logger.Info().Str("action_id", id).Str("action", a.Action).Msg("action approved")
	return nil
}
