package engine

import (
	"errors"
	"fmt"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/storage"
	"github.com/cuemby/odin/pkg/thermal"
)

type catalogs struct {
	components []*thermal.Component
	actuators  []*thermal.Actuator
	banks      []*power.Bank
	loads      []*power.Load
	sources    []*power.Source
	activities []*mission.Activity
	powerState power.ManagerState
}

// loadCatalogs reads each catalog from the store, falling back to the
// defaults for any catalog the store does not hold yet
func (e *Engine) loadCatalogs() (catalogs, error) {
	cat := catalogs{
		components: thermal.DefaultComponents(),
		actuators:  thermal.DefaultActuators(),
		banks:      power.DefaultBanks(),
		loads:      power.DefaultLoads(),
		sources:    power.DefaultSources(),
		activities: mission.DefaultActivities(e.now()),
	}
	if e.store == nil {
		return cat, nil
	}

	components, err := e.store.ListComponents()
	if err != nil {
		return cat, fmt.Errorf("failed to load components: %w", err)
	}
	actuators, err := e.store.ListActuators()
	if err != nil {
		return cat, fmt.Errorf("failed to load actuators: %w", err)
	}
	banks, err := e.store.ListBanks()
	if err != nil {
		return cat, fmt.Errorf("failed to load banks: %w", err)
	}
	loads, err := e.store.ListLoads()
	if err != nil {
		return cat, fmt.Errorf("failed to load loads: %w", err)
	}
	sources, err := e.store.ListSources()
	if err != nil {
		return cat, fmt.Errorf("failed to load sources: %w", err)
	}
	activities, err := e.store.ListActivities()
	if err != nil {
		return cat, fmt.Errorf("failed to load activities: %w", err)
	}
	powerState, err := e.store.GetPowerState()
	switch {
	case err == nil:
		cat.powerState = *powerState
	case !errors.Is(err, storage.ErrNotFound):
		return cat, fmt.Errorf("failed to load power state: %w", err)
	}

	if len(components) > 0 {
		cat.components = components
	}
	if len(actuators) > 0 {
		cat.actuators = actuators
	}
	if len(banks) > 0 {
		cat.banks = banks
	}
	if len(loads) > 0 {
		cat.loads = loads
	}
	if len(sources) > 0 {
		cat.sources = sources
	}
	if len(activities) > 0 {
		cat.activities = activities
	}

	e.logger.Info().
		Int("components", len(cat.components)).
		Int("banks", len(cat.banks)).
		Int("activities", len(cat.activities)).
		Bool("emergency_mode", cat.powerState.EmergencyMode).
		Int("pending_approvals", len(cat.powerState.Pending)).
		Msg("catalogs loaded")
	return cat, nil
}

// Persist writes every catalog to the store. It is a no-op without a store.
func (e *Engine) Persist() error {
	if e.store == nil {
		return nil
	}

	for _, c := range e.thermal.Components() {
		if err := e.store.SaveComponent(c); err != nil {
			return fmt.Errorf("failed to save component %s: %w", c.ID, err)
		}
	}
	for _, a := range e.thermal.Actuators() {
		if err := e.store.SaveActuator(a); err != nil {
			return fmt.Errorf("failed to save actuator %s: %w", a.ID, err)
		}
	}
	for _, b := range e.power.Banks() {
		if err := e.store.SaveBank(b); err != nil {
			return fmt.Errorf("failed to save bank %s: %w", b.ID, err)
		}
	}
	for _, l := range e.power.Loads() {
		if err := e.store.SaveLoad(l); err != nil {
			return fmt.Errorf("failed to save load %s: %w", l.ID, err)
		}
	}
	for _, s := range e.power.Sources() {
		if err := e.store.SaveSource(s); err != nil {
			return fmt.Errorf("failed to save source %s: %w", s.ID, err)
		}
	}
	if err := e.store.SavePowerState(e.power.State()); err != nil {
		return fmt.Errorf("failed to save power state: %w", err)
	}
	for _, a := range e.mission.Activities() {
		if err := e.store.SaveActivity(a); err != nil {
			return fmt.Errorf("failed to save activity %s: %w", a.ID, err)
		}
	}
	return nil
}
