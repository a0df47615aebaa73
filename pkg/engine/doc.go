/*
Package engine wires Odin's three predictors into one running system.

An Engine owns a thermal.Forecaster, a power.Manager and a mission.Scheduler,
built from config.Config over catalogs restored from the bbolt store (or the
defaults on first start). It holds the shared environment snapshot and
subsystem health summary that the predictors read but never share with each
other.

# Tick

Every tick interval the engine advances simulated telemetry for the thermal
and power catalogs, then reacts:

  - a bank whose runaway risk exceeds power.runaway_trigger is isolated
  - the first tick with average SoC below power.low_soc runs low_soc
  - every component above its nominal maximum gets a component_overheat
    response, executed immediately

Catalogs are written back to the store at the end of each tick.

# Actions

All action paths (ExecutePowerAction, ExecuteThermalResponse,
ResolveConflicts and the tick reactions) funnel through one recorder that
counts the outcome in prometheus, appends executed actions to the store's
action log, copies them to the optional Postgres archive and publishes an
events.Event. Completed charge cycles are appended to the store from the
power manager's cycle hook.

The engine also implements metrics.StatusSource so the collector can export
predictor state as gauges.
*/
package engine
