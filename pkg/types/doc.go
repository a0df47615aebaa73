/*
Package types defines the data shared across Odin's predictors.

The thermal forecaster, power manager and activity scheduler each own their
entity catalogs (components, banks, activities) in their own packages. What
they share lives here:

  - Environment: the space-weather snapshot fed into every forecast
  - SystemHealth: per-subsystem health scores used by mission risk assessment
  - SolarFlare / FlareClass: predicted flare events and their intensity scale
  - Action / Effect / MissionImpact: the immutable record of a decision

An Action is created once by decision logic and never mutated afterwards. An
action that is irreversible, or whose mission impact is severe or worse, is
flagged RequiresApproval with an ApprovalDeadline; the engine records the
gate but never enforces it.
*/
package types
