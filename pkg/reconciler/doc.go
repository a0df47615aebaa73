/*
Package reconciler retires engine state that has outlived its window.

Every interval the reconciler:

  - drops pending power actions whose approval deadline passed, counting
    them in odin_approvals_expired_total and publishing action.expired
  - cancels planned or ready activities whose deadline passed before they
    started, publishing activity.missed

The engine's own tick reacts to telemetry; the reconciler only reacts to
the clock, so it runs on its own loop and can be driven directly with
Reconcile in tests.
*/
package reconciler
