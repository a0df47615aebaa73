package reconciler

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/engine"
	"github.com/cuemby/odin/pkg/events"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/rs/zerolog"
)

// Reconciler retires state whose time has passed: power actions nobody
// approved in time and activities that missed their deadline
type Reconciler struct {
	engine   *engine.Engine
	interval time.Duration
	mu       sync.Mutex
	logger   zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Report is the outcome of one reconciliation cycle
type Report struct {
	ExpiredApprovals []string
	MissedActivities []string
}

// NewReconciler creates a new reconciler
func NewReconciler(eng *engine.Engine, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reconciler{
		engine:   eng,
		interval: interval,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// run is the main reconciliation loop
func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Reconcile()
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one reconciliation cycle
func (r *Reconciler) Reconcile() Report {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	return Report{
		ExpiredApprovals: r.reconcileApprovals(),
		MissedActivities: r.reconcileActivities(),
	}
}

// reconcileApprovals drops pending power actions past their deadline
func (r *Reconciler) reconcileApprovals() []string {
	expired := r.engine.Power().ExpirePending()
	ids := make([]string, 0, len(expired))
	for _, a := range expired {
		ids = append(ids, a.ID)
		metrics.ApprovalsExpired.Inc()
		r.logger.Warn().
			Str("action_id", a.ID).
			Str("action", a.Action).
			Time("deadline", a.ApprovalDeadline).
			Msg("approval window lapsed")
		r.engine.Events().Publish(&events.Event{
			Type:      events.EventApprovalExpired,
			Predictor: power.Predictor,
			Message:   fmt.Sprintf("approval for %s %s lapsed", a.Action, a.ID),
			Metadata:  map[string]string{"action_id": a.ID, "action": a.Action},
		})
	}
	return ids
}

// reconcileActivities cancels activities that never started before their
// deadline. Executing activities are left to finish.
func (r *Reconciler) reconcileActivities() []string {
	now := r.engine.Now()
	var missed []string
	for _, a := range r.engine.Mission().Activities() {
		if a.Deadline == nil || !now.After(*a.Deadline) {
			continue
		}
		if a.Status != mission.StatusPlanned && a.Status != mission.StatusReady {
			continue
		}
		actLog := log.WithActivityID(r.logger, a.ID)
		if err := r.engine.TransitionActivity(a.ID, mission.StatusCancelled); err != nil {
			actLog.Error().Err(err).Msg("failed to cancel missed activity")
			continue
		}
		missed = append(missed, a.ID)
		metrics.ActivitiesMissed.Inc()
		actLog.Warn().Time("deadline", *a.Deadline).Msg("activity missed its deadline")
		r.engine.Events().Publish(&events.Event{
			Type:      events.EventActivityMissed,
			Predictor: mission.Predictor,
			Message:   fmt.Sprintf("%s missed its deadline", a.ID),
			Metadata:  map[string]string{"activity_id": a.ID},
		})
	}
	return missed
}
