package mission

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/rs/zerolog"
)

// Predictor is the name recorded on actions produced by this package
const Predictor = "mission"

// OptimizeHook observes every optimization pass
type OptimizeHook func(OptimizationReport)

// Scheduler owns the activity catalog, detects resource conflicts and runs
// the continuous optimization loop
type Scheduler struct {
	cfg        config.MissionConfig
	activities map[string]*Activity
	phase      string
	history    []ScheduleMetrics
	lastReport OptimizationReport

	scorer     confidence.Scorer
	onOptimize OptimizeHook
	now        func() time.Time
	logger     zerolog.Logger
	mu         sync.RWMutex
	stopCh     chan struct{}
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithScorer replaces the default confidence table
func WithScorer(scorer confidence.Scorer) Option {
	return func(s *Scheduler) { s.scorer = scorer }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithOptimizeHook registers a callback run after every optimization pass
func WithOptimizeHook(h OptimizeHook) Option {
	return func(s *Scheduler) { s.onOptimize = h }
}

// WithPhase sets the initial mission phase
func WithPhase(phase string) Option {
	return func(s *Scheduler) { s.phase = phase }
}

// New creates a scheduler over copies of the given activities. Invalid
// activities are skipped with a warning.
func New(cfg config.MissionConfig, activities []*Activity, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		activities: make(map[string]*Activity, len(activities)),
		phase:      "cruise",
		scorer:     confidence.DefaultSchedule(),
		now:        time.Now,
		logger:     log.WithComponent(Predictor),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, a := range activities {
		if err := s.AddActivity(a); err != nil {
			s.logger.Warn().Err(err).Msg("skipping activity")
		}
	}
	return s
}

// AddActivity inserts a new activity. Activities without a status start planned.
func (s *Scheduler) AddActivity(a *Activity) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, a.ID)
	}
	cp := copyActivity(a)
	if cp.Status == "" {
		cp.Status = StatusPlanned
	}
	s.activities[cp.ID] = cp
	return nil
}

// Activity returns a copy of one activity
func (s *Scheduler) Activity(id string) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyActivity(a), nil
}

// Activities returns copies of all activities ordered by start time then id
func (s *Scheduler) Activities() []*Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// TransitionActivity moves an activity through its lifecycle. Moving to
// ready requires every dependency to be completed; moving to executing
// requires the phase restriction, if any, to match the current phase.
func (s *Scheduler) TransitionActivity(id string, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}

	switch to {
	case StatusReady:
		for _, dep := range a.Dependencies {
			d, ok := s.activities[dep]
			if !ok || d.Status != StatusCompleted {
				return fmt.Errorf("%w: dependency %s of %s not completed", ErrInvalidTransition, dep, id)
			}
		}
	case StatusExecuting:
		if a.Phase != "" && a.Phase != s.phase {
			return fmt.Errorf("%w: %s restricted to phase %s, current phase %s", ErrInvalidTransition, id, a.Phase, s.phase)
		}
	}

	actLog := log.WithActivityID(s.logger, id)
	actLog.Info().
		Str("from", string(a.Status)).
		Str("to", string(to)).
		Msg("activity transition")
	a.Status = to
	return nil
}

// SetMissionPhase changes the phase that phase-restricted activities check
func (s *Scheduler) SetMissionPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
}

// MissionPhase returns the current mission phase
func (s *Scheduler) MissionPhase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// OptimizationReport is the outcome of one optimization pass
type OptimizationReport struct {
	Timestamp time.Time  `json:"timestamp"`
	Conflicts []Conflict `json:"conflicts"`
	Escalated []string   `json:"escalated"`
}

// Optimize detects conflicts and raises by one (capped at 10) the priority of
// every open activity whose deadline falls within the deadline window.
// Repeated passes inside the escalation window raise an activity only once.
func (s *Scheduler) Optimize(now time.Time) OptimizationReport {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.OptimizationDuration)

	s.mu.Lock()
	report := OptimizationReport{
		Timestamp: now,
		Conflicts: s.detectLocked(now),
		Escalated: []string{},
	}

	horizon := now.Add(s.cfg.DeadlineWindow)
	for _, a := range s.sortedLocked() {
		live := s.activities[a.ID]
		if live.Status.Terminal() || live.Deadline == nil || live.Priority >= 10 {
			continue
		}
		if live.Deadline.Before(now) || live.Deadline.After(horizon) {
			continue
		}
		if !live.LastEscalation.IsZero() && now.Sub(live.LastEscalation) < s.escalationWindow() {
			continue
		}
		live.Priority++
		live.LastEscalation = now
		report.Escalated = append(report.Escalated, live.ID)
		metrics.PriorityEscalations.Inc()
	}

	s.recordMetricsLocked(report.Conflicts)
	s.lastReport = report
	hook := s.onOptimize
	s.mu.Unlock()

	if len(report.Escalated) > 0 {
		s.logger.Info().Strs("activities", report.Escalated).Msg("priorities escalated for approaching deadlines")
	}
	if hook != nil {
		hook(report)
	}
	return report
}

// escalationWindow is half the optimize interval, at most a minute, so a
// ticker pass that fires slightly early still escalates.
func (s *Scheduler) escalationWindow() time.Duration {
	w := s.cfg.OptimizeInterval / 2
	if w <= 0 || w > time.Minute {
		return time.Minute
	}
	return w
}

// LastReport returns the most recent optimization report
func (s *Scheduler) LastReport() OptimizationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// Start begins the optimization loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the optimization loop
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.OptimizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Optimize(s.now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) sortedLocked() []*Activity {
	out := make([]*Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, copyActivity(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
