package mission

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an activity id is unknown
	ErrNotFound = errors.New("activity not found")
	// ErrExists is returned when adding an activity whose id is taken
	ErrExists = errors.New("activity already exists")
	// ErrInvalidTransition is returned for lifecycle moves the state machine rejects
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidActivity is returned by Validate
	ErrInvalidActivity = errors.New("invalid activity")
)

// ActivityType classifies mission activities
type ActivityType string

const (
	ActivityScience       ActivityType = "science"
	ActivityMaintenance   ActivityType = "maintenance"
	ActivityNavigation    ActivityType = "navigation"
	ActivityCommunication ActivityType = "communication"
	ActivitySafety        ActivityType = "safety"
	ActivityCalibration   ActivityType = "calibration"
)

// Status is an activity's lifecycle state
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusReady     Status = "ready"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

var transitions = map[Status][]Status{
	StatusPlanned:   {StatusReady, StatusCancelled},
	StatusReady:     {StatusExecuting, StatusCancelled},
	StatusExecuting: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle move
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ResourceType names a schedulable resource
type ResourceType string

const (
	ResourcePower     ResourceType = "power"
	ResourceThermal   ResourceType = "thermal"
	ResourceBandwidth ResourceType = "bandwidth"
	ResourceCompute   ResourceType = "compute"
	ResourceTime      ResourceType = "time"
	ResourceAttitude  ResourceType = "attitude"
)

// ResourceRequirement is the demand an activity places on one resource.
// A zero Duration means the requirement spans the whole activity.
type ResourceRequirement struct {
	Type     ResourceType  `json:"type" yaml:"type"`
	Amount   float64       `json:"amount" yaml:"amount"`
	Unit     string        `json:"unit" yaml:"unit"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ConstraintType classifies activity constraints
type ConstraintType string

const (
	ConstraintTemporal    ConstraintType = "temporal"
	ConstraintResource    ConstraintType = "resource"
	ConstraintEnvironment ConstraintType = "environmental"
	ConstraintSystemState ConstraintType = "system-state"
)

// Constraint limits when or how an activity may run
type Constraint struct {
	Type      ConstraintType `json:"type" yaml:"type"`
	Condition string         `json:"condition" yaml:"condition"`
	Value     string         `json:"value" yaml:"value"`
	// Flexibility is the percentage (0-100) by which the constraint may bend
	Flexibility float64 `json:"flexibility" yaml:"flexibility"`
}

// SuccessCriterion is a measurable completion condition
type SuccessCriterion struct {
	Metric    string  `json:"metric" yaml:"metric"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Operator  string  `json:"operator" yaml:"operator"`
	Critical  bool    `json:"critical" yaml:"critical"`
}

// Activity is a scheduled unit of mission work
type Activity struct {
	ID              string                `json:"id" yaml:"id"`
	Name            string                `json:"name" yaml:"name"`
	Type            ActivityType          `json:"type" yaml:"type"`
	Priority        int                   `json:"priority" yaml:"priority"`
	Start           time.Time             `json:"start" yaml:"start"`
	Duration        time.Duration         `json:"duration" yaml:"duration"`
	Deadline        *time.Time            `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Requirements    []ResourceRequirement `json:"requirements" yaml:"requirements"`
	Dependencies    []string              `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Constraints     []Constraint          `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Autonomous      bool                  `json:"autonomous" yaml:"autonomous"`
	Status          Status                `json:"status" yaml:"status"`
	Phase           string                `json:"phase,omitempty" yaml:"phase,omitempty"`
	SuccessCriteria []SuccessCriterion    `json:"successCriteria,omitempty" yaml:"successCriteria,omitempty"`
	// LastEscalation is when the optimizer last raised the priority
	LastEscalation time.Time `json:"lastEscalation,omitempty" yaml:"-"`
}

// End returns the scheduled end time
func (a *Activity) End() time.Time {
	return a.Start.Add(a.Duration)
}

// Validate checks the fields that scheduling depends on
func (a *Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidActivity)
	}
	if a.Priority < 1 || a.Priority > 10 {
		return fmt.Errorf("%w: %s: priority %d outside 1-10", ErrInvalidActivity, a.ID, a.Priority)
	}
	if a.Duration <= 0 {
		return fmt.Errorf("%w: %s: duration must be positive", ErrInvalidActivity, a.ID)
	}
	for _, r := range a.Requirements {
		if r.Amount < 0 {
			return fmt.Errorf("%w: %s: negative %s requirement", ErrInvalidActivity, a.ID, r.Type)
		}
	}
	return nil
}

// Demand sums the activity's requirement of resource over [from, to)
func (a *Activity) Demand(resource ResourceType, from, to time.Time) float64 {
	total := 0.0
	for _, r := range a.Requirements {
		if r.Type != resource {
			continue
		}
		end := a.End()
		if r.Duration > 0 && r.Duration < a.Duration {
			end = a.Start.Add(r.Duration)
		}
		if a.Start.Before(to) && end.After(from) {
			total += r.Amount
		}
	}
	return total
}

// Requirement returns the total amount of a resource the activity needs
func (a *Activity) Requirement(resource ResourceType) float64 {
	total := 0.0
	for _, r := range a.Requirements {
		if r.Type == resource {
			total += r.Amount
		}
	}
	return total
}

// Flexibility averages constraint flexibility; zero without constraints
func (a *Activity) Flexibility() float64 {
	if len(a.Constraints) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range a.Constraints {
		sum += c.Flexibility
	}
	return sum / float64(len(a.Constraints))
}

func copyActivity(a *Activity) *Activity {
	cp := *a
	cp.Requirements = append([]ResourceRequirement(nil), a.Requirements...)
	cp.Dependencies = append([]string(nil), a.Dependencies...)
	cp.Constraints = append([]Constraint(nil), a.Constraints...)
	cp.SuccessCriteria = append([]SuccessCriterion(nil), a.SuccessCriteria...)
	if a.Deadline != nil {
		d := *a.Deadline
		cp.Deadline = &d
	}
	return &cp
}

// DefaultActivities returns a representative day of activities starting at now
func DefaultActivities(now time.Time) []*Activity {
	at := func(h float64) time.Time { return now.Add(time.Duration(h * float64(time.Hour))) }
	deadline := func(h float64) *time.Time { t := at(h); return &t }

	return []*Activity{
		{
			ID: "nav-burn-1", Name: "Trajectory Correction Burn", Type: ActivityNavigation,
			Priority: 9, Start: at(2), Duration: 30 * time.Minute, Deadline: deadline(4),
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 350, Unit: "W"},
				{Type: ResourceThermal, Amount: 150, Unit: "W"},
				{Type: ResourceAttitude, Amount: 1, Unit: "lock"},
			},
			Constraints: []Constraint{
				{Type: ConstraintTemporal, Condition: "window", Value: "burn", Flexibility: 5},
			},
			Autonomous: true, Status: StatusPlanned, Phase: "cruise",
			SuccessCriteria: []SuccessCriterion{{Metric: "delta_v_error", Threshold: 0.05, Operator: "<", Critical: true}},
		},
		{
			ID: "science-obs-1", Name: "Spectrometer Observation", Type: ActivityScience,
			Priority: 6, Start: at(3), Duration: 2 * time.Hour,
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 450, Unit: "W"},
				{Type: ResourceThermal, Amount: 120, Unit: "W"},
				{Type: ResourceCompute, Amount: 40, Unit: "%"},
			},
			Constraints: []Constraint{
				{Type: ConstraintEnvironment, Condition: "solar_activity", Value: "low", Flexibility: 30},
			},
			Autonomous: true, Status: StatusPlanned,
			SuccessCriteria: []SuccessCriterion{{Metric: "snr", Threshold: 20, Operator: ">=", Critical: false}},
		},
		{
			ID: "comm-pass-1", Name: "Deep Space Network Pass", Type: ActivityCommunication,
			Priority: 8, Start: at(5), Duration: 90 * time.Minute, Deadline: deadline(12),
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 200, Unit: "W"},
				{Type: ResourceBandwidth, Amount: 4096, Unit: "kbps"},
			},
			Dependencies: []string{"science-obs-1"},
			Constraints: []Constraint{
				{Type: ConstraintTemporal, Condition: "ground_station", Value: "DSS-43", Flexibility: 10},
			},
			Autonomous: false, Status: StatusPlanned,
		},
		{
			ID: "calib-1", Name: "Star Tracker Calibration", Type: ActivityCalibration,
			Priority: 5, Start: at(8), Duration: 45 * time.Minute,
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 80, Unit: "W"},
				{Type: ResourceCompute, Amount: 20, Unit: "%"},
			},
			Constraints: []Constraint{
				{Type: ConstraintSystemState, Condition: "attitude", Value: "stable", Flexibility: 50},
			},
			Autonomous: true, Status: StatusPlanned,
		},
		{
			ID: "maint-1", Name: "Reaction Wheel Desaturation", Type: ActivityMaintenance,
			Priority: 7, Start: at(14), Duration: time.Hour, Deadline: deadline(20),
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 150, Unit: "W"},
				{Type: ResourceThermal, Amount: 60, Unit: "W"},
			},
			Autonomous: true, Status: StatusPlanned,
		},
		{
			ID: "safety-check-1", Name: "Fault Protection Self Test", Type: ActivitySafety,
			Priority: 10, Start: at(20), Duration: 20 * time.Minute,
			Requirements: []ResourceRequirement{
				{Type: ResourcePower, Amount: 60, Unit: "W"},
				{Type: ResourceCompute, Amount: 30, Unit: "%"},
			},
			Autonomous: true, Status: StatusPlanned,
		},
	}
}
