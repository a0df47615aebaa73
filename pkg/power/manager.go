package power

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/confidence"
	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/telemetry"
	"github.com/cuemby/odin/pkg/types"
	"github.com/rs/zerolog"
)

// Predictor is the name recorded on actions produced by this package
const Predictor = "power"

var (
	// ErrNotFound is returned when a bank, load, source or action id is unknown
	ErrNotFound = errors.New("not found")
	// ErrUnknownTrigger is returned for triggers the decision tree does not handle
	ErrUnknownTrigger = errors.New("unknown trigger")
)

// CycleHook observes closed cycle records
type CycleHook func(bankID string, rec CycleRecord)

// Manager owns the bank, load and source catalogs
type Manager struct {
	cfg       config.PowerConfig
	banks     map[string]*Bank
	loads     map[string]*Load
	sources   map[string]*Source
	actions   []types.Action
	pending   map[string]types.Action
	emergency bool

	scorer  confidence.Scorer
	src     telemetry.Source
	onCycle CycleHook
	now     func() time.Time
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// Option customizes a Manager
type Option func(*Manager)

// WithScorer replaces the default confidence table
func WithScorer(s confidence.Scorer) Option {
	return func(m *Manager) { m.scorer = s }
}

// WithTelemetry sets the variation source used by forecasts and Advance
func WithTelemetry(src telemetry.Source) Option {
	return func(m *Manager) { m.src = src }
}

// WithCycleHook registers a callback for every closed cycle record
func WithCycleHook(h CycleHook) Option {
	return func(m *Manager) { m.onCycle = h }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// ManagerState is the manager state kept outside the catalogs: the process
// wide emergency flag and actions still awaiting approval
type ManagerState struct {
	EmergencyMode bool           `json:"emergencyMode"`
	Pending       []types.Action `json:"pending"`
}

// WithState restores state captured by State, typically after a restart
func WithState(st ManagerState) Option {
	return func(m *Manager) {
		m.emergency = st.EmergencyMode
		for _, a := range st.Pending {
			m.pending[a.ID] = a
		}
	}
}

// New creates a manager over copies of the given catalogs
func New(cfg config.PowerConfig, banks []*Bank, loads []*Load, sources []*Source, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		banks:   make(map[string]*Bank, len(banks)),
		loads:   make(map[string]*Load, len(loads)),
		sources: make(map[string]*Source, len(sources)),
		pending: make(map[string]types.Action),
		scorer:  confidence.DefaultPower(),
		src:     telemetry.NewRandom(1),
		now:     time.Now,
		logger:  log.WithComponent(Predictor),
	}
	for _, b := range banks {
		cp := copyBank(b)
		if cp.Tracker.Since.IsZero() && len(cp.Cycles) == 0 {
			cp.Tracker.Anchor = cp.State.SoC
		}
		m.banks[b.ID] = cp
	}
	for _, l := range loads {
		cp := *l
		m.loads[l.ID] = &cp
	}
	for _, s := range sources {
		cp := *s
		m.sources[s.ID] = &cp
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, b := range m.banks {
		m.refreshDerivedLocked(b)
	}
	return m
}

// BatteryStateUpdate is a partial battery telemetry update. Nil fields are left unchanged.
type BatteryStateUpdate struct {
	SoC         *float64 `json:"soc,omitempty"`
	SoH         *float64 `json:"soh,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
	Current     *float64 `json:"current,omitempty"`
}

// Float returns a pointer to v for building updates
func Float(v float64) *float64 {
	return &v
}

// UpdateBatteryState applies a partial update, tracks cycles and accumulates
// thermal-runaway risk.
func (m *Manager) UpdateBatteryState(id string, update BatteryStateUpdate) error {
	m.mu.Lock()
	b, ok := m.banks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	closed := m.applyUpdateLocked(b, update)
	hook := m.onCycle
	m.mu.Unlock()

	if closed != nil && hook != nil {
		hook(id, *closed)
	}
	return nil
}

// applyUpdateLocked mutates the bank and returns a cycle record if one closed
func (m *Manager) applyUpdateLocked(b *Bank, u BatteryStateUpdate) *CycleRecord {
	st := &b.State
	if u.Voltage != nil {
		st.Voltage = *u.Voltage
	}
	if u.SoH != nil {
		st.SoH = types.Clamp(*u.SoH, 0, 100)
	}
	if u.Current != nil {
		st.Current = *u.Current
		if math.Abs(*u.Current) > b.Tracker.PeakCurrent {
			b.Tracker.PeakCurrent = math.Abs(*u.Current)
		}
	}
	if u.Temperature != nil {
		t := *u.Temperature
		st.Temperature = t
		b.Tracker.TempSum += t
		b.Tracker.TempSamples++
		if t > m.cfg.RunawayTemperature {
			st.RunawayRisk = math.Min(100, st.RunawayRisk+(t-m.cfg.RunawayTemperature)*2)
			bankLog := log.WithBankID(m.logger, b.ID)
			bankLog.Warn().
				Float64("temperature", t).
				Float64("runaway_risk", st.RunawayRisk).
				Msg("battery above runaway threshold")
		}
	}

	var closed *CycleRecord
	if u.SoC != nil {
		st.SoC = types.Clamp(*u.SoC, 0, 100)
		closed = m.trackCycleLocked(b)
	}
	m.refreshDerivedLocked(b)
	return closed
}

// trackCycleLocked closes a cycle once SoC has moved more than CycleDelta
// points from the last cycle end
func (m *Manager) trackCycleLocked(b *Bank) *CycleRecord {
	tr := &b.Tracker
	delta := b.State.SoC - tr.Anchor
	if math.Abs(delta) <= m.cfg.CycleDelta {
		return nil
	}

	avgTemp := b.State.Temperature
	if tr.TempSamples > 0 {
		avgTemp = tr.TempSum / float64(tr.TempSamples)
	}
	depth := math.Abs(delta)
	rec := CycleRecord{
		Timestamp:          m.now(),
		StartSoC:           tr.Anchor,
		EndSoC:             b.State.SoC,
		DepthOfDischarge:   depth,
		AverageTemperature: avgTemp,
		PeakCurrent:        tr.PeakCurrent,
		EnergyTransferred:  depth / 100 * b.CapacityWh(),
	}
	b.Cycles = append(b.Cycles, rec)
	if max := m.cfg.MaxCycleRecords; max > 0 && len(b.Cycles) > max {
		b.Cycles = b.Cycles[len(b.Cycles)-max:]
	}
	if depth > m.cfg.CycleDepth {
		b.State.CycleCount++
	}

	*tr = CycleTracker{Anchor: b.State.SoC, Since: rec.Timestamp}
	return &rec
}

func (m *Manager) refreshDerivedLocked(b *Bank) {
	st := &b.State
	st.AvailablePower = st.SoC / 100 * st.SoH / 100 * b.CapacityWh()
	st.RemainingLife = math.Max(0, st.SoH-m.cfg.MinSoH) * 50
}

// HealthStatus is the outcome of AssessHealth
type HealthStatus string

const (
	HealthNominal  HealthStatus = "nominal"
	HealthCaution  HealthStatus = "caution"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// AssessHealth classifies a bank; the first matching tier wins
func (m *Manager) AssessHealth(id string) (HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.banks[id]
	if !ok {
		return "", fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	return m.assessLocked(b), nil
}

func (m *Manager) assessLocked(b *Bank) HealthStatus {
	st := b.State
	switch {
	case st.RunawayRisk > 50 || st.Temperature > 50 || b.Isolated:
		return HealthCritical
	case st.SoC < m.cfg.MinSoC || st.SoH < m.cfg.MinSoH || st.Temperature > 40:
		return HealthWarning
	case st.SoC < 30 || st.SoH < 90 || st.Temperature > 35:
		return HealthCaution
	default:
		return HealthNominal
	}
}

// Advance applies one simulated telemetry step of length dt: load draws
// jitter, sources follow the environment and the primary supplying bank
// integrates the net balance.
func (m *Manager) Advance(dt time.Duration, env types.Environment) {
	m.mu.Lock()

	for _, s := range m.sortedSourcesLocked() {
		live := m.sources[s.ID]
		if live.Active {
			live.CurrentOutput = m.sourceOutput(live, env)
		} else {
			live.CurrentOutput = 0
		}
	}
	for _, l := range m.sortedLoadsLocked() {
		live := m.loads[l.ID]
		live.CurrentDraw = m.loadDraw(live, m.src.Variation())
	}

	var closed *CycleRecord
	bank := m.primaryBankLocked()
	if bank != nil && bank.CapacityWh() > 0 {
		net := m.generationLocked() - m.consumptionLocked()
		soc := bank.State.SoC + net*dt.Hours()/bank.CapacityWh()*100
		temp := m.settleTemperature(bank.State.Temperature, net, dt)
		current := net / bank.Voltage
		closed = m.applyUpdateLocked(bank, BatteryStateUpdate{SoC: &soc, Temperature: &temp, Current: &current})
	}
	hook := m.onCycle
	var bankID string
	if bank != nil {
		bankID = bank.ID
	}
	m.mu.Unlock()

	if closed != nil && hook != nil {
		hook(bankID, *closed)
	}
}

// orbitPeriod drives the slow thermal oscillation of the banks
const orbitPeriod = 2 * time.Hour

// settleTemperature moves a bank toward a target set by charge/discharge
// magnitude plus an orbital oscillation, first-order with the configured
// time constant. Telemetry jitters the target, never the integrator.
func (m *Manager) settleTemperature(current, net float64, dt time.Duration) float64 {
	phase := float64(m.now().UnixNano()%int64(orbitPeriod)) / float64(orbitPeriod)
	target := m.cfg.BankTemperature + 0.005*math.Abs(net) + 0.5*math.Sin(2*math.Pi*phase) + 0.5*m.src.Variation()

	alpha := 1.0
	if tc := m.cfg.BankTimeConstant; tc > 0 {
		alpha = math.Min(1, dt.Seconds()/tc.Seconds())
	}
	return current + (target-current)*alpha
}

// solarEfficiency degrades linearly above the solar wind baseline
func (m *Manager) solarEfficiency(env types.Environment) float64 {
	wind := env.SolarWindSpeed
	if wind <= m.cfg.SolarWindBaseline {
		return 1
	}
	return math.Max(m.cfg.MinSolarEfficiency, 1-(wind-m.cfg.SolarWindBaseline)/1000)
}

func (m *Manager) sourceOutput(s *Source, env types.Environment) float64 {
	out := s.RatedOutput()
	if s.Type == SourceSolar {
		out *= types.Clamp(env.SunExposure, 0, 1) * m.solarEfficiency(env)
	}
	return out
}

// loadDraw is the expected draw of a load given a variation sample in [-1,1]
func (m *Manager) loadDraw(l *Load, variation float64) float64 {
	switch {
	case l.Shed:
		return l.Profile.Standby
	case !l.CanShed():
		return l.NominalDraw
	default:
		return l.NominalDraw * l.DutyCycle * (1 + 0.2*variation)
	}
}

func (m *Manager) generationLocked() float64 {
	total := 0.0
	for _, s := range m.sources {
		if s.Active {
			total += s.CurrentOutput
		}
	}
	return total
}

func (m *Manager) consumptionLocked() float64 {
	total := 0.0
	for _, l := range m.loads {
		total += l.CurrentDraw
	}
	return total
}

// averageSoCLocked averages SoC over supplying banks; zero when none supply
func (m *Manager) averageSoCLocked() float64 {
	sum, n := 0.0, 0
	for _, b := range m.banks {
		if b.Supplying() {
			sum += b.State.SoC
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// primaryBankLocked returns the primary bank while it supplies, otherwise the
// first supplying bank by id
func (m *Manager) primaryBankLocked() *Bank {
	if b, ok := m.banks[PrimaryBank]; ok && b.Supplying() {
		return b
	}
	for _, b := range m.sortedBanksLocked() {
		if b.Supplying() {
			return m.banks[b.ID]
		}
	}
	return nil
}

// AverageSoC returns the mean SoC across supplying banks
func (m *Manager) AverageSoC() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageSoCLocked()
}

// RunawayCandidates returns supplying or standby banks whose runaway risk is
// above threshold and that are not yet isolated
func (m *Manager) RunawayCandidates(threshold float64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, b := range m.sortedBanksLocked() {
		if !b.Isolated && b.State.RunawayRisk > threshold {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Banks returns copies of the bank catalog sorted by id
func (m *Manager) Banks() []*Bank {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedBanksLocked()
}

// Loads returns copies of the load catalog sorted by id
func (m *Manager) Loads() []*Load {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLoadsLocked()
}

// Sources returns copies of the source catalog sorted by id
func (m *Manager) Sources() []*Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedSourcesLocked()
}

// Actions returns the retained action history, oldest first
func (m *Manager) Actions() []types.Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Action, len(m.actions))
	copy(out, m.actions)
	return out
}

// State captures the emergency flag and every pending approval, expired or
// not, soonest deadline first
func (m *Manager) State() ManagerState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pending := make([]types.Action, 0, len(m.pending))
	for _, a := range m.pending {
		pending = append(pending, a)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ApprovalDeadline.Before(pending[j].ApprovalDeadline) })
	return ManagerState{EmergencyMode: m.emergency, Pending: pending}
}

// EmergencyMode reports whether emergency mode has been entered
func (m *Manager) EmergencyMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emergency
}

func (m *Manager) sortedBanksLocked() []*Bank {
	out := make([]*Bank, 0, len(m.banks))
	for _, b := range m.banks {
		out = append(out, copyBank(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) sortedLoadsLocked() []*Load {
	out := make([]*Load, 0, len(m.loads))
	for _, l := range m.loads {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) sortedSourcesLocked() []*Source {
	out := make([]*Source, 0, len(m.sources))
	for _, s := range m.sources {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyBank(b *Bank) *Bank {
	cp := *b
	cp.Cycles = append([]CycleRecord(nil), b.Cycles...)
	return &cp
}
