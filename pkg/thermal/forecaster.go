package thermal

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
const Predictor = "thermal"

const (
	stefanBoltzmann = 5.670374419e-8
	kelvinOffset    = 273.15
	// nominalSolarWind in km/s scales solar intensity to 1.0
	nominalSolarWind = 400.0
)

// ErrNotFound is returned when a component id is unknown
var ErrNotFound = errors.New("not found")

// Forecaster owns the component and actuator catalogs and predicts their
// thermal behaviour. Reads take the read lock; telemetry updates and action
// execution take the write lock.
type Forecaster struct {
	cfg        config.ThermalConfig
	components map[string]*Component
	actuators  map[string]*Actuator
	actions    []types.Action
	scorer     confidence.Scorer
	now        func() time.Time
	logger     zerolog.Logger
	mu         sync.RWMutex
}

// Option customizes a Forecaster
type Option func(*Forecaster)

// WithScorer replaces the default constant confidence table
func WithScorer(s confidence.Scorer) Option {
	return func(f *Forecaster) { f.scorer = s }
}

// WithClock overrides time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

// New creates a forecaster over copies of the given catalogs
func New(cfg config.ThermalConfig, components []*Component, actuators []*Actuator, opts ...Option) *Forecaster {
	f := &Forecaster{
		cfg:        cfg,
		components: make(map[string]*Component, len(components)),
		actuators:  make(map[string]*Actuator, len(actuators)),
		scorer:     confidence.DefaultThermal(),
		now:        time.Now,
		logger:     log.WithComponent(Predictor),
	}
	for _, c := range components {
		f.components[c.ID] = copyComponent(c)
	}
	for _, a := range actuators {
		cp := *a
		f.actuators[a.ID] = &cp
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Point is one forecast sample for a component
type Point struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	NetHeatFlow float64   `json:"netHeatFlow"`
	Confidence  float64   `json:"confidence"`
}

// ComponentForecast is the predicted trajectory of one component
type ComponentForecast struct {
	ComponentID     string     `json:"componentId"`
	Points          []Point    `json:"points"`
	Peak            float64    `json:"peak"`
	Low             float64    `json:"low"`
	ExceedsNominal  bool       `json:"exceedsNominal"`
	ExceedsSurvival bool       `json:"exceedsSurvival"`
	FirstBreach     *time.Time `json:"firstBreach,omitempty"`
}

// Forecast is the result of GenerateForecast
type Forecast struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	Horizon     time.Duration       `json:"horizon"`
	Step        time.Duration       `json:"step"`
	Components  []ComponentForecast `json:"components"`
	Confidence  []float64           `json:"confidence"`
}

// GenerateForecast steps every component forward over the horizon at the
// configured interval under the given environment.
func (f *Forecaster) GenerateForecast(horizon time.Duration, env types.Environment) Forecast {
	f.mu.RLock()
	components := f.sortedComponentsLocked()
	actuatorHeat := f.actuatorHeatLocked()
	f.mu.RUnlock()

	step := f.cfg.Forecast.Step
	steps := int(horizon / step)
	start := f.now()

	temps := make(map[string]float64, len(components))
	results := make([]ComponentForecast, len(components))
	for i, c := range components {
		temps[c.ID] = c.Temperature
		results[i] = ComponentForecast{
			ComponentID: c.ID,
			Points:      make([]Point, 0, steps),
			Peak:        c.Temperature,
			Low:         c.Temperature,
		}
	}

	conf := make([]float64, 0, steps)
	perComponentActuator := 0.0
	if len(components) > 0 {
		perComponentActuator = actuatorHeat / float64(len(components))
	}

	for k := 0; k < steps; k++ {
		at := start.Add(time.Duration(k+1) * step)
		c := f.cfg.Forecast.Confidence(k)
		conf = append(conf, c)

		next := make(map[string]float64, len(components))
		flows := make(map[string]float64, len(components))
		for _, comp := range components {
			q := f.netHeatFlow(comp, temps, env) + perComponentActuator
			flows[comp.ID] = q
			next[comp.ID] = temps[comp.ID] + f.temperatureChange(q, step, comp.ThermalMass)
		}
		temps = next

		for i, comp := range components {
			t := temps[comp.ID]
			r := &results[i]
			r.Points = append(r.Points, Point{Time: at, Temperature: t, NetHeatFlow: flows[comp.ID], Confidence: c})
			r.Peak = math.Max(r.Peak, t)
			r.Low = math.Min(r.Low, t)
			if !comp.Nominal.Contains(t) {
				if !r.ExceedsNominal {
					breach := at
					r.FirstBreach = &breach
				}
				r.ExceedsNominal = true
			}
			if !comp.Survival.Contains(t) {
				r.ExceedsSurvival = true
			}
		}
	}

	return Forecast{
		GeneratedAt: start,
		Horizon:     horizon,
		Step:        step,
		Components:  results,
		Confidence:  conf,
	}
}

// netHeatFlow returns environmental, internal and conducted heat minus
// radiative cooling, in watts. temps holds the current temperature of every
// component so coupled neighbours can be read.
func (f *Forecaster) netHeatFlow(c *Component, temps map[string]float64, env types.Environment) float64 {
	temperature := temps[c.ID]
	environmental := c.Location.ExposureFactor() * f.solarIntensity(env)
	return environmental + f.cfg.InternalHeat + f.conductedHeat(c, temps) - f.radiativeCooling(temperature)
}

// solarIntensity is the incident heat in watts on a fully exposed radiating area
func (f *Forecaster) solarIntensity(env types.Environment) float64 {
	wind := env.SolarWindSpeed
	if wind <= 0 {
		wind = nominalSolarWind
	}
	exposure := env.ThermalExposure
	if exposure <= 0 {
		exposure = 1
	}
	return f.cfg.SolarConstant * f.cfg.RadiatingArea * (wind / nominalSolarWind) * exposure
}

// radiativeCooling applies the Stefan-Boltzmann law against the deep-space background
func (f *Forecaster) radiativeCooling(celsius float64) float64 {
	t := celsius + kelvinOffset
	bg := f.cfg.BackgroundTemperature
	return f.cfg.Emissivity * stefanBoltzmann * f.cfg.RadiatingArea * (math.Pow(t, 4) - math.Pow(bg, 4))
}

func (f *Forecaster) temperatureChange(watts float64, step time.Duration, massKJ float64) float64 {
	if massKJ <= 0 {
		return 0
	}
	return watts * step.Seconds() / (massKJ * 1000)
}

// conductedHeat is the heat in watts flowing in from coupled components
func (f *Forecaster) conductedHeat(c *Component, temps map[string]float64) float64 {
	watts := 0.0
	for _, id := range c.Coupled {
		other, ok := temps[id]
		if !ok || id == c.ID {
			continue
		}
		watts += f.cfg.CouplingConductance * (other - temps[c.ID])
	}
	return watts
}

// actuatorHeatLocked sums actuator effects: heaters add heat, everything else removes it
func (f *Forecaster) actuatorHeatLocked() float64 {
	total := 0.0
	for _, a := range f.actuators {
		if a.Type.Heating() {
			total += a.Effect()
		} else {
			total -= a.Effect()
		}
	}
	return total
}

// FlareImpact is the predicted effect of a flare on one component
type FlareImpact struct {
	ComponentID string  `json:"componentId"`
	Absorption  float64 `json:"absorption"`
	// RiseRate in °C per minute
	RiseRate      float64 `json:"riseRate"`
	PredictedPeak float64 `json:"predictedPeak"`
	// MinutesToNominal and MinutesToSurvival are -1 when the bound is not
	// reached within the flare duration
	MinutesToNominal  float64 `json:"minutesToNominal"`
	MinutesToSurvival float64 `json:"minutesToSurvival"`
	Severity          string  `json:"severity"`
}

// NotReached marks a threshold that is not crossed within the flare duration
const NotReached = -1.0

// PredictFlareImpact estimates per-component heating from a predicted flare
func (f *Forecaster) PredictFlareImpact(flare types.SolarFlare) []FlareImpact {
	f.mu.RLock()
	components := f.sortedComponentsLocked()
	f.mu.RUnlock()

	intensity := flare.Class.BaseIntensity() * flare.Magnitude
	duration := flare.Duration
	if duration <= 0 {
		duration = f.cfg.DefaultFlareDuration
	}
	minutes := duration.Minutes()

	impacts := make([]FlareImpact, 0, len(components))
	for _, c := range components {
		absorption := intensity * c.Location.ExposureFactor() * f.cfg.FlareAbsorption
		rate := 0.0
		if c.ThermalMass > 0 {
			rate = absorption / c.ThermalMass
		}

		impact := FlareImpact{
			ComponentID:       c.ID,
			Absorption:        absorption,
			RiseRate:          rate,
			PredictedPeak:     c.Temperature + rate*minutes,
			MinutesToNominal:  timeToExceed(c.Temperature, c.Nominal.Max, rate, minutes),
			MinutesToSurvival: timeToExceed(c.Temperature, c.Survival.Max, rate, minutes),
			Severity:          "nominal",
		}
		if impact.MinutesToSurvival != NotReached {
			impact.Severity = "critical"
		} else if impact.MinutesToNominal != NotReached {
			impact.Severity = "warning"
		}
		impacts = append(impacts, impact)
	}
	return impacts
}

func timeToExceed(current, bound, rate, window float64) float64 {
	if current > bound {
		return 0
	}
	if rate <= 0 {
		return NotReached
	}
	t := (bound - current) / rate
	if t > window {
		return NotReached
	}
	return t
}

// UpdateComponentTemperature records a new temperature reading
func (f *Forecaster) UpdateComponentTemperature(id string, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.components[id]
	if !ok {
		return fmt.Errorf("component %s: %w", id, ErrNotFound)
	}
	c.Temperature = value
	return nil
}

// Advance applies one integration step of length dt to the live catalog,
// perturbed by the telemetry source. This stands in for sensor readings.
func (f *Forecaster) Advance(dt time.Duration, env types.Environment, src telemetry.Source) {
	f.mu.Lock()
	defer f.mu.Unlock()

	components := f.sortedComponentsLocked()
	if len(components) == 0 {
		return
	}
	perComponent := f.actuatorHeatLocked() / float64(len(components))

	temps := make(map[string]float64, len(components))
	for _, c := range components {
		temps[c.ID] = c.Temperature
	}
	for _, c := range components {
		q := f.netHeatFlow(c, temps, env) + perComponent
		noise := 0.2 * src.Variation()
		f.components[c.ID].Temperature = temps[c.ID] + f.temperatureChange(q, dt, c.ThermalMass) + noise
	}
}

// Components returns copies of the component catalog sorted by id
func (f *Forecaster) Components() []*Component {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sortedComponentsLocked()
}

// Actuators returns copies of the actuator catalog sorted by id
func (f *Forecaster) Actuators() []*Actuator {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sortedActuatorsLocked()
}

// Actions returns the executed thermal action history, oldest first
func (f *Forecaster) Actions() []types.Action {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]types.Action, len(f.actions))
	copy(out, f.actions)
	return out
}

func (f *Forecaster) sortedComponentsLocked() []*Component {
	out := make([]*Component, 0, len(f.components))
	for _, c := range f.components {
		out = append(out, copyComponent(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Forecaster) sortedActuatorsLocked() []*Actuator {
	out := make([]*Actuator, 0, len(f.actuators))
	for _, a := range f.actuators {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyComponent(c *Component) *Component {
	cp := *c
	cp.Coupled = append([]string(nil), c.Coupled...)
	return &cp
}
