package power

import (
	"math"
	"time"

	"github.com/cuemby/odin/pkg/types"
)

// ForecastPoint is one step of the power forecast
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	Generation  float64   `json:"generation"`
	Consumption float64   `json:"consumption"`
	NetPower    float64   `json:"netPower"`
	SoC         float64   `json:"soc"`
	SoH         float64   `json:"soh"`
	Temperature float64   `json:"temperature"`
	Confidence  float64   `json:"confidence"`
}

// Forecast is the result of GenerateForecast
type Forecast struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Horizon     time.Duration   `json:"horizon"`
	Step        time.Duration   `json:"step"`
	BankID      string          `json:"bankId,omitempty"`
	Points      []ForecastPoint `json:"points"`
	Confidence  []float64       `json:"confidence"`
	MinSoC      float64         `json:"minSoc"`
	// DepletionTime is the first step at which SoC reaches zero
	DepletionTime *time.Time `json:"depletionTime,omitempty"`
}

// GenerateForecast projects generation, consumption and the primary bank's
// state over the horizon. Sheddable load variation comes from the telemetry
// source.
func (m *Manager) GenerateForecast(horizon time.Duration, env types.Environment) Forecast {
	m.mu.RLock()
	sources := m.sortedSourcesLocked()
	loads := m.sortedLoadsLocked()
	var bank *Bank
	if b := m.primaryBankLocked(); b != nil {
		bank = copyBank(b)
	}
	m.mu.RUnlock()

	step := m.cfg.Forecast.Step
	steps := int(horizon / step)
	start := m.now()

	generation := 0.0
	for _, s := range sources {
		if s.Active {
			generation += m.sourceOutput(s, env)
		}
	}

	fc := Forecast{
		GeneratedAt: start,
		Horizon:     horizon,
		Step:        step,
		Points:      make([]ForecastPoint, 0, steps),
		Confidence:  make([]float64, 0, steps),
	}

	var soc, soh, baseTemp, capacityWh float64
	if bank != nil {
		fc.BankID = bank.ID
		soc, soh, baseTemp = bank.State.SoC, bank.State.SoH, bank.State.Temperature
		capacityWh = bank.CapacityWh()
	}
	fc.MinSoC = soc
	phase := math.Pi * m.src.Variation()

	for k := 0; k < steps; k++ {
		at := start.Add(time.Duration(k+1) * step)

		consumption := 0.0
		for _, l := range loads {
			consumption += m.loadDraw(l, m.src.Variation())
		}
		net := generation - consumption

		if capacityWh > 0 {
			soc = types.Clamp(soc+net*step.Hours()/capacityWh*100, 0, 100)
		}
		soh = math.Max(0, soh-m.cfg.SoHDecrement)
		temp := baseTemp + 0.005*math.Abs(net) + 0.5*math.Sin(2*math.Pi*float64(k)/24+phase)
		c := m.cfg.Forecast.Confidence(k)

		fc.Points = append(fc.Points, ForecastPoint{
			Time:        at,
			Generation:  generation,
			Consumption: consumption,
			NetPower:    net,
			SoC:         soc,
			SoH:         soh,
			Temperature: temp,
			Confidence:  c,
		})
		fc.Confidence = append(fc.Confidence, c)

		if soc < fc.MinSoC {
			fc.MinSoC = soc
		}
		if soc <= 0 && fc.DepletionTime == nil && bank != nil {
			t := at
			fc.DepletionTime = &t
		}
	}
	return fc
}
