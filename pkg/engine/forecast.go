package engine

import (
	"time"

	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
)

// ThermalForecast forecasts component temperatures under the current environment
func (e *Engine) ThermalForecast(horizon time.Duration) thermal.Forecast {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ForecastDuration, thermal.Predictor)
	return e.thermal.GenerateForecast(horizon, e.Environment())
}

// PowerForecast forecasts the primary bank's SoC under the current environment
func (e *Engine) PowerForecast(horizon time.Duration) power.Forecast {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ForecastDuration, power.Predictor)
	return e.power.GenerateForecast(horizon, e.Environment())
}

// MissionPrediction predicts the schedule under the current environment and health
func (e *Engine) MissionPrediction(horizon time.Duration) mission.Prediction {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ForecastDuration, mission.Predictor)
	return e.mission.GenerateMissionPrediction(horizon, e.Health(), e.Environment())
}

// Conflicts detects schedule conflicts over the analysis window starting now
func (e *Engine) Conflicts() []mission.Conflict {
	return e.mission.DetectConflicts(e.now())
}
