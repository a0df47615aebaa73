package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Thermal metrics
	ComponentTemperature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_component_temperature_celsius",
			Help: "Current component temperature in celsius",
		},
		[]string{"component"},
	)

	ActuatorActivation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_actuator_activation_percent",
			Help: "Thermal actuator activation level",
		},
		[]string{"actuator"},
	)

	ThermalAlerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_thermal_alerts",
			Help: "Components currently outside their nominal (warning) or survival (critical) range",
		},
		[]string{"level"},
	)

	// Power metrics
	BatterySoC = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_battery_soc_percent",
			Help: "Battery bank state of charge",
		},
		[]string{"bank"},
	)

	BatterySoH = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_battery_soh_percent",
			Help: "Battery bank state of health",
		},
		[]string{"bank"},
	)

	BatteryRunawayRisk = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_battery_runaway_risk_percent",
			Help: "Accumulated thermal runaway risk per bank",
		},
		[]string{"bank"},
	)

	PowerGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "odin_power_generation_watts",
			Help: "Total generation from active sources",
		},
	)

	PowerConsumption = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "odin_power_consumption_watts",
			Help: "Total draw across all loads",
		},
	)

	EmergencyMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "odin_power_emergency_mode",
			Help: "Whether power emergency mode is active (1 = active)",
		},
	)

	// Schedule metrics
	ActivitiesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_activities_total",
			Help: "Mission activities by lifecycle status",
		},
		[]string{"status"},
	)

	ConflictsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_schedule_conflicts",
			Help: "Resource conflicts found by the last detection pass, by severity",
		},
		[]string{"severity"},
	)

	ScheduleScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "odin_schedule_score",
			Help: "Schedule metrics (efficiency, risk, completion, autonomy, adaptability)",
		},
		[]string{"metric"},
	)

	PriorityEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_priority_escalations_total",
			Help: "Total number of deadline-driven priority escalations",
		},
	)

	OptimizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "odin_optimization_duration_seconds",
			Help:    "Time taken by one schedule optimization pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Decision metrics
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odin_actions_total",
			Help: "Total number of actions by predictor, action and result",
		},
		[]string{"predictor", "action", "result"},
	)

	ForecastDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odin_forecast_duration_seconds",
			Help:    "Forecast generation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"predictor"},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "odin_tick_duration_seconds",
			Help:    "Duration of one engine telemetry tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Reconciliation metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "odin_reconciliation_duration_seconds",
			Help:    "Duration of one reconciliation cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
	)

	ApprovalsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_approvals_expired_total",
			Help: "Pending actions whose approval window lapsed",
		},
	)

	ActivitiesMissed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_activities_missed_total",
			Help: "Activities cancelled because their deadline passed before execution",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odin_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odin_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(ComponentTemperature)
	prometheus.MustRegister(ActuatorActivation)
	prometheus.MustRegister(ThermalAlerts)
	prometheus.MustRegister(BatterySoC)
	prometheus.MustRegister(BatterySoH)
	prometheus.MustRegister(BatteryRunawayRisk)
	prometheus.MustRegister(PowerGeneration)
	prometheus.MustRegister(PowerConsumption)
	prometheus.MustRegister(EmergencyMode)
	prometheus.MustRegister(ActivitiesTotal)
	prometheus.MustRegister(ConflictsTotal)
	prometheus.MustRegister(ScheduleScore)
	prometheus.MustRegister(PriorityEscalations)
	prometheus.MustRegister(OptimizationDuration)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ForecastDuration)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ApprovalsExpired)
	prometheus.MustRegister(ActivitiesMissed)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAction counts an executed or rejected action
func RecordAction(predictor, action string, ok bool) {
	result := "applied"
	if !ok {
		result = "failed"
	}
	ActionsTotal.WithLabelValues(predictor, action, result).Inc()
}
