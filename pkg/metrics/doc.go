/*
Package metrics exports Odin's Prometheus metrics and keeps the component
health registry behind /health and /ready.

All metrics are registered with the default registry at init and exposed by
Handler. Gauges mirroring predictor state (temperatures, SoC, activity counts)
are refreshed by a Collector polling a StatusSource; counters and histograms
are updated inline where the event happens:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ForecastDuration, "thermal")

The engine is ready once every name in CriticalComponents is registered and
healthy.
*/
package metrics
