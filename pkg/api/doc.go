/*
Package api exposes a running engine.Engine over HTTP and gRPC.

The HTTP facade is a fiber app. Every route is counted and timed under
odin_api_requests_total and odin_api_request_duration_seconds, and errors
are rendered as {"error": "..."} with a status code derived from the
predictor's sentinel errors:

	GET   /health                               liveness (503 when degraded)
	GET   /ready                                readiness (503 until critical components are up)
	GET   /metrics                              prometheus exposition

	GET   /v1/thermal/status
	GET   /v1/thermal/forecast?horizon=2h
	POST  /v1/thermal/actions                   {"trigger","severity","affected"}
	PUT   /v1/thermal/components/:id/temperature {"value"}

	GET   /v1/power/status
	GET   /v1/power/forecast?horizon=2h
	POST  /v1/power/actions                     {"trigger","severity"}
	POST  /v1/power/actions/:id/approve
	GET   /v1/power/banks/:id/health
	PATCH /v1/power/banks/:id                   partial battery state

	GET   /v1/schedule/metrics
	GET   /v1/schedule/prediction?horizon=24h
	GET   /v1/schedule/conflicts
	POST  /v1/schedule/conflicts                detect and resolve
	GET   /v1/schedule/activities
	POST  /v1/schedule/activities               one activity or a list
	POST  /v1/schedule/activities/:id/status    {"status"}

	GET   /v1/environment
	PUT   /v1/environment

Horizons are Go durations capped at seven days.

HealthService serves the standard grpc.health.v1 protocol for
orchestrators that probe over gRPC. Service names match the component
health registry and the empty name tracks overall readiness.
*/
package api
