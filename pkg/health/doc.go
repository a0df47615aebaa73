/*
Package health probes the engine's storage dependencies.

A Monitor runs each registered Checker on an interval with a per-check
timeout. A dependency is only marked unhealthy after Retries consecutive
failures and is marked healthy again on the first success, so a single
slow bbolt transaction or dropped Postgres connection does not flap
readiness. Failures inside StartPeriod are ignored.

The engine registers a PingChecker for the bbolt store ("storage") and,
when configured, the Postgres archive ("archive"), and reports results
into the metrics component registry that backs /ready and the gRPC health
service.
*/
package health
