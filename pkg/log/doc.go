/*
Package log provides structured logging for Odin using zerolog.

A single global Logger is configured once at startup with Init. Every predictor
and background loop derives a child logger with WithComponent so that log lines
can be filtered per subsystem:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("power")
	logger.Info().
		Str("action", "shed_load").
		Float64("confidence", 90).
		Msg("power management action applied")

Console output (JSONOutput=false) is meant for operators running the CLI;
JSON output is meant for log shippers when running `odin run` as a service.

Levels:
  - debug: per-step forecast detail, telemetry ticks
  - info: executed actions, loop start/stop
  - warn: lookup failures, actions that could not be applied
  - error: persistence and loop failures
*/
package log
