// Package logging assembles structured slog loggers used by the pipeline,
// the task manager, the HTTP API and the CLI.
//
// It owns the console/JSON handlers and level plumbing, and exposes a no-op
// logger for tests and wiring code that cannot fail. Analytic packages
// (mot, kinematics, openscore, playeval) never log.
package logging
