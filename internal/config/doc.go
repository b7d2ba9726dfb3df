// Package config loads, normalizes and validates the openscore TOML
// configuration.
//
// Values come from built-in defaults, an optional TOML file and
// OPENSCORE_* environment variables, in that order of precedence. Loaded
// sections convert into the option structs of the tracking, kinematics,
// scoring and aggregation packages.
package config
