// Package config loads, normalizes, and validates Overseer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OVERSEER_EXECUTOR_ENDPOINT. The Config type centralizes every knob the
// daemon and CLI need: data directories, scheduler batch tuning, the browser
// runner bridge, notifications, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
