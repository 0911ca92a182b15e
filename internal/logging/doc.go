// Package logging builds the slog loggers used across the daemon and CLI.
//
// Loggers write to stdout plus a rolling overseer.log in the configured log
// directory, in either a compact console format or JSON. Components attach a
// standardized component attribute via NewComponentLogger so log lines can be
// filtered per subsystem.
package logging
