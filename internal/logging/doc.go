// Package logging provides slog-based structured logging for the timelapse
// pipeline: console and JSON handlers, typed attribute helpers, and the
// standardized field keys used across components.
package logging
