// Package config loads, validates, and normalizes TOML configuration for the
// timelapse pipeline. Defaults live in defaults.go; the embedded
// sample_config.toml documents every knob for `timelapse config init`.
package config
