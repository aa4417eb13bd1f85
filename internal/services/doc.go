// Package services defines the shared error taxonomy used across the
// pipeline and helpers for classifying failures.
//
// Every component wraps its failures with one of the exported sentinel
// errors via Wrap so the engine can decide whether a failure excludes a
// partition, retries next run, degrades a tier, or aborts the run.
package services
