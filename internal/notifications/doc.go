// Package notifications delivers run outcomes via ntfy.
//
// The default implementation posts to the topic configured in config.toml and
// gracefully degrades to a no-op when no topic is set. Success and failure
// pushes are individually toggleable so a cron deployment can stay quiet on
// healthy runs and only page on failures.
package notifications
