// Package config loads, normalizes, and validates the TOML configuration for
// scribe. Paths are tilde-expanded and made absolute, secrets fall back to
// environment variables, and a sample config can be materialized for new
// installs.
package config
