// Package config loads, normalizes, and validates trawl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies TRAWL_* environment overrides.
// The Config type centralizes every knob the scrape run and CLI need, so the
// tracker location, pacing, retry policy, upstream endpoints, and sinks are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
