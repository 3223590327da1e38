// Package config loads, defaults, and validates the TOML configuration that
// drives the pipeline: directory layout, upload endpoint, user preferences,
// validation limits, workflow tuning, and the thumbnail size table.
package config
