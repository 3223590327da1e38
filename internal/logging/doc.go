// Package logging wraps log/slog with the shared attribute vocabulary and
// construction helpers used across the pipeline. Components log through
// NewComponentLogger and annotate records with the Field* keys so console and
// JSON output stay filterable by item, stage, and correlation id.
package logging
