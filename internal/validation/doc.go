// Package validation implements the acceptance stage of the pipeline:
// empty-file, size-limit, and mime allow-list checks that must pass before
// any transcoder runs.
package validation
