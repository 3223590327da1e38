// Package services holds the error taxonomy and context plumbing shared by
// every pipeline stage.
//
// Failures are classified by Kind so the orchestrator can decide whether a
// retry makes sense and callers can react to specific conditions (size limit,
// unsupported mime type, user cancellation) without string matching. Stage
// code builds errors through Wrap/WrapFile; the orchestrator and callbacks
// read them back through Details.
package services
