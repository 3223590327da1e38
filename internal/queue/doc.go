// Package queue defines the item record, the status state machine, and the
// SQLite-backed store the orchestrator drives.
//
// Statuses move pending → pending_transcoding → transcoding → transcoded →
// (pending_approval → approved) → uploading → uploaded, with cancelled
// reachable from every non-terminal status and retry the only way out of
// cancelled. Next is the single authority on which transitions are legal;
// store code persists whatever the orchestrator decided but never invents a
// transition of its own.
package queue
