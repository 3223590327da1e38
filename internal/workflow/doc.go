// Package workflow advances queue items through the processing pipeline.
//
// The Manager polls the queue and drives items from pending through
// validation, transcoding, metadata extraction, thumbnail generation, the
// optional approval gate, and upload. A single dispatcher goroutine owns the
// transitions out of waiting states; each active item runs in its own
// goroutine whose context CancelItem can trip. Transcoding concurrency is
// bounded by the configured budget, and a run releases its slot as soon as
// it flips into the upload phase. Status writes are guarded on the status
// the writer last saw, so the dispatcher and a concurrent cancel cannot
// overwrite each other. On Start, items a previous run left mid-phase are
// returned to the start of that phase and picked up again.
//
// The manager also carries the in-memory coordination the queue does not
// persist: per-item callbacks with at-most-once success and error delivery,
// and batch completion hooks that fire once all members settle.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is
// the authoritative home for that coordination logic.
package workflow
