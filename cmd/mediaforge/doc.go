// Command mediaforge queues media files for validation, transcoding,
// metadata extraction, thumbnail generation, and upload to a remote
// attachment endpoint.
//
// `mediaforge add` and friends enqueue items and process them inline;
// `mediaforge run` processes the queue as a long-running service. Queue
// inspection and the approval, retry, and cancel controls operate on the
// shared SQLite queue, so a held or failed item can be resolved from a
// later invocation.
package main
