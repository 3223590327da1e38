// Package ffprobe wraps ffprobe JSON inspection of media containers.
//
// The transcode and metadata stages use it to decide whether a video
// already lacks audio, whether it carries subtitle tracks, and to record
// duration and dimensions. All callers treat probing as best-effort: a
// missing ffprobe binary degrades features rather than failing items.
package ffprobe
