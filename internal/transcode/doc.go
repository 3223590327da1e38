// Package transcode implements the conversion stage of the pipeline. It
// routes each item to a codec backend based on its pipeline kind and mime
// type, tracks every produced file through the scratch registry, and keeps
// the original source file alive so a retry can start over.
package transcode
