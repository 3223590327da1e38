// Package codec provides the backend adapter layer for media transcoding.
//
// Concrete backends wrap either the pure Go imaging toolbox or external
// command line tools (ffmpeg, vips, heif-convert, pdftoppm). Selection is a
// pure function over the task, the configured image library preference, and
// probed binary availability, so the same environment always yields the
// same backend. The Registry owns lazy construction and caching.
package codec
