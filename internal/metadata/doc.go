// Package metadata enriches queue items with descriptive data: BlurHash
// placeholders, dominant colors, EXIF fields, and audio container tags.
// Extraction is best-effort and never fails an item.
package metadata
