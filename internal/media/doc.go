// Package media identifies file types and enforces the mime allow-list
// policy the validation stage runs before any transcoder is touched.
package media
