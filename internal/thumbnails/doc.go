// Package thumbnails renders the resized variants configured in the size
// table, with a pluggable generation strategy (server, client, smart).
package thumbnails
