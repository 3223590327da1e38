// Package upload talks to the remote attachment endpoint: multipart create
// for new files and sideload for replacing an existing attachment's payload.
package upload
