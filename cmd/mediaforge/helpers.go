package main

import (
	"fmt"
	"io"
	"os"

	"mediaforge/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

// statusLabel renders the status, colored when writing to a terminal.
func statusLabel(writer io.Writer, status queue.Status) string {
	label := string(status)
	if !shouldColorize(writer) {
		return label
	}
	switch status {
	case queue.StatusUploaded:
		return ansiGreen + label + ansiReset
	case queue.StatusPendingApproval:
		return ansiYellow + label + ansiReset
	case queue.StatusCancelled:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func fileSizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
