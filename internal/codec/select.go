package codec

import "fmt"

// Task names a class of media work the pipeline needs a backend for.
type Task string

const (
	TaskImage Task = "image"
	TaskVideo Task = "video"
	TaskAudio Task = "audio"
	TaskHeif  Task = "heif"
	TaskPDF   Task = "pdf"
)

// Select picks the backend kind for a task. imageLibrary is the configured
// preference ("imaging" or "vips"); available reports whether a given
// backend's binary is reachable in this environment. Selection is pure:
// same inputs, same answer.
func Select(task Task, imageLibrary string, available func(Kind) bool) (Kind, error) {
	switch task {
	case TaskImage:
		if imageLibrary == "vips" && available(KindVips) {
			return KindVips, nil
		}
		return KindImaging, nil
	case TaskVideo, TaskAudio:
		if !available(KindFFmpeg) {
			return "", fmt.Errorf("select backend: ffmpeg not available for %s", task)
		}
		return KindFFmpeg, nil
	case TaskHeif:
		if available(KindHeif) {
			return KindHeif, nil
		}
		if available(KindVips) {
			return KindVips, nil
		}
		return "", fmt.Errorf("select backend: no heif decoder available")
	case TaskPDF:
		if !available(KindPDF) {
			return "", fmt.Errorf("select backend: pdftoppm not available")
		}
		return KindPDF, nil
	default:
		return "", fmt.Errorf("select backend: unknown task %q", task)
	}
}

// ResolveOutputFormat maps a requested output format onto what the chosen
// backend can actually emit, falling back to jpeg where a format is out of
// reach (the pure Go encoder has no avif or heif support).
func ResolveOutputFormat(requested string, kind Kind) string {
	switch kind {
	case KindImaging:
		switch requested {
		case "jpeg", "jpg", "png", "webp", "gif":
			return requested
		default:
			return "jpeg"
		}
	case KindVips:
		switch requested {
		case "jpeg", "jpg", "png", "webp", "avif", "heif", "tiff":
			return requested
		default:
			return "jpeg"
		}
	default:
		return requested
	}
}
