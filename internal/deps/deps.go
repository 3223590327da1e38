// Package deps reports the availability of the external tools the codec
// backends shell out to. Everything here is optional: the pure Go image
// path works without any of them, but video, HEIF, and PDF work degrade
// to passthrough when a tool is missing.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediaforge/internal/config"
)

// Requirement defines an external tool one of the codec backends uses.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// lookPath resolves a binary on PATH; swapped in tests.
var lookPath = exec.LookPath

// Requirements lists the external tools for the configured binaries.
func Requirements(cfg config.Codec) []Requirement {
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     fallback(cfg.FFmpegBinary, "ffmpeg"),
			Description: "video and audio transcoding, poster frames, subtitle extraction",
			Optional:    true,
		},
		{
			Name:        "ffprobe",
			Command:     fallback(cfg.FFprobeBinary, "ffprobe"),
			Description: "stream inspection for mute, subtitle, and video metadata handling",
			Optional:    true,
		},
		{
			Name:        "vips",
			Command:     fallback(cfg.VipsBinary, "vips"),
			Description: "fast image transcoding when image_library is \"vips\"",
			Optional:    true,
		},
		{
			Name:        "heif-convert",
			Command:     fallback(cfg.HeifBinary, "heif-convert"),
			Description: "HEIC/HEIF decoding",
			Optional:    true,
		},
		{
			Name:        "pdftoppm",
			Command:     fallback(cfg.PDFBinary, "pdftoppm"),
			Description: "PDF page rendering for thumbnails",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := lookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
