package media

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen matches the window http.DetectContentType inspects.
const sniffLen = 512

// extensionTypes covers formats the stdlib sniffer cannot identify from
// magic bytes alone, keyed by lowercase extension.
var extensionTypes = map[string]string{
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
}

// DetectFile determines the mime type of the file at path using magic bytes
// first and the extension as a fallback for container formats the sniffer
// reports as application/octet-stream.
func DetectFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for sniffing: %w", err)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read for sniffing: %w", err)
	}

	detected := http.DetectContentType(buf[:n])
	detected = strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])

	if detected == "application/octet-stream" || detected == "text/plain" {
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
			return byExt, nil
		}
	}
	// ftyp-based containers need a closer look; DetectContentType reports
	// video/mp4 for HEIC files too.
	if detected == "video/mp4" {
		if brand := ftypBrand(buf[:n]); brand != "" {
			switch {
			case strings.HasPrefix(brand, "hei"), strings.HasPrefix(brand, "mif"):
				return "image/heic", nil
			case strings.HasPrefix(brand, "avif"):
				return "image/avif", nil
			case strings.HasPrefix(brand, "qt"):
				return "video/quicktime", nil
			case strings.HasPrefix(brand, "M4A"):
				return "audio/mp4", nil
			}
		}
	}
	return detected, nil
}

// ftypBrand extracts the major brand from an ISO base media file header.
func ftypBrand(buf []byte) string {
	if len(buf) < 12 || string(buf[4:8]) != "ftyp" {
		return ""
	}
	return strings.TrimSpace(string(buf[8:12]))
}

// IsImage reports whether the mime type is an image format.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// IsVideo reports whether the mime type is a video format.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// IsAudio reports whether the mime type is an audio format.
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/")
}

// IsHeif reports whether the mime type is a HEIF-family image.
func IsHeif(mimeType string) bool {
	switch mimeType {
	case "image/heic", "image/heif":
		return true
	}
	return false
}

// IsPDF reports whether the mime type is a PDF document.
func IsPDF(mimeType string) bool {
	return mimeType == "application/pdf"
}

// IsGif reports whether the mime type is an animated-capable GIF.
func IsGif(mimeType string) bool {
	return mimeType == "image/gif"
}

// ExtensionFor returns the canonical file extension (with dot) for a mime
// type or output format name.
func ExtensionFor(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "image/jpeg", "jpeg", "jpg":
		return ".jpg"
	case "image/png", "png":
		return ".png"
	case "image/webp", "webp":
		return ".webp"
	case "image/avif", "avif":
		return ".avif"
	case "image/gif", "gif":
		return ".gif"
	case "image/heic", "heic":
		return ".heic"
	case "image/tiff", "tiff":
		return ".tiff"
	case "image/bmp", "bmp":
		return ".bmp"
	case "video/mp4", "mp4":
		return ".mp4"
	case "video/webm", "webm":
		return ".webm"
	case "video/quicktime", "mov":
		return ".mov"
	case "audio/mpeg", "mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "m4a":
		return ".m4a"
	case "audio/wav", "wav":
		return ".wav"
	case "audio/flac", "flac":
		return ".flac"
	case "application/pdf", "pdf":
		return ".pdf"
	default:
		return ""
	}
}

// FormatForMime maps a mime type to the output format name encoders use.
func FormatForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/avif":
		return "avif"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	default:
		return ""
	}
}

// MimeForFormat maps an output format name to its mime type.
func MimeForFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "avif":
		return "image/avif"
	case "gif":
		return "image/gif"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	default:
		return ""
	}
}
