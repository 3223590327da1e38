package imaging

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/chai2010/webp"
)

// SupportedOutputFormat reports whether the pure-Go encoder can produce the
// named format. Formats outside this set need an external backend or a
// fallback format.
func SupportedOutputFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "webp", "gif":
		return true
	}
	return false
}

// EncodeFile writes img to path in the named format. Quality applies to the
// lossy formats and is clamped to 1..100; zero selects the encoder default.
func EncodeFile(path string, img image.Image, format string, quality int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		opts := &jpeg.Options{Quality: jpeg.DefaultQuality}
		if quality > 0 {
			opts.Quality = clampQuality(quality)
		}
		err = jpeg.Encode(file, img, opts)
	case "png":
		err = png.Encode(file, img)
	case "webp":
		opts := &webp.Options{Quality: 90}
		if quality > 0 {
			opts.Quality = float32(clampQuality(quality))
		}
		err = webp.Encode(file, img, opts)
	case "gif":
		err = gif.Encode(file, img, nil)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return file.Sync()
}

func clampQuality(quality int) int {
	if quality < 1 {
		return 1
	}
	if quality > 100 {
		return 100
	}
	return quality
}
