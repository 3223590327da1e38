package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func testImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := testImage(64, 48)

	for _, format := range []string{"jpeg", "png", "webp", "gif"} {
		path := filepath.Join(dir, "out."+format)
		if err := EncodeFile(path, src, format, 80); err != nil {
			t.Fatalf("encode %s: %v", format, err)
		}
		decoded, gotFormat, err := DecodeFile(path)
		if err != nil {
			t.Fatalf("decode %s: %v", format, err)
		}
		if gotFormat != format && !(format == "jpeg" && gotFormat == "jpeg") {
			t.Fatalf("expected format %s, got %s", format, gotFormat)
		}
		if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
			t.Fatalf("%s: dimensions changed to %v", format, decoded.Bounds())
		}
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xyz")
	if err := EncodeFile(path, testImage(4, 4), "xyz", 80); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestSupportedOutputFormat(t *testing.T) {
	for _, format := range []string{"jpeg", "jpg", "png", "webp", "gif"} {
		if !SupportedOutputFormat(format) {
			t.Errorf("expected %s to be supported", format)
		}
	}
	for _, format := range []string{"avif", "heic", "mp4", ""} {
		if SupportedOutputFormat(format) {
			t.Errorf("expected %s to be unsupported", format)
		}
	}
}

func TestFitPreservesAspectRatio(t *testing.T) {
	resized := Fit(testImage(400, 200), 100, 100)
	if resized.Bounds().Dx() != 100 || resized.Bounds().Dy() != 50 {
		t.Fatalf("expected 100x50, got %v", resized.Bounds())
	}
}

func TestFitNeverUpscales(t *testing.T) {
	src := testImage(40, 20)
	resized := Fit(src, 100, 100)
	if resized.Bounds().Dx() != 40 || resized.Bounds().Dy() != 20 {
		t.Fatalf("small image should be untouched, got %v", resized.Bounds())
	}
}

func TestFillProducesExactDimensions(t *testing.T) {
	filled := Fill(testImage(400, 200), 150, 150)
	if filled.Bounds().Dx() != 150 || filled.Bounds().Dy() != 150 {
		t.Fatalf("expected 150x150, got %v", filled.Bounds())
	}
}

func TestSmartFillProducesExactDimensions(t *testing.T) {
	cropped, err := SmartFill(testImage(320, 240), 100, 100)
	if err != nil {
		t.Fatalf("SmartFill: %v", err)
	}
	if cropped.Bounds().Dx() != 100 || cropped.Bounds().Dy() != 100 {
		t.Fatalf("expected 100x100, got %v", cropped.Bounds())
	}
}

func TestSmartFillRejectsZeroDimensions(t *testing.T) {
	if _, err := SmartFill(testImage(32, 32), 0, 100); err == nil {
		t.Fatal("expected error for zero width")
	}
}
