package metadata

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
)

func writePNG(t *testing.T, fill color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, fill)
		}
	}
	path := filepath.Join(t.TempDir(), "fixture.png")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return path
}

func TestDominantColorSolidImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	got := DominantColor(img)
	if got != "#c82828" {
		t.Fatalf("expected #c82828, got %q", got)
	}
}

func TestDominantColorMajorityWins(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if y < 8 {
				img.Set(x, y, color.RGBA{B: 250, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 250, A: 255})
			}
		}
	}
	got := DominantColor(img)
	if !strings.HasPrefix(got, "#0000") {
		t.Fatalf("expected a blue dominant color, got %q", got)
	}
}

func TestDominantColorEmptyImage(t *testing.T) {
	if got := DominantColor(image.NewRGBA(image.Rectangle{})); got != "" {
		t.Fatalf("expected empty string for empty image, got %q", got)
	}
}

func TestExtractorPopulatesImageFields(t *testing.T) {
	cfg := config.Default()
	e := NewExtractor(&cfg, logging.NewNop())
	path := writePNG(t, color.RGBA{R: 10, G: 140, B: 30, A: 255})
	item := &queue.Item{ID: "item-1", File: path, SourceFile: path, MimeType: "image/png"}

	if err := e.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.BlurHash == "" {
		t.Fatal("expected a blurhash")
	}
	if !strings.HasPrefix(item.DominantColor, "#") || len(item.DominantColor) != 7 {
		t.Fatalf("expected #rrggbb dominant color, got %q", item.DominantColor)
	}
}

func TestExtractorToleratesTagFailures(t *testing.T) {
	cfg := config.Default()
	e := NewExtractor(&cfg, logging.NewNop())
	path := filepath.Join(t.TempDir(), "broken.mp3")
	if err := os.WriteFile(path, []byte("not an mp3"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	item := &queue.Item{ID: "item-1", File: path, SourceFile: path, MimeType: "audio/mpeg"}
	if err := e.Execute(context.Background(), item); err != nil {
		t.Fatalf("metadata extraction must be best-effort, got %v", err)
	}
}

func TestMergeAdditionalKeepsCallerData(t *testing.T) {
	item := &queue.Item{AdditionalJSON: `{"postId":42,"exif":{"cameraModel":"caller"}}`}
	if err := mergeAdditional(item, "exif", ExifInfo{CameraModel: "extracted"}); err != nil {
		t.Fatalf("mergeAdditional returned error: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(item.AdditionalJSON), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	exifPayload, ok := payload["exif"].(map[string]any)
	if !ok {
		t.Fatalf("expected exif object, got %T", payload["exif"])
	}
	if exifPayload["cameraModel"] != "caller" {
		t.Fatal("caller-provided fields must win over extracted ones")
	}
	if payload["postId"] != float64(42) {
		t.Fatal("unrelated caller data must survive the merge")
	}
}
