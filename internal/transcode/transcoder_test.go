package transcode

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaforge/internal/codec"
	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

func newTranscoder(t *testing.T, cfg *config.Config) (*Transcoder, *scratch.Registry) {
	t.Helper()
	files, err := scratch.NewRegistry(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("scratch registry: %v", err)
	}
	codecs := codec.NewRegistry(cfg.Codec)
	return NewTranscoder(cfg, nil, files, codecs, logging.NewNop()), files
}

func writePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	path := filepath.Join(dir, name)
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

func TestTranscoderPrepareRequiresFile(t *testing.T) {
	tr, _ := newTranscoder(t, testConfig(t))
	item := &queue.Item{ID: "item-1"}
	if err := tr.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected error for missing working file")
	}
}

func TestTranscoderPrepareDetectsMime(t *testing.T) {
	cfg := testConfig(t)
	tr, _ := newTranscoder(t, cfg)
	item := &queue.Item{ID: "item-1", File: writePNG(t, t.TempDir(), "in.png", 8, 8)}
	if err := tr.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if item.MimeType != "image/png" {
		t.Fatalf("expected image/png, got %q", item.MimeType)
	}
}

func TestTranscoderOptimizesImageWithPureGoBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preferences.ImageLibrary = "imaging"
	cfg.Preferences.OutputFormats = map[string]string{"image/png": "webp"}
	tr, files := newTranscoder(t, cfg)

	source := writePNG(t, cfg.Paths.ScratchDir, "in.png", 32, 32)
	item := &queue.Item{ID: "item-1", Kind: queue.KindUpload, File: source, SourceFile: source, MimeType: "image/png"}
	files.Adopt(item.ID, source)

	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.File == source {
		t.Fatal("expected a new working file")
	}
	if item.MimeType != "image/webp" {
		t.Fatalf("expected image/webp, got %q", item.MimeType)
	}
	if _, err := os.Stat(item.File); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if !strings.HasSuffix(item.File, ".webp") {
		t.Fatalf("expected .webp output, got %s", item.File)
	}
	if !files.Owns(item.ID, item.File) {
		t.Fatal("item must own its transcode output")
	}
	if !files.Owns(item.ID, source) {
		t.Fatal("the source file must survive for retry")
	}
}

func TestTranscoderReleasesIntermediates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preferences.OutputFormats = map[string]string{"image/png": "jpeg"}
	tr, files := newTranscoder(t, cfg)

	source := writePNG(t, cfg.Paths.ScratchDir, "in.png", 16, 16)
	item := &queue.Item{ID: "item-1", Kind: queue.KindOptimize, File: source, SourceFile: source, MimeType: "image/png"}
	files.Adopt(item.ID, source)

	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("first Execute returned error: %v", err)
	}
	first := item.File

	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("second Execute returned error: %v", err)
	}
	if files.Owns(item.ID, first) {
		t.Fatal("superseded intermediate should be released")
	}
	if !files.Owns(item.ID, item.File) || !files.Owns(item.ID, source) {
		t.Fatal("item should own exactly the latest output and the source")
	}
}

func TestTranscoderSkipsImageWhenOptimizeDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preferences.OptimizeOnUpload = false
	cfg.Preferences.OutputFormats = map[string]string{}
	tr, _ := newTranscoder(t, cfg)

	source := writePNG(t, t.TempDir(), "in.png", 8, 8)
	item := &queue.Item{ID: "item-1", Kind: queue.KindUpload, File: source, SourceFile: source, MimeType: "image/png"}
	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.File != source {
		t.Fatal("expected passthrough when optimization is disabled")
	}
}

func TestTranscoderVideoPassthroughUnderThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preferences.OutputFormats = map[string]string{}
	tr, _ := newTranscoder(t, cfg)

	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("not really video"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	item := &queue.Item{ID: "item-1", Kind: queue.KindUpload, File: source, SourceFile: source, MimeType: "video/mp4"}
	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.File != source {
		t.Fatal("small videos without a mapping should pass through")
	}
}

func TestTranscoderMuteRejectsNonVideo(t *testing.T) {
	cfg := testConfig(t)
	tr, _ := newTranscoder(t, cfg)
	source := writePNG(t, t.TempDir(), "in.png", 8, 8)
	item := &queue.Item{ID: "item-1", Kind: queue.KindMute, File: source, SourceFile: source, MimeType: "image/png"}
	err := tr.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error when muting an image")
	}
	if services.ErrorKind(err) != services.KindGeneral {
		t.Fatalf("expected general kind, got %v", services.ErrorKind(err))
	}
}

func TestTranscoderPDFPassthrough(t *testing.T) {
	cfg := testConfig(t)
	tr, _ := newTranscoder(t, cfg)
	dir := t.TempDir()
	source := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(source, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	item := &queue.Item{ID: "item-1", Kind: queue.KindUpload, File: source, SourceFile: source, MimeType: "application/pdf"}
	if err := tr.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.File != source {
		t.Fatal("documents should pass through the transcode stage")
	}
}
