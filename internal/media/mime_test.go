package media

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestDetectFilePNG(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	path := writeFixture(t, "pic.png", png)
	mime, err := DetectFile(path)
	if err != nil {
		t.Fatalf("DetectFile: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("expected image/png, got %q", mime)
	}
}

func TestDetectFileHeicByFtyp(t *testing.T) {
	// 'ftypheic' major brand inside an otherwise mp4-looking header.
	header := append([]byte{0, 0, 0, 0x18}, []byte("ftypheic")...)
	header = append(header, make([]byte, 24)...)
	path := writeFixture(t, "photo.heic", header)
	mime, err := DetectFile(path)
	if err != nil {
		t.Fatalf("DetectFile: %v", err)
	}
	if mime != "image/heic" {
		t.Fatalf("expected image/heic, got %q", mime)
	}
}

func TestDetectFileFallsBackToExtension(t *testing.T) {
	path := writeFixture(t, "clip.mkv", []byte{0x1a, 0x45, 0xdf, 0xa3, 1, 2, 3, 4})
	mime, err := DetectFile(path)
	if err != nil {
		t.Fatalf("DetectFile: %v", err)
	}
	if mime != "video/x-matroska" {
		t.Fatalf("expected matroska by extension, got %q", mime)
	}
}

func TestCategoryHelpers(t *testing.T) {
	if !IsImage("image/webp") || IsImage("video/mp4") {
		t.Fatal("IsImage misclassifies")
	}
	if !IsVideo("video/webm") || IsVideo("audio/ogg") {
		t.Fatal("IsVideo misclassifies")
	}
	if !IsAudio("audio/flac") || IsAudio("image/png") {
		t.Fatal("IsAudio misclassifies")
	}
	if !IsHeif("image/heic") || !IsHeif("image/heif") || IsHeif("image/jpeg") {
		t.Fatal("IsHeif misclassifies")
	}
	if !IsPDF("application/pdf") || IsPDF("image/png") {
		t.Fatal("IsPDF misclassifies")
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg": ".jpg",
		"webp":       ".webp",
		"video/webm": ".webm",
		"mp3":        ".mp3",
		"unknown":    "",
	}
	for input, want := range cases {
		if got := ExtensionFor(input); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPolicy(t *testing.T) {
	policy := NewPolicy([]string{"image/jpeg", "image/png"}, nil)
	if !policy.SystemAllows("image/jpeg") || policy.SystemAllows("video/mp4") {
		t.Fatal("system allow-list misapplied")
	}
	if !policy.UserAllows("image/jpeg") {
		t.Fatal("unset user list should allow everything")
	}

	restricted := NewPolicy([]string{"image/jpeg", "image/png"}, []string{"image/png"})
	if restricted.UserAllows("image/jpeg") {
		t.Fatal("user list should narrow the allow-list")
	}
	if !restricted.UserAllows("IMAGE/PNG") {
		t.Fatal("mime comparison should be case-insensitive")
	}
}
