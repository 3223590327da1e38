package ffprobe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

func stubProbeOutput(t *testing.T, payload string, name *string, args *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, binary string, cmdArgs ...string) *exec.Cmd {
		if name != nil {
			*name = binary
		}
		if args != nil {
			*args = append([]string(nil), cmdArgs...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFPROBE_PAYLOAD="+payload)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Print(os.Getenv("FFPROBE_PAYLOAD"))
	os.Exit(0)
}

func TestInspectParsesStreams(t *testing.T) {
	payload := `{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
			{"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2},
			{"index": 2, "codec_type": "subtitle", "codec_name": "mov_text"}
		],
		"format": {"duration": "12.500", "format_name": "mov,mp4"}
	}`
	var name string
	var args []string
	stubProbeOutput(t, payload, &name, &args)

	result, err := Inspect(context.Background(), "", "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if name != "ffprobe" {
		t.Fatalf("expected default binary ffprobe, got %q", name)
	}
	if args[len(args)-1] != "/tmp/in.mp4" {
		t.Fatalf("expected input path as last arg, got %v", args)
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream to be detected")
	}
	if !result.HasSubtitles() {
		t.Fatal("expected subtitle stream to be detected")
	}
	width, height, ok := result.VideoDimensions()
	if !ok || width != 1920 || height != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d ok=%v", width, height, ok)
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectRejectsMalformedOutput(t *testing.T) {
	stubProbeOutput(t, "not json", nil, nil)
	if _, err := Inspect(context.Background(), "ffprobe", "/tmp/in.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResultHelpersOnEmptyResult(t *testing.T) {
	var result Result
	if result.HasAudio() || result.HasSubtitles() {
		t.Fatal("empty result should report no streams")
	}
	if _, _, ok := result.VideoDimensions(); ok {
		t.Fatal("empty result should report no dimensions")
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 duration, got %v", result.DurationSeconds())
	}
	result.Format.Duration = "bad"
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected 0 for unparseable duration, got %v", result.DurationSeconds())
	}
}
