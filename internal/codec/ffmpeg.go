package codec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// FFmpegOption configures the ffmpeg backend.
type FFmpegOption func(*FFmpeg)

// WithFFmpegBinary overrides the default binary name.
func WithFFmpegBinary(binary string) FFmpegOption {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// FFmpeg wraps the ffmpeg command line for video and audio transcodes.
type FFmpeg struct {
	unsupported
	binary string
}

// NewFFmpeg constructs the backend using defaults.
func NewFFmpeg(opts ...FFmpegOption) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FFmpeg) Kind() Kind { return KindFFmpeg }

func (f *FFmpeg) Capabilities() Capabilities {
	return Capabilities{TranscodeVideo: true, TranscodeAudio: true}
}

// TranscodeVideo re-encodes input into the requested container. The same
// path converts animated GIFs into real video files; ffmpeg handles the
// demux transparently.
func (f *FFmpeg) TranscodeVideo(ctx context.Context, input, output string, params VideoParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	args := videoArgs(input, output, params)
	return f.run(ctx, args)
}

// TranscodeAudio re-encodes input into the requested audio format.
func (f *FFmpeg) TranscodeAudio(ctx context.Context, input, output string, params AudioParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	args := audioArgs(input, output, params)
	return f.run(ctx, args)
}

// ExtractPoster grabs a single frame at offsetSeconds and writes it to
// output. Used for video poster generation.
func (f *FFmpeg) ExtractPoster(ctx context.Context, input, output string, offsetSeconds float64) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", strconv.FormatFloat(offsetSeconds, 'f', 3, 64),
		"-i", input,
		"-frames:v", "1",
		output,
	}
	return f.run(ctx, args)
}

// ExtractSubtitles demuxes the first subtitle stream into output. The
// output extension picks the subtitle format (vtt, srt).
func (f *FFmpeg) ExtractSubtitles(ctx context.Context, input, output string) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-map", "0:s:0",
		output,
	}
	return f.run(ctx, args)
}

func videoArgs(input, output string, params VideoParams) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", input}
	switch params.OutputFormat {
	case "webm":
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", "0")
		crf := params.Quality
		if crf <= 0 {
			crf = 32
		}
		args = append(args, "-crf", strconv.Itoa(crf))
		if params.RemoveAudio {
			args = append(args, "-an")
		} else {
			args = append(args, "-c:a", "libopus")
		}
	default: // mp4
		args = append(args, "-c:v", "libx264", "-preset", "medium")
		crf := params.Quality
		if crf <= 0 {
			crf = 23
		}
		args = append(args, "-crf", strconv.Itoa(crf))
		// Even dimensions and a broadly decodable pixel format. GIF and
		// screen-capture sources frequently violate both.
		args = append(args, "-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2", "-pix_fmt", "yuv420p", "-movflags", "+faststart")
		if params.RemoveAudio {
			args = append(args, "-an")
		} else {
			args = append(args, "-c:a", "aac")
		}
	}
	return append(args, output)
}

func audioArgs(input, output string, params AudioParams) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", input, "-vn"}
	switch params.OutputFormat {
	case "ogg":
		args = append(args, "-c:a", "libvorbis")
	default: // mp3
		args = append(args, "-c:a", "libmp3lame")
	}
	if params.Bitrate != "" {
		args = append(args, "-b:a", params.Bitrate)
	}
	return append(args, output)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", f.binary, err, tail(out))
	}
	return nil
}

// tail keeps the last few lines of tool output for error messages.
func tail(out []byte) string {
	text := strings.TrimSpace(string(out))
	lines := strings.Split(text, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "; ")
}

var _ Backend = (*FFmpeg)(nil)
