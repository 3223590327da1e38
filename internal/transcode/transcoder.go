package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mediaforge/internal/codec"
	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/media"
	"mediaforge/internal/media/ffprobe"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/services"
	"mediaforge/internal/stage"
)

// maxBigImageDimension bounds the longest edge when an image crosses the
// big-image size threshold.
const maxBigImageDimension = 2560

// Transcoder converts the item's working file into its upload form. Routing
// depends on the pipeline kind and the detected mime type; every produced
// file is a fresh scratch file owned by the item, and intermediates are
// released as soon as they are superseded.
type Transcoder struct {
	cfg    *config.Config
	store  *queue.Store
	files  *scratch.Registry
	codecs *codec.Registry
	logger *slog.Logger
}

// NewTranscoder constructs the transcode stage handler.
func NewTranscoder(cfg *config.Config, store *queue.Store, files *scratch.Registry, codecs *codec.Registry, logger *slog.Logger) *Transcoder {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "transcode"))
	}
	return &Transcoder{cfg: cfg, store: store, files: files, codecs: codecs, logger: stageLogger}
}

func (t *Transcoder) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.File) == "" {
		return services.Wrap(
			services.KindGeneral, "transcoding", "validate inputs",
			"No working file present for transcoding", nil)
	}
	if strings.TrimSpace(item.MimeType) == "" {
		mimeType, err := media.DetectFile(item.File)
		if err != nil {
			return services.WrapFile(
				services.KindGeneral, "transcoding", "detect mime type",
				"Could not determine the file's media type", item.File, err)
		}
		item.MimeType = mimeType
	}
	item.ClearError()
	return nil
}

func (t *Transcoder) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	var err error
	switch item.Kind {
	case queue.KindMute:
		err = t.mute(ctx, item)
	case queue.KindSubtitles:
		err = t.subtitles(ctx, item)
	default:
		switch {
		case media.IsHeif(item.MimeType):
			err = t.heif(ctx, item)
		case media.IsGif(item.MimeType):
			err = t.gif(ctx, item)
		case media.IsImage(item.MimeType):
			err = t.image(ctx, item)
		case media.IsVideo(item.MimeType):
			err = t.video(ctx, item)
		case media.IsAudio(item.MimeType):
			err = t.audio(ctx, item)
		default:
			// PDFs and anything else pass through untouched; preview
			// rendering happens in the thumbnail stage.
			logger.Info("no transcode route, passing through",
				logging.String("mime_type", item.MimeType))
			return nil
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return services.UserCancelled("transcoding", item.File)
		}
		return err
	}

	logger.Info("transcode complete",
		logging.String("file", item.File),
		logging.String("mime_type", item.MimeType))
	return nil
}

func (t *Transcoder) HealthCheck(ctx context.Context) stage.Health {
	// The pure Go backend always covers images, so missing CLI tools
	// degrade the stage rather than fail it.
	missing := make([]string, 0, 2)
	for _, kind := range []codec.Kind{codec.KindFFmpeg, codec.KindVips} {
		if !t.codecs.Available(kind) {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return stage.Health{Name: "transcode", Ready: true, Detail: "missing optional tools: " + strings.Join(missing, ", ")}
	}
	return stage.Healthy("transcode")
}

// heif decodes a HEIC/HEIF capture into the configured raster format
// (jpeg by default) and then optimizes the result like any other image.
func (t *Transcoder) heif(ctx context.Context, item *queue.Item) error {
	format := t.outputFormatFor(item.MimeType)
	if format == "" {
		format = "jpeg"
	}
	backend, err := t.codecs.Pick(codec.TaskHeif, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select heif decoder",
			"No HEIF decoder is available in this environment", item.File, err)
	}
	output := t.files.Create(item.ID, media.ExtensionFor(format))
	params := codec.ImageParams{OutputFormat: format, Quality: t.qualityFor(format)}
	if err := backend.DecodeHeif(ctx, item.File, output, params); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "decode heif",
			"Could not convert the HEIF capture", item.File, err)
	}
	t.adoptResult(item, output, media.MimeForFormat(format))
	return nil
}

// gif converts animated GIFs into a real video container when the output
// mapping asks for one, and otherwise treats the file as a plain image.
func (t *Transcoder) gif(ctx context.Context, item *queue.Item) error {
	format := t.outputFormatFor(item.MimeType)
	if format == "mp4" || format == "webm" {
		backend, err := t.codecs.Pick(codec.TaskVideo, t.cfg.Preferences.ImageLibrary)
		if err != nil {
			return services.WrapFile(
				services.KindTranscodingFailed, "transcoding", "select video encoder",
				"No video encoder is available for GIF conversion", item.File, err)
		}
		output := t.files.Create(item.ID, media.ExtensionFor(format))
		params := codec.VideoParams{OutputFormat: format}
		if err := backend.TranscodeVideo(ctx, item.File, output, params); err != nil {
			t.files.Release(item.ID, output)
			return services.WrapFile(
				services.KindTranscodingFailed, "transcoding", "convert gif",
				"Could not convert the GIF to video", item.File, err)
		}
		t.adoptResult(item, output, media.MimeForFormat(format))
		return nil
	}
	return t.image(ctx, item)
}

func (t *Transcoder) image(ctx context.Context, item *queue.Item) error {
	if !t.shouldOptimize(item) {
		return nil
	}
	format := t.outputFormatFor(item.MimeType)
	backend, err := t.codecs.Pick(codec.TaskImage, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select image backend",
			"No image backend is available", item.File, err)
	}
	if format == "" {
		format = media.FormatForMime(item.MimeType)
	}
	format = codec.ResolveOutputFormat(format, backend.Kind())

	params := codec.ImageParams{
		OutputFormat:  format,
		Quality:       t.qualityFor(format),
		StripMetadata: true,
	}
	if t.exceedsBigImage(item.File) {
		params.MaxWidth = maxBigImageDimension
		params.MaxHeight = maxBigImageDimension
	}
	output := t.files.Create(item.ID, media.ExtensionFor(format))
	if err := backend.TranscodeImage(ctx, item.File, output, params); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "transcode image",
			"Could not optimize the image", item.File, err)
	}
	t.adoptResult(item, output, media.MimeForFormat(format))
	return nil
}

func (t *Transcoder) video(ctx context.Context, item *queue.Item) error {
	format := t.outputFormatFor(item.MimeType)
	forced := item.Kind == queue.KindOptimize || t.exceedsBigVideo(item.File)
	if format == "" {
		if !forced {
			return nil
		}
		format = "mp4"
	}
	backend, err := t.codecs.Pick(codec.TaskVideo, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select video encoder",
			"No video encoder is available", item.File, err)
	}
	output := t.files.Create(item.ID, media.ExtensionFor(format))
	params := codec.VideoParams{OutputFormat: format, Quality: t.qualityFor(format)}
	if err := backend.TranscodeVideo(ctx, item.File, output, params); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "transcode video",
			"Could not transcode the video", item.File, err)
	}
	t.adoptResult(item, output, media.MimeForFormat(format))
	return nil
}

func (t *Transcoder) audio(ctx context.Context, item *queue.Item) error {
	format := t.outputFormatFor(item.MimeType)
	if format == "" {
		return nil
	}
	backend, err := t.codecs.Pick(codec.TaskAudio, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select audio encoder",
			"No audio encoder is available", item.File, err)
	}
	output := t.files.Create(item.ID, media.ExtensionFor(format))
	params := codec.AudioParams{OutputFormat: format}
	if err := backend.TranscodeAudio(ctx, item.File, output, params); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "transcode audio",
			"Could not transcode the audio", item.File, err)
	}
	t.adoptResult(item, output, media.MimeForFormat(format))
	return nil
}

func (t *Transcoder) mute(ctx context.Context, item *queue.Item) error {
	if !media.IsVideo(item.MimeType) {
		return services.WrapFile(
			services.KindGeneral, "transcoding", "mute",
			fmt.Sprintf("Cannot mute a %s file", item.MimeType), item.File, nil)
	}
	if probed, ok := t.probe(ctx, item.File); ok && !probed.HasAudio() {
		logging.WithContext(ctx, t.logger).Info("video already has no audio track, skipping mute",
			logging.String("item_id", item.ID))
		return nil
	}
	backend, err := t.codecs.Pick(codec.TaskVideo, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select video encoder",
			"No video encoder is available", item.File, err)
	}
	format := media.FormatForMime(item.MimeType)
	if format == "" {
		format = "mp4"
	}
	output := t.files.Create(item.ID, media.ExtensionFor(format))
	params := codec.VideoParams{OutputFormat: format, RemoveAudio: true}
	if err := backend.TranscodeVideo(ctx, item.File, output, params); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "mute video",
			"Could not remove the audio track", item.File, err)
	}
	t.adoptResult(item, output, item.MimeType)
	return nil
}

func (t *Transcoder) subtitles(ctx context.Context, item *queue.Item) error {
	if !media.IsVideo(item.MimeType) {
		return services.WrapFile(
			services.KindGeneral, "transcoding", "extract subtitles",
			fmt.Sprintf("Cannot extract subtitles from a %s file", item.MimeType), item.File, nil)
	}
	backend, err := t.codecs.Backend(codec.KindFFmpeg)
	if err != nil || !t.codecs.Available(codec.KindFFmpeg) {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select subtitle extractor",
			"ffmpeg is required for subtitle extraction", item.File, err)
	}
	ffmpeg, ok := backend.(*codec.FFmpeg)
	if !ok {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "select subtitle extractor",
			"ffmpeg backend unavailable", item.File, nil)
	}
	if probed, probeOK := t.probe(ctx, item.File); probeOK && !probed.HasSubtitles() {
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "extract subtitles",
			"The video has no subtitle track", item.File, nil)
	}
	output := t.files.Create(item.ID, ".vtt")
	if err := ffmpeg.ExtractSubtitles(ctx, item.File, output); err != nil {
		t.files.Release(item.ID, output)
		return services.WrapFile(
			services.KindTranscodingFailed, "transcoding", "extract subtitles",
			"The video has no extractable subtitle track", item.File, err)
	}
	t.adoptResult(item, output, "text/vtt")
	return nil
}

// adoptResult swaps the item's working file to output and releases every
// intermediate the item still owns, keeping the new file and the original
// source (the source must survive for retry).
func (t *Transcoder) adoptResult(item *queue.Item, output, mimeType string) {
	item.File = output
	if mimeType != "" {
		item.MimeType = mimeType
	}
	for _, owned := range t.files.Owned(item.ID) {
		if owned == output || owned == item.SourceFile {
			continue
		}
		t.files.Release(item.ID, owned)
	}
}

// probe inspects the file with ffprobe. Probing is advisory; when the
// binary is missing or inspection fails the caller proceeds without it.
func (t *Transcoder) probe(ctx context.Context, path string) (ffprobe.Result, bool) {
	result, err := ffprobe.Inspect(ctx, t.cfg.Codec.FFprobeBinary, path)
	if err != nil {
		logging.WithContext(ctx, t.logger).Debug("ffprobe inspection unavailable", logging.Error(err))
		return ffprobe.Result{}, false
	}
	return result, true
}

func (t *Transcoder) shouldOptimize(item *queue.Item) bool {
	if item.Kind == queue.KindOptimize {
		return true
	}
	return t.cfg.Preferences.OptimizeOnUpload
}

func (t *Transcoder) outputFormatFor(mimeType string) string {
	return t.cfg.Preferences.OutputFormats[strings.ToLower(strings.TrimSpace(mimeType))]
}

func (t *Transcoder) qualityFor(format string) int {
	return t.cfg.Preferences.Quality[format]
}

func (t *Transcoder) exceedsBigImage(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	threshold := t.cfg.BigImageSizeBytes()
	return threshold > 0 && info.Size() > threshold
}

func (t *Transcoder) exceedsBigVideo(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	threshold := t.cfg.BigVideoSizeBytes()
	return threshold > 0 && info.Size() > threshold
}

var _ stage.Handler = (*Transcoder)(nil)
