package thumbnails

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"mediaforge/internal/codec"
	"mediaforge/internal/config"
	"mediaforge/internal/imaging"
	"mediaforge/internal/logging"
	"mediaforge/internal/media"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/stage"
)

// posterOffsetSeconds is where the poster frame is grabbed; skipping the
// first second avoids fade-in black frames.
const posterOffsetSeconds = 1.0

// thumbnailFormat is the encoding used for locally generated variants.
const thumbnailFormat = "webp"

// Thumbnailer generates resized variants per the configured size table.
// Like metadata extraction this stage is best-effort: a failed variant is
// logged and skipped, never fatal, because the primary file can still be
// uploaded and the server can backfill sizes it finds missing.
type Thumbnailer struct {
	cfg    *config.Config
	files  *scratch.Registry
	codecs *codec.Registry
	logger *slog.Logger
}

// NewThumbnailer constructs the thumbnail stage handler.
func NewThumbnailer(cfg *config.Config, files *scratch.Registry, codecs *codec.Registry, logger *slog.Logger) *Thumbnailer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "thumbnails"))
	}
	return &Thumbnailer{cfg: cfg, files: files, codecs: codecs, logger: stageLogger}
}

func (t *Thumbnailer) Prepare(ctx context.Context, item *queue.Item) error {
	return nil
}

func (t *Thumbnailer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	if len(t.cfg.Thumbnails.Sizes) == 0 {
		return nil
	}

	if t.cfg.Preferences.ThumbnailGeneration == StrategyServer {
		return t.deferToServer(item)
	}

	source := item.File
	switch {
	case media.IsVideo(item.MimeType):
		poster, err := t.extractPoster(ctx, item)
		if err != nil {
			logger.Warn("poster extraction failed", logging.Error(err))
			return nil
		}
		source = poster
	case media.IsPDF(item.MimeType):
		page, err := t.renderPage(ctx, item)
		if err != nil {
			logger.Warn("document preview rendering failed", logging.Error(err))
			return nil
		}
		source = page
	case !media.IsImage(item.MimeType):
		return nil
	}

	img, _, err := imaging.DecodeFile(source)
	if err != nil {
		logger.Warn("thumbnail decode failed", logging.Error(err))
		return nil
	}

	gen := generatorFor(t.cfg.Preferences.ThumbnailGeneration)
	variants := make(map[string]string, len(t.cfg.Thumbnails.Sizes))
	for _, size := range t.cfg.Thumbnails.Sizes {
		variant, err := gen.Generate(img, size)
		if err != nil {
			logger.Warn("thumbnail generation failed",
				logging.String("size", size.Name), logging.Error(err))
			continue
		}
		path := t.files.Create(item.ID, media.ExtensionFor(thumbnailFormat))
		quality := t.cfg.Preferences.Quality[thumbnailFormat]
		if err := imaging.EncodeFile(path, variant, thumbnailFormat, quality); err != nil {
			t.files.Release(item.ID, path)
			logger.Warn("thumbnail encoding failed",
				logging.String("size", size.Name), logging.Error(err))
			continue
		}
		variants[size.Name] = path
	}
	if len(variants) == 0 {
		return nil
	}
	if err := setAdditional(item, "thumbnails", variants); err != nil {
		logger.Warn("thumbnail record failed", logging.Error(err))
	}
	return nil
}

func (t *Thumbnailer) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("thumbnails")
}

// deferToServer records the size names the server is expected to generate.
func (t *Thumbnailer) deferToServer(item *queue.Item) error {
	names := make([]string, 0, len(t.cfg.Thumbnails.Sizes))
	for _, size := range t.cfg.Thumbnails.Sizes {
		names = append(names, size.Name)
	}
	return item.MergeAttachment(queue.Attachment{MissingImageSizes: names})
}

func (t *Thumbnailer) extractPoster(ctx context.Context, item *queue.Item) (string, error) {
	backend, err := t.codecs.Backend(codec.KindFFmpeg)
	if err != nil {
		return "", err
	}
	ffmpeg, ok := backend.(*codec.FFmpeg)
	if !ok {
		return "", codec.ErrUnsupported
	}
	poster := t.files.Create(item.ID, ".jpg")
	if err := ffmpeg.ExtractPoster(ctx, item.File, poster, posterOffsetSeconds); err != nil {
		t.files.Release(item.ID, poster)
		return "", err
	}
	if err := setAdditional(item, "poster", poster); err != nil {
		return "", err
	}
	return poster, nil
}

func (t *Thumbnailer) renderPage(ctx context.Context, item *queue.Item) (string, error) {
	backend, err := t.codecs.Pick(codec.TaskPDF, t.cfg.Preferences.ImageLibrary)
	if err != nil {
		return "", err
	}
	page := t.files.Create(item.ID, ".png")
	if err := backend.RenderPDF(ctx, item.File, page, codec.ImageParams{}); err != nil {
		t.files.Release(item.ID, page)
		return "", err
	}
	return page, nil
}

// setAdditional writes key into the additional-data payload, replacing any
// earlier value from a previous attempt.
func setAdditional(item *queue.Item, key string, value any) error {
	payload := map[string]any{}
	if strings.TrimSpace(item.AdditionalJSON) != "" {
		if err := json.Unmarshal([]byte(item.AdditionalJSON), &payload); err != nil {
			return err
		}
	}
	payload[key] = value
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	item.AdditionalJSON = string(encoded)
	return nil
}

var _ stage.Handler = (*Thumbnailer)(nil)
