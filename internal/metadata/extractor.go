package metadata

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/buckket/go-blurhash"

	"mediaforge/internal/config"
	"mediaforge/internal/imaging"
	"mediaforge/internal/logging"
	"mediaforge/internal/media"
	"mediaforge/internal/media/ffprobe"
	"mediaforge/internal/queue"
	"mediaforge/internal/stage"
)

// blurhash component counts; 4x3 is the reference default and keeps the
// hash under 30 characters.
const (
	blurhashXComponents = 4
	blurhashYComponents = 3
)

// Extractor is the metadata stage. Everything here is best-effort: a photo
// without EXIF or an MP3 without tags is normal, not a failure, so Execute
// only logs extraction problems and never fails the item.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExtractor constructs the metadata stage handler.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "metadata"))
	}
	return &Extractor{cfg: cfg, logger: stageLogger}
}

func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	return nil
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	switch {
	case media.IsImage(item.MimeType) && !media.IsHeif(item.MimeType):
		e.describeImage(item, logger)
	case media.IsAudio(item.MimeType), item.MimeType == "video/mp4":
		e.describeTagged(item, logger)
	}
	if media.IsVideo(item.MimeType) {
		e.describeVideo(ctx, item, logger)
	}
	return nil
}

func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("metadata")
}

// describeImage computes the BlurHash placeholder and dominant color from
// the working file's pixels, plus EXIF from the untouched source (the
// transcoded copy is stripped).
func (e *Extractor) describeImage(item *queue.Item, logger *slog.Logger) {
	img, _, err := imaging.DecodeFile(item.File)
	if err != nil {
		logger.Warn("image decode for metadata failed", logging.Error(err))
		return
	}

	small := imaging.Fit(img, 64, 64)
	hash, err := blurhash.Encode(blurhashXComponents, blurhashYComponents, small)
	if err != nil {
		logger.Warn("blurhash encoding failed", logging.Error(err))
	} else {
		item.BlurHash = hash
	}
	item.DominantColor = DominantColor(img)

	source := item.SourceFile
	if source == "" {
		source = item.File
	}
	info, err := ReadExif(source)
	if err == nil && !info.Empty() {
		if err := mergeAdditional(item, "exif", info); err != nil {
			logger.Warn("exif merge failed", logging.Error(err))
		}
	}
}

func (e *Extractor) describeTagged(item *queue.Item, logger *slog.Logger) {
	source := item.SourceFile
	if source == "" {
		source = item.File
	}
	tags, err := ReadTags(source)
	if err != nil || tags.Empty() {
		return
	}
	if err := mergeAdditional(item, "tags", tags); err != nil {
		logger.Warn("tag merge failed", logging.Error(err))
	}
}

// describeVideo records container duration and frame dimensions from an
// ffprobe inspection of the working file.
func (e *Extractor) describeVideo(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	probed, err := ffprobe.Inspect(ctx, e.cfg.Codec.FFprobeBinary, item.File)
	if err != nil {
		logger.Debug("ffprobe inspection unavailable", logging.Error(err))
		return
	}
	details := map[string]any{}
	if duration := probed.DurationSeconds(); duration > 0 {
		details["duration_seconds"] = duration
	}
	if width, height, ok := probed.VideoDimensions(); ok {
		details["width"] = width
		details["height"] = height
	}
	if len(details) == 0 {
		return
	}
	if err := mergeAdditional(item, "video", details); err != nil {
		logger.Warn("video metadata merge failed", logging.Error(err))
	}
}

// mergeAdditional sets key in the item's additional-data payload without
// disturbing caller-provided fields. Existing keys win.
func mergeAdditional(item *queue.Item, key string, value any) error {
	payload := map[string]any{}
	if strings.TrimSpace(item.AdditionalJSON) != "" {
		if err := json.Unmarshal([]byte(item.AdditionalJSON), &payload); err != nil {
			return err
		}
	}
	if _, exists := payload[key]; exists {
		return nil
	}
	payload[key] = value
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	item.AdditionalJSON = string(encoded)
	return nil
}

var _ stage.Handler = (*Extractor)(nil)
