package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/media"
	"mediaforge/internal/queue"
	"mediaforge/internal/services"
	"mediaforge/internal/stage"
)

// Validator is the first pipeline stage. It rejects inputs that should
// never reach a transcoder: empty files, files above the size limit, and
// mime types outside the system or per-user allow-lists. Failures here are
// final; the workflow surfaces them without a retry offer.
type Validator struct {
	cfg    *config.Config
	store  *queue.Store
	policy *media.Policy
	logger *slog.Logger
}

// NewValidator constructs the validation stage handler.
func NewValidator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Validator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "validation"))
	}
	return &Validator{
		cfg:    cfg,
		store:  store,
		policy: media.NewPolicy(cfg.Validation.AllowedMimeTypes, cfg.Validation.UserMimeTypes),
		logger: stageLogger,
	}
}

func (v *Validator) Prepare(ctx context.Context, item *queue.Item) error {
	item.ClearError()
	return nil
}

func (v *Validator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, v.logger)

	info, err := os.Stat(item.File)
	if err != nil {
		return services.WrapFile(
			services.KindGeneral, "validation", "stat input",
			"Input file is not readable", item.File, err)
	}
	if info.Size() == 0 {
		return services.WrapFile(
			services.KindEmptyFile, "validation", "check size",
			"File is empty", item.File, nil)
	}
	if limit := v.cfg.MaxFileSizeBytes(); limit > 0 && info.Size() > limit {
		return services.WrapFile(
			services.KindSizeAboveLimit, "validation", "check size",
			fmt.Sprintf("File exceeds the %d MiB limit", v.cfg.Validation.MaxFileSizeMiB),
			item.File, nil)
	}

	mimeType, err := media.DetectFile(item.File)
	if err != nil {
		return services.WrapFile(
			services.KindGeneral, "validation", "detect mime type",
			"Could not determine the file's media type", item.File, err)
	}
	item.MimeType = mimeType

	if !v.policy.SystemAllows(mimeType) {
		return services.WrapFile(
			services.KindMimeUnsupported, "validation", "check mime type",
			fmt.Sprintf("Media type %s is not supported", mimeType), item.File, nil)
	}
	if !v.policy.UserAllows(mimeType) {
		return services.WrapFile(
			services.KindMimeNotAllowed, "validation", "check mime type",
			fmt.Sprintf("Media type %s is not allowed for this user", mimeType), item.File, nil)
	}

	logger.Info("input accepted",
		logging.String("mime_type", mimeType),
		logging.Int64("size_bytes", info.Size()))
	return nil
}

func (v *Validator) HealthCheck(ctx context.Context) stage.Health {
	if v.cfg == nil {
		return stage.Unhealthy("validation", "missing configuration")
	}
	if len(v.cfg.Validation.AllowedMimeTypes) == 0 {
		return stage.Unhealthy("validation", "empty mime allow-list rejects everything")
	}
	return stage.Healthy("validation")
}

var _ stage.Handler = (*Validator)(nil)
