package upload

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/services"
	"mediaforge/internal/stage"
)

// Uploader is the final pipeline stage. It hands the working file to the
// remote endpoint exactly once per attempt and merges the server's
// attachment record back onto the item.
type Uploader struct {
	cfg    *config.Config
	client Client
	logger *slog.Logger
}

// NewUploader constructs the upload stage handler with the configured
// HTTP client.
func NewUploader(cfg *config.Config, logger *slog.Logger) *Uploader {
	return NewUploaderWithClient(cfg, NewClient(cfg), logger)
}

// NewUploaderWithClient allows injecting the remote client (used in tests).
func NewUploaderWithClient(cfg *config.Config, client Client, logger *slog.Logger) *Uploader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "upload"))
	}
	return &Uploader{cfg: cfg, client: client, logger: stageLogger}
}

func (u *Uploader) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.File) == "" {
		return services.Wrap(
			services.KindGeneral, "uploading", "validate inputs",
			"No working file present for upload", nil)
	}
	return nil
}

func (u *Uploader) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, u.logger)

	req := Request{
		File:           item.File,
		MimeType:       item.MimeType,
		BlurHash:       item.BlurHash,
		DominantColor:  item.DominantColor,
		AdditionalJSON: item.AdditionalJSON,
		Thumbnails:     thumbnailPaths(item),
		AttachmentID:   item.SourceAttachmentID,
	}

	var attachment queue.Attachment
	var err error
	if item.SourceAttachmentID != 0 {
		attachment, err = u.client.SideloadToServer(ctx, req)
	} else {
		attachment, err = u.client.UploadToServer(ctx, req)
	}
	if err != nil {
		if ctx.Err() != nil {
			return services.UserCancelled("uploading", item.File)
		}
		return services.WrapFile(
			services.KindGeneral, "uploading", "send file",
			"The upload endpoint rejected the file", item.File, err)
	}

	if err := item.MergeAttachment(attachment); err != nil {
		return services.Wrap(
			services.KindGeneral, "uploading", "record attachment",
			"Could not record the server's attachment response", err)
	}
	if attachment.PosterID != 0 {
		item.GeneratedPosterID = attachment.PosterID
	}
	logger.Info("upload complete",
		logging.Int64("attachment_id", attachment.ID),
		logging.String("url", attachment.URL))
	return nil
}

func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(u.cfg.Upload.Endpoint) == "" {
		return stage.Unhealthy("upload", "no endpoint configured")
	}
	return stage.Healthy("upload")
}

// thumbnailPaths reads the variant record the thumbnail stage left in the
// additional-data payload.
func thumbnailPaths(item *queue.Item) map[string]string {
	if strings.TrimSpace(item.AdditionalJSON) == "" {
		return nil
	}
	var payload struct {
		Thumbnails map[string]string `json:"thumbnails"`
	}
	if err := json.Unmarshal([]byte(item.AdditionalJSON), &payload); err != nil {
		return nil
	}
	return payload.Thumbnails
}

var _ stage.Handler = (*Uploader)(nil)
