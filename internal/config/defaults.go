package config

const (
	defaultScratchDir           = "~/.local/share/mediaforge/scratch"
	defaultLogDir               = "~/.local/share/mediaforge/logs"
	defaultQueuePath            = "~/.local/share/mediaforge/queue.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultImageLibrary         = "imaging"
	defaultThumbnailGeneration  = "client"
	defaultTranscodeConcurrency = 2
	defaultQueuePollInterval    = 1
	defaultErrorRetryInterval   = 5
	defaultUploadTimeout        = 120
	defaultMaxFileSizeMiB       = 512
	defaultBigImageSizeMiB      = 10
	defaultBigVideoSizeMiB      = 100
	defaultJPEGQuality          = 82
	defaultWebPQuality          = 86
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			QueuePath:  defaultQueuePath,
		},
		Upload: Upload{
			RequestTimeout: defaultUploadTimeout,
		},
		Preferences: Preferences{
			RequireApproval:     false,
			OptimizeOnUpload:    true,
			ImageLibrary:        defaultImageLibrary,
			ThumbnailGeneration: defaultThumbnailGeneration,
			OutputFormats: map[string]string{
				"image/heic": "jpeg",
				"image/heif": "jpeg",
				"image/gif":  "webm",
				"image/png":  "webp",
			},
			Quality: map[string]int{
				"jpeg": defaultJPEGQuality,
				"webp": defaultWebPQuality,
			},
			BigImageSizeMiB: defaultBigImageSizeMiB,
			BigVideoSizeMiB: defaultBigVideoSizeMiB,
		},
		Validation: Validation{
			MaxFileSizeMiB: defaultMaxFileSizeMiB,
			AllowedMimeTypes: []string{
				"image/jpeg", "image/png", "image/gif", "image/webp",
				"image/heic", "image/heif", "image/bmp", "image/tiff",
				"video/mp4", "video/webm", "video/quicktime",
				"audio/mpeg", "audio/ogg", "audio/wav", "audio/flac", "audio/mp4",
				"application/pdf",
			},
		},
		Workflow: Workflow{
			TranscodeConcurrency: defaultTranscodeConcurrency,
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
		},
		Thumbnails: Thumbnails{
			Sizes: defaultThumbnailSizes(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultThumbnailSizes() []ThumbnailSize {
	return []ThumbnailSize{
		{Name: "thumbnail", Width: 150, Height: 150, Crop: true},
		{Name: "medium", Width: 300, Height: 300},
		{Name: "large", Width: 1024, Height: 1024},
	}
}
