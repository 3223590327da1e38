package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	QueuePath  string `toml:"queue_path"`
}

// Upload contains configuration for the remote attachment endpoint.
type Upload struct {
	Endpoint       string `toml:"endpoint"`
	AuthToken      string `toml:"auth_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Preferences mirrors the user-facing processing settings. Keys match the
// preference names exposed to callers.
type Preferences struct {
	RequireApproval     bool              `toml:"require_approval"`
	OptimizeOnUpload    bool              `toml:"optimize_on_upload"`
	ImageLibrary        string            `toml:"image_library"` // "imaging" or "vips"
	ThumbnailGeneration string            `toml:"thumbnail_generation"` // "server", "client", or "smart"
	OutputFormats       map[string]string `toml:"output_formats"` // input mime -> output format
	Quality             map[string]int    `toml:"quality"`        // output format -> 1..100
	BigImageSizeMiB     int64             `toml:"big_image_size_threshold_mib"`
	BigVideoSizeMiB     int64             `toml:"big_video_size_threshold_mib"`
}

// Validation contains input acceptance settings.
type Validation struct {
	MaxFileSizeMiB   int64    `toml:"max_file_size_mib"`
	AllowedMimeTypes []string `toml:"allowed_mime_types"`
	UserMimeTypes    []string `toml:"user_mime_types"` // empty means no per-user restriction
}

// Workflow contains orchestrator tuning.
type Workflow struct {
	TranscodeConcurrency int `toml:"transcode_concurrency"`
	QueuePollInterval    int `toml:"queue_poll_interval"`
	ErrorRetryInterval   int `toml:"error_retry_interval"`
}

// ThumbnailSize describes one resized variant to generate.
type ThumbnailSize struct {
	Name   string `toml:"name"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Crop   bool   `toml:"crop"`
}

// Thumbnails contains the variant size table.
type Thumbnails struct {
	Sizes []ThumbnailSize `toml:"sizes"`
}

// Codec contains external tool binary overrides.
type Codec struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	VipsBinary    string `toml:"vips_binary"`
	HeifBinary    string `toml:"heif_binary"`
	PDFBinary     string `toml:"pdf_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediaforge.
//
// Configuration sections by subsystem:
//   - Paths: scratch and log directories
//   - Upload: remote attachment endpoint and credentials
//   - Preferences: user-facing processing choices (approval, formats, quality)
//   - Validation: mime allow-lists and size limits
//   - Workflow: concurrency budget and polling intervals
//   - Thumbnails: variant size table
//   - Codec: external tool binary overrides
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Upload      Upload      `toml:"upload"`
	Preferences Preferences `toml:"preferences"`
	Validation  Validation  `toml:"validation"`
	Workflow    Workflow    `toml:"workflow"`
	Thumbnails  Thumbnails  `toml:"thumbnails"`
	Codec       Codec       `toml:"codec"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediaforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the scratch and log directories along with the
// queue database's parent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ScratchDir, c.Paths.LogDir}
	if c.Paths.QueuePath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.QueuePath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MaxFileSizeBytes returns the validation size limit in bytes (0 = unlimited).
func (c *Config) MaxFileSizeBytes() int64 {
	return c.Validation.MaxFileSizeMiB << 20
}

// BigImageSizeBytes returns the optimize threshold for images in bytes.
func (c *Config) BigImageSizeBytes() int64 {
	return c.Preferences.BigImageSizeMiB << 20
}

// BigVideoSizeBytes returns the optimize threshold for videos in bytes.
func (c *Config) BigVideoSizeBytes() int64 {
	return c.Preferences.BigVideoSizeMiB << 20
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.QueuePath, err = expandPath(c.Paths.QueuePath); err != nil {
		return fmt.Errorf("paths.queue_path: %w", err)
	}
	c.Preferences.ImageLibrary = strings.ToLower(strings.TrimSpace(c.Preferences.ImageLibrary))
	if c.Preferences.ImageLibrary == "" {
		c.Preferences.ImageLibrary = defaultImageLibrary
	}
	c.Preferences.ThumbnailGeneration = strings.ToLower(strings.TrimSpace(c.Preferences.ThumbnailGeneration))
	if c.Preferences.ThumbnailGeneration == "" {
		c.Preferences.ThumbnailGeneration = defaultThumbnailGeneration
	}
	if c.Workflow.TranscodeConcurrency <= 0 {
		c.Workflow.TranscodeConcurrency = defaultTranscodeConcurrency
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Upload.RequestTimeout <= 0 {
		c.Upload.RequestTimeout = defaultUploadTimeout
	}
	if len(c.Thumbnails.Sizes) == 0 {
		c.Thumbnails.Sizes = defaultThumbnailSizes()
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := fileExists(expanded)
		return expanded, exists, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	exists, err := fileExists(defaultPath)
	return defaultPath, exists, err
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
