package testsupport

import (
	"path/filepath"
	"testing"

	"mediaforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.QueuePath = filepath.Join(base, "queue.db")
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithUploadEndpoint points the config at a test attachment endpoint.
func WithUploadEndpoint(endpoint, token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.Endpoint = endpoint
		cfg.Upload.AuthToken = token
	}
}

// WithTranscodeConcurrency overrides the transcode budget.
func WithTranscodeConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.TranscodeConcurrency = n
	}
}

// WithRequireApproval enables the approval gate on the test config.
func WithRequireApproval() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Preferences.RequireApproval = true
	}
}

// WithMaxFileSizeMiB overrides the validation size limit.
func WithMaxFileSizeMiB(mib int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Validation.MaxFileSizeMiB = mib
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}
