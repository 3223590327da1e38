package workflow

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mediaforge/internal/codec"
	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/metadata"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/stage"
	"mediaforge/internal/thumbnails"
	"mediaforge/internal/transcode"
	"mediaforge/internal/upload"
	"mediaforge/internal/validation"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Validator  stage.Handler
	Transcoder stage.Handler
	Metadata   stage.Handler
	Thumbnails stage.Handler
	Uploader   stage.Handler
}

// Manager is the queue orchestrator. It owns the dispatch loop, the
// per-item goroutines, the caller-supplied callbacks, and the batch
// bookkeeping. Instances are independent; there is no package state.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	files  *scratch.Registry
	codecs *codec.Registry
	logger *slog.Logger
	stages StageSet

	pollInterval time.Duration
	budget       int
	httpClient   *http.Client

	// kick wakes the dispatcher without waiting out the poll interval.
	kick chan struct{}

	mu        sync.Mutex
	running   bool
	stop      func()
	wg        sync.WaitGroup
	active    map[string]*itemRun
	callbacks map[string]*callbackSet
	batches   map[string]*batchState
}

// runPhase names which budget an item goroutine currently occupies.
type runPhase string

const (
	phaseTranscode runPhase = "transcode"
	phaseUpload    runPhase = "upload"
)

// itemRun tracks one in-flight item goroutine.
type itemRun struct {
	phase  runPhase
	cancel func()
	done   chan struct{}
	// userCancelled distinguishes an explicit CancelItem from a manager
	// shutdown; only the former records a cancellation on the item.
	userCancelled bool
}

// NewManager constructs a manager with the default stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, files *scratch.Registry, logger *slog.Logger) *Manager {
	codecs := codec.NewRegistry(cfg.Codec)
	stages := StageSet{
		Validator:  validation.NewValidator(cfg, store, logger),
		Transcoder: transcode.NewTranscoder(cfg, store, files, codecs, logger),
		Metadata:   metadata.NewExtractor(cfg, logger),
		Thumbnails: thumbnails.NewThumbnailer(cfg, files, codecs, logger),
		Uploader:   upload.NewUploader(cfg, logger),
	}
	return NewManagerWithStages(cfg, store, files, codecs, logger, stages)
}

// NewManagerWithStages allows injecting stage handlers (used in tests).
func NewManagerWithStages(cfg *config.Config, store *queue.Store, files *scratch.Registry, codecs *codec.Registry, logger *slog.Logger, stages StageSet) *Manager {
	managerLogger := logger
	if managerLogger == nil {
		managerLogger = logging.NewNop()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = time.Second
	}
	budget := cfg.Workflow.TranscodeConcurrency
	if budget <= 0 {
		budget = 1
	}
	timeout := time.Duration(cfg.Upload.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		files:        files,
		codecs:       codecs,
		logger:       managerLogger.With(logging.String("component", "workflow")),
		stages:       stages,
		pollInterval: poll,
		budget:       budget,
		httpClient:   &http.Client{Timeout: timeout},
		kick:         make(chan struct{}, 1),
		active:       make(map[string]*itemRun),
		callbacks:    make(map[string]*callbackSet),
		batches:      make(map[string]*batchState),
	}
}

// Kick nudges the dispatcher to look for work immediately.
func (m *Manager) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}
