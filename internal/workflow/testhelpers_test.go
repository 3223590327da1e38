package workflow_test

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"mediaforge/internal/codec"
	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/scratch"
	"mediaforge/internal/stage"
	"mediaforge/internal/testsupport"
	"mediaforge/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(context.Context, *queue.Item) error
	executeHook func(context.Context, *queue.Item) error
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(ctx context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		return s.prepareHook(ctx, item)
	}
	return nil
}

func (s *stubStage) Execute(ctx context.Context, item *queue.Item) error {
	if s.executeHook != nil {
		return s.executeHook(ctx, item)
	}
	return nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

type testHarness struct {
	cfg        *config.Config
	store      *queue.Store
	files      *scratch.Registry
	manager    *workflow.Manager
	validator  *stubStage
	transcoder *stubStage
	metadata   *stubStage
	thumbnails *stubStage
	uploader   *stubStage
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t)
	files, err := scratch.NewRegistry(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("scratch.NewRegistry: %v", err)
	}

	h := &testHarness{
		cfg:        cfg,
		store:      store,
		files:      files,
		validator:  newStubStage("validation"),
		transcoder: newStubStage("transcoding"),
		metadata:   newStubStage("metadata"),
		thumbnails: newStubStage("thumbnails"),
		uploader:   newStubStage("uploading"),
	}
	h.manager = workflow.NewManagerWithStages(cfg, store, files, codec.NewRegistry(cfg.Codec), logging.NewNop(), workflow.StageSet{
		Validator:  h.validator,
		Transcoder: h.transcoder,
		Metadata:   h.metadata,
		Thumbnails: h.thumbnails,
		Uploader:   h.uploader,
	})
	return h
}

func (h *testHarness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(h.manager.Stop)
}

// sourcePNG writes a small real PNG into the harness temp area so stages and
// the approval gate have an actual file to stat.
func (h *testHarness) sourcePNG(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(h.cfg), name)
	testsupport.WritePNG(t, path, 32, 32, color.RGBA{R: 0xc8, G: 0x28, B: 0x28, A: 0xff})
	return path
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			item, _ := store.GetByID(context.Background(), id)
			got := queue.Status("missing")
			if item != nil {
				got = item.Status
			}
			t.Fatalf("timed out waiting for %s to reach %s (last status %s)", id, want, got)
		default:
		}
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
