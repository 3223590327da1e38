package daemon_test

import (
	"context"
	"testing"

	"mediaforge/internal/daemon"
	"mediaforge/internal/logging"
	"mediaforge/internal/scratch"
	"mediaforge/internal/testsupport"
	"mediaforge/internal/workflow"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t)
	files, err := scratch.NewRegistry(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("scratch.NewRegistry: %v", err)
	}
	wf := workflow.NewManager(cfg, store, files, logging.NewNop())
	d, err := daemon.New(cfg, store, logging.NewNop(), wf)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running daemon")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	status := d.Status(context.Background())
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected running status, got %+v", status)
	}
	if status.LockFilePath == "" {
		t.Fatal("expected lock file path in status")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped daemon")
	}
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonRejectsMissingDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected constructor error")
	}
}
