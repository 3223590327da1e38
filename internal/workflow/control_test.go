package workflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"mediaforge/internal/queue"
	"mediaforge/internal/services"
	"mediaforge/internal/testsupport"
	"mediaforge/internal/workflow"
)

func TestCancelIdleItem(t *testing.T) {
	h := newHarness(t)
	// The manager is not started, so the item sits at pending.

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "idle.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := h.manager.CancelItem(context.Background(), item.ID); err != nil {
		t.Fatalf("CancelItem failed: %v", err)
	}
	cancelled, err := h.store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if cancelled.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.ErrorKind != string(services.KindCancelledManually) {
		t.Fatalf("expected manual-cancel kind, got %q", cancelled.ErrorKind)
	}
	if cancelled.Retryable {
		t.Fatal("expected manual cancellation to be non-retryable")
	}

	// Cancelling a terminal item is a no-op.
	if err := h.manager.CancelItem(context.Background(), item.ID); err != nil {
		t.Fatalf("repeat CancelItem failed: %v", err)
	}
}

func TestCancelUnknownItem(t *testing.T) {
	h := newHarness(t)
	if err := h.manager.CancelItem(context.Background(), "no-such-id"); err == nil {
		t.Fatal("expected error for unknown item")
	}
}

func TestCancelActiveItem(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{})
	h.transcoder.executeHook = func(ctx context.Context, _ *queue.Item) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	h.start(t)

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "active.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	<-started

	if err := h.manager.CancelItem(context.Background(), item.ID); err != nil {
		t.Fatalf("CancelItem failed: %v", err)
	}
	cancelled := waitForStatus(t, h.store, item.ID, queue.StatusCancelled)
	if cancelled.ErrorKind != string(services.KindCancelledManually) {
		t.Fatalf("expected manual-cancel kind, got %q", cancelled.ErrorKind)
	}
}

func TestRetryRearmsCallbacks(t *testing.T) {
	h := newHarness(t)

	var attempts atomic.Int32
	h.uploader.executeHook = func(context.Context, *queue.Item) error {
		if attempts.Add(1) == 1 {
			return errors.New("endpoint unavailable")
		}
		return nil
	}

	var successCalls, errorCalls atomic.Int32
	h.start(t)

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "retry.png"), workflow.AddOptions{
		Callbacks: workflow.Callbacks{
			OnSuccess: func(*queue.Item) { successCalls.Add(1) },
			OnError:   func(*queue.Item, error) { errorCalls.Add(1) },
		},
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	failed := waitForStatus(t, h.store, item.ID, queue.StatusCancelled)
	if !failed.Retryable {
		t.Fatal("expected upload failure to be retryable")
	}
	waitFor(t, "error callback", func() bool { return errorCalls.Load() == 1 })
	if successCalls.Load() != 0 {
		t.Fatal("success callback fired before upload succeeded")
	}

	retried, err := h.manager.Retry(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", retried.Status)
	}
	if retried.File != retried.SourceFile {
		t.Fatal("expected retry to restore the source file")
	}
	if retried.ErrorKind != "" || retried.ErrorMessage != "" {
		t.Fatal("expected retry to clear the recorded error")
	}

	waitForStatus(t, h.store, item.ID, queue.StatusUploaded)
	waitFor(t, "success callback", func() bool { return successCalls.Load() == 1 })
	if errorCalls.Load() != 1 {
		t.Fatalf("expected one error callback total, got %d", errorCalls.Load())
	}
}

func TestRetryRejectsNonCancelledItem(t *testing.T) {
	h := newHarness(t)

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "pending.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := h.manager.Retry(context.Background(), item.ID); !errors.Is(err, queue.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestRejectApproval(t *testing.T) {
	h := newHarness(t, testsupport.WithRequireApproval())
	h.transcoder.executeHook = func(_ context.Context, item *queue.Item) error {
		out := h.files.Create(item.ID, ".webp")
		testsupport.WriteFile(t, out, 100)
		item.File = out
		return nil
	}
	h.start(t)

	source := h.sourcePNG(t, "reject.png")
	item, err := h.manager.AddItem(context.Background(), source, workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	waitForStatus(t, h.store, item.ID, queue.StatusPendingApproval)

	if err := h.manager.RejectApproval(context.Background(), item.ID); err != nil {
		t.Fatalf("RejectApproval failed: %v", err)
	}
	rejected := waitForStatus(t, h.store, item.ID, queue.StatusCancelled)
	if rejected.File != source {
		t.Fatalf("expected working file restored to %s, got %s", source, rejected.File)
	}
	if rejected.ComparisonJSON != "" {
		t.Fatal("expected comparison data cleared on reject")
	}
	if rejected.ErrorKind != string(services.KindCancelledManually) {
		t.Fatalf("expected manual-cancel kind, got %q", rejected.ErrorKind)
	}

	// Reject only applies to held items.
	if err := h.manager.RejectApproval(context.Background(), item.ID); !errors.Is(err, queue.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestSelectorsTrackLifecycle(t *testing.T) {
	h := newHarness(t)

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "track.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	uploading, err := h.manager.IsUploading(context.Background())
	if err != nil {
		t.Fatalf("IsUploading failed: %v", err)
	}
	if !uploading {
		t.Fatal("expected pending item to count as uploading")
	}
	byID, err := h.manager.IsUploadingByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("IsUploadingByID failed: %v", err)
	}
	if !byID {
		t.Fatal("expected pending item to count as uploading by id")
	}

	h.start(t)
	waitForStatus(t, h.store, item.ID, queue.StatusUploaded)

	uploading, err = h.manager.IsUploading(context.Background())
	if err != nil {
		t.Fatalf("IsUploading failed: %v", err)
	}
	if uploading {
		t.Fatal("expected no in-flight items after upload")
	}
	byID, err = h.manager.IsUploadingByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("IsUploadingByID failed: %v", err)
	}
	if byID {
		t.Fatal("expected uploaded item to no longer count as uploading")
	}
}

func TestCancelHeldItemClearsComparison(t *testing.T) {
	h := newHarness(t, testsupport.WithRequireApproval())

	h.transcoder.executeHook = func(_ context.Context, item *queue.Item) error {
		out := h.files.Create(item.ID, ".webp")
		testsupport.WriteFile(t, out, 100)
		item.File = out
		return nil
	}
	h.start(t)

	item, err := h.manager.AddItem(context.Background(), h.sourcePNG(t, "held-cancel.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	waitForStatus(t, h.store, item.ID, queue.StatusPendingApproval)

	if err := h.manager.CancelItem(context.Background(), item.ID); err != nil {
		t.Fatalf("CancelItem failed: %v", err)
	}
	cancelled := waitForStatus(t, h.store, item.ID, queue.StatusCancelled)
	if cancelled.ComparisonJSON != "" {
		t.Fatalf("cancelled item still carries comparison data: %s", cancelled.ComparisonJSON)
	}
	if cancelled.ErrorKind != string(services.KindCancelledManually) {
		t.Fatalf("expected manual-cancel kind, got %q", cancelled.ErrorKind)
	}
	if _, err := h.manager.GetComparisonDataForApproval(context.Background(), item.ID); err == nil {
		t.Fatal("expected comparison lookup to fail for a cancelled item")
	}
}
