package workflow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaforge/internal/queue"
	"mediaforge/internal/testsupport"
	"mediaforge/internal/workflow"
)

func TestAddItemFromURLDownloadsIntoScratch(t *testing.T) {
	payload := []byte("not really a png but plenty for a download test")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(payload)
	}))
	t.Cleanup(server.Close)

	h := newHarness(t)
	item, err := h.manager.AddItemFromURL(context.Background(), server.URL+"/media/photo.png?sig=abc", workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddItemFromURL failed: %v", err)
	}

	if item.SourceURL == "" || !strings.HasPrefix(item.SourceURL, server.URL) {
		t.Fatalf("expected source URL recorded, got %q", item.SourceURL)
	}
	if filepath.Ext(item.File) != ".png" {
		t.Fatalf("expected .png scratch file, got %s", item.File)
	}
	if !h.files.Owns(item.ID, item.File) {
		t.Fatal("expected download to be owned by the item")
	}
	data, err := os.ReadFile(item.File)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("downloaded payload does not match served payload")
	}
}

func TestAddItemFromURLEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 2<<20))
	}))
	t.Cleanup(server.Close)

	h := newHarness(t, testsupport.WithMaxFileSizeMiB(1))
	if _, err := h.manager.AddItemFromURL(context.Background(), server.URL+"/big.bin", workflow.AddOptions{}); err == nil {
		t.Fatal("expected oversized download to be rejected")
	}

	created, released := h.files.Counters()
	if created != released {
		t.Fatalf("expected rejected download cleaned up, created=%d released=%d", created, released)
	}
}

func TestAddItemFromURLRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	h := newHarness(t)
	if _, err := h.manager.AddItemFromURL(context.Background(), server.URL+"/missing.png", workflow.AddOptions{}); err == nil {
		t.Fatal("expected 404 download to fail")
	}
}

func TestOptimizeExistingItemRequiresAttachment(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager.OptimizeExistingItem(context.Background(), 0, "/tmp/file.png", workflow.AddOptions{}); err == nil {
		t.Fatal("expected missing attachment id to be rejected")
	}
}

func TestExistingItemKinds(t *testing.T) {
	h := newHarness(t)
	source := h.sourcePNG(t, "existing.png")

	optimize, err := h.manager.OptimizeExistingItem(context.Background(), 41, source, workflow.AddOptions{})
	if err != nil {
		t.Fatalf("OptimizeExistingItem failed: %v", err)
	}
	if optimize.Kind != queue.KindOptimize || optimize.SourceAttachmentID != 41 {
		t.Fatalf("unexpected optimize item: kind=%s attachment=%d", optimize.Kind, optimize.SourceAttachmentID)
	}

	mute, err := h.manager.MuteExistingVideo(context.Background(), 42, source, workflow.AddOptions{})
	if err != nil {
		t.Fatalf("MuteExistingVideo failed: %v", err)
	}
	if mute.Kind != queue.KindMute {
		t.Fatalf("expected mute kind, got %s", mute.Kind)
	}

	subtitles, err := h.manager.AddSubtitlesForExistingVideo(context.Background(), 43, source, workflow.AddOptions{})
	if err != nil {
		t.Fatalf("AddSubtitlesForExistingVideo failed: %v", err)
	}
	if subtitles.Kind != queue.KindSubtitles {
		t.Fatalf("expected subtitles kind, got %s", subtitles.Kind)
	}

	found, err := h.manager.GetItemByAttachmentID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetItemByAttachmentID failed: %v", err)
	}
	if found == nil || found.ID != mute.ID {
		t.Fatal("expected lookup by attachment id to find the mute item")
	}
}

func TestIsPendingApprovalByAttachmentID(t *testing.T) {
	h := newHarness(t, testsupport.WithRequireApproval())
	h.transcoder.executeHook = func(_ context.Context, item *queue.Item) error {
		out := h.files.Create(item.ID, ".webp")
		testsupport.WriteFile(t, out, 100)
		item.File = out
		return nil
	}
	h.start(t)

	item, err := h.manager.OptimizeExistingItem(context.Background(), 77, h.sourcePNG(t, "held.png"), workflow.AddOptions{})
	if err != nil {
		t.Fatalf("OptimizeExistingItem failed: %v", err)
	}
	waitForStatus(t, h.store, item.ID, queue.StatusPendingApproval)

	held, err := h.manager.IsPendingApprovalByAttachmentID(context.Background(), 77)
	if err != nil {
		t.Fatalf("IsPendingApprovalByAttachmentID failed: %v", err)
	}
	if !held {
		t.Fatal("expected attachment 77 to be held for approval")
	}
	held, err = h.manager.IsPendingApprovalByAttachmentID(context.Background(), 78)
	if err != nil {
		t.Fatalf("IsPendingApprovalByAttachmentID failed: %v", err)
	}
	if held {
		t.Fatal("expected unknown attachment to not be held")
	}
}
