package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
)

// AddOptions carries the optional knobs for queue entry points.
type AddOptions struct {
	BatchID        string
	AdditionalJSON string
	Callbacks      Callbacks
	// OnBatchSuccess fires once when the item's batch completes with at
	// least one upload. Ignored without a BatchID.
	OnBatchSuccess func(batchID string)
}

// AddItem queues a local file for the full upload pipeline.
func (m *Manager) AddItem(ctx context.Context, file string, opts AddOptions) (*queue.Item, error) {
	return m.enqueue(ctx, queue.KindUpload, file, "", 0, opts)
}

// AddItemFromURL downloads source into the scratch directory and queues
// the result. The download honors the configured size limit.
func (m *Manager) AddItemFromURL(ctx context.Context, source string, opts AddOptions) (*queue.Item, error) {
	id := uuid.NewString()
	file, err := m.download(ctx, id, source)
	if err != nil {
		m.files.ReleaseAll(id)
		return nil, err
	}
	return m.enqueueWithID(ctx, id, queue.KindUpload, file, source, 0, opts)
}

// OptimizeExistingItem re-runs the optimization pipeline for an attachment
// that already exists remotely. source is the attachment's current payload,
// either a local path or a URL to fetch.
func (m *Manager) OptimizeExistingItem(ctx context.Context, attachmentID int64, source string, opts AddOptions) (*queue.Item, error) {
	return m.enqueueExisting(ctx, queue.KindOptimize, attachmentID, source, opts)
}

// MuteExistingVideo queues an attachment's video for audio-track removal.
func (m *Manager) MuteExistingVideo(ctx context.Context, attachmentID int64, source string, opts AddOptions) (*queue.Item, error) {
	return m.enqueueExisting(ctx, queue.KindMute, attachmentID, source, opts)
}

// AddSubtitlesForExistingVideo queues subtitle-track extraction for an
// attachment's video.
func (m *Manager) AddSubtitlesForExistingVideo(ctx context.Context, attachmentID int64, source string, opts AddOptions) (*queue.Item, error) {
	return m.enqueueExisting(ctx, queue.KindSubtitles, attachmentID, source, opts)
}

func (m *Manager) enqueueExisting(ctx context.Context, kind queue.Kind, attachmentID int64, source string, opts AddOptions) (*queue.Item, error) {
	if attachmentID == 0 {
		return nil, errors.New("attachment id required")
	}
	id := uuid.NewString()
	file := source
	if isURL(source) {
		downloaded, err := m.download(ctx, id, source)
		if err != nil {
			m.files.ReleaseAll(id)
			return nil, err
		}
		file = downloaded
	}
	sourceURL := ""
	if isURL(source) {
		sourceURL = source
	}
	return m.enqueueWithID(ctx, id, kind, file, sourceURL, attachmentID, opts)
}

func (m *Manager) enqueue(ctx context.Context, kind queue.Kind, file, sourceURL string, attachmentID int64, opts AddOptions) (*queue.Item, error) {
	return m.enqueueWithID(ctx, uuid.NewString(), kind, file, sourceURL, attachmentID, opts)
}

func (m *Manager) enqueueWithID(ctx context.Context, id string, kind queue.Kind, file, sourceURL string, attachmentID int64, opts AddOptions) (*queue.Item, error) {
	if strings.TrimSpace(file) == "" {
		return nil, errors.New("file path required")
	}
	item := &queue.Item{
		ID:                 id,
		Kind:               kind,
		Status:             queue.StatusPending,
		File:               file,
		SourceFile:         file,
		SourceURL:          sourceURL,
		SourceAttachmentID: attachmentID,
		BatchID:            strings.TrimSpace(opts.BatchID),
		AdditionalJSON:     strings.TrimSpace(opts.AdditionalJSON),
	}
	if err := m.store.Insert(ctx, item); err != nil {
		return nil, err
	}

	m.registerCallbacks(item.ID, opts.Callbacks)
	m.joinBatch(item.BatchID, item.ID, opts.OnBatchSuccess)

	m.logger.Info("item queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("kind", string(kind)),
		logging.String("file", file))
	m.Kick()
	return item, nil
}

// download fetches source into a scratch file owned by id, rejecting
// payloads over the configured size limit.
func (m *Manager) download(ctx context.Context, id, source string) (string, error) {
	if !isURL(source) {
		return "", fmt.Errorf("not a URL: %s", source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("download source: endpoint returned %d", resp.StatusCode)
	}

	path := m.files.Create(id, filepath.Ext(strings.SplitN(source, "?", 2)[0]))
	out, err := os.Create(path)
	if err != nil {
		m.files.Release(id, path)
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer out.Close()

	limit := m.cfg.MaxFileSizeBytes()
	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	written, err := io.Copy(out, reader)
	if err != nil {
		m.files.Release(id, path)
		return "", fmt.Errorf("write download: %w", err)
	}
	if limit > 0 && written > limit {
		m.files.Release(id, path)
		return "", fmt.Errorf("download exceeds the %d MiB limit", m.cfg.Validation.MaxFileSizeMiB)
	}
	return path, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
