package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/services"
	"mediaforge/internal/stage"
)

// itemContext annotates ctx with the item and a fresh request id for
// correlated logging across stage boundaries.
func (m *Manager) itemContext(ctx context.Context, item *queue.Item) context.Context {
	ctx = services.WithItemID(ctx, item.ID)
	return services.WithRequestID(ctx, uuid.NewString())
}

// runHandler executes one stage against the item: Prepare then Execute.
func runHandler(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	if handler == nil {
		return errors.New("stage handler unavailable")
	}
	if err := handler.Prepare(ctx, item); err != nil {
		return err
	}
	return handler.Execute(ctx, item)
}

// transition applies event to the item, persists the result, and fires the
// change callback. Illegal transitions are returned untouched. The persist
// is guarded on the status the caller saw: a concurrent cancel between
// fetch and transition surfaces as queue.ErrStatusConflict instead of
// silently resurrecting the item.
func (m *Manager) transition(ctx context.Context, item *queue.Item, event queue.Event) error {
	from := item.Status
	next, err := queue.Next(from, event)
	if err != nil {
		return err
	}
	item.Status = next
	if err := m.store.UpdateGuarded(ctx, item, from); err != nil {
		item.Status = from
		if errors.Is(err, queue.ErrStatusConflict) {
			return err
		}
		return fmt.Errorf("persist %s transition: %w", event, err)
	}
	m.fireChange(item)
	return nil
}

// runTranscodePhase drives an item through transcode, metadata, and
// thumbnail work inside the transcoding status window, settles it to
// transcoded, and either holds it for approval or flows straight into the
// upload phase.
func (m *Manager) runTranscodePhase(ctx context.Context, item *queue.Item) {
	logger := logging.WithContext(ctx, m.logger)

	for _, handler := range m.transcodeChain(item.Kind) {
		if err := runHandler(ctx, handler, item); err != nil {
			m.failRun(ctx, item, err)
			return
		}
		if err := ctx.Err(); err != nil {
			m.failRun(ctx, item, err)
			return
		}
		if err := m.store.Update(ctx, item); err != nil {
			m.failRun(ctx, item, fmt.Errorf("persist stage result: %w", err))
			return
		}
	}

	if err := m.transition(ctx, item, queue.EventTranscodeDone); err != nil {
		m.failRun(ctx, item, err)
		return
	}

	held, err := m.applyApprovalGate(ctx, item)
	if err != nil {
		m.failRun(ctx, item, err)
		return
	}
	if held {
		logger.Info("item held for approval",
			logging.String("file", item.File))
		return
	}

	if err := m.transition(ctx, item, queue.EventUploadStart); err != nil {
		m.failRun(ctx, item, err)
		return
	}
	m.setRunPhase(item.ID, phaseUpload)
	m.runUploadPhase(ctx, item)
}

// failRun classifies a failure inside an item goroutine. An explicit
// CancelItem becomes a recorded manual cancellation; a manager shutdown
// leaves the item untouched for the next run to pick up.
func (m *Manager) failRun(ctx context.Context, item *queue.Item, cause error) {
	if ctx.Err() != nil {
		if m.runWasCancelled(item.ID) {
			m.failItem(ctx, item, services.UserCancelled(stageNameFor(item.Status), item.File))
		}
		return
	}
	m.failItem(ctx, item, cause)
}

func (m *Manager) runWasCancelled(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.active[itemID]
	return ok && run.userCancelled
}

// transcodeChain selects the stage sequence for a pipeline kind. Mute only
// re-encodes; subtitles only extracts the track; the full pipelines also
// run metadata and thumbnails.
func (m *Manager) transcodeChain(kind queue.Kind) []stage.Handler {
	switch kind {
	case queue.KindMute:
		return []stage.Handler{m.stages.Transcoder}
	case queue.KindSubtitles:
		return []stage.Handler{m.stages.Transcoder}
	default:
		return []stage.Handler{m.stages.Transcoder, m.stages.Metadata, m.stages.Thumbnails}
	}
}

// applyApprovalGate holds the item in pending_approval when the approval
// preference is set and the transcode actually changed the payload.
func (m *Manager) applyApprovalGate(ctx context.Context, item *queue.Item) (bool, error) {
	if !m.cfg.Preferences.RequireApproval {
		return false, nil
	}
	oldSize, newSize := fileSize(item.SourceFile), fileSize(item.File)
	if item.File == item.SourceFile || newSize == oldSize {
		return false, nil
	}
	comparison := queue.NewComparison(item.SourceFile, oldSize, item.File, newSize)
	if err := item.SetComparison(comparison); err != nil {
		return false, err
	}
	if err := m.transition(ctx, item, queue.EventHold); err != nil {
		return false, err
	}
	return true, nil
}

// runUploadPhase sends the working file to the remote endpoint and settles
// the item to uploaded.
func (m *Manager) runUploadPhase(ctx context.Context, item *queue.Item) {
	if err := runHandler(ctx, m.stages.Uploader, item); err != nil {
		m.failRun(ctx, item, err)
		return
	}
	if err := m.transition(ctx, item, queue.EventUploadDone); err != nil {
		m.failRun(ctx, item, err)
		return
	}
	m.files.ReleaseAll(item.ID)
	m.fireSuccess(item)
	m.noteBatchProgress(ctx, item)
}

// failItem records the classified failure, moves the item to cancelled,
// frees everything but the source file (a retry needs it), and fires the
// error callback at most once.
func (m *Manager) failItem(ctx context.Context, item *queue.Item, cause error) {
	details := services.Details(cause)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(cause.Error())
	}
	file := details.File
	if file == "" {
		file = item.File
	}
	item.SetError(string(details.Kind), message, file, services.Retryable(cause))
	item.ClearComparison()

	prev := item.Status
	if queue.CanCancel(item.Status) {
		next, _ := queue.Next(item.Status, queue.EventCancel)
		item.Status = next
	}
	// Failures during shutdown still need to be persisted.
	persistCtx := ctx
	if persistCtx.Err() != nil {
		persistCtx = context.Background()
	}
	if err := m.store.UpdateGuarded(persistCtx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStatusConflict) {
			// The item moved concurrently; whoever moved it owns its fate.
			m.logger.Warn("item changed status before failure could be recorded",
				logging.String(logging.FieldItemID, item.ID))
			return
		}
		m.logger.Error("failed to persist item failure", logging.Error(err))
	}

	m.files.ReleaseSuperseded(item.ID, item.SourceFile)

	level := m.logger.Error
	if details.Kind == services.KindCancelledManually {
		level = m.logger.Info
	}
	level("item failed",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String("error_message", message),
		logging.Bool("retryable", item.Retryable))

	m.fireChange(item)
	m.fireError(item, cause)
	m.noteBatchProgress(persistCtx, item)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
