package workflow

import (
	"context"
	"fmt"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/services"
)

// CancelItem aborts an item wherever it is in the pipeline. Cancelling a
// terminal item is a no-op, so repeated calls are safe. An active item's
// context is tripped and its goroutine records the cancellation; idle items
// are moved to cancelled directly. Losing the idle-path race to the
// dispatcher retries against the run it just launched.
func (m *Manager) CancelItem(ctx context.Context, id string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := m.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("unknown item %s", id)
		}
		if item.IsTerminal() {
			return nil
		}

		m.mu.Lock()
		run, active := m.active[id]
		if active {
			run.userCancelled = true
		}
		m.mu.Unlock()
		if active {
			run.cancel()
			select {
			case <-run.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}

		m.failItem(ctx, item, services.UserCancelled(stageNameFor(item.Status), item.File))
		// failItem backs off when the item moved concurrently; the next
		// pass sees either the cancelled row or the newly launched run.
	}
}

// Retry re-enters a cancelled item at the start of the pipeline under its
// original id, with its callbacks re-armed and its working file restored to
// the untouched source.
func (m *Manager) Retry(ctx context.Context, id string) (*queue.Item, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("unknown item %s", id)
	}
	next, err := queue.Next(item.Status, queue.EventRetry)
	if err != nil {
		return nil, err
	}

	item.Status = next
	item.File = item.SourceFile
	item.ClearError()
	item.ClearComparison()
	item.BlurHash = ""
	item.DominantColor = ""
	item.GeneratedPosterID = 0
	if err := m.store.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("persist retry: %w", err)
	}

	m.rearmCallbacks(item.ID)
	m.fireChange(item)
	m.logger.Info("item retried", logging.String(logging.FieldItemID, item.ID))
	m.Kick()
	return item, nil
}

// GrantApproval accepts the held trade-off and releases the item toward
// upload.
func (m *Manager) GrantApproval(ctx context.Context, id string) error {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("unknown item %s", id)
	}
	item.ClearComparison()
	if err := m.transition(ctx, item, queue.EventApprove); err != nil {
		return err
	}
	m.Kick()
	return nil
}

// RejectApproval declines the held trade-off. The working file reverts to
// the source and the item is cancelled with the manual-cancel kind, exactly
// as if the user had cancelled it.
func (m *Manager) RejectApproval(ctx context.Context, id string) error {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("unknown item %s", id)
	}
	if item.Status != queue.StatusPendingApproval {
		return fmt.Errorf("%w: %s does not accept reject", queue.ErrIllegalTransition, item.Status)
	}

	item.File = item.SourceFile
	item.ClearComparison()
	m.failItem(ctx, item, services.UserCancelled("approval", item.File))
	return nil
}

// stageNameFor maps a waiting status to the stage label recorded on a
// cancellation raised outside a running stage.
func stageNameFor(status queue.Status) string {
	switch status {
	case queue.StatusPending:
		return "validation"
	case queue.StatusPendingTranscoding, queue.StatusTranscoding, queue.StatusTranscoded:
		return "transcoding"
	case queue.StatusPendingApproval, queue.StatusApproved:
		return "approval"
	case queue.StatusUploading:
		return "uploading"
	default:
		return "workflow"
	}
}
