package workflow

import (
	"context"
	"fmt"

	"mediaforge/internal/queue"
)

// GetItems returns queue items, optionally filtered by status. Items are
// snapshots; mutating them does not affect the queue.
func (m *Manager) GetItems(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	return m.store.List(ctx, statuses...)
}

// GetItem returns the item with the given id, or nil when it does not exist.
func (m *Manager) GetItem(ctx context.Context, id string) (*queue.Item, error) {
	return m.store.GetByID(ctx, id)
}

// GetItemByAttachmentID returns the item working against the given server
// attachment, or nil when no such item exists.
func (m *Manager) GetItemByAttachmentID(ctx context.Context, attachmentID int64) (*queue.Item, error) {
	return m.store.GetByAttachmentID(ctx, attachmentID)
}

// IsUploading reports whether any item is still moving through the
// pipeline. Held items count: they will resume once approved.
func (m *Manager) IsUploading(ctx context.Context) (bool, error) {
	items, err := m.store.List(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if !item.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// IsUploadingByID reports whether the given item is still in flight.
// Unknown ids count as not uploading.
func (m *Manager) IsUploadingByID(ctx context.Context, id string) (bool, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return item != nil && !item.IsTerminal(), nil
}

// IsUploadingByURL reports whether an item sourced from the given URL is
// still in flight.
func (m *Manager) IsUploadingByURL(ctx context.Context, sourceURL string) (bool, error) {
	items, err := m.store.List(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.SourceURL == sourceURL && !item.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// IsPendingApprovalByAttachmentID reports whether the item working against
// the given attachment is held at the approval gate.
func (m *Manager) IsPendingApprovalByAttachmentID(ctx context.Context, attachmentID int64) (bool, error) {
	item, err := m.store.GetByAttachmentID(ctx, attachmentID)
	if err != nil {
		return false, err
	}
	return item != nil && item.Status == queue.StatusPendingApproval, nil
}

// GetComparisonDataForApproval returns the before/after comparison recorded
// when the item was held. It errors when the item is unknown or not held.
func (m *Manager) GetComparisonDataForApproval(ctx context.Context, id string) (queue.Comparison, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return queue.Comparison{}, err
	}
	if item == nil {
		return queue.Comparison{}, fmt.Errorf("unknown item %s", id)
	}
	if item.Status != queue.StatusPendingApproval {
		return queue.Comparison{}, fmt.Errorf("item %s is not awaiting approval", id)
	}
	comparison, ok, err := item.Comparison()
	if err != nil {
		return queue.Comparison{}, err
	}
	if !ok {
		return queue.Comparison{}, fmt.Errorf("item %s has no pending comparison", id)
	}
	return comparison, nil
}
