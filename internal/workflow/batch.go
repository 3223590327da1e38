package workflow

import (
	"context"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
)

// batchState tracks one batch of related items. The success hook fires
// exactly once, when every member is terminal and at least one uploaded,
// and the entry is discarded as soon as the batch settles either way.
// Members may join while the batch is live; a joiner arriving after the
// batch settled starts a fresh batch under the same id.
type batchState struct {
	members   map[string]struct{}
	onSuccess func(batchID string)
}

func (m *Manager) joinBatch(batchID, itemID string, onSuccess func(string)) {
	if batchID == "" {
		return
	}
	m.mu.Lock()
	state, ok := m.batches[batchID]
	if !ok {
		state = &batchState{members: make(map[string]struct{})}
		m.batches[batchID] = state
	}
	state.members[itemID] = struct{}{}
	if state.onSuccess == nil {
		state.onSuccess = onSuccess
	}
	m.mu.Unlock()
}

// noteBatchProgress re-evaluates the item's batch after a terminal event.
func (m *Manager) noteBatchProgress(ctx context.Context, item *queue.Item) {
	if item.BatchID == "" {
		return
	}
	m.evaluateBatch(ctx, item.BatchID)
}

// sweepBatches re-evaluates every live batch. The dispatcher runs this each
// cycle so a batch whose final member lookup failed transiently is not lost.
func (m *Manager) sweepBatches(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.batches))
	for id := range m.batches {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.evaluateBatch(ctx, id)
	}
}

// evaluateBatch settles the batch once every member is terminal: the entry
// is removed and, when at least one member uploaded, the success hook runs.
func (m *Manager) evaluateBatch(ctx context.Context, batchID string) {
	m.mu.Lock()
	state, ok := m.batches[batchID]
	if !ok {
		m.mu.Unlock()
		return
	}
	memberIDs := make([]string, 0, len(state.members))
	for id := range state.members {
		memberIDs = append(memberIDs, id)
	}
	m.mu.Unlock()

	uploaded := 0
	for _, id := range memberIDs {
		member, err := m.store.GetByID(ctx, id)
		if err != nil {
			// Entry stays live; the next sweep retries.
			m.logger.Warn("batch member lookup failed", logging.Error(err))
			return
		}
		if member == nil {
			continue
		}
		if !member.IsTerminal() {
			return
		}
		if member.Status == queue.StatusUploaded {
			uploaded++
		}
	}

	m.mu.Lock()
	current, ok := m.batches[batchID]
	if !ok || current != state || len(state.members) != len(memberIDs) {
		// Settled elsewhere or a late joiner arrived; re-evaluate later.
		m.mu.Unlock()
		return
	}
	delete(m.batches, batchID)
	hook := state.onSuccess
	m.mu.Unlock()

	if uploaded > 0 && hook != nil {
		hook(batchID)
	}
}
