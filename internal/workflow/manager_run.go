package workflow

import (
	"context"
	"errors"
	"time"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
)

// Start begins background processing. The dispatcher goroutine owns all
// status transitions out of the waiting states; item goroutines own the
// transitions within an item's active phase.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.stop = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	// A previous run may have died mid-stage; return those items to the
	// start of their phase so the dispatcher picks them up again.
	if count, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("reset of interrupted items failed", logging.Error(err))
	} else if count > 0 {
		m.logger.Info("interrupted items returned to their queue",
			logging.Int64("count", count))
	}

	go m.dispatch(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight item
// goroutines to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stop := m.stop
	m.running = false
	m.stop = nil
	m.mu.Unlock()

	stop()
	m.wg.Wait()
}

// Running reports whether the dispatcher is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) dispatch(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		progressed := false
		if m.validatePending(ctx) {
			progressed = true
		}
		if m.launchTranscodes(ctx) {
			progressed = true
		}
		if m.settleTranscoded(ctx) {
			progressed = true
		}
		if m.launchUploads(ctx) {
			progressed = true
		}
		m.sweepBatches(ctx)

		if progressed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-m.kick:
		case <-time.After(m.pollInterval):
		}
	}
}

// validatePending runs the validation stage inline for every pending item.
// Validation is quick and never blocks on external tools, so it does not
// consume the transcode budget.
func (m *Manager) validatePending(ctx context.Context) bool {
	progressed := false
	for {
		item, err := m.store.NextForStatuses(ctx, queue.StatusPending)
		if err != nil {
			m.waitAfterStoreError(ctx, err)
			return progressed
		}
		if item == nil {
			return progressed
		}

		itemCtx := m.itemContext(ctx, item)
		if err := runHandler(itemCtx, m.stages.Validator, item); err != nil {
			m.failItem(ctx, item, err)
			progressed = true
			continue
		}
		if err := m.transition(ctx, item, queue.EventValidated); err != nil && !errors.Is(err, queue.ErrStatusConflict) {
			m.failItem(ctx, item, err)
		}
		progressed = true
	}
}

// launchTranscodes starts item goroutines for validated items while the
// concurrency budget allows.
func (m *Manager) launchTranscodes(ctx context.Context) bool {
	progressed := false
	for m.transcodeCount() < m.budget {
		item, err := m.store.NextForStatuses(ctx, queue.StatusPendingTranscoding)
		if err != nil {
			m.waitAfterStoreError(ctx, err)
			return progressed
		}
		if item == nil {
			return progressed
		}
		if err := m.transition(ctx, item, queue.EventTranscodeStart); err != nil {
			if errors.Is(err, queue.ErrStatusConflict) {
				progressed = true
				continue
			}
			m.failItem(ctx, item, err)
			continue
		}
		m.launchRun(ctx, item, phaseTranscode, m.runTranscodePhase)
		progressed = true
	}
	return progressed
}

// settleTranscoded resumes items a previous run left settled at transcoded
// but not yet routed. The approval gate is re-applied from the persisted
// files; unheld items flow straight into the upload phase. Items whose
// goroutine is still inside that window are left to it.
func (m *Manager) settleTranscoded(ctx context.Context) bool {
	items, err := m.store.List(ctx, queue.StatusTranscoded)
	if err != nil {
		m.waitAfterStoreError(ctx, err)
		return false
	}
	progressed := false
	for _, item := range items {
		if m.isActive(item.ID) {
			continue
		}
		held, err := m.applyApprovalGate(ctx, item)
		if err != nil {
			if errors.Is(err, queue.ErrStatusConflict) {
				continue
			}
			m.failItem(ctx, item, err)
			progressed = true
			continue
		}
		if held {
			progressed = true
			continue
		}
		if err := m.transition(ctx, item, queue.EventUploadStart); err != nil {
			if errors.Is(err, queue.ErrStatusConflict) {
				continue
			}
			m.failItem(ctx, item, err)
			progressed = true
			continue
		}
		m.launchRun(ctx, item, phaseUpload, m.runUploadPhase)
		progressed = true
	}
	return progressed
}

// launchUploads starts the upload phase for every approved item. Uploads
// are not bounded by the transcode budget; the remote endpoint applies its
// own backpressure.
func (m *Manager) launchUploads(ctx context.Context) bool {
	progressed := false
	for {
		item, err := m.store.NextForStatuses(ctx, queue.StatusApproved)
		if err != nil {
			m.waitAfterStoreError(ctx, err)
			return progressed
		}
		if item == nil {
			return progressed
		}
		if err := m.transition(ctx, item, queue.EventUploadStart); err != nil {
			if errors.Is(err, queue.ErrStatusConflict) {
				progressed = true
				continue
			}
			m.failItem(ctx, item, err)
			continue
		}
		m.launchRun(ctx, item, phaseUpload, m.runUploadPhase)
		progressed = true
	}
}

// launchRun registers an item goroutine so CancelItem can trip its context.
func (m *Manager) launchRun(ctx context.Context, item *queue.Item, kind runPhase, phase func(context.Context, *queue.Item)) {
	itemCtx, cancel := context.WithCancel(m.itemContext(ctx, item))
	run := &itemRun{phase: kind, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.active[item.ID] = run
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(run.done)
		defer cancel()
		defer func() {
			m.mu.Lock()
			if m.active[item.ID] == run {
				delete(m.active, item.ID)
			}
			m.mu.Unlock()
		}()
		phase(itemCtx, item)
	}()
}

func (m *Manager) isActive(itemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[itemID]
	return ok
}

// transcodeCount reports how many item goroutines currently hold a slot of
// the transcode budget. A run flips to the upload phase once its transcode
// work has settled, releasing the slot.
func (m *Manager) transcodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, run := range m.active {
		if run.phase == phaseTranscode {
			count++
		}
	}
	return count
}

func (m *Manager) setRunPhase(itemID string, phase runPhase) {
	m.mu.Lock()
	if run, ok := m.active[itemID]; ok {
		run.phase = phase
	}
	m.mu.Unlock()
}

func (m *Manager) waitAfterStoreError(ctx context.Context, err error) {
	m.logger.Error("queue fetch failed", logging.Error(err))
	retry := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = 5 * time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(retry):
	}
}
