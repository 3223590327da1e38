package workflow

import "mediaforge/internal/queue"

// Callbacks are the caller-supplied hooks for one item. They live in the
// manager only; nothing here is persisted, so a process restart drops them.
type Callbacks struct {
	// OnChange fires after every committed status transition.
	OnChange func(item *queue.Item)
	// OnSuccess fires at most once per attempt, when the item reaches
	// uploaded. A retry re-arms it.
	OnSuccess func(item *queue.Item)
	// OnError fires at most once per attempt, when the item fails or is
	// cancelled. A retry re-arms it.
	OnError func(item *queue.Item, err error)
}

// callbackSet pairs the hooks with their at-most-once flags.
type callbackSet struct {
	cb           Callbacks
	successFired bool
	errorFired   bool
}

func (m *Manager) registerCallbacks(itemID string, cb Callbacks) {
	if cb.OnChange == nil && cb.OnSuccess == nil && cb.OnError == nil {
		return
	}
	m.mu.Lock()
	m.callbacks[itemID] = &callbackSet{cb: cb}
	m.mu.Unlock()
}

// rearmCallbacks resets the once-flags for a retried item so the new
// attempt reports its own outcome.
func (m *Manager) rearmCallbacks(itemID string) {
	m.mu.Lock()
	if set, ok := m.callbacks[itemID]; ok {
		set.successFired = false
		set.errorFired = false
	}
	m.mu.Unlock()
}

func (m *Manager) fireChange(item *queue.Item) {
	m.mu.Lock()
	set, ok := m.callbacks[item.ID]
	var fn func(*queue.Item)
	if ok {
		fn = set.cb.OnChange
	}
	m.mu.Unlock()
	if fn != nil {
		snapshot := *item
		fn(&snapshot)
	}
}

func (m *Manager) fireSuccess(item *queue.Item) {
	m.mu.Lock()
	set, ok := m.callbacks[item.ID]
	var fn func(*queue.Item)
	if ok && !set.successFired && set.cb.OnSuccess != nil {
		set.successFired = true
		fn = set.cb.OnSuccess
	}
	m.mu.Unlock()
	if fn != nil {
		snapshot := *item
		fn(&snapshot)
	}
}

func (m *Manager) fireError(item *queue.Item, err error) {
	m.mu.Lock()
	set, ok := m.callbacks[item.ID]
	var fn func(*queue.Item, error)
	if ok && !set.errorFired && set.cb.OnError != nil {
		set.errorFired = true
		fn = set.cb.OnError
	}
	m.mu.Unlock()
	if fn != nil {
		snapshot := *item
		fn(&snapshot, err)
	}
}
