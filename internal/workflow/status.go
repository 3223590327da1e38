package workflow

import (
	"context"

	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	ActiveItems int
	QueueStats  map[queue.Status]int
	QueueHealth queue.HealthSummary
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	running := m.running
	activeItems := len(m.active)
	m.mu.Unlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	health, err := m.store.Health(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue health", logging.Error(err))
	}

	handlers := map[string]stage.Handler{
		"validation":  m.stages.Validator,
		"transcoding": m.stages.Transcoder,
		"metadata":    m.stages.Metadata,
		"thumbnails":  m.stages.Thumbnails,
		"uploading":   m.stages.Uploader,
	}
	stageHealth := make(map[string]stage.Health, len(handlers))
	for name, handler := range handlers {
		if handler == nil {
			continue
		}
		stageHealth[name] = handler.HealthCheck(ctx)
	}

	return StatusSummary{
		Running:     running,
		ActiveItems: activeItems,
		QueueStats:  stats,
		QueueHealth: health,
		StageHealth: stageHealth,
	}
}
