package stage

import (
	"context"

	"mediaforge/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare runs quick, fallible setup before the status transition is
// committed; Execute does the work and mutates the item in place.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
