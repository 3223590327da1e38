package queue

import (
	"errors"
	"fmt"
)

// Event is an input to the item state machine.
type Event string

const (
	EventValidated      Event = "validated"       // validation checks passed
	EventTranscodeStart Event = "transcode_start" // concurrency budget granted
	EventTranscodeDone  Event = "transcode_done"  // transcode + extraction settled
	EventHold           Event = "hold"            // approval preference intercepted
	EventApprove        Event = "approve"         // user accepted the trade-off
	EventUploadStart    Event = "upload_start"    // handing off to the upload client
	EventUploadDone     Event = "upload_done"     // attachment persisted remotely
	EventCancel         Event = "cancel"          // failure or explicit cancellation
	EventRetry          Event = "retry"           // explicit caller retry of this item
)

// ErrIllegalTransition is returned when an event is not defined for the
// item's current status. Callers must treat it as a rejection, never coerce.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the total definition of the state machine. Any (status,
// event) pair absent here is illegal.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventValidated: StatusPendingTranscoding,
		EventCancel:    StatusCancelled,
	},
	StatusPendingTranscoding: {
		EventTranscodeStart: StatusTranscoding,
		EventCancel:         StatusCancelled,
	},
	StatusTranscoding: {
		EventTranscodeDone: StatusTranscoded,
		EventCancel:        StatusCancelled,
	},
	StatusTranscoded: {
		EventHold:        StatusPendingApproval,
		EventUploadStart: StatusUploading,
		EventCancel:      StatusCancelled,
	},
	StatusPendingApproval: {
		EventApprove: StatusApproved,
		EventCancel:  StatusCancelled,
	},
	StatusApproved: {
		EventUploadStart: StatusUploading,
		EventCancel:      StatusCancelled,
	},
	StatusUploading: {
		EventUploadDone: StatusUploaded,
		EventCancel:     StatusCancelled,
	},
	StatusUploaded: {},
	StatusCancelled: {
		EventRetry: StatusPending,
	},
}

// Next computes the successor status for (status, event). Unknown statuses and
// undefined pairs return ErrIllegalTransition.
func Next(status Status, event Event) (Status, error) {
	events, ok := transitions[status]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, status)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("%w: %s does not accept %s", ErrIllegalTransition, status, event)
	}
	return next, nil
}

// CanCancel reports whether a cancel event is legal for the status.
func CanCancel(status Status) bool {
	_, err := Next(status, EventCancel)
	return err == nil
}
