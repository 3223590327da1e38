package queue

import (
	"errors"
	"testing"
)

var allEvents = []Event{
	EventValidated,
	EventTranscodeStart,
	EventTranscodeDone,
	EventHold,
	EventApprove,
	EventUploadStart,
	EventUploadDone,
	EventCancel,
	EventRetry,
}

func TestNextIsTotalOverKnownStatuses(t *testing.T) {
	for _, status := range AllStatuses() {
		for _, event := range allEvents {
			next, err := Next(status, event)
			if err != nil {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("Next(%s, %s) returned unexpected error: %v", status, event, err)
				}
				continue
			}
			if _, ok := ParseStatus(string(next)); !ok {
				t.Errorf("Next(%s, %s) produced unknown status %q", status, event, next)
			}
		}
	}
}

func TestHappyPathWithoutApproval(t *testing.T) {
	chain := []Event{EventValidated, EventTranscodeStart, EventTranscodeDone, EventUploadStart, EventUploadDone}
	status := StatusPending
	for _, event := range chain {
		next, err := Next(status, event)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", status, event, err)
		}
		status = next
	}
	if status != StatusUploaded {
		t.Fatalf("expected uploaded, got %s", status)
	}
}

func TestApprovalDetour(t *testing.T) {
	status := StatusTranscoded
	for _, event := range []Event{EventHold, EventApprove, EventUploadStart, EventUploadDone} {
		next, err := Next(status, event)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", status, event, err)
		}
		status = next
	}
	if status != StatusUploaded {
		t.Fatalf("expected uploaded, got %s", status)
	}
}

func TestCancelReachableFromEveryNonTerminalStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		if IsTerminal(status) {
			if status == StatusUploaded && CanCancel(status) {
				t.Error("uploaded must not accept cancel")
			}
			continue
		}
		if !CanCancel(status) {
			t.Errorf("expected cancel to be legal from %s", status)
		}
	}
}

func TestUploadedIsFinal(t *testing.T) {
	for _, event := range allEvents {
		if _, err := Next(StatusUploaded, event); err == nil {
			t.Fatalf("uploaded should reject %s", event)
		}
	}
}

func TestRetryOnlyFromCancelled(t *testing.T) {
	next, err := Next(StatusCancelled, EventRetry)
	if err != nil {
		t.Fatalf("retry from cancelled: %v", err)
	}
	if next != StatusPending {
		t.Fatalf("retry should return to pending, got %s", next)
	}
	for _, status := range AllStatuses() {
		if status == StatusCancelled {
			continue
		}
		if _, err := Next(status, EventRetry); err == nil {
			t.Errorf("retry should be illegal from %s", status)
		}
	}
}

func TestNextRejectsUnknownStatus(t *testing.T) {
	if _, err := Next(Status("limbo"), EventCancel); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}
