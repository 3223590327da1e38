package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure. Kinds are stable strings so they can be
// persisted alongside a queue item and compared by callers.
type Kind string

const (
	KindEmptyFile         Kind = "empty_file"
	KindSizeAboveLimit    Kind = "size_above_limit"
	KindMimeNotAllowed    Kind = "mime_type_not_allowed_for_user"
	KindMimeUnsupported   Kind = "mime_type_not_supported"
	KindTranscodingFailed Kind = "transcoding_failed"
	KindCancelledManually Kind = "upload_cancelled_manually"
	KindGeneral           Kind = "general"
)

// validationKinds short-circuit before any transcoder runs and are not
// retryable: the same input would fail the same check again.
var validationKinds = map[Kind]struct{}{
	KindEmptyFile:       {},
	KindSizeAboveLimit:  {},
	KindMimeNotAllowed:  {},
	KindMimeUnsupported: {},
}

// ItemError carries a classified failure together with the offending file.
// It is the only error type the pipeline hands to caller-supplied callbacks.
type ItemError struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	File      string
	Cause     error
}

func (e *ItemError) Error() string {
	parts := make([]string, 0, 3)
	if e.Stage != "" {
		parts = append(parts, e.Stage)
	}
	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "pipeline failure"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, detail)
}

func (e *ItemError) Unwrap() error { return e.Cause }

// Wrap builds an ItemError tagged with the provided kind. The stage and
// operation give log context; message is the human-readable summary surfaced
// to callers.
func Wrap(kind Kind, stage, operation, message string, err error) error {
	if kind == "" {
		kind = KindGeneral
	}
	return &ItemError{
		Kind:      kind,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WrapFile is Wrap with the offending file path attached.
func WrapFile(kind Kind, stage, operation, message, file string, err error) error {
	wrapped := Wrap(kind, stage, operation, message, err).(*ItemError)
	wrapped.File = file
	return wrapped
}

// Details extracts the structured failure information from err. Errors that
// are not ItemErrors are reported as KindGeneral with the raw message.
func Details(err error) ItemError {
	if err == nil {
		return ItemError{Kind: KindGeneral}
	}
	var ie *ItemError
	if errors.As(err, &ie) {
		return *ie
	}
	return ItemError{Kind: KindGeneral, Message: err.Error(), Cause: err}
}

// ErrorKind returns the classification for err.
func ErrorKind(err error) Kind {
	return Details(err).Kind
}

// Retryable reports whether the caller may re-enter the item at the start of
// the pipeline after this failure. Validation failures and user-initiated
// cancellations are final; transcode and upload failures may succeed on a
// second attempt.
func Retryable(err error) bool {
	kind := ErrorKind(err)
	if kind == KindCancelledManually {
		return false
	}
	_, validation := validationKinds[kind]
	return !validation
}

// IsValidation reports whether err was raised by a pre-transcode check.
func IsValidation(err error) bool {
	_, ok := validationKinds[ErrorKind(err)]
	return ok
}

// UserCancelled builds the error recorded when a user cancels or rejects an
// item. It is deliberate, not a failure worth alerting on.
func UserCancelled(stage, file string) error {
	return WrapFile(KindCancelledManually, stage, "", "cancelled by user", file, nil)
}
