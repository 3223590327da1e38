package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending            Status = "pending"
	StatusPendingTranscoding Status = "pending_transcoding"
	StatusTranscoding        Status = "transcoding"
	StatusTranscoded         Status = "transcoded"
	StatusPendingApproval    Status = "pending_approval"
	StatusApproved           Status = "approved"
	StatusUploading          Status = "uploading"
	StatusUploaded           Status = "uploaded"
	StatusCancelled          Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusPendingTranscoding,
	StatusTranscoding,
	StatusTranscoded,
	StatusPendingApproval,
	StatusApproved,
	StatusUploading,
	StatusUploaded,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusUploaded:  {},
	StatusCancelled: {},
}

var processingStatuses = map[Status]struct{}{
	StatusTranscoding: {},
	StatusUploading:   {},
}

// Kind selects which stage chain an item runs.
type Kind string

const (
	KindUpload    Kind = "upload"    // brand-new media
	KindOptimize  Kind = "optimize"  // re-process an existing attachment
	KindMute      Kind = "mute"      // strip audio from an existing video
	KindSubtitles Kind = "subtitles" // generate subtitles for an existing video
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends an item's lifecycle.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Attachment is the server-side media record populated progressively as
// stages complete and fully once the upload succeeds.
type Attachment struct {
	ID                int64    `json:"id,omitempty"`
	URL               string   `json:"url,omitempty"`
	MimeType          string   `json:"mimeType,omitempty"`
	FileSize          int64    `json:"fileSize,omitempty"`
	BlurHash          string   `json:"blurHash,omitempty"`
	DominantColor     string   `json:"dominantColor,omitempty"`
	PosterID          int64    `json:"posterId,omitempty"`
	MissingImageSizes []string `json:"missingImageSizes,omitempty"`
}

// Comparison holds the before/after data shown while an item awaits approval.
type Comparison struct {
	OldURL          string  `json:"oldUrl"`
	OldSize         int64   `json:"oldSize"`
	NewURL          string  `json:"newUrl"`
	NewSize         int64   `json:"newSize"`
	SizeDiffPercent float64 `json:"sizeDiffPercent"`
}

// NewComparison computes the size delta for an approval decision. A positive
// percentage means the transcoded file is smaller.
func NewComparison(oldURL string, oldSize int64, newURL string, newSize int64) Comparison {
	comparison := Comparison{
		OldURL:  oldURL,
		OldSize: oldSize,
		NewURL:  newURL,
		NewSize: newSize,
	}
	if oldSize > 0 {
		comparison.SizeDiffPercent = (1 - float64(newSize)/float64(oldSize)) * 100
	}
	return comparison
}

// Item represents one unit of work moving through the pipeline.
type Item struct {
	ID                 string
	Kind               Kind
	Status             Status
	File               string // current working file
	SourceFile         string // original, unmodified input
	MimeType           string
	SourceURL          string
	SourceAttachmentID int64
	BatchID            string
	AdditionalJSON     string // opaque payload forwarded to the upload client
	AttachmentJSON     string
	ComparisonJSON     string // present only while status == pending_approval
	BlurHash           string
	DominantColor      string
	GeneratedPosterID  int64
	ErrorKind          string
	ErrorMessage       string
	ErrorFile          string
	Retryable          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsTerminal reports whether the item has finished its lifecycle.
func (i *Item) IsTerminal() bool {
	return IsTerminal(i.Status)
}

// Attachment decodes the progressively populated attachment record.
func (i *Item) Attachment() (Attachment, error) {
	if strings.TrimSpace(i.AttachmentJSON) == "" {
		return Attachment{}, nil
	}
	var attachment Attachment
	if err := json.Unmarshal([]byte(i.AttachmentJSON), &attachment); err != nil {
		return Attachment{}, fmt.Errorf("decode attachment: %w", err)
	}
	return attachment, nil
}

// SetAttachment replaces the stored attachment record.
func (i *Item) SetAttachment(attachment Attachment) error {
	data, err := json.Marshal(attachment)
	if err != nil {
		return fmt.Errorf("encode attachment: %w", err)
	}
	i.AttachmentJSON = string(data)
	return nil
}

// MergeAttachment overlays non-zero fields onto the stored attachment record.
// Extracted metadata set by earlier stages is never overwritten with blanks.
func (i *Item) MergeAttachment(update Attachment) error {
	current, err := i.Attachment()
	if err != nil {
		return err
	}
	if update.ID != 0 {
		current.ID = update.ID
	}
	if update.URL != "" {
		current.URL = update.URL
	}
	if update.MimeType != "" {
		current.MimeType = update.MimeType
	}
	if update.FileSize != 0 {
		current.FileSize = update.FileSize
	}
	if update.BlurHash != "" {
		current.BlurHash = update.BlurHash
	}
	if update.DominantColor != "" {
		current.DominantColor = update.DominantColor
	}
	if update.PosterID != 0 {
		current.PosterID = update.PosterID
	}
	if len(update.MissingImageSizes) > 0 {
		current.MissingImageSizes = update.MissingImageSizes
	}
	return i.SetAttachment(current)
}

// Comparison decodes the pending-approval comparison data.
func (i *Item) Comparison() (Comparison, bool, error) {
	if strings.TrimSpace(i.ComparisonJSON) == "" {
		return Comparison{}, false, nil
	}
	var comparison Comparison
	if err := json.Unmarshal([]byte(i.ComparisonJSON), &comparison); err != nil {
		return Comparison{}, false, fmt.Errorf("decode comparison: %w", err)
	}
	return comparison, true, nil
}

// SetComparison stores comparison data for the approval gate.
func (i *Item) SetComparison(comparison Comparison) error {
	data, err := json.Marshal(comparison)
	if err != nil {
		return fmt.Errorf("encode comparison: %w", err)
	}
	i.ComparisonJSON = string(data)
	return nil
}

// ClearComparison removes comparison data once the approval decision lands.
func (i *Item) ClearComparison() {
	i.ComparisonJSON = ""
}

// SetError records a classified failure on the item.
func (i *Item) SetError(kind, message, file string, retryable bool) {
	i.ErrorKind = kind
	i.ErrorMessage = message
	i.ErrorFile = file
	i.Retryable = retryable
}

// ClearError resets failure fields, used when retrying.
func (i *Item) ClearError() {
	i.ErrorKind = ""
	i.ErrorMessage = ""
	i.ErrorFile = ""
	i.Retryable = false
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total            int
	Pending          int
	Processing       int
	AwaitingApproval int
	Uploaded         int
	Cancelled        int
}
