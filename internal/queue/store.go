package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStatusConflict reports that a guarded update lost a race: the stored
// status no longer matched the caller's snapshot.
var ErrStatusConflict = errors.New("item status changed concurrently")

// Store manages queue persistence backed by SQLite. An empty path selects
// an in-memory database; the CLI passes a real path so interrupted items
// survive a restart.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes the queue database and applies the schema. An empty path
// selects the in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// An in-memory sqlite database exists per connection; the pool must not
	// grow beyond one or connections would see different databases.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert persists a new item. CreatedAt/UpdatedAt are stamped here.
func (s *Store) Insert(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (
            id, kind, status, file, source_file, mime_type, source_url,
            source_attachment_id, batch_id, additional_json, attachment_json,
            comparison_json, blur_hash, dominant_color, generated_poster_id,
            error_kind, error_message, error_file, retryable, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Kind,
		item.Status,
		nullableString(item.File),
		nullableString(item.SourceFile),
		nullableString(item.MimeType),
		nullableString(item.SourceURL),
		item.SourceAttachmentID,
		nullableString(item.BatchID),
		nullableString(item.AdditionalJSON),
		nullableString(item.AttachmentJSON),
		nullableString(item.ComparisonJSON),
		nullableString(item.BlurHash),
		nullableString(item.DominantColor),
		item.GeneratedPosterID,
		nullableString(item.ErrorKind),
		nullableString(item.ErrorMessage),
		nullableString(item.ErrorFile),
		boolToInt(item.Retryable),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	affected, err := s.updateItem(ctx, item, "")
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update item: no item with id %s", item.ID)
	}
	return nil
}

// UpdateGuarded persists the item only while the stored status still equals
// expected. The caller's snapshot losing a race to a concurrent writer is
// reported as ErrStatusConflict, not applied.
func (s *Store) UpdateGuarded(ctx context.Context, item *Item, expected Status) error {
	affected, err := s.updateItem(ctx, item, " AND status = ?", expected)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, ErrStatusConflict)
	}
	return nil
}

func (s *Store) updateItem(ctx context.Context, item *Item, guard string, guardArgs ...any) (int64, error) {
	if item == nil {
		return 0, errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	args := []any{
		item.Kind,
		item.Status,
		nullableString(item.File),
		nullableString(item.SourceFile),
		nullableString(item.MimeType),
		nullableString(item.SourceURL),
		item.SourceAttachmentID,
		nullableString(item.BatchID),
		nullableString(item.AdditionalJSON),
		nullableString(item.AttachmentJSON),
		nullableString(item.ComparisonJSON),
		nullableString(item.BlurHash),
		nullableString(item.DominantColor),
		item.GeneratedPosterID,
		nullableString(item.ErrorKind),
		nullableString(item.ErrorMessage),
		nullableString(item.ErrorFile),
		boolToInt(item.Retryable),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	}
	args = append(args, guardArgs...)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET kind = ?, status = ?, file = ?, source_file = ?, mime_type = ?,
             source_url = ?, source_attachment_id = ?, batch_id = ?,
             additional_json = ?, attachment_json = ?, comparison_json = ?,
             blur_hash = ?, dominant_color = ?, generated_poster_id = ?,
             error_kind = ?, error_message = ?, error_file = ?, retryable = ?,
             updated_at = ?
         WHERE id = ?`+guard,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// GetByID fetches a queue item by identifier. A missing item is (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByAttachmentID returns the first item operating on the given server
// attachment, ordered by creation time.
func (s *Store) GetByAttachmentID(ctx context.Context, attachmentID int64) (*Item, error) {
	if attachmentID == 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_attachment_id = ? ORDER BY created_at, rowid LIMIT 1`,
		attachmentID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by attachment: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), FIFO by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at, rowid`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByBatch returns all items sharing a batch identifier.
func (s *Store) ListByBatch(ctx context.Context, batchID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE batch_id = ? ORDER BY created_at, rowid`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` + placeholders + `) ORDER BY created_at, rowid LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CountByStatus returns the number of items currently in status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending, StatusPendingTranscoding:
			health.Pending += count
		case StatusPendingApproval:
			health.AwaitingApproval += count
		case StatusUploaded:
			health.Uploaded += count
		case StatusCancelled:
			health.Cancelled += count
		default:
			health.Processing += count
		}
	}
	return health, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearTerminal removes uploaded and cancelled items from the queue.
// ResetStuckProcessing returns items a previous run left mid-phase to the
// start of that phase: an interrupted transcode restarts from
// pending_transcoding and an interrupted upload re-launches from approved.
// Items settled at transcoded are left alone; the dispatcher re-applies the
// approval gate to them directly.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             updated_at = ?
         WHERE status IN (?, ?)`,
		StatusTranscoding, StatusPendingTranscoding,
		StatusUploading, StatusApproved,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusTranscoding,
		StatusUploading,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status IN (?, ?)`, StatusUploaded, StatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("clear terminal: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

const itemColumns = "id, kind, status, file, source_file, mime_type, source_url, source_attachment_id, batch_id, additional_json, attachment_json, comparison_json, blur_hash, dominant_color, generated_poster_id, error_kind, error_message, error_file, retryable, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id             string
		kind           string
		statusStr      string
		file           sql.NullString
		sourceFile     sql.NullString
		mimeType       sql.NullString
		sourceURL      sql.NullString
		attachmentID   sql.NullInt64
		batchID        sql.NullString
		additionalJSON sql.NullString
		attachmentJSON sql.NullString
		comparisonJSON sql.NullString
		blurHash       sql.NullString
		dominantColor  sql.NullString
		posterID       sql.NullInt64
		errorKind      sql.NullString
		errorMessage   sql.NullString
		errorFile      sql.NullString
		retryable      sql.NullInt64
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&statusStr,
		&file,
		&sourceFile,
		&mimeType,
		&sourceURL,
		&attachmentID,
		&batchID,
		&additionalJSON,
		&attachmentJSON,
		&comparisonJSON,
		&blurHash,
		&dominantColor,
		&posterID,
		&errorKind,
		&errorMessage,
		&errorFile,
		&retryable,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                 id,
		Kind:               Kind(kind),
		Status:             Status(statusStr),
		File:               file.String,
		SourceFile:         sourceFile.String,
		MimeType:           mimeType.String,
		SourceURL:          sourceURL.String,
		SourceAttachmentID: attachmentID.Int64,
		BatchID:            batchID.String,
		AdditionalJSON:     additionalJSON.String,
		AttachmentJSON:     attachmentJSON.String,
		ComparisonJSON:     comparisonJSON.String,
		BlurHash:           blurHash.String,
		DominantColor:      dominantColor.String,
		GeneratedPosterID:  posterID.Int64,
		ErrorKind:          errorKind.String,
		ErrorMessage:       errorMessage.String,
		ErrorFile:          errorFile.String,
	}
	if retryable.Valid {
		item.Retryable = retryable.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
