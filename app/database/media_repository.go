package database

import (
	"database/sql"
	"fmt"
)

// MediaRepository handles database operations for media rows and their
// cached thumbnails.
type MediaRepository struct {
	store *Store
}

func NewMediaRepository(store *Store) *MediaRepository {
	return &MediaRepository{store: store}
}

const mediaColumns = "feed_id, media_id, media_type, media_url, file_path, media_path, thumbnail, deleted_at"

func scanMedia(row interface{ Scan(...any) error }) (*Media, error) {
	var m Media
	var thumb []byte
	err := row.Scan(&m.FeedID, &m.MediaID, &m.MediaType, &m.MediaURL,
		&m.FilePath, &m.MediaPath, &thumb, &m.DeletedAt)
	if err != nil {
		return nil, err
	}
	m.Thumbnail = thumb
	return &m, nil
}

// GetMedia retrieves one media row by its id pair, or nil when absent.
func (r *MediaRepository) GetMedia(feedID, mediaID int64) (*Media, error) {
	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}

	m, err := scanMedia(db.QueryRow(
		"SELECT "+mediaColumns+" FROM media WHERE feed_id = ? AND media_id = ? LIMIT 1",
		feedID, mediaID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %d/%d: %w", feedID, mediaID, err)
	}
	return m, nil
}

// ListByFeedID returns all media rows for one feed in media_id order,
// soft-deleted rows included.
func (r *MediaRepository) ListByFeedID(feedID int64) ([]Media, error) {
	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT "+mediaColumns+" FROM media WHERE feed_id = ? ORDER BY media_id",
		feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media for feed %d: %w", feedID, err)
	}
	defer rows.Close()

	var list []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		list = append(list, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media rows: %w", err)
	}
	return list, nil
}

// PickPendingThumbnail returns one image media row that still needs a
// thumbnail, or nil when none remain. skip offsets past rows that already
// got a failed attempt in the current run, so each row is attempted once
// per trigger.
func (r *MediaRepository) PickPendingThumbnail(skip int) (*Media, error) {
	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}

	m, err := scanMedia(db.QueryRow(`
		SELECT `+mediaColumns+` FROM media
		WHERE media_type = 'Image' AND deleted_at IS NULL AND thumbnail IS NULL
		LIMIT 1 OFFSET ?
	`, skip))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick pending thumbnail: %w", err)
	}
	return m, nil
}

// UpdateThumbnail persists a generated thumbnail in one transaction.
func (r *MediaRepository) UpdateThumbnail(feedID, mediaID int64, thumbnail []byte) error {
	db, err := r.store.Handle()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"UPDATE media SET thumbnail = ? WHERE feed_id = ? AND media_id = ?",
		thumbnail, feedID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to update thumbnail for %d/%d: %w", feedID, mediaID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit thumbnail for %d/%d: %w", feedID, mediaID, err)
	}
	return nil
}

// SoftDelete marks a media row whose backing file is gone. Soft-deleted
// rows are excluded from thumbnail generation and preview serving but stay
// queryable as metadata.
func (r *MediaRepository) SoftDelete(feedID, mediaID int64) error {
	db, err := r.store.Handle()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"UPDATE media SET deleted_at = CAST(strftime('%s','now') AS INTEGER) WHERE feed_id = ? AND media_id = ?",
		feedID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to soft delete media %d/%d: %w", feedID, mediaID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit soft delete for %d/%d: %w", feedID, mediaID, err)
	}
	return nil
}

// GetMediaCount returns the total number of media rows.
func (r *MediaRepository) GetMediaCount() (int, error) {
	db, err := r.store.Handle()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM media").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get media count: %w", err)
	}
	return count, nil
}
