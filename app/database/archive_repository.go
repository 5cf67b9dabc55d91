package database

import (
	"database/sql"
	"fmt"
)

// ArchiveRepository handles database operations for registered archives
type ArchiveRepository struct {
	store *Store
}

func NewArchiveRepository(store *Store) *ArchiveRepository {
	return &ArchiveRepository{store: store}
}

// RegisterAll inserts the given archive file names in one transaction,
// ignoring names that are already registered. Returns the number of newly
// registered archives.
func (r *ArchiveRepository) RegisterAll(fileNames []string) (int, error) {
	db, err := r.store.Handle()
	if err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, name := range fileNames {
		res, err := tx.Exec("INSERT OR IGNORE INTO files (file_path) VALUES (?)", name)
		if err != nil {
			return 0, fmt.Errorf("failed to register archive %s: %w", name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive registration: %w", err)
	}
	return inserted, nil
}

// PickUnscanned returns the file name of one archive whose scan has not
// started, or "" when none remain.
func (r *ArchiveRepository) PickUnscanned() (string, error) {
	db, err := r.store.Handle()
	if err != nil {
		return "", err
	}

	var name string
	err = db.QueryRow("SELECT file_path FROM files WHERE scan_started_at IS NULL LIMIT 1").Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to pick unscanned archive: %w", err)
	}
	return name, nil
}

// MarkScanStarted records the scan start time for an archive.
func (r *ArchiveRepository) MarkScanStarted(fileName string) error {
	db, err := r.store.Handle()
	if err != nil {
		return err
	}

	_, err = db.Exec(
		"UPDATE files SET scan_started_at = CAST(strftime('%s','now') AS INTEGER) WHERE file_path = ?",
		fileName)
	if err != nil {
		return fmt.Errorf("failed to mark scan started for %s: %w", fileName, err)
	}
	return nil
}

// MarkScanEnded records the scan end time for an archive.
func (r *ArchiveRepository) MarkScanEnded(fileName string) error {
	db, err := r.store.Handle()
	if err != nil {
		return err
	}

	_, err = db.Exec(
		"UPDATE files SET scan_ended_at = CAST(strftime('%s','now') AS INTEGER) WHERE file_path = ?",
		fileName)
	if err != nil {
		return fmt.Errorf("failed to mark scan ended for %s: %w", fileName, err)
	}
	return nil
}

// GetArchive retrieves one registered archive by file name, or nil when it
// is not registered.
func (r *ArchiveRepository) GetArchive(fileName string) (*Archive, error) {
	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}

	var a Archive
	err = db.QueryRow(
		"SELECT file_path, scan_started_at, scan_ended_at FROM files WHERE file_path = ?",
		fileName).Scan(&a.FilePath, &a.ScanStartedAt, &a.ScanEndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive %s: %w", fileName, err)
	}
	return &a, nil
}

// GetArchiveCount returns the total number of registered archives.
func (r *ArchiveRepository) GetArchiveCount() (int, error) {
	db, err := r.store.Handle()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get archive count: %w", err)
	}
	return count, nil
}
