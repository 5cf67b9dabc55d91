package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DatabaseFilename is the sqlite file created inside the data directory.
const DatabaseFilename = "tmd-viewer.db"

// Store owns the sqlite handle for the current data directory. The handle
// is opened lazily on first use so the service can start before the data
// directory is valid, and it is swapped out when the data directory
// changes at runtime.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	dir string
}

func NewStore(dataDir string) *Store {
	return &Store{dir: dataDir}
}

// Handle returns the open database, opening and migrating it first if
// needed. An open failure is returned to the caller and the next call
// retries.
func (s *Store) Handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	path := filepath.Join(s.dir, DatabaseFilename)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database %s: %w", path, err)
	}
	slog.Debug("Database opened", "path", path, "schema_version", version, "dirty", dirty)

	s.db = db
	return s.db, nil
}

// SetDir switches the store to a new data directory. The current handle is
// closed; the next Handle call opens the database under the new directory.
func (s *Store) SetDir(dataDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		s.db = nil
	}
	s.dir = dataDir
	return nil
}

// Clean wipes all feed, media and archive rows and compacts the file.
func (s *Store) Clean() error {
	db, err := s.Handle()
	if err != nil {
		return err
	}

	for _, stmt := range []string{
		"DELETE FROM media",
		"DELETE FROM feeds",
		"DELETE FROM files",
		"VACUUM",
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clean database: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
