package database

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(t.TempDir())
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestFeedRepository(t *testing.T, store *Store) *FeedRepository {
	t.Helper()
	return NewFeedRepository(store, NewMediaRepository(store), time.UTC)
}

func mustIngest(t *testing.T, repo *FeedRepository, fn func(*Ingest) error) {
	t.Helper()
	ing, err := repo.BeginIngest()
	if err != nil {
		t.Fatalf("Failed to begin ingest: %v", err)
	}
	if err := fn(ing); err != nil {
		ing.Rollback()
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := ing.Commit(); err != nil {
		t.Fatalf("Failed to commit ingest: %v", err)
	}
}

func TestStore_Handle_RunsMigrations(t *testing.T) {
	store := newTestStore(t)

	db, err := store.Handle()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	for _, table := range []string{"files", "feeds", "media"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}
}

func TestStore_Clean_RemovesAllRows(t *testing.T) {
	store := newTestStore(t)
	archives := NewArchiveRepository(store)
	feeds := newTestFeedRepository(t, store)

	if _, err := archives.RegisterAll([]string{"a.zip"}); err != nil {
		t.Fatalf("Failed to register archive: %v", err)
	}
	mustIngest(t, feeds, func(ing *Ingest) error {
		if err := ing.InsertFeed(1, "@alice", 1700000000, "https://twitter.com/alice/status/1", "hello"); err != nil {
			return err
		}
		return ing.InsertMedia(1, "Image", "https://example.com/a.jpg", "a.zip", "media/a.jpg")
	})

	if err := store.Clean(); err != nil {
		t.Fatalf("Failed to clean store: %v", err)
	}

	if count, _ := archives.GetArchiveCount(); count != 0 {
		t.Errorf("Expected 0 archives after clean, got %d", count)
	}
	if count, _ := feeds.GetFeedCount(); count != 0 {
		t.Errorf("Expected 0 feeds after clean, got %d", count)
	}
	if count, _ := NewMediaRepository(store).GetMediaCount(); count != 0 {
		t.Errorf("Expected 0 media after clean, got %d", count)
	}
}

func TestStore_SetDir_SwapsDatabase(t *testing.T) {
	store := newTestStore(t)
	archives := NewArchiveRepository(store)

	if _, err := archives.RegisterAll([]string{"a.zip"}); err != nil {
		t.Fatalf("Failed to register archive: %v", err)
	}

	if err := store.SetDir(t.TempDir()); err != nil {
		t.Fatalf("Failed to switch data directory: %v", err)
	}

	count, err := archives.GetArchiveCount()
	if err != nil {
		t.Fatalf("Failed to count archives after switch: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected fresh database after switch, got %d archives", count)
	}
}
