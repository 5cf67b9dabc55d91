package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tmd-viewer/app/database"
)

func writeZip(t *testing.T, dir, name string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for entryName, content := range entries {
		w, err := zw.Create(entryName)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
}

func csvRow(cols ...string) string {
	full := make([]string, 13)
	copy(full, cols)
	return strings.Join(full, ",") + "\n"
}

// transcript builds the header block plus the given data rows. Row 3's
// second column carries the exporting account name.
func transcript(dataRows ...string) string {
	var b strings.Builder
	b.WriteString(csvRow("header"))
	b.WriteString(csvRow("header"))
	b.WriteString(csvRow("", "@Owner"))
	b.WriteString(csvRow("header"))
	b.WriteString(csvRow("header"))
	b.WriteString(csvRow("header"))
	for _, row := range dataRows {
		b.WriteString(row)
	}
	return b.String()
}

func newTestScanner(t *testing.T, dataDir string) (*Scanner, *database.ArchiveRepository, *database.FeedRepository, *database.MediaRepository) {
	t.Helper()
	store := database.NewStore(dataDir)
	t.Cleanup(func() { store.Close() })

	archives := database.NewArchiveRepository(store)
	media := database.NewMediaRepository(store)
	feeds := database.NewFeedRepository(store, media, time.UTC)
	scanner := NewScanner(archives, feeds, NewReconciler(time.UTC), func() string { return dataDir })
	return scanner, archives, feeds, media
}

func TestScanner_ScanNext_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	content := transcript(
		csvRow("2023/11/14 22:13:20", "2023/11/14 22:13:20", "Alice", "@Alice",
			"https://twitter.com/Alice/status/42", "Image", "https://pbs.example.com/img.jpg", "media/img.jpg",
			"", "hello world"),
		csvRow("2023/11/10 10:00:00", "2023/11/15 01:00:00", "Alice", "@Alice",
			"https://twitter.com/Alice/status/42", "", "", "", "", "hello world"),
		csvRow("2023/11/14 22:13:20", "2023/11/14 22:13:20", "Bad", "@bad",
			"https://example.com/not/a/status", "", "", "", "", "ignored"),
	)
	writeZip(t, dir, "export.zip", map[string]string{
		"transcript.csv": content,
		"media/img.jpg":  "not really a jpeg",
		"readme.txt":     "ignored",
	})

	scanner, archives, feeds, media := newTestScanner(t, dir)

	if _, err := archives.RegisterAll([]string{"export.zip"}); err != nil {
		t.Fatalf("Failed to register archive: %v", err)
	}

	picked, err := scanner.ScanNext()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !picked {
		t.Fatal("Expected an archive to be picked")
	}

	archive, err := archives.GetArchive("export.zip")
	if err != nil {
		t.Fatalf("Failed to get archive: %v", err)
	}
	if archive.ScanStartedAt == nil || archive.ScanEndedAt == nil {
		t.Errorf("Expected scan to be marked complete, got %+v", archive)
	}

	entries, err := feeds.ListFeeds(&database.FeedsQuery{})
	if err != nil {
		t.Fatalf("Failed to list feeds: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected feed and retweet entries, got %d", len(entries))
	}

	rt := entries[0].Retweet
	if rt == nil {
		t.Fatalf("Expected newest entry to be the retweet, got %+v", entries[0])
	}
	if rt.UserName != "@owner" {
		t.Errorf("Expected retweet by the export owner, got %q", rt.UserName)
	}
	if rt.Retweet == nil || rt.Retweet.FeedID != 42 {
		t.Errorf("Expected embedded original feed 42, got %+v", rt.Retweet)
	}

	feed := entries[1].Feed
	if feed == nil || feed.FeedID != 42 {
		t.Fatalf("Expected original feed 42, got %+v", entries[1])
	}
	if feed.UserName != "@alice" {
		t.Errorf("Expected lowercased user name, got %q", feed.UserName)
	}

	m, err := media.GetMedia(42, 1)
	if err != nil {
		t.Fatalf("Failed to get media: %v", err)
	}
	if m == nil {
		t.Fatal("Expected media row 42/1")
	}
	if m.FilePath != "export.zip" || m.MediaPath != "media/img.jpg" {
		t.Errorf("Unexpected media row: %+v", m)
	}

	// Nothing left to scan.
	picked, err = scanner.ScanNext()
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}
	if picked {
		t.Error("Expected no archives left to scan")
	}
}

func TestScanner_ScanNext_Rescan_Idempotent(t *testing.T) {
	dir := t.TempDir()

	content := transcript(
		csvRow("2023/11/14 22:13:20", "2023/11/14 22:13:20", "Alice", "@Alice",
			"https://twitter.com/Alice/status/42", "Image", "https://pbs.example.com/img.jpg", "media/img.jpg",
			"", "hello world"),
	)
	writeZip(t, dir, "export.zip", map[string]string{"transcript.csv": content})

	scanner, archives, feeds, media := newTestScanner(t, dir)
	if _, err := archives.RegisterAll([]string{"export.zip"}); err != nil {
		t.Fatalf("Failed to register archive: %v", err)
	}
	if _, err := scanner.ScanNext(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Force a second pass over the same archive.
	store := database.NewStore(dir)
	defer store.Close()
	db, err := store.Handle()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if _, err := db.Exec("UPDATE files SET scan_started_at = NULL, scan_ended_at = NULL"); err != nil {
		t.Fatalf("Failed to reset scan state: %v", err)
	}
	store.Close()

	if _, err := scanner.ScanNext(); err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	if count, _ := feeds.GetFeedCount(); count != 1 {
		t.Errorf("Expected 1 feed after rescan, got %d", count)
	}
	if count, _ := media.GetMediaCount(); count != 1 {
		t.Errorf("Expected 1 media row after rescan, got %d", count)
	}
}

func TestScanner_ScanNext_UnreadableArchiveLeftUnfinished(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.zip"), []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("Failed to write broken archive: %v", err)
	}

	scanner, archives, _, _ := newTestScanner(t, dir)
	if _, err := archives.RegisterAll([]string{"broken.zip"}); err != nil {
		t.Fatalf("Failed to register archive: %v", err)
	}

	picked, err := scanner.ScanNext()
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if !picked {
		t.Fatal("Expected the broken archive to be picked")
	}

	archive, err := archives.GetArchive("broken.zip")
	if err != nil {
		t.Fatalf("Failed to get archive: %v", err)
	}
	if archive.ScanStartedAt == nil {
		t.Error("Expected scan to be marked started")
	}
	if archive.ScanEndedAt != nil {
		t.Error("Expected scan end to stay unset for an unreadable archive")
	}

	// The stuck archive is not picked again.
	picked, err = scanner.ScanNext()
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}
	if picked {
		t.Error("Expected no eligible archives")
	}
}

func TestReadEntry(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, dir, "export.zip", map[string]string{"media/img.jpg": "payload"})

	data, err := ReadEntry(dir, "export.zip", "media/img.jpg")
	if err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected payload, got %q", data)
	}

	if _, err := ReadEntry(dir, "missing.zip", "media/img.jpg"); !errors.Is(err, ErrArchiveNotFound) {
		t.Errorf("Expected ErrArchiveNotFound, got %v", err)
	}
	if _, err := ReadEntry(dir, "export.zip", "media/other.jpg"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}
