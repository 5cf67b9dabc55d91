package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"tmd-viewer/app/archive"
	"tmd-viewer/app/database"
)

func TestScanArchivesTask_Execute_RegistersAndScans(t *testing.T) {
	dir := t.TempDir()

	row := make([]string, 13)
	row[0] = "2023/11/14 22:13:20"
	row[1] = "2023/11/14 22:13:20"
	row[3] = "@Alice"
	row[4] = "https://twitter.com/Alice/status/42"
	row[9] = "hello"

	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString(strings.Repeat(",", 12) + "\n")
	}
	b.WriteString(strings.Join(row, ",") + "\n")

	writeTestZip(t, dir, "export.zip", map[string][]byte{
		"transcript.csv": []byte(b.String()),
	})

	store := database.NewStore(dir)
	defer store.Close()
	archives := database.NewArchiveRepository(store)
	media := database.NewMediaRepository(store)
	feeds := database.NewFeedRepository(store, media, time.UTC)

	dataDir := func() string { return dir }
	catalog := archive.NewCatalog(archives, dataDir)
	scanner := archive.NewScanner(archives, feeds, archive.NewReconciler(time.UTC), dataDir)

	task := NewScanArchivesTask(catalog, scanner)
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	scanned, err := archives.GetArchive("export.zip")
	if err != nil {
		t.Fatalf("Failed to get archive: %v", err)
	}
	if scanned == nil || scanned.ScanEndedAt == nil {
		t.Errorf("Expected export.zip to be registered and scanned, got %+v", scanned)
	}

	count, err := feeds.GetFeedCount()
	if err != nil {
		t.Fatalf("Failed to count feeds: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 feed, got %d", count)
	}
}
