package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"tmd-viewer/app/archive"
)

// ScanArchivesTask registers newly dropped archives and drains the backlog
// of not-yet-scanned ones, one archive at a time.
type ScanArchivesTask struct {
	Task
	catalog *archive.Catalog
	scanner *archive.Scanner
}

func NewScanArchivesTask(catalog *archive.Catalog, scanner *archive.Scanner) *ScanArchivesTask {
	return &ScanArchivesTask{
		Task:    NewTask(TaskTypeScanArchives),
		catalog: catalog,
		scanner: scanner,
	}
}

func (t *ScanArchivesTask) Execute(ctx context.Context) error {
	registered, err := t.catalog.Register()
	if err != nil {
		return fmt.Errorf("failed to register archives: %w", err)
	}

	scanned := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		picked, err := t.scanner.ScanNext()
		if err != nil {
			return fmt.Errorf("failed to scan archive: %w", err)
		}
		if !picked {
			break
		}
		scanned++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"registered", registered,
		"scanned", scanned)

	return nil
}
