package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tmd-viewer/app/database"
)

// Catalog discovers zip archives in the data directory and registers each
// exactly once.
type Catalog struct {
	archives *database.ArchiveRepository
	dataDir  func() string
}

func NewCatalog(archives *database.ArchiveRepository, dataDir func() string) *Catalog {
	return &Catalog{archives: archives, dataDir: dataDir}
}

// Register enumerates *.zip files in the data directory and registers them
// by file name, ignoring known ones. Idempotent; returns the number of
// newly registered archives.
func (c *Catalog) Register() (int, error) {
	dir := c.dataDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			continue
		}
		names = append(names, entry.Name())
	}

	inserted, err := c.archives.RegisterAll(names)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		slog.Info("Registered new archives", "count", inserted, "dir", dir)
	}
	return inserted, nil
}
