package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrEntryNotFound   = errors.New("archive entry not found")
)

// ReadEntry extracts one file entry from a zip archive in the data
// directory. Missing archives and missing or unreadable entries map to the
// sentinel errors above.
func ReadEntry(dataDir, zipName, entryPath string) ([]byte, error) {
	zr, err := zip.OpenReader(filepath.Join(dataDir, zipName))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, zipName)
	}
	defer zr.Close()

	f, err := zr.Open(entryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, zipName)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, zipName)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryPath, zipName)
	}
	return data, nil
}
