package archive

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"tmd-viewer/app/database"
)

// Header rows precede the data in every transcript: rows 1-6 are metadata,
// row 3's action_date column holds the exporting account name.
const (
	originRow    = 3
	firstDataRow = 7
)

// Scanner processes registered archives one at a time: it extracts every
// CSV transcript and streams its rows through the reconciler inside one
// transaction per entry.
type Scanner struct {
	archives   *database.ArchiveRepository
	feeds      *database.FeedRepository
	reconciler *Reconciler
	dataDir    func() string
}

func NewScanner(archives *database.ArchiveRepository, feeds *database.FeedRepository,
	reconciler *Reconciler, dataDir func() string) *Scanner {
	return &Scanner{
		archives:   archives,
		feeds:      feeds,
		reconciler: reconciler,
		dataDir:    dataDir,
	}
}

// ScanNext picks one not-yet-scanned archive and processes it. The bool
// reports whether an archive was picked; callers loop until it is false.
// An unopenable archive is left started-but-not-ended and needs a manual
// clean; the scan loop itself carries on.
func (s *Scanner) ScanNext() (bool, error) {
	name, err := s.archives.PickUnscanned()
	if err != nil {
		return false, err
	}
	if name == "" {
		return false, nil
	}

	if err := s.archives.MarkScanStarted(name); err != nil {
		return false, err
	}

	if err := s.scanArchive(name); err != nil {
		slog.Error("Archive unreadable, scan left unfinished", "archive", name, "error", err)
		return true, nil
	}

	if err := s.archives.MarkScanEnded(name); err != nil {
		return false, err
	}
	return true, nil
}

// scanArchive feeds every CSV entry of one archive to the reconciler.
// Per-entry failures are logged and do not fail the archive.
func (s *Scanner) scanArchive(fileName string) error {
	zr, err := zip.OpenReader(filepath.Join(s.dataDir(), fileName))
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", fileName, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name), ".csv") {
			continue
		}
		if err := s.scanEntry(fileName, entry); err != nil {
			slog.Error("Failed to process transcript", "archive", fileName, "entry", entry.Name, "error", err)
		}
	}
	return nil
}

func (s *Scanner) scanEntry(zipName string, entry *zip.File) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	ing, err := s.feeds.BeginIngest()
	if err != nil {
		return err
	}
	defer ing.Rollback()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	origin := ""
	rowNum := 0
	applied := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			slog.Warn("Skipping malformed CSV row", "entry", entry.Name, "row", rowNum, "error", err)
			continue
		}

		row, ok := RowFromRecord(rec)
		if !ok {
			continue
		}
		if rowNum == originRow {
			origin = strings.ToLower(row.ActionDate)
		}
		if rowNum < firstDataRow {
			continue
		}

		res, ok := s.reconciler.Resolve(row, origin)
		if !ok {
			continue
		}
		if err := s.apply(ing, res, zipName); err != nil {
			slog.Warn("Skipping row", "entry", entry.Name, "row", rowNum, "error", err)
			continue
		}
		applied++
	}

	if err := ing.Commit(); err != nil {
		return fmt.Errorf("failed to commit transcript %s: %w", entry.Name, err)
	}

	slog.Info("Transcript processed", "archive", zipName, "entry", entry.Name, "rows", rowNum, "applied", applied)
	return nil
}

func (s *Scanner) apply(ing *database.Ingest, res *Resolved, zipName string) error {
	if err := ing.InsertFeed(res.FeedID, res.UserName, res.FeedAt, res.TwitterURL, res.Contents); err != nil {
		return err
	}
	if res.Retweet != nil {
		err := ing.InsertRetweet(res.FeedID, res.Retweet.Origin, res.UserName, res.Retweet.RetweetAt, res.TwitterURL)
		if err != nil {
			return err
		}
	}
	if res.Media != nil {
		err := ing.InsertMedia(res.FeedID, res.Media.MediaType, res.Media.MediaURL, zipName, res.Media.MediaPath)
		if err != nil {
			return err
		}
	}
	return nil
}
