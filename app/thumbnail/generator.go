package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"

	"tmd-viewer/app/archive"
	"tmd-viewer/app/database"
)

// Previews fit within a 128x128 box, preserving aspect ratio, re-encoded
// as JPEG at fixed quality.
const (
	maxSize     = 128
	jpegQuality = 85
)

// ErrSourceMissing marks media whose backing archive or entry is gone. The
// row gets soft-deleted and is never retried automatically.
var ErrSourceMissing = errors.New("media source missing")

// Generator produces and persists downscaled previews for image media.
type Generator struct {
	media   *database.MediaRepository
	dataDir func() string
}

func NewGenerator(media *database.MediaRepository, dataDir func() string) *Generator {
	return &Generator{media: media, dataDir: dataDir}
}

// Process handles one media row end to end: extract the backing image,
// render the preview and persist it in one transaction. A missing source
// soft-deletes the row and returns ErrSourceMissing. A codec failure
// leaves the thumbnail unset so a later trigger can retry.
func (g *Generator) Process(m *database.Media) ([]byte, error) {
	blob, err := archive.ReadEntry(g.dataDir(), m.FilePath, m.MediaPath)
	if err != nil {
		slog.Warn("Media source gone, soft deleting", "feed_id", m.FeedID, "media_id", m.MediaID, "error", err)
		if delErr := g.media.SoftDelete(m.FeedID, m.MediaID); delErr != nil {
			slog.Error("Failed to soft delete media", "feed_id", m.FeedID, "media_id", m.MediaID, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceMissing, err)
	}

	thumb, err := Render(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to render preview for %d/%d: %w", m.FeedID, m.MediaID, err)
	}

	if err := g.media.UpdateThumbnail(m.FeedID, m.MediaID, thumb); err != nil {
		return nil, err
	}
	return thumb, nil
}

// Render decodes an image and produces the bounded JPEG preview.
func Render(blob []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
