package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"tmd-viewer/app/archive"
	"tmd-viewer/app/cfg"
	"tmd-viewer/app/database"
	"tmd-viewer/app/tasks"
	"tmd-viewer/app/thumbnail"
)

func NewHandler(appCfg *cfg.Cfg, store *database.Store, archiveRepo *database.ArchiveRepository,
	feedRepo *database.FeedRepository, mediaRepo *database.MediaRepository,
	catalog *archive.Catalog, scanner *archive.Scanner,
	generator *thumbnail.Generator, runner *tasks.Runner) *Handler {
	return &Handler{
		cfg:         appCfg,
		store:       store,
		archiveRepo: archiveRepo,
		feedRepo:    feedRepo,
		mediaRepo:   mediaRepo,
		catalog:     catalog,
		scanner:     scanner,
		generator:   generator,
		runner:      runner,
	}
}

func (h *Handler) ListFeeds(c *gin.Context) {
	var query database.FeedsQuery
	if err := c.ShouldBind(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feeds, err := h.feedRepo.ListFeeds(&query)
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, FeedsResponse{Query: query, Feeds: feeds})
}

func (h *Handler) GetMediaFile(c *gin.Context) {
	media, ok := h.lookupMedia(c)
	if !ok {
		return
	}

	data, err := archive.ReadEntry(h.cfg.DataDir(), media.FilePath, media.MediaPath)
	if err != nil {
		if errors.Is(err, archive.ErrArchiveNotFound) || errors.Is(err, archive.ErrEntryNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Failed to read media", "feed_id", media.FeedID, "media_id", media.MediaID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (h *Handler) GetMediaPreview(c *gin.Context) {
	media, ok := h.lookupMedia(c)
	if !ok {
		return
	}

	// Previews exist for images only.
	if media.MediaType != "Image" {
		c.Status(http.StatusNotFound)
		return
	}

	if len(media.Thumbnail) > 0 {
		c.Data(http.StatusOK, "image/jpeg", media.Thumbnail)
		return
	}

	thumb, err := h.generator.Process(media)
	if err != nil {
		if errors.Is(err, thumbnail.ErrSourceMissing) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Failed to generate preview", "feed_id", media.FeedID, "media_id", media.MediaID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", thumb)
}

func (h *Handler) GetZipEntry(c *gin.Context) {
	fileName := c.Param("file")
	entryPath := strings.TrimPrefix(c.Param("path"), "/")
	if fileName == "" || entryPath == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	data, err := archive.ReadEntry(h.cfg.DataDir(), fileName, entryPath)
	if err != nil {
		if errors.Is(err, archive.ErrArchiveNotFound) || errors.Is(err, archive.ErrEntryNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		slog.Error("Failed to read archive entry", "archive", fileName, "entry", entryPath, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, StateResponse{
		DataDir:           h.cfg.DataDir(),
		BindAddress:       h.cfg.BindAddress,
		TimeOffset:        h.cfg.TimeOffset,
		IsScanning:        h.runner.Busy(),
		ScannerCount:      h.runner.Active(),
		ScannerCountLimit: h.runner.Limit(),
	})
}

func (h *Handler) StartScan(c *gin.Context) {
	h.startTask(c, tasks.NewScanArchivesTask(h.catalog, h.scanner))
}

func (h *Handler) StartGenerateThumbnails(c *gin.Context) {
	h.startTask(c, tasks.NewGenerateThumbnailsTask(h.mediaRepo, h.generator))
}

func (h *Handler) startTask(c *gin.Context, task tasks.TaskInterface) {
	if _, err := h.runner.Run(task); err != nil {
		if errors.Is(err, tasks.ErrBusy) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "task limit reached"})
			return
		}
		slog.Error("Failed to start task", "type", task.GetType(), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "task": string(task.GetType())})
}

func (h *Handler) Clean(c *gin.Context) {
	if h.runner.Busy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tasks are running"})
		return
	}

	if err := h.store.Clean(); err != nil {
		slog.Error("Failed to clean database", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Database cleaned")
	c.JSON(http.StatusOK, gin.H{"status": "cleaned"})
}

func (h *Handler) SetDataDir(c *gin.Context) {
	dir := c.PostForm("data_dir")
	if dir == "" {
		c.Status(http.StatusNotModified)
		return
	}

	if h.runner.Busy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tasks are running"})
		return
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a directory"})
		return
	}

	if err := h.cfg.SetDataDir(dir); err != nil {
		slog.Error("Failed to persist data directory", "dir", dir, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if err := h.store.SetDir(dir); err != nil {
		slog.Error("Failed to switch database", "dir", dir, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Data directory changed", "dir", dir)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data_dir": dir})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if archiveCount, err := h.archiveRepo.GetArchiveCount(); err == nil {
		health["archives"] = archiveCount
	}
	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	if mediaCount, err := h.mediaRepo.GetMediaCount(); err == nil {
		health["media"] = mediaCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "TMD Viewer",
		"version":     cfg.GetVersion(),
		"description": "Local viewer for exported social media archives",
		"endpoints": map[string]string{
			"feeds":               "/a/feeds",
			"media_file":          "/a/media/file/<feed_id>/<media_id>",
			"media_preview":       "/a/media/preview/<feed_id>/<media_id>",
			"zip":                 "/a/zip/<file>/<path>",
			"state":               "/a/state",
			"scan":                "/a/scan (POST)",
			"generate_thumbnails": "/a/generate_thumbnails (POST)",
			"clean":               "/a/clean (POST)",
			"set_data_dir":        "/a/set_data_dir (POST)",
			"health":              "/health",
		},
	})
}

// lookupMedia resolves the :feed_id/:media_id pair. Malformed ids and
// soft-deleted rows are indistinguishable from absent rows.
func (h *Handler) lookupMedia(c *gin.Context) (*database.Media, bool) {
	feedID, err1 := strconv.ParseInt(c.Param("feed_id"), 10, 64)
	mediaID, err2 := strconv.ParseInt(c.Param("media_id"), 10, 64)
	if err1 != nil || err2 != nil {
		c.Status(http.StatusNotFound)
		return nil, false
	}

	media, err := h.mediaRepo.GetMedia(feedID, mediaID)
	if err != nil {
		slog.Error("Database error", "operation", "get_media", "feed_id", feedID, "media_id", mediaID, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, false
	}
	if media == nil || media.DeletedAt != nil {
		c.Status(http.StatusNotFound)
		return nil, false
	}
	return media, true
}
