package api

import (
	"tmd-viewer/app/archive"
	"tmd-viewer/app/cfg"
	"tmd-viewer/app/database"
	"tmd-viewer/app/tasks"
	"tmd-viewer/app/thumbnail"
)

type Handler struct {
	cfg         *cfg.Cfg
	store       *database.Store
	archiveRepo *database.ArchiveRepository
	feedRepo    *database.FeedRepository
	mediaRepo   *database.MediaRepository
	catalog     *archive.Catalog
	scanner     *archive.Scanner
	generator   *thumbnail.Generator
	runner      *tasks.Runner
}

// FeedsResponse echoes the effective query next to the matching entries so
// clients can see the applied defaults.
type FeedsResponse struct {
	Query database.FeedsQuery  `json:"query"`
	Feeds []database.FeedEntry `json:"feeds"`
}

type StateResponse struct {
	DataDir           string `json:"data_dir"`
	BindAddress       string `json:"bind_address"`
	TimeOffset        int    `json:"time_offset"`
	IsScanning        bool   `json:"is_scanning"`
	ScannerCount      int    `json:"scanner_count"`
	ScannerCountLimit int    `json:"scanner_count_limit"`
}
