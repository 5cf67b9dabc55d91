package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tmd-viewer/app/database"
	"tmd-viewer/app/thumbnail"
)

// GenerateThumbnailsTask walks image media without a preview and renders
// one for each. Rows whose image cannot be decoded are skipped for the rest
// of the run so the loop always terminates; a later trigger retries them.
type GenerateThumbnailsTask struct {
	Task
	mediaRepo *database.MediaRepository
	generator *thumbnail.Generator
}

func NewGenerateThumbnailsTask(mediaRepo *database.MediaRepository, generator *thumbnail.Generator) *GenerateThumbnailsTask {
	return &GenerateThumbnailsTask{
		Task:      NewTask(TaskTypeGenerateThumbnails),
		mediaRepo: mediaRepo,
		generator: generator,
	}
}

func (t *GenerateThumbnailsTask) Execute(ctx context.Context) error {
	generated := 0
	failed := 0
	skip := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m, err := t.mediaRepo.PickPendingThumbnail(skip)
		if err != nil {
			return fmt.Errorf("failed to pick pending media: %w", err)
		}
		if m == nil {
			break
		}

		if _, err := t.generator.Process(m); err != nil {
			failed++
			if errors.Is(err, thumbnail.ErrSourceMissing) {
				continue
			}
			slog.Error("Failed to generate thumbnail", "feed_id", m.FeedID, "media_id", m.MediaID, "error", err)
			skip++
			continue
		}
		generated++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"generated", generated,
		"failed", failed)

	return nil
}
