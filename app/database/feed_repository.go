package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FeedRepository handles database operations for feeds and the filtered,
// paginated read queries over them.
type FeedRepository struct {
	store *Store
	media *MediaRepository
	loc   *time.Location
}

func NewFeedRepository(store *Store, media *MediaRepository, loc *time.Location) *FeedRepository {
	return &FeedRepository{store: store, media: media, loc: loc}
}

// Ingest groups the insert-or-ignore statements for one CSV entry into a
// single transaction. All collisions are silent no-ops, so replaying the
// same archive is safe.
type Ingest struct {
	tx *sql.Tx
}

func (r *FeedRepository) BeginIngest() (*Ingest, error) {
	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	return &Ingest{tx: tx}, nil
}

// InsertFeed upserts one original content row. The first successful insert
// wins; later inserts for the same feed_id are no-ops.
func (i *Ingest) InsertFeed(feedID int64, userName string, feedAt int64, twitterURL, contents string) error {
	_, err := i.tx.Exec(`
		INSERT OR IGNORE INTO feeds (feed_id, user_name, retweet_id, retweet_user_name, feed_at, twitter_url, contents)
		VALUES (?, ?, 0, '', ?, ?, ?)
	`, feedID, userName, feedAt, twitterURL, contents)
	if err != nil {
		return fmt.Errorf("failed to insert feed %d: %w", feedID, err)
	}
	return nil
}

// InsertRetweet upserts one repost event row referencing retweetID. The
// referenced feed row may not have arrived yet.
func (i *Ingest) InsertRetweet(retweetID int64, originUserName, retweetUserName string, retweetAt int64, twitterURL string) error {
	_, err := i.tx.Exec(`
		INSERT OR IGNORE INTO feeds (feed_id, user_name, retweet_id, retweet_user_name, feed_at, twitter_url, contents)
		VALUES (0, ?, ?, ?, ?, ?, '')
	`, originUserName, retweetID, retweetUserName, retweetAt, twitterURL)
	if err != nil {
		return fmt.Errorf("failed to insert retweet of %d: %w", retweetID, err)
	}
	return nil
}

// InsertMedia upserts one media row, numbering it as the current per-feed
// maximum plus one. A row for the same (feed_id, media_url, media_path) is
// a no-op.
func (i *Ingest) InsertMedia(feedID int64, mediaType, mediaURL, filePath, mediaPath string) error {
	_, err := i.tx.Exec(`
		INSERT OR IGNORE INTO media (feed_id, media_id, media_type, media_url, file_path, media_path)
		SELECT ?, COALESCE(MAX(media_id), 0) + 1, ?, ?, ?, ?
		FROM media WHERE feed_id = ?
	`, feedID, mediaType, mediaURL, filePath, mediaPath, feedID)
	if err != nil {
		return fmt.Errorf("failed to insert media for feed %d: %w", feedID, err)
	}
	return nil
}

func (i *Ingest) Commit() error {
	return i.tx.Commit()
}

func (i *Ingest) Rollback() error {
	return i.tx.Rollback()
}

// feedsQueryBuilder assembles the conjunctive WHERE clause from a fixed set
// of predicate kinds. Filter values are always bound, never interpolated.
type feedsQueryBuilder struct {
	clauses []string
	args    []any
}

func (b *feedsQueryBuilder) add(clause string, args ...any) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

func (b *feedsQueryBuilder) whereSQL() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.clauses, " AND ")
}

// escapeLike escapes LIKE wildcards so user keywords only ever match
// literally. Paired with ESCAPE '\' in the query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// ListFeeds normalizes the query in place and returns the matching page of
// feeds, newest first. Retweet rows embed their referenced original feed
// when it exists; media lists are attached when non-empty.
func (r *FeedRepository) ListFeeds(q *FeedsQuery) ([]FeedEntry, error) {
	q.Normalize()

	db, err := r.store.Handle()
	if err != nil {
		return nil, err
	}

	var b feedsQueryBuilder
	if q.UserName != "" {
		b.add("f.user_name = ? COLLATE NOCASE", q.UserName)
	}
	if q.Keyword != "" {
		b.add(`f.contents LIKE ? ESCAPE '\'`, "%"+escapeLike(q.Keyword)+"%")
	}
	if q.Since != "" {
		if ts, ok := parseBoundTime(q.Since, r.loc); ok {
			b.add("f.feed_at >= ?", ts)
		}
	}
	if q.Until != "" {
		if ts, ok := parseBoundTime(q.Until, r.loc); ok {
			b.add("f.feed_at <= ?", ts)
		}
	}
	if q.HasMediaOnly {
		b.add("EXISTS (SELECT 1 FROM media m WHERE m.feed_id = f.feed_id AND m.deleted_at IS NULL LIMIT 1)")
	}

	query := fmt.Sprintf(`
		SELECT f.feed_id, f.feed_at, f.user_name, f.retweet_id, f.retweet_user_name, f.twitter_url, f.contents,
		       r.feed_id, r.feed_at, r.user_name, r.twitter_url, r.contents
		FROM feeds f
		LEFT JOIN feeds r ON f.retweet_id = r.feed_id AND f.retweet_id != 0 AND r.retweet_id = 0
		%s
		ORDER BY f.feed_at DESC
		LIMIT ? OFFSET ?
	`, b.whereSQL())

	args := append(b.args, *q.Count, (*q.Page)*(*q.Count))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var entries []FeedEntry
	for rows.Next() {
		var feedID, feedAt, retweetID int64
		var userName, retweetUser, url, text string
		var origID, origAt sql.NullInt64
		var origUser, origURL, origText sql.NullString
		err := rows.Scan(
			&feedID, &feedAt, &userName, &retweetID, &retweetUser, &url, &text,
			&origID, &origAt, &origUser, &origURL, &origText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}

		if retweetID == 0 {
			entries = append(entries, FeedEntry{Feed: &Feed{
				FeedID:     feedID,
				FeedAt:     feedAt,
				UserName:   userName,
				TwitterURL: url,
				Contents:   text,
			}})
			continue
		}

		rt := &Retweet{
			RetweetAt:       feedAt,
			UserName:        userName,
			RetweetID:       retweetID,
			RetweetUserName: retweetUser,
		}
		if origID.Valid {
			rt.Retweet = &Feed{
				FeedID:     origID.Int64,
				FeedAt:     origAt.Int64,
				UserName:   origUser.String,
				TwitterURL: origURL.String,
				Contents:   origText.String,
			}
		}
		entries = append(entries, FeedEntry{Retweet: rt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	if err := r.attachMedia(entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *FeedRepository) attachMedia(entries []FeedEntry) error {
	for _, entry := range entries {
		feed := entry.Feed
		if entry.Retweet != nil {
			feed = entry.Retweet.Retweet
		}
		if feed == nil {
			continue
		}
		media, err := r.media.ListByFeedID(feed.FeedID)
		if err != nil {
			return err
		}
		if len(media) > 0 {
			feed.Media = media
		}
	}
	return nil
}

// GetFeedCount returns the total number of feed rows, retweet events
// included.
func (r *FeedRepository) GetFeedCount() (int, error) {
	db, err := r.store.Handle()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
