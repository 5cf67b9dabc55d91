package archive

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tmd-viewer/app/database"
)

// statusURLPattern extracts the posting account and the numeric status id
// from a post URL. Rows whose URL does not match carry no identity and are
// dropped.
var statusURLPattern = regexp.MustCompile(`^https?://(?:(?:mobile)\.)?twitter\.com/([a-zA-Z0-9_]+)/status/([0-9]+)`)

// Row is one 13-column transcript record.
type Row struct {
	FeedDate      string
	ActionDate    string
	DisplayName   string
	UserName      string
	TwitterURL    string
	MediaType     string
	MediaURL      string
	MediaFilePath string
	Remarks       string
	Content       string
	ReplyCount    string
	RetweetCount  string
	LikeCount     string
}

// RowFromRecord maps a raw CSV record onto the fixed column schema. Records
// with fewer columns are unusable.
func RowFromRecord(rec []string) (Row, bool) {
	if len(rec) < 13 {
		return Row{}, false
	}
	return Row{
		FeedDate:      rec[0],
		ActionDate:    rec[1],
		DisplayName:   rec[2],
		UserName:      rec[3],
		TwitterURL:    rec[4],
		MediaType:     rec[5],
		MediaURL:      rec[6],
		MediaFilePath: rec[7],
		Remarks:       rec[8],
		Content:       rec[9],
		ReplyCount:    rec[10],
		RetweetCount:  rec[11],
		LikeCount:     rec[12],
	}, true
}

// RetweetEvent is the repost half of a resolved retweet row.
type RetweetEvent struct {
	Origin    string // account the export belongs to, from the header block
	RetweetAt int64
}

// MediaRef is a media attachment referenced by a resolved row.
type MediaRef struct {
	MediaType string
	MediaURL  string
	MediaPath string
}

// Resolved is everything a single transcript row contributes to the store.
type Resolved struct {
	FeedID     int64
	UserName   string
	FeedAt     int64
	TwitterURL string
	Contents   string
	Retweet    *RetweetEvent
	Media      *MediaRef
}

// Reconciler interprets transcript rows into feed, retweet and media
// records. Timestamps are read at a fixed whole-hour UTC offset.
type Reconciler struct {
	loc *time.Location
}

func NewReconciler(loc *time.Location) *Reconciler {
	return &Reconciler{loc: loc}
}

// Resolve derives identity and records from one data row. The bool reports
// whether the row is usable: rows without a matching status URL or without
// a parseable feed date are skipped entirely, never partially applied.
func (r *Reconciler) Resolve(row Row, origin string) (*Resolved, bool) {
	m := statusURLPattern.FindStringSubmatch(row.TwitterURL)
	if m == nil {
		return nil, false
	}
	feedID, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil, false
	}

	feedAt, ok := database.ParseFeedTime(row.FeedDate, r.loc)
	if !ok {
		return nil, false
	}

	res := &Resolved{
		FeedID:     feedID,
		UserName:   strings.ToLower(row.UserName),
		FeedAt:     feedAt,
		TwitterURL: row.TwitterURL,
		Contents:   row.Content,
	}

	// A distinct, parseable action date marks the row as a repost: the
	// original content keeps feed_date, the repost event gets action_date.
	if actionAt, ok := database.ParseFeedTime(row.ActionDate, r.loc); ok && actionAt != feedAt {
		res.Retweet = &RetweetEvent{Origin: origin, RetweetAt: actionAt}
	}

	if row.MediaURL != "" && row.MediaFilePath != "" {
		res.Media = &MediaRef{
			MediaType: row.MediaType,
			MediaURL:  row.MediaURL,
			MediaPath: row.MediaFilePath,
		}
	}

	return res, true
}
