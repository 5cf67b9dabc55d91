package database

import (
	"encoding/base64"
	"encoding/json"
)

// Archive is one registered zip file in the data directory.
type Archive struct {
	FilePath      string `json:"file_path"`
	ScanStartedAt *int64 `json:"scan_started_at,omitempty"`
	ScanEndedAt   *int64 `json:"scan_ended_at,omitempty"`
}

// Blob renders as url-safe unpadded base64 in JSON, matching what the
// viewer frontend expects for inline thumbnails.
type Blob []byte

func (b Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Media is one attached file belonging to a feed, numbered per feed from 1.
type Media struct {
	FeedID    int64  `json:"feed_id,string"`
	MediaID   int64  `json:"media_id,string"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	FilePath  string `json:"file_path"`
	MediaPath string `json:"media_path"`
	Thumbnail Blob   `json:"thumbnail,omitempty"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// Feed is one original content unit.
type Feed struct {
	FeedID     int64   `json:"feed_id,string"`
	FeedAt     int64   `json:"feed_at"`
	UserName   string  `json:"user_name"`
	TwitterURL string  `json:"twitter_url"`
	Contents   string  `json:"contents"`
	Media      []Media `json:"media,omitempty"`
}

// Retweet is a repost event referencing an original feed, which is embedded
// when it exists in the store.
type Retweet struct {
	RetweetAt       int64  `json:"retweet_at"`
	UserName        string `json:"user_name"`
	RetweetID       int64  `json:"retweet_id,string"`
	RetweetUserName string `json:"retweet_user_name"`
	Retweet         *Feed  `json:"retweet,omitempty"`
}

// FeedEntry is the Feed-or-Retweet variant built from the retweet_id
// sentinel column. Exactly one of the two fields is set.
type FeedEntry struct {
	Feed    *Feed
	Retweet *Retweet
}

func (e FeedEntry) MarshalJSON() ([]byte, error) {
	if e.Retweet != nil {
		return json.Marshal(e.Retweet)
	}
	return json.Marshal(e.Feed)
}
