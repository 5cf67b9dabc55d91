package database

import (
	"strings"
	"time"
)

const (
	DefaultPage      = 0
	DefaultPageCount = 100
)

// Transcript timestamps use a fixed local format interpreted at the
// configured whole-hour UTC offset.
const timestampLayout = "2006/01/02 15:04:05"

// ParseFeedTime parses a transcript timestamp in the given location. The
// bool reports whether the value was parseable.
func ParseFeedTime(value string, loc *time.Location) (int64, bool) {
	t, err := time.ParseInLocation(timestampLayout, value, loc)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// parseBoundTime parses a since/until query bound, accepting either the
// full transcript format or a bare date.
func parseBoundTime(value string, loc *time.Location) (int64, bool) {
	if ts, ok := ParseFeedTime(value, loc); ok {
		return ts, true
	}
	t, err := time.ParseInLocation("2006/01/02", value, loc)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// FeedsQuery is an ephemeral filter/pagination request against the feed
// store. Empty filter fields are not applied.
type FeedsQuery struct {
	UserName     string `form:"user_name" json:"user_name,omitempty"`
	Keyword      string `form:"keyword" json:"keyword,omitempty"`
	Since        string `form:"since" json:"since,omitempty"`
	Until        string `form:"until" json:"until,omitempty"`
	HasMediaOnly bool   `form:"has_media_only" json:"has_media_only,omitempty"`
	Page         *int   `form:"page" json:"page"`
	Count        *int   `form:"count" json:"count"`
}

// Normalize fills pagination defaults and enforces the leading "@" on the
// user name filter. The normalized query is what gets echoed back to the
// caller.
func (q *FeedsQuery) Normalize() {
	if q.UserName != "" && !strings.HasPrefix(q.UserName, "@") {
		q.UserName = "@" + q.UserName
	}
	if q.Page == nil || *q.Page < 0 {
		page := DefaultPage
		q.Page = &page
	}
	if q.Count == nil || *q.Count <= 0 {
		count := DefaultPageCount
		q.Count = &count
	}
}
