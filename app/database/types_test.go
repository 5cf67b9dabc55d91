package database

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseFeedTime(t *testing.T) {
	ts, ok := ParseFeedTime("2023/11/14 22:13:20", time.UTC)
	if !ok {
		t.Fatal("Expected timestamp to parse")
	}
	if ts != 1700000000 {
		t.Errorf("Expected 1700000000, got %d", ts)
	}

	// The configured offset shifts the epoch value.
	jst := time.FixedZone("", 9*3600)
	tsJST, ok := ParseFeedTime("2023/11/14 22:13:20", jst)
	if !ok {
		t.Fatal("Expected timestamp to parse")
	}
	if tsJST != ts-9*3600 {
		t.Errorf("Expected %d, got %d", ts-9*3600, tsJST)
	}

	for _, value := range []string{"", "2023-11-14 22:13:20", "not a date", "2023/11/14"} {
		if _, ok := ParseFeedTime(value, time.UTC); ok {
			t.Errorf("Expected %q to fail parsing", value)
		}
	}
}

func TestFeedEntry_MarshalJSON(t *testing.T) {
	feed := FeedEntry{Feed: &Feed{
		FeedID:     1234567890123456789,
		FeedAt:     1700000000,
		UserName:   "@alice",
		TwitterURL: "https://twitter.com/alice/status/1234567890123456789",
		Contents:   "hello",
	}}

	data, err := json.Marshal(feed)
	if err != nil {
		t.Fatalf("Failed to marshal feed entry: %v", err)
	}
	// Large ids must survive javascript clients, so they render as strings.
	if !strings.Contains(string(data), `"feed_id":"1234567890123456789"`) {
		t.Errorf("Expected string feed_id, got %s", data)
	}
	if strings.Contains(string(data), "retweet") {
		t.Errorf("Feed variant must not carry retweet fields, got %s", data)
	}

	rt := FeedEntry{Retweet: &Retweet{
		RetweetAt:       1700000100,
		UserName:        "@bob",
		RetweetID:       42,
		RetweetUserName: "@alice",
	}}
	data, err = json.Marshal(rt)
	if err != nil {
		t.Fatalf("Failed to marshal retweet entry: %v", err)
	}
	if !strings.Contains(string(data), `"retweet_id":"42"`) {
		t.Errorf("Expected string retweet_id, got %s", data)
	}
}

func TestBlob_JSONRoundTrip(t *testing.T) {
	in := Blob([]byte{0x00, 0x01, 0xfe, 0xff})

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Failed to marshal blob: %v", err)
	}
	if strings.ContainsAny(string(data), "+/=") {
		t.Errorf("Expected url-safe unpadded base64, got %s", data)
	}

	var out Blob
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to unmarshal blob: %v", err)
	}
	if string(out) != string(in) {
		t.Errorf("Round trip mismatch: %v != %v", out, in)
	}
}
