// ABOUTME: Tests for the HTTP transport against a stub News server
// ABOUTME: Covers endpoint payloads, error classification and basic auth decoration

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBasicListFeeds(t *testing.T) {
	var gotAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		gotAuth = ok && user == "alice" && pass == "secret"
		w.Write([]byte(`{"feeds":[{"id":"f1","title":"Example","url":"https://example.com/feed.xml","link":"https://example.com"}]}`))
	}))
	defer server.Close()

	api := NewBasic(server.URL, "alice", "secret")
	feeds, err := api.ListFeeds(context.Background())
	if err != nil {
		t.Fatalf("ListFeeds failed: %v", err)
	}
	if !gotAuth {
		t.Error("request did not carry basic auth credentials")
	}
	if len(feeds) != 1 {
		t.Fatalf("expected 1 feed, got %d", len(feeds))
	}
	f := feeds[0]
	if f.ID != "f1" || f.Title != "Example" ||
		f.SelfLink != "https://example.com/feed.xml" || f.AlternateLink != "https://example.com" {
		t.Errorf("descriptor mismatch: %+v", f)
	}
}

func TestListEntriesQueryAndMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lastModified") != "1700000000" {
			t.Errorf("lastModified = %q", q.Get("lastModified"))
		}
		if q.Get("offset") != "0" || q.Get("limit") != "200" {
			t.Errorf("paging params wrong: offset=%q limit=%q", q.Get("offset"), q.Get("limit"))
		}
		if q.Get("feedId") != "f1" {
			t.Errorf("feedId = %q", q.Get("feedId"))
		}
		w.Write([]byte(`{"items":[
			{"id":"e1","feedId":"f1","title":"Hello","url":"https://example.com/1",
			 "pubDate":1700000100,"summary":"hi","unread":false,"starred":true}
		]}`))
	}))
	defer server.Close()

	api := NewBasic(server.URL, "u", "p")
	entries, err := api.ListEntries(context.Background(), 1700000000, "f1", 0, 200)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.Read {
		t.Error("unread:false should map to Read=true")
	}
	if !e.Bookmarked {
		t.Error("starred:true should map to Bookmarked=true")
	}
	if e.Published == nil || e.Published.Unix() != 1700000100 {
		t.Errorf("published wrong: %v", e.Published)
	}
	if e.AlternateLink != "https://example.com/1" {
		t.Errorf("alternate link wrong: %q", e.AlternateLink)
	}
}

func TestPushFlagsGrouping(t *testing.T) {
	calls := map[string][]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var body struct {
			ItemIDs []string `json:"itemIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		calls[r.URL.Path] = body.ItemIDs
	}))
	defer server.Close()

	api := NewBasic(server.URL, "u", "p")
	batch := FlagBatch{
		ReadIDs:         []string{"e1", "e2"},
		UnbookmarkedIDs: []string{"e3"},
	}
	if err := api.PushFlags(context.Background(), batch); err != nil {
		t.Fatalf("PushFlags failed: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 requests (empty groups skipped), got %d", len(calls))
	}
	if got := calls["/items/read/multiple"]; len(got) != 2 {
		t.Errorf("read group wrong: %v", got)
	}
	if got := calls["/items/unbookmark/multiple"]; len(got) != 1 || got[0] != "e3" {
		t.Errorf("unbookmark group wrong: %v", got)
	}
}

func TestPushFlagsEmptyBatchNoRequests(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	api := NewBasic(server.URL, "u", "p")
	if err := api.PushFlags(context.Background(), FlagBatch{}); err != nil {
		t.Fatal(err)
	}
	if hits != 0 {
		t.Errorf("empty batch made %d requests", hits)
	}
}

func TestAddRenameDeleteFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/feeds":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["url"] != "https://example.com/feed.xml" {
				t.Errorf("add body wrong: %v", body)
			}
			w.Write([]byte(`{"feeds":[{"id":"f9","title":"New","url":"https://example.com/feed.xml","link":""}]}`))
		case r.Method == http.MethodPut && r.URL.Path == "/feeds/f9/rename":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["feedTitle"] != "Better Name" {
				t.Errorf("rename body wrong: %v", body)
			}
		case r.Method == http.MethodDelete && r.URL.Path == "/feeds/f9":
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	api := NewBasic(server.URL, "u", "p")
	ctx := context.Background()

	feed, err := api.AddFeed(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("AddFeed failed: %v", err)
	}
	if feed.ID != "f9" {
		t.Errorf("feed id wrong: %q", feed.ID)
	}
	if err := api.RenameFeed(ctx, "f9", "Better Name"); err != nil {
		t.Fatalf("RenameFeed failed: %v", err)
	}
	if err := api.DeleteFeed(ctx, "f9"); err != nil {
		t.Fatalf("DeleteFeed failed: %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, IsAuth},
		{"forbidden", http.StatusForbidden, IsAuth},
		{"server error", http.StatusInternalServerError, IsTransient},
		{"unavailable", http.StatusServiceUnavailable, IsTransient},
		{"rate limited", http.StatusTooManyRequests, IsTransient},
		{"bad request", http.StatusBadRequest, IsParse},
		{"not found", http.StatusNotFound, IsParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			api := NewBasic(server.URL, "u", "p")
			_, err := api.ListFeeds(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tt.check(err) {
				t.Errorf("status %d misclassified: %v", tt.status, err)
			}
		})
	}
}

func TestUndecodablePayloadIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	api := NewBasic(server.URL, "u", "p")
	_, err := api.ListFeeds(context.Background())
	if !IsParse(err) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	api := NewBasic(server.URL, "u", "p")
	_, err := api.ListFeeds(context.Background())
	if !IsTransient(err) {
		t.Errorf("expected TransientError, got %v", err)
	}
}
